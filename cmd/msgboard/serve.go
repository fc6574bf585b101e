package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	adapthttp "msgboard/internal/adapter/http"
	"msgboard/internal/app"
	"msgboard/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides PORT)")
	serveCmd.Flags().String("database-url", "", "database URL (overrides DATABASE_URL)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("database-url") {
		cfg.DatabaseURL, _ = cmd.Flags().GetString("database-url")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config:\n%w", err)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("close stores", zap.Error(err))
		}
	}()

	var oidcCfg *adapthttp.OIDCConfig
	if cfg.OIDC.Enabled() {
		oidcCfg, err = adapthttp.NewOIDCConfig(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.OIDC.RedirectURL)
		if err != nil {
			return err
		}
	}

	auth := app.NewAuthService(st.users, st.sessions, cfg.SessionTTL)
	srv, err := adapthttp.New(
		app.NewBoardService(st.messages),
		auth,
		app.NewProfileService(st.users, st.messages, st.notifications),
		adapthttp.Options{
			SecretKey:        []byte(cfg.SecretKey),
			SecureCookies:    cfg.SecureCookies,
			TrustForwardAuth: cfg.TrustForwardAuth,
			OIDC:             oidcCfg,
			Logger:           log,
		},
	)
	if err != nil {
		return err
	}
	httpSrv := srv.HTTPServer(cfg.Addr(), cfg.ReadTimeout, cfg.WriteTimeout)
	janitor := app.NewSessionJanitor(st.sessions, cfg.JanitorInterval, log.Named("janitor"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", httpSrv.Addr),
			zap.String("store", st.kind),
			zap.String("sessions", cfg.SessionStore),
			zap.Bool("sso", oidcCfg != nil),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return janitor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
