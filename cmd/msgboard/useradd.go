package main

import (
	"errors"
	"fmt"

	"msgboard/internal/app"
	"msgboard/internal/config"

	"github.com/spf13/cobra"
)

var useraddCmd = &cobra.Command{
	Use:   "useradd <username>",
	Short: "Create an account from the command line",
	Args:  cobra.ExactArgs(1),
	RunE:  runUseradd,
}

func init() {
	useraddCmd.Flags().StringP("password", "p", "", "password for the new account")
	_ = useraddCmd.MarkFlagRequired("password")
}

func runUseradd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	password, _ := cmd.Flags().GetString("password")

	st, err := openStores(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	user, err := app.NewAuthService(st.users, st.sessions, cfg.SessionTTL).Register(cmd.Context(), args[0], password)
	if errors.Is(err, app.ErrUsernameTaken) {
		return fmt.Errorf("user %q already exists", args[0])
	}
	if err != nil {
		return err
	}
	total, err := st.users.Count(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, %d users total)\n", user.Username, user.ID, total)
	return nil
}
