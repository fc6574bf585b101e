package main

import (
	"context"
	"errors"
	"strings"

	"msgboard/internal/adapter/memory"
	"msgboard/internal/adapter/redisstore"
	"msgboard/internal/adapter/sqlstore"
	"msgboard/internal/config"
	"msgboard/internal/domain"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const memoryURL = "memory://"

// stores bundles the repositories selected by the config.
type stores struct {
	kind          string
	users         domain.UserRepository
	messages      domain.MessageRepository
	notifications domain.NotificationRepository
	sessions      domain.SessionRepository
	closers       []func() error
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	st := &stores{}
	if strings.HasPrefix(cfg.DatabaseURL, memoryURL) {
		db := memory.New()
		st.kind = "memory"
		st.users, st.messages, st.notifications, st.sessions = db, db, db, db.NewSessionRepo()
	} else {
		db, err := sqlstore.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st.kind = db.Driver()
		st.users, st.messages, st.notifications, st.sessions = db, db, db, sqlstore.NewSessionRepo(db)
		st.closers = append(st.closers, db.Close)
	}

	if cfg.SessionStore == config.SessionStoreRedis {
		sessions, err := redisstore.Open(ctx, cfg.RedisURL)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st.sessions = sessions
		st.closers = append(st.closers, sessions.Close)
	}
	return st, nil
}

func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = level
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc.Build()
}
