package app

import (
	"context"
	"time"

	"msgboard/internal/domain"

	"go.uber.org/zap"
)

// SessionJanitor periodically purges expired sessions.
type SessionJanitor struct {
	sessions domain.SessionRepository
	interval time.Duration
	log      *zap.Logger
}

// NewSessionJanitor creates a janitor that sweeps every interval.
func NewSessionJanitor(sessions domain.SessionRepository, interval time.Duration, log *zap.Logger) *SessionJanitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionJanitor{sessions: sessions, interval: interval, log: log}
}

// Run sweeps until ctx is cancelled. It always returns nil so it can run
// under an errgroup next to the HTTP server.
func (j *SessionJanitor) Run(ctx context.Context) error {
	if j.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := j.sessions.DeleteExpired(ctx); err != nil && ctx.Err() == nil {
				j.log.Warn("purge expired sessions", zap.Error(err))
			}
		}
	}
}
