package jobs

import (
	"context"
	"log"
	"time"

	"github.com/arnabBaruah009/sms-nucleus/internal/config"
)

type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// StartSessionPurgeJob periodically removes expired session rows. Expired
// sessions already fail authentication, so the job is off by default and
// only trims table growth when enabled.
func StartSessionPurgeJob(ctx context.Context, cfg config.Config, store SessionPurger) {
	if !cfg.SessionPurgeEnabled {
		return
	}
	interval := cfg.SessionPurgeInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				purged, err := store.DeleteExpiredSessions(ctx, time.Now().UTC())
				if err != nil {
					log.Printf("session purge job error: %v", err)
					continue
				}
				if purged > 0 {
					log.Printf("session purge job removed %d sessions", purged)
				}
			}
		}
	}()
}
