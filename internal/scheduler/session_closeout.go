package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

const SessionCloseoutJobName = "session_closeout"

// SessionCloser settles sessions whose day has passed.
type SessionCloser interface {
	CloseStaleSessions(ctx context.Context, now time.Time) (int, error)
}

// RegisterSessionCloseoutJob closes stale match sessions on cronExpr.
func RegisterSessionCloseoutJob(svc *Service, closer SessionCloser, cronExpr string) (gocron.Job, error) {
	if closer == nil {
		return nil, errors.New("session closeout job requires a session closer")
	}

	return svc.AddJob(SessionCloseoutJobName, cronExpr, func(ctx context.Context) error {
		closed, err := closer.CloseStaleSessions(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("close stale sessions: %w", err)
		}
		log.Ctx(ctx).Info().
			Str("component", "session_closeout_job").
			Int("closed_sessions", closed).
			Msg("Session closeout finished")
		return nil
	})
}
