package scheduler

import (
	"context"
	"log/slog"
	"time"

	sl "github.com/sudo-simon/amazon-scraper-bot/internal/lib/logger"
	"github.com/sudo-simon/amazon-scraper-bot/internal/models"
)

type Store interface {
	AuthorizedIDs() []int64
	UpdateAll(ctx context.Context, userID int64) (string, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, msg any) error
}

// Scheduler runs the daily price-update pass: once per day at the configured
// wall-clock time it updates every authorized user's watchlists and publishes
// the non-empty digests to the notification queue.
type Scheduler struct {
	log       *slog.Logger
	store     Store
	publisher Publisher
	at        string // "15:04" wall-clock time
	lastRun   string // date of the last completed pass
}

func New(log *slog.Logger, store Store, publisher Publisher, at string) *Scheduler {
	return &Scheduler{
		log:       log,
		store:     store,
		publisher: publisher,
		at:        at,
	}
}

// Run blocks until ctx is cancelled, polling once per minute for the
// scheduled time.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started", slog.String("at", s.at))

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case now := <-ticker.C:
			if !s.due(now) {
				continue
			}
			s.runPass(ctx)
			s.lastRun = now.Format(time.DateOnly)
		}
	}
}

// due reports whether the daily pass should fire: the scheduled minute has
// arrived and no pass ran today yet.
func (s *Scheduler) due(now time.Time) bool {
	if now.Format("15:04") != s.at {
		return false
	}
	return s.lastRun != now.Format(time.DateOnly)
}

func (s *Scheduler) runPass(ctx context.Context) {
	for _, userID := range s.store.AuthorizedIDs() {
		digest, err := s.store.UpdateAll(ctx, userID)
		if err != nil {
			s.log.Error("daily update failed",
				sl.Err(err),
				slog.Int64("user_id", userID),
			)
			continue
		}
		if digest == "" {
			continue
		}

		event := models.DigestEvent{UserID: userID, Digest: digest}
		if err := s.publisher.PublishJSON(ctx, event); err != nil {
			s.log.Error("failed to publish digest",
				sl.Err(err),
				slog.Int64("user_id", userID),
			)
		}
	}

	s.log.Info("daily update pass completed")
}
