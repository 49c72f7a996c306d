package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_backoffice/internal/domain"
)

// IntentPublisher hands an intent to the message bus.
type IntentPublisher interface {
	PublishIntent(ctx context.Context, intent domain.OutboxIntent) error
}

type RelayConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// Relay moves stored outbox intents onto the bus. Failures stay on the intent row and
// are retried on the next tick; booking callers never see them.
type Relay struct {
	repo domain.OutboxRepository
	pub  IntentPublisher
	cfg  RelayConfig
	now  func() time.Time
	// OnResult, when set, observes each dispatch outcome: dispatched|retry|failed.
	OnResult func(result string)
}

func NewRelay(r domain.OutboxRepository, p IntentPublisher, cfg RelayConfig) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Relay{repo: r, pub: p, cfg: cfg, now: time.Now}
}

func (r *Relay) WithClock(now func() time.Time) *Relay {
	r.now = now
	return r
}

// DispatchOnce publishes one batch of pending intents and returns how many were
// dispatched.
func (r *Relay) DispatchOnce(ctx context.Context) (int, error) {
	intents, err := r.repo.PendingIntents(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, in := range intents {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if perr := r.pub.PublishIntent(ctx, in); perr != nil {
			dead := in.Attempts+1 >= r.cfg.MaxAttempts
			ev := log.Warn()
			result := "retry"
			if dead {
				ev = log.Error()
				result = "failed"
			}
			ev.Err(perr).Str("intent", in.ID).Str("type", string(in.Type)).
				Int("attempt", in.Attempts+1).Bool("dead", dead).Msg("outbox publish failed")
			if err := r.repo.MarkIntentFailed(ctx, in.ID, perr.Error(), dead, r.now().UTC()); err != nil {
				log.Error().Err(err).Str("intent", in.ID).Msg("outbox mark failed")
			}
			r.observe(result)
			continue
		}
		if err := r.repo.MarkIntentDispatched(ctx, in.ID, r.now().UTC()); err != nil {
			// The consumer dedupes on intent id, so a re-publish next tick is harmless.
			log.Error().Err(err).Str("intent", in.ID).Msg("outbox mark dispatched")
			continue
		}
		r.observe("dispatched")
		sent++
	}
	return sent, nil
}

// Run dispatches on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.cfg.Interval)
	defer t.Stop()
	for {
		if _, err := r.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("outbox dispatch")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (r *Relay) observe(result string) {
	if r.OnResult != nil {
		r.OnResult(result)
	}
}
