package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
)

// AttemptSweeper evicts attempt controllers that have not been used for the
// idle timeout. Eviction stops their countdown timers.
type AttemptSweeper struct {
	registry *attempt.Registry
	idle     time.Duration
	interval time.Duration
	log      zerolog.Logger
}

// NewAttemptSweeper creates a new AttemptSweeper. The sweep interval is a
// tenth of idle, at least one second.
func NewAttemptSweeper(registry *attempt.Registry, idle time.Duration, log zerolog.Logger) *AttemptSweeper {
	interval := idle / 10
	if interval < time.Second {
		interval = time.Second
	}
	return &AttemptSweeper{
		registry: registry,
		idle:     idle,
		interval: interval,
		log:      log.With().Str("component", "attempt_sweeper").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *AttemptSweeper) Start(ctx context.Context) {
	w.log.Info().Dur("idle", w.idle).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *AttemptSweeper) sweep() int {
	evicted := w.registry.Sweep(w.idle)
	for _, id := range evicted {
		w.log.Info().Str("attempt_id", id).Msg("Evicted idle attempt")
	}
	if len(evicted) > 0 {
		w.log.Debug().Int("evicted", len(evicted)).Int("live", w.registry.Len()).Msg("Sweep finished")
	}
	return len(evicted)
}
