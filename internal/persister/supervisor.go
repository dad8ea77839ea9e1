package persister

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/saga-markets/dexbook/internal/matching"
)

// restartBackoff is the pause between a failed persister's death and the
// Supervisor starting its replacement, so a persistently broken database
// does not spin the CPU.
const restartBackoff = 500 * time.Millisecond

// SupervisorMetrics is the subset of *metrics.Collector the supervisor
// reports through.
type SupervisorMetrics interface {
	Metrics
	RecordPersisterRestart()
}

// Supervisor restarts a fresh Persister every time the current one dies.
// Events already on the channel when a persister dies stay there for the
// next one; events lost because the process itself restarted are not
// recovered, since the channel is in-memory only.
type Supervisor struct {
	db      *sql.DB
	events  matching.EventQueue
	log     zerolog.Logger
	metrics SupervisorMetrics
}

// NewSupervisor builds a Supervisor that will keep a Persister running
// against db until ctx is cancelled. metrics may be nil.
func NewSupervisor(db *sql.DB, events matching.EventQueue, log zerolog.Logger, metrics SupervisorMetrics) *Supervisor {
	return &Supervisor{db: db, events: events, log: log.With().Str("component", "persister-supervisor").Logger(), metrics: metrics}
}

// Run blocks until ctx is cancelled, restarting a Persister each time one
// terminates with an error.
func (sv *Supervisor) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		attempt++
		p := New(sv.db, sv.events, sv.log, sv.metrics)
		err := p.Run(ctx)

		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// Run only returns nil on a cancelled context, already handled above.
			continue
		}

		if sv.metrics != nil {
			sv.metrics.RecordPersisterRestart()
		}

		sv.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", restartBackoff).
			Msg("persister died, restarting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(restartBackoff):
		}
	}
}
