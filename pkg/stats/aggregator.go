package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/caduceuspress/pulse/pkg/observability"
)

// Aggregator maintains the event_stats_daily rollup table.
type Aggregator struct {
	db *sql.DB
}

// NewAggregator creates an aggregator over the ingestion backend.
func NewAggregator(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}

// AggregateDaily recomputes one day's rollup from the raw events. The
// upsert makes reruns for the same day idempotent.
func (a *Aggregator) AggregateDaily(ctx context.Context, date time.Time) error {
	query := `
		INSERT INTO event_stats_daily (
			date, event_type, document_type, event_count, unique_sessions
		)
		SELECT
			$1::date AS date,
			event_type,
			COALESCE(document_type, '') AS document_type,
			COUNT(*) AS event_count,
			COUNT(DISTINCT session_id) AS unique_sessions
		FROM events
		WHERE occurred_at >= $1::date
		  AND occurred_at < $1::date + INTERVAL '1 day'
		GROUP BY event_type, document_type
		ON CONFLICT (date, event_type, document_type) DO UPDATE SET
			event_count = EXCLUDED.event_count,
			unique_sessions = EXCLUDED.unique_sessions
	`
	if _, err := a.db.ExecContext(ctx, query, date); err != nil {
		return fmt.Errorf("failed to aggregate daily stats for %s: %w", date.Format("2006-01-02"), err)
	}
	return nil
}

// Backfill recomputes the rollup for the last N days, oldest first.
func (a *Aggregator) Backfill(ctx context.Context, days int, now time.Time) error {
	for i := days; i >= 1; i-- {
		day := now.AddDate(0, 0, -i)
		if err := a.AggregateDaily(ctx, day); err != nil {
			return err
		}
	}
	return nil
}

// Scheduler runs the aggregator on a cron schedule. Each run recomputes
// yesterday, so late events that arrived after midnight still land in the
// right bucket.
type Scheduler struct {
	cron   *cron.Cron
	logger *observability.Logger
}

// NewScheduler wires agg onto the given cron spec (standard five-field
// syntax, evaluated in UTC).
func NewScheduler(agg *Aggregator, spec string, runTimeout time.Duration, logger *observability.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(spec, func() {
		defer observability.RecoverPanic(logger, "daily stats rollup")

		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		if err := agg.AggregateDaily(ctx, yesterday); err != nil {
			logger.WithError(err).Error("daily stats rollup failed")
			return
		}
		logger.WithField("date", yesterday.Format("2006-01-02")).Info("daily stats rollup complete")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid rollup schedule %q: %w", spec, err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins running scheduled rollups.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
