package stats

import (
	"context"
	"database/sql"
	"time"

	"github.com/caduceuspress/pulse/pkg/event"
)

// Service provides read aggregates over the ingestion backend.
type Service struct {
	db *sql.DB
}

// NewService creates a stats service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// TypeStats is activity broken down by document type.
type TypeStats struct {
	DocumentType string `json:"document_type"`
	Views        int64  `json:"views"`
	Downloads    int64  `json:"downloads"`
	Shares       int64  `json:"shares"`
}

// ByDocumentType returns activity grouped by document type, most viewed
// first. Rows without a document type (searches, page views) are excluded.
func (s *Service) ByDocumentType(ctx context.Context) ([]TypeStats, error) {
	query := `
		SELECT
			document_type,
			COUNT(*) FILTER (WHERE event_type = 'view') AS views,
			COUNT(*) FILTER (WHERE event_type = 'download') AS downloads,
			COUNT(*) FILTER (WHERE event_type = 'share') AS shares
		FROM events
		WHERE document_type IS NOT NULL
		GROUP BY document_type
		ORDER BY views DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TypeStats
	for rows.Next() {
		var ts TypeStats
		if err := rows.Scan(&ts.DocumentType, &ts.Views, &ts.Downloads, &ts.Shares); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// DailyStat is one day of activity from the rollup table.
type DailyStat struct {
	Date           string `json:"date"`
	Events         int64  `json:"events"`
	Views          int64  `json:"views"`
	Downloads      int64  `json:"downloads"`
	UniqueSessions int64  `json:"unique_sessions"`
}

// Daily returns per-day activity for the last N days, oldest first. The
// numbers come from the event_stats_daily rollup, not the raw events.
func (s *Service) Daily(ctx context.Context, days int) ([]DailyStat, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	query := `
		SELECT
			date,
			SUM(event_count) AS events,
			SUM(event_count) FILTER (WHERE event_type = 'view') AS views,
			SUM(event_count) FILTER (WHERE event_type = 'download') AS downloads,
			SUM(unique_sessions) AS unique_sessions
		FROM event_stats_daily
		WHERE date >= CURRENT_DATE - $1::integer * INTERVAL '1 day'
		GROUP BY date
		ORDER BY date ASC
	`
	rows, err := s.db.QueryContext(ctx, query, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyStat
	for rows.Next() {
		var (
			ds        DailyStat
			date      time.Time
			views     sql.NullInt64
			downloads sql.NullInt64
		)
		if err := rows.Scan(&date, &ds.Events, &views, &downloads, &ds.UniqueSessions); err != nil {
			return nil, err
		}
		ds.Date = date.Format("2006-01-02")
		ds.Views = views.Int64
		ds.Downloads = downloads.Int64
		out = append(out, ds)
	}
	return out, rows.Err()
}

// Totals are lifetime counts with a per-type breakdown.
type Totals struct {
	TotalEvents int64                `json:"total_events"`
	ByType      map[event.Type]int64 `json:"by_type"`
}

// Overall returns lifetime totals across all events.
func (s *Service) Overall(ctx context.Context) (*Totals, error) {
	query := `
		SELECT event_type, COUNT(*)
		FROM events
		GROUP BY event_type
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := &Totals{ByType: make(map[event.Type]int64)}
	for rows.Next() {
		var (
			typ string
			n   int64
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		totals.ByType[event.Type(typ)] = n
		totals.TotalEvents += n
	}
	return totals, rows.Err()
}

// DocumentStats are the lifetime numbers of one document.
type DocumentStats struct {
	DocumentID  string     `json:"document_id"`
	Views       int64      `json:"views"`
	Downloads   int64      `json:"downloads"`
	Shares      int64      `json:"shares"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}

// ForDocument returns lifetime stats for one document. A document with no
// recorded activity yields zero counts, not an error.
func (s *Service) ForDocument(ctx context.Context, documentID string) (*DocumentStats, error) {
	stats := &DocumentStats{DocumentID: documentID}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE event_type = 'view'),
			COUNT(*) FILTER (WHERE event_type = 'download'),
			COUNT(*) FILTER (WHERE event_type = 'share'),
			MAX(occurred_at)
		FROM events
		WHERE document_id = $1
	`
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, query, documentID).Scan(
		&stats.Views,
		&stats.Downloads,
		&stats.Shares,
		&last,
	)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if last.Valid {
		stats.LastEventAt = &last.Time
	}
	return stats, nil
}
