package delivery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/caduceuspress/pulse/pkg/event"
)

// Tier is one strategy in the ordered fallback chain. Deliver reports nil
// on acknowledgement; any error hands the record to the next tier.
type Tier interface {
	Name() string
	Deliver(ctx context.Context, e *event.Event) error
}

// Tier names as they appear in logs and metrics.
const (
	TierRPC     = "rpc"
	TierInsert  = "insert"
	TierMinimal = "minimal"
)

// rpcTier invokes the track_user_event stored function. The backend owns
// identifier handling and row-level security on this path.
type rpcTier struct {
	db *sql.DB
}

func (t *rpcTier) Name() string { return TierRPC }

func (t *rpcTier) Deliver(ctx context.Context, e *event.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	_, err = t.db.ExecContext(ctx,
		`SELECT track_user_event($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(e.Type),
		nullString(e.DocumentID),
		e.DocumentType,
		e.SessionID,
		nullString(e.Client.UserAgent),
		nullString(e.Client.Referrer),
		e.Client.PageURL,
		payload,
	)
	return err
}

// insertTier writes a raw event row directly into the events table.
type insertTier struct {
	db *sql.DB
}

func (t *insertTier) Name() string { return TierInsert }

func (t *insertTier) Deliver(ctx context.Context, e *event.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `
		INSERT INTO events (
			id, event_type, document_id, document_type, session_id,
			file_name, status, user_agent, referrer, page_url,
			screen_size, payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = t.db.ExecContext(ctx, query,
		e.ID,
		string(e.Type),
		nullString(e.DocumentID),
		nullString(e.DocumentType),
		e.SessionID,
		nullString(e.FileName()),
		nullString(string(e.Status)),
		nullString(e.Client.UserAgent),
		nullString(e.Client.Referrer),
		nullString(e.Client.PageURL),
		nullString(e.Client.ScreenSize),
		payload,
		e.OccurredAt,
	)
	return err
}

// minimalTier retries with a reduced record after a size-rejected insert:
// identifier, type, a bounded file name, and status only. Client info and
// the free-form payload are dropped.
type minimalTier struct {
	db *sql.DB
}

func (t *minimalTier) Name() string { return TierMinimal }

func (t *minimalTier) Deliver(ctx context.Context, e *event.Event) error {
	query := `
		INSERT INTO events (event_type, document_id, document_type, file_name, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := t.db.ExecContext(ctx, query,
		string(e.Type),
		nullString(e.DocumentID),
		nullString(e.DocumentType),
		nullString(event.TruncateFileName(e.FileName())),
		nullString(string(e.Status)),
	)
	return err
}

// nullString converts empty strings to NULL
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
