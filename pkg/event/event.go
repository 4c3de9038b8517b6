package event

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Type identifies the kind of user or system action an Event records.
type Type string

const (
	TypeView        Type = "view"
	TypeShare       Type = "share"
	TypeDownload    Type = "download"
	TypeSearch      Type = "search"
	TypeClick       Type = "click"
	TypePageView    Type = "page_view"
	TypePerformance Type = "performance_metrics"
)

// Valid reports whether t is one of the known event types.
func (t Type) Valid() bool {
	switch t {
	case TypeView, TypeShare, TypeDownload, TypeSearch, TypeClick, TypePageView, TypePerformance:
		return true
	}
	return false
}

// DocumentScoped reports whether events of this type must carry a document
// identifier and document type.
func (t Type) DocumentScoped() bool {
	switch t {
	case TypeView, TypeShare, TypeDownload:
		return true
	}
	return false
}

// Status records the outcome of an interactive action (downloads).
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// SentinelDocumentID is the placeholder stored in place of a caller-supplied
// document reference that is not a valid UUID. The original reference is
// preserved under PayloadKeyDocumentReference.
const SentinelDocumentID = "00000000-0000-0000-0000-000000000000"

// PayloadKeyDocumentReference is the payload key holding the original
// caller-supplied document reference when the sentinel was substituted.
const PayloadKeyDocumentReference = "document_reference"

// MaxFileNameLen bounds file names, in characters, on the minimal-payload
// delivery tier.
const MaxFileNameLen = 255

// ClientInfo is a snapshot of ambient client context taken at call time.
type ClientInfo struct {
	UserAgent  string `json:"user_agent"`
	Referrer   string `json:"referrer,omitempty"`
	PageURL    string `json:"page_url"`
	ScreenSize string `json:"screen_size,omitempty"`
}

// Event is a discrete record destined for the ingestion backend.
//
// DocumentID is either a canonical UUID string, SentinelDocumentID, or empty
// for events that are not document-scoped (searches, clicks, page views).
type Event struct {
	ID           string         `json:"id"`
	Type         Type           `json:"event_type"`
	DocumentID   string         `json:"document_id,omitempty"`
	DocumentType string         `json:"document_type,omitempty"`
	SessionID    string         `json:"session_id"`
	Client       ClientInfo     `json:"client_info"`
	Payload      map[string]any `json:"payload,omitempty"`
	Status       Status         `json:"status,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// NormalizeDocumentID canonicalizes a caller-supplied document reference.
// Valid UUIDs come back in canonical form with an empty reference. Anything
// else maps to the sentinel, with the original string returned so the caller
// can preserve it in the payload.
func NormalizeDocumentID(raw string) (id string, reference string) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return SentinelDocumentID, raw
	}
	return parsed.String(), ""
}

// NewID returns a fresh client-generated event id.
func NewID() string {
	return uuid.New().String()
}

// TruncateFileName bounds a file name to MaxFileNameLen characters for the
// minimal-payload tier. Truncation happens on rune boundaries so the result
// stays valid UTF-8.
func TruncateFileName(name string) string {
	if utf8.RuneCountInString(name) <= MaxFileNameLen {
		return name
	}
	runes := 0
	for i := range name {
		if runes == MaxFileNameLen {
			return name[:i]
		}
		runes++
	}
	return name
}

// FileName extracts the file_name payload field, if present.
func (e *Event) FileName() string {
	if e.Payload == nil {
		return ""
	}
	if v, ok := e.Payload["file_name"].(string); ok {
		return v
	}
	return ""
}

// QueueItem wraps a normalized Event for buffering and durable backup. There
// is deliberately no retry counter: a record either delivers during the
// flush that drains it or terminates as failed (see delivery tier chain).
type QueueItem struct {
	Event      *Event    `json:"event"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
