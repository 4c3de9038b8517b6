package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"
)

// ErrorKind is the classified category of a delivery failure.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindNetwork         ErrorKind = "network"
	KindPayloadTooLarge ErrorKind = "payload_too_large"
	KindUnknown         ErrorKind = "unknown"
)

// Error wraps a tier failure with its classified kind.
type Error struct {
	Tier string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("delivery tier %s failed (%s): %v", e.Tier, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError classifies and wraps a raw tier error.
func newError(tier string, err error) *Error {
	return &Error{Tier: tier, Kind: Classify(err), Err: err}
}

// pq error codes that indicate the payload was rejected for size reasons.
const (
	pqStringDataRightTruncation = "22001"
	pqProgramLimitExceeded      = "54000"
)

// Classify maps a heterogeneous backend error to one ErrorKind. All
// branching on failure mode happens on the returned kind, never on raw
// error shapes.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqStringDataRightTruncation, pqProgramLimitExceeded:
			return KindPayloadTooLarge
		}
		switch pqErr.Code.Class() {
		case "22", "23":
			return KindValidation
		case "08":
			return KindNetwork
		}
		return KindUnknown
	}

	// Fall back to message sniffing for drivers and proxies that flatten
	// their errors to strings.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "payload"), strings.Contains(msg, "too large"),
		strings.Contains(msg, "size"), strings.Contains(msg, "value too long"):
		return KindPayloadTooLarge
	case strings.Contains(msg, "connection"), strings.Contains(msg, "timeout"),
		strings.Contains(msg, "network"), strings.Contains(msg, "refused"):
		return KindNetwork
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "violates"):
		return KindValidation
	}

	return KindUnknown
}
