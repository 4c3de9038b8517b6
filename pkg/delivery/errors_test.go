package delivery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "dial tcp: i/o problem" }
func (fakeNetError) Timeout() bool   { return true }
func (fakeNetError) Temporary() bool { return true }

var _ net.Error = fakeNetError{}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{
			name: "context deadline",
			err:  context.DeadlineExceeded,
			want: KindNetwork,
		},
		{
			name: "wrapped context deadline",
			err:  fmt.Errorf("exec: %w", context.DeadlineExceeded),
			want: KindNetwork,
		},
		{
			name: "net error",
			err:  fakeNetError{},
			want: KindNetwork,
		},
		{
			name: "pq string truncation",
			err:  &pq.Error{Code: "22001"},
			want: KindPayloadTooLarge,
		},
		{
			name: "pq program limit",
			err:  &pq.Error{Code: "54000"},
			want: KindPayloadTooLarge,
		},
		{
			name: "pq integrity violation",
			err:  &pq.Error{Code: "23502"},
			want: KindValidation,
		},
		{
			name: "pq data exception",
			err:  &pq.Error{Code: "22P02"},
			want: KindValidation,
		},
		{
			name: "pq connection failure",
			err:  &pq.Error{Code: "08006"},
			want: KindNetwork,
		},
		{
			name: "pq undefined function",
			err:  &pq.Error{Code: "42883"},
			want: KindUnknown,
		},
		{
			name: "string payload error",
			err:  errors.New("request payload exceeded limit"),
			want: KindPayloadTooLarge,
		},
		{
			name: "string size error",
			err:  errors.New("row size exceeds maximum"),
			want: KindPayloadTooLarge,
		},
		{
			name: "string connection error",
			err:  errors.New("connection refused"),
			want: KindNetwork,
		},
		{
			name: "string validation error",
			err:  errors.New("new row violates row-level security policy"),
			want: KindValidation,
		},
		{
			name: "anything else",
			err:  errors.New("weird backend moment"),
			want: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("boom")
	err := newError(TierInsert, cause)

	assert.Equal(t, TierInsert, err.Tier)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert")
}

func TestClassifyTimeoutMessage(t *testing.T) {
	err := fmt.Errorf("exec timed out after %v: timeout", time.Second)
	assert.Equal(t, KindNetwork, Classify(err))
}
