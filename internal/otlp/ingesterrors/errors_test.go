package ingesterrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestNewAndError(t *testing.T) {
	cause := errors.New("boom")
	e := New(RecordInvalid, "logs", "bad body", cause)
	assert.Contains(t, e.Error(), "RECORD_INVALID")
	assert.Contains(t, e.Error(), "logs")
	assert.Contains(t, e.Error(), "bad body")
	assert.Contains(t, e.Error(), "boom")
	assert.Equal(t, cause, errors.Unwrap(e))
}

func TestErrorWithoutCause(t *testing.T) {
	e := New(Cancelled, "traces", "client hung up", nil)
	assert.NotContains(t, e.Error(), "<nil>")
}

func TestAsExtractsWrapped(t *testing.T) {
	inner := New(BatchTransient, "metrics", "db unavailable", errors.New("conn reset"))
	wrapped := fmt.Errorf("export failed: %w", inner)

	got, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, BatchTransient, got.Kind)
}

func TestAsFailsForPlainError(t *testing.T) {
	_, ok := As(errors.New("plain"))
	assert.False(t, ok)
}

func TestGRPCCodeMapping(t *testing.T) {
	cases := map[Kind]codes.Code{
		ConfigFatal:    codes.Internal,
		SchemaNotReady: codes.Unavailable,
		RecordInvalid:  codes.InvalidArgument,
		BatchTransient: codes.Unavailable,
		BatchPermanent: codes.FailedPrecondition,
		Cancelled:      codes.Canceled,
		Kind("bogus"):  codes.Unknown,
	}
	for kind, want := range cases {
		assert.Equal(t, want, GRPCCode(kind), "kind=%s", kind)
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(SchemaNotReady))
	assert.True(t, Retryable(BatchTransient))
	assert.False(t, Retryable(BatchPermanent))
	assert.False(t, Retryable(ConfigFatal))
	assert.False(t, Retryable(RecordInvalid))
	assert.False(t, Retryable(Cancelled))
}
