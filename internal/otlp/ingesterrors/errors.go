// Package ingesterrors implements the ingestion error taxonomy: a small
// closed set of error kinds, each with well-defined recovery locality,
// mapped to gRPC status codes at the receiver boundary.
package ingesterrors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// Kind is one of the error kinds named by the ingestion design.
type Kind string

const (
	// ConfigFatal: base promotion config missing or unparseable; the
	// process refuses to start.
	ConfigFatal Kind = "CONFIG_FATAL"
	// SchemaNotReady: expected tables or migration marker absent.
	SchemaNotReady Kind = "SCHEMA_NOT_READY"
	// RecordInvalid: a single record fails validation; dropped, batch continues.
	RecordInvalid Kind = "RECORD_INVALID"
	// BatchTransient: a retryable database error inside the fact transaction.
	BatchTransient Kind = "BATCH_TRANSIENT"
	// BatchPermanent: a non-retryable database error.
	BatchPermanent Kind = "BATCH_PERMANENT"
	// Cancelled: client or deadline cancellation.
	Cancelled Kind = "CANCELLED"
)

// IngestError carries a Kind alongside the usual message/cause, so
// receiver code can map it to a gRPC status without re-deriving intent
// from error string matching.
type IngestError struct {
	Kind          Kind
	Signal        string
	CorrelationID string
	Message       string
	Err           error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Signal, e.Message, e.Err)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Signal, e.Message)
}

func (e *IngestError) Unwrap() error { return e.Err }

// New builds an IngestError.
func New(kind Kind, signal, message string, err error) *IngestError {
	return &IngestError{Kind: kind, Signal: signal, Message: message, Err: err}
}

// As extracts an *IngestError from err, if any wraps one.
func As(err error) (*IngestError, bool) {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// GRPCCode maps a Kind to the gRPC status code the receiver should return.
func GRPCCode(kind Kind) codes.Code {
	switch kind {
	case ConfigFatal:
		return codes.Internal
	case SchemaNotReady:
		return codes.Unavailable
	case RecordInvalid:
		return codes.InvalidArgument
	case BatchTransient:
		return codes.Unavailable
	case BatchPermanent:
		return codes.FailedPrecondition
	case Cancelled:
		return codes.Canceled
	default:
		return codes.Unknown
	}
}

// Retryable reports whether the upstream collector should resend the
// batch after receiving this kind of error.
func Retryable(kind Kind) bool {
	return kind == SchemaNotReady || kind == BatchTransient
}
