package session

import (
	"context"
	"errors"
	"time"
)

// Redis keys holding all durable session state. The service process itself
// keeps nothing across requests, so replicas can be added freely.
const (
	keySecretCode      = "secret_code"
	keySecretTimestamp = "secret_timestamp"
	keyAttendanceLog   = "attendance_log"
)

// Sentinel errors surfaced by the manager. Handlers map these onto HTTP
// status codes with errors.Is.
var (
	// ErrStoreUnavailable means the backing store could not be reached or a
	// command failed. Callers must report service-unavailable rather than
	// fabricating a code.
	ErrStoreUnavailable = errors.New("attendance store unavailable")

	// ErrMissingField means a required submission field was empty.
	ErrMissingField = errors.New("missing student_id or code")

	// ErrCodeMismatch means the submitted code does not equal the active one.
	ErrCodeMismatch = errors.New("incorrect or expired code")
)

// Store defines how session state is stored and retrieved. Implementations
// must remain stateless beyond the backing store and report failures as
// ErrStoreUnavailable (wrapped).
type Store interface {
	// SecretCode returns the stored code, or "" if never rotated.
	SecretCode(ctx context.Context) (string, error)

	// SecretTimestamp returns the last rotation time in epoch seconds,
	// or 0 if never rotated.
	SecretTimestamp(ctx context.Context) (float64, error)

	// Rotate applies the rotation triple as a single atomic operation:
	// set the code, stamp the time, clear the present-set. A failure must
	// leave the previous triple wholly intact.
	Rotate(ctx context.Context, code string, at time.Time) error

	// AddPresent adds an identity to the present-set. Idempotent.
	AddPresent(ctx context.Context, identity string) error

	// ListPresent returns all identities in the present-set, unordered.
	ListPresent(ctx context.Context) ([]string, error)
}
