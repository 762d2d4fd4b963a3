package pledge

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by GetByMobile when no record exists for the
// mobile number.
var ErrNotFound = errors.New("pledge record not found")

// TransientError wraps a store failure that is worth retrying once,
// such as a serialization conflict or a dropped connection.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient store error: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err signals a retryable store condition.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// UploadLog is the persisted outcome of one ingestion run.
type UploadLog struct {
	ID             uuid.UUID `json:"id"`
	Filename       string    `json:"filename"`
	TotalRecords   int       `json:"total_records"`
	NewRecords     int       `json:"new_records"`
	UpdatedRecords int       `json:"updated_records"`
	Errors         string    `json:"errors"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// Store is the persistence collaborator consumed by the ingestion engine.
// Lookups and writes are keyed by mobile number; no transaction spanning a
// whole upload is assumed.
type Store interface {
	// GetByMobile returns the record for a mobile number, or ErrNotFound.
	GetByMobile(ctx context.Context, mobile string) (*Record, error)

	// Insert creates a new record. CreatedAt/UpdatedAt and the card code
	// are assigned by the store.
	Insert(ctx context.Context, rec *Record) error

	// Update overwrites name, pledge, paid, remaining, and card capacity
	// of an existing record and refreshes UpdatedAt. Message flags,
	// card code, and CreatedAt are left untouched.
	Update(ctx context.Context, rec *Record) error
}

// LogStore persists and lists upload logs.
type LogStore interface {
	InsertUploadLog(ctx context.Context, log *UploadLog) error
	ListUploadLogs(ctx context.Context) ([]UploadLog, error)
}

// Lister exposes the pledge listing consumed by the web layer and the
// maintenance tools.
type Lister interface {
	List(ctx context.Context, search string, limit, offset int) ([]Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	UpdateMobileNumber(ctx context.Context, oldMobile, newMobile string) error
}
