package pledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"pledgeboard/internal/database"
)

// cardCodeAttempts bounds the collision retries when assigning a card code.
const cardCodeAttempts = 10

// PostgresStore implements Store, LogStore, and Lister on a pgx pool.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a store backed by the given connection pool.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `mobile_number, name, pledge::text, paid::text, remaining::text,
	card_capacity, card_code, normal_message_sent, whatsapp_sent, created_at, updated_at`

// GetByMobile returns the record for a mobile number, or ErrNotFound.
func (s *PostgresStore) GetByMobile(ctx context.Context, mobile string) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM pledge_records WHERE mobile_number = $1`

	rec, err := scanRecord(s.db.Pool.QueryRow(ctx, query, mobile))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapStoreErr(fmt.Errorf("get pledge record %q: %w", mobile, err))
	}
	return rec, nil
}

// Insert creates a new record, assigning timestamps and a unique card
// code. Collisions on the random code are retried a bounded number of
// times.
func (s *PostgresStore) Insert(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO pledge_records
			(mobile_number, name, pledge, paid, remaining, card_capacity, card_code,
			 normal_message_sent, whatsapp_sent, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, false, false, $8, $8)
	`

	now := time.Now().UTC()
	for attempt := 0; attempt < cardCodeAttempts; attempt++ {
		code := NewCardCode()
		_, err := s.db.Pool.Exec(ctx, query,
			rec.MobileNumber, rec.Name,
			rec.Pledge.String(), rec.Paid.String(), rec.Remaining.String(),
			rec.CardCapacity, code, now,
		)
		if isUniqueViolation(err, "pledge_records_card_code_key") {
			continue
		}
		if err != nil {
			return wrapStoreErr(fmt.Errorf("insert pledge record %q: %w", rec.MobileNumber, err))
		}
		rec.CardCode = code
		rec.CreatedAt = now
		rec.UpdatedAt = now
		rec.NormalMessageSent = false
		rec.WhatsappSent = false
		return nil
	}
	return fmt.Errorf("insert pledge record %q: card code space exhausted after %d attempts",
		rec.MobileNumber, cardCodeAttempts)
}

// Update overwrites the upload-owned fields of an existing record.
// Message flags, card code, and created_at are deliberately not in the
// SET list.
func (s *PostgresStore) Update(ctx context.Context, rec *Record) error {
	query := `
		UPDATE pledge_records
		SET name = $2, pledge = $3::numeric, paid = $4::numeric, remaining = $5::numeric,
		    card_capacity = $6, updated_at = $7
		WHERE mobile_number = $1
	`

	now := time.Now().UTC()
	tag, err := s.db.Pool.Exec(ctx, query,
		rec.MobileNumber, rec.Name,
		rec.Pledge.String(), rec.Paid.String(), rec.Remaining.String(),
		rec.CardCapacity, now,
	)
	if err != nil {
		return wrapStoreErr(fmt.Errorf("update pledge record %q: %w", rec.MobileNumber, err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update pledge record %q: %w", rec.MobileNumber, ErrNotFound)
	}
	rec.UpdatedAt = now
	return nil
}

// List returns records matching the optional search term against name or
// mobile number, most recently updated first.
func (s *PostgresStore) List(ctx context.Context, search string, limit, offset int) ([]Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM pledge_records
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR mobile_number LIKE '%' || $1 || '%'
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.Pool.Query(ctx, query, strings.TrimSpace(search), limit, offset)
	if err != nil {
		return nil, wrapStoreErr(fmt.Errorf("list pledge records: %w", err))
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListAll returns every record, ordered by mobile number.
func (s *PostgresStore) ListAll(ctx context.Context) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM pledge_records ORDER BY mobile_number`

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, wrapStoreErr(fmt.Errorf("list all pledge records: %w", err))
	}
	defer rows.Close()

	return collectRecords(rows)
}

// UpdateMobileNumber rekeys a record. Used by the normalize-phones tool;
// fails if the new number is already taken.
func (s *PostgresStore) UpdateMobileNumber(ctx context.Context, oldMobile, newMobile string) error {
	query := `UPDATE pledge_records SET mobile_number = $2, updated_at = $3 WHERE mobile_number = $1`

	tag, err := s.db.Pool.Exec(ctx, query, oldMobile, newMobile, time.Now().UTC())
	if err != nil {
		return wrapStoreErr(fmt.Errorf("rekey pledge record %q -> %q: %w", oldMobile, newMobile, err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rekey pledge record %q: %w", oldMobile, ErrNotFound)
	}
	return nil
}

// InsertUploadLog persists the outcome of one ingestion run.
func (s *PostgresStore) InsertUploadLog(ctx context.Context, log *UploadLog) error {
	query := `
		INSERT INTO upload_logs (id, filename, total_records, new_records, updated_records, errors, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.UploadedAt.IsZero() {
		log.UploadedAt = time.Now().UTC()
	}
	_, err := s.db.Pool.Exec(ctx, query,
		log.ID, log.Filename, log.TotalRecords, log.NewRecords, log.UpdatedRecords,
		log.Errors, log.UploadedAt,
	)
	if err != nil {
		return wrapStoreErr(fmt.Errorf("insert upload log for %q: %w", log.Filename, err))
	}
	return nil
}

// ListUploadLogs returns upload logs, newest first.
func (s *PostgresStore) ListUploadLogs(ctx context.Context) ([]UploadLog, error) {
	query := `
		SELECT id, filename, total_records, new_records, updated_records, errors, uploaded_at
		FROM upload_logs
		ORDER BY uploaded_at DESC
	`

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, wrapStoreErr(fmt.Errorf("list upload logs: %w", err))
	}
	defer rows.Close()

	var logs []UploadLog
	for rows.Next() {
		var l UploadLog
		if err := rows.Scan(&l.ID, &l.Filename, &l.TotalRecords, &l.NewRecords,
			&l.UpdatedRecords, &l.Errors, &l.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan upload log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec     Record
		pledge  string
		paid    string
		remain  string
		code    *string
	)
	err := row.Scan(&rec.MobileNumber, &rec.Name, &pledge, &paid, &remain,
		&rec.CardCapacity, &code, &rec.NormalMessageSent, &rec.WhatsappSent,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if code != nil {
		rec.CardCode = *code
	}
	if rec.Pledge, err = decimal.NewFromString(pledge); err != nil {
		return nil, fmt.Errorf("decode pledge amount %q: %w", pledge, err)
	}
	if rec.Paid, err = decimal.NewFromString(paid); err != nil {
		return nil, fmt.Errorf("decode paid amount %q: %w", paid, err)
	}
	if rec.Remaining, err = decimal.NewFromString(remain); err != nil {
		return nil, fmt.Errorf("decode remaining amount %q: %w", remain, err)
	}
	return &rec, nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pledge record: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

// wrapStoreErr marks connection-level failures as transient so the
// engine retries the row once before recording an error.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 (connection exception) and 40001/40P01
		// (serialization failure, deadlock) are retryable.
		if strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return &TransientError{Err: err}
		}
		return err
	}
	if pgconn.SafeToRetry(err) {
		return &TransientError{Err: err}
	}
	return err
}
