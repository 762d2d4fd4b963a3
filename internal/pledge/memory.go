package pledge

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation used by tests and
// local development without Postgres.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	codes   map[string]bool
	logs    []UploadLog

	// FailWith, when set, is returned by every write until cleared.
	FailWith error
	// FailMobile, when set, fails writes for that mobile number only,
	// returning FailMobileErr.
	FailMobile    string
	FailMobileErr error
	// TransientFailures makes that many writes fail with a
	// TransientError before succeeding.
	TransientFailures int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		codes:   make(map[string]bool),
	}
}

func (s *MemoryStore) GetByMobile(_ context.Context, mobile string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[mobile]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Insert(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr(rec.MobileNumber); err != nil {
		return err
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.NormalMessageSent = false
	rec.WhatsappSent = false
	for rec.CardCode == "" || s.codes[rec.CardCode] {
		rec.CardCode = NewCardCode()
	}
	s.codes[rec.CardCode] = true
	cp := *rec
	s.records[rec.MobileNumber] = &cp
	return nil
}

// Put stores a record exactly as given, bypassing failure injection
// and the column rules Insert and Update enforce. Tests use it to seed
// state.
func (s *MemoryStore) Put(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.records[rec.MobileNumber] = &cp
	if rec.CardCode != "" {
		s.codes[rec.CardCode] = true
	}
}

func (s *MemoryStore) Update(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr(rec.MobileNumber); err != nil {
		return err
	}
	existing, ok := s.records[rec.MobileNumber]
	if !ok {
		return ErrNotFound
	}
	existing.Name = rec.Name
	existing.Pledge = rec.Pledge
	existing.Paid = rec.Paid
	existing.Remaining = rec.Remaining
	existing.CardCapacity = rec.CardCapacity
	existing.UpdatedAt = time.Now().UTC()
	*rec = *existing
	return nil
}

func (s *MemoryStore) List(_ context.Context, search string, limit, offset int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []Record
	needle := strings.ToLower(strings.TrimSpace(search))
	for _, rec := range s.records {
		if needle != "" &&
			!strings.Contains(strings.ToLower(rec.Name), needle) &&
			!strings.Contains(rec.MobileNumber, needle) {
			continue
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].UpdatedAt.After(recs[j].UpdatedAt) })
	if offset >= len(recs) {
		return nil, nil
	}
	recs = recs[offset:]
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].MobileNumber < recs[j].MobileNumber })
	return recs, nil
}

func (s *MemoryStore) UpdateMobileNumber(_ context.Context, oldMobile, newMobile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[oldMobile]
	if !ok {
		return ErrNotFound
	}
	rec.MobileNumber = newMobile
	rec.UpdatedAt = time.Now().UTC()
	delete(s.records, oldMobile)
	s.records[newMobile] = rec
	return nil
}

func (s *MemoryStore) InsertUploadLog(_ context.Context, log *UploadLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.UploadedAt.IsZero() {
		log.UploadedAt = time.Now().UTC()
	}
	s.logs = append(s.logs, *log)
	return nil
}

func (s *MemoryStore) ListUploadLogs(_ context.Context) ([]UploadLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := make([]UploadLog, len(s.logs))
	copy(logs, s.logs)
	sort.Slice(logs, func(i, j int) bool { return logs[i].UploadedAt.After(logs[j].UploadedAt) })
	return logs, nil
}

func (s *MemoryStore) writeErr(mobile string) error {
	if s.FailWith != nil {
		return s.FailWith
	}
	if s.FailMobile != "" && s.FailMobile == mobile {
		return s.FailMobileErr
	}
	if s.TransientFailures > 0 {
		s.TransientFailures--
		return &TransientError{Err: errors.New("simulated transient failure")}
	}
	return nil
}
