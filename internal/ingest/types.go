package ingest

import (
	"fmt"
	"strings"
)

// RunPhase indicates the current stage of an ingestion run.
type RunPhase string

const (
	PhaseStarted     RunPhase = "started"
	PhaseReading     RunPhase = "reading"
	PhaseReconciling RunPhase = "reconciling"
	PhaseCompleted   RunPhase = "completed"
	PhaseFailed      RunPhase = "failed"
)

// Row is one data row emitted by a TableReader. Index is the 1-based
// position among data rows, in original file order. Values maps the
// file's literal header strings to cell text.
type Row struct {
	Index  int
	Values map[string]string
}

// RowError is a per-row recoverable failure. The row is excluded from
// reconciliation but the run continues.
type RowError struct {
	RowIndex  int               `json:"row_index"`
	RawValues map[string]string `json:"raw_values"`
	Reason    string            `json:"reason"`
}

func (e RowError) String() string {
	return fmt.Sprintf("Row %d: %s", e.RowIndex, e.Reason)
}

// RunReport accumulates the outcome of one ingestion run. It is the
// engine's sole return value; persistence of the report is the
// caller's concern.
type RunReport struct {
	TotalRowsSeen int        `json:"total_rows_seen"`
	CreatedCount  int        `json:"created_count"`
	UpdatedCount  int        `json:"updated_count"`
	ErrorCount    int        `json:"error_count"`
	Errors        []RowError `json:"errors"`

	// TouchedMobiles lists the record identities this run created or
	// updated, in file order, for traceability only.
	TouchedMobiles []string `json:"touched_mobiles,omitempty"`
}

func (r *RunReport) rowCreated(mobile string) {
	r.CreatedCount++
	r.TouchedMobiles = append(r.TouchedMobiles, mobile)
}

func (r *RunReport) rowUpdated(mobile string) {
	r.UpdatedCount++
	r.TouchedMobiles = append(r.TouchedMobiles, mobile)
}

func (r *RunReport) rowErrored(row Row, reason string) {
	r.ErrorCount++
	r.Errors = append(r.Errors, RowError{
		RowIndex:  row.Index,
		RawValues: row.Values,
		Reason:    reason,
	})
}

// ErrorsText joins the row errors into a single display string, one
// "Row N: reason" entry per error.
func (r *RunReport) ErrorsText() string {
	if len(r.Errors) == 0 {
		return ""
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.String()
	}
	return strings.Join(parts, "; ")
}

// Message returns the user-facing upload summary.
func (r *RunReport) Message() string {
	msg := fmt.Sprintf("Processed %d records. New: %d, Updated: %d",
		r.TotalRowsSeen, r.CreatedCount, r.UpdatedCount)
	if r.ErrorCount > 0 {
		msg += fmt.Sprintf(". Errors: %d", r.ErrorCount)
	}
	return msg
}
