package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumns is a structural failure: one or more required
// canonical fields could not be resolved from the file's headers.
var ErrMissingColumns = errors.New("missing required columns")

// Canonical fields the engine operates on, independent of the literal
// header text a given file uses.
const (
	FieldName      = "name"
	FieldMobile    = "mobile_number"
	FieldPledge    = "pledge"
	FieldPaid      = "paid"
	FieldRemaining = "remaining"
)

// columnAliases maps each canonical field to the header variants it
// accepts, compared after normalization.
var columnAliases = map[string][]string{
	FieldName:      {"name", "full_name", "person_name"},
	FieldMobile:    {"mobile_number", "mobile", "phone", "phone_number", "contact"},
	FieldPledge:    {"pledge", "pledged", "pledge_amount"},
	FieldPaid:      {"paid", "amount_paid", "paid_amount"},
	FieldRemaining: {"remaining", "balance", "remaining_amount"},
}

// requiredFields must all resolve or the run fails before any row is
// processed. FieldRemaining is optional; the normalizer computes it.
var requiredFields = []string{FieldName, FieldMobile, FieldPledge, FieldPaid}

// ColumnMap is the result of resolving a file's headers against the
// alias table, built once per run.
type ColumnMap struct {
	byField map[string]string // canonical field -> literal header
}

// ResolveColumns maps the file's literal headers onto the canonical
// fields. Matching is case-insensitive and whitespace-tolerant. When
// several headers match the same field, the leftmost column wins; this
// is a deliberate policy, not an accident of iteration order.
func ResolveColumns(headers []string) (*ColumnMap, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	m := &ColumnMap{byField: make(map[string]string, len(columnAliases))}
	for field, aliases := range columnAliases {
	scan:
		for i, norm := range normalized {
			for _, alias := range aliases {
				if norm == alias {
					m.byField[field] = headers[i]
					break scan
				}
			}
		}
	}

	var missing []string
	for _, field := range requiredFields {
		if _, ok := m.byField[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return m, nil
}

// Cell returns the row's value for a canonical field. ok is false when
// the field never resolved to a header (only possible for remaining).
func (m *ColumnMap) Cell(row Row, field string) (string, bool) {
	header, ok := m.byField[field]
	if !ok {
		return "", false
	}
	v, ok := row.Values[header]
	return v, ok
}

// HasRemaining reports whether the file carries a remaining column.
// Its value is read for diagnostics only and never trusted.
func (m *ColumnMap) HasRemaining() bool {
	_, ok := m.byField[FieldRemaining]
	return ok
}

// normalizeHeader lowercases, trims, and joins interior whitespace with
// underscores, so "Phone Number" and "phone_number" compare equal.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}
