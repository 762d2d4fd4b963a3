package ingest

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pledgeboard/internal/pledge"
)

// Candidate is one validated, typed row ready for reconciliation.
type Candidate struct {
	MobileNumber string
	Name         string
	Pledge       decimal.Decimal
	Paid         decimal.Decimal
	Remaining    decimal.Decimal
	CardCapacity int
}

// NormalizeRow converts one raw row into a candidate, or reports why it
// cannot be reconciled. Validation order:
//
//  1. mobile number: trimmed, must be non-empty; no further format
//     checks (any non-empty string is a valid key)
//  2. name: trimmed, empty permitted
//  3. pledge and paid: non-negative decimal amounts
//  4. a supplied remaining value is never trusted; remaining is always
//     recomputed as pledge - paid (negative means overpayment and is
//     kept as-is)
//  5. card capacity is derived from paid
func NormalizeRow(row Row, cols *ColumnMap) (*Candidate, *RowError) {
	fail := func(reason string) (*Candidate, *RowError) {
		return nil, &RowError{RowIndex: row.Index, RawValues: row.Values, Reason: reason}
	}

	mobileRaw, _ := cols.Cell(row, FieldMobile)
	mobile := strings.TrimSpace(mobileRaw)
	if mobile == "" {
		return fail("missing mobile number")
	}

	nameRaw, _ := cols.Cell(row, FieldName)
	name := strings.TrimSpace(nameRaw)

	pledgeRaw, _ := cols.Cell(row, FieldPledge)
	pledgeAmt, err := parseAmount(pledgeRaw)
	if err != nil {
		return fail(fmt.Sprintf("invalid pledge amount %q", strings.TrimSpace(pledgeRaw)))
	}
	if pledgeAmt.IsNegative() {
		return fail(fmt.Sprintf("negative pledge amount %q", strings.TrimSpace(pledgeRaw)))
	}

	paidRaw, _ := cols.Cell(row, FieldPaid)
	paidAmt, err := parseAmount(paidRaw)
	if err != nil {
		return fail(fmt.Sprintf("invalid paid amount %q", strings.TrimSpace(paidRaw)))
	}
	if paidAmt.IsNegative() {
		return fail(fmt.Sprintf("negative paid amount %q", strings.TrimSpace(paidRaw)))
	}

	return &Candidate{
		MobileNumber: mobile,
		Name:         name,
		Pledge:       pledgeAmt,
		Paid:         paidAmt,
		Remaining:    pledgeAmt.Sub(paidAmt),
		CardCapacity: pledge.CapacityFor(paidAmt),
	}, nil
}

// parseAmount parses a decimal amount the way people type them into
// spreadsheets: surrounding whitespace and thousands separators are
// tolerated. An empty cell is a parse failure, not zero.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(s)
}
