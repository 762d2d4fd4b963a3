package ingest

import (
	"errors"
	"testing"
)

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		wantErr bool
		check   map[string]string // canonical field -> literal header
	}{
		{
			name:    "canonical headers",
			headers: []string{"name", "mobile_number", "pledge", "paid"},
			check: map[string]string{
				FieldName:   "name",
				FieldMobile: "mobile_number",
				FieldPledge: "pledge",
				FieldPaid:   "paid",
			},
		},
		{
			name:    "case and spacing variants",
			headers: []string{"Name", "Phone Number", "Pledge Amount", "Amount Paid"},
			check: map[string]string{
				FieldMobile: "Phone Number",
				FieldPledge: "Pledge Amount",
				FieldPaid:   "Amount Paid",
			},
		},
		{
			name:    "aliases",
			headers: []string{"full_name", "contact", "pledged", "paid_amount", "balance"},
			check: map[string]string{
				FieldName:      "full_name",
				FieldMobile:    "contact",
				FieldPledge:    "pledged",
				FieldPaid:      "paid_amount",
				FieldRemaining: "balance",
			},
		},
		{
			name:    "leading and trailing whitespace",
			headers: []string{"  name ", " mobile ", "pledge", "paid"},
			check: map[string]string{
				FieldName:   "  name ",
				FieldMobile: " mobile ",
			},
		},
		{
			name:    "missing mobile is fatal",
			headers: []string{"name", "pledge", "paid"},
			wantErr: true,
		},
		{
			name:    "missing paid is fatal",
			headers: []string{"name", "mobile", "pledge"},
			wantErr: true,
		},
		{
			name:    "missing remaining is not fatal",
			headers: []string{"name", "mobile", "pledge", "paid"},
			check:   map[string]string{FieldPledge: "pledge"},
		},
		{
			name:    "empty header set",
			headers: []string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := ResolveColumns(tt.headers)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ResolveColumns(%v) succeeded, want error", tt.headers)
				}
				if !errors.Is(err, ErrMissingColumns) {
					t.Errorf("error = %v, want ErrMissingColumns", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveColumns(%v) failed: %v", tt.headers, err)
			}
			for field, wantHeader := range tt.check {
				if got := cols.byField[field]; got != wantHeader {
					t.Errorf("field %q resolved to %q, want %q", field, got, wantHeader)
				}
			}
		})
	}
}

func TestResolveColumnsLeftmostWins(t *testing.T) {
	// Both "mobile" and "phone_number" alias mobile_number; the
	// leftmost column must win.
	cols, err := ResolveColumns([]string{"name", "mobile", "phone_number", "pledge", "paid"})
	if err != nil {
		t.Fatalf("ResolveColumns failed: %v", err)
	}
	if got := cols.byField[FieldMobile]; got != "mobile" {
		t.Errorf("mobile_number resolved to %q, want leftmost %q", got, "mobile")
	}
}

func TestResolveColumnsPhoneNumberEquivalence(t *testing.T) {
	// A file using "Phone Number" must resolve identically to one
	// using the canonical "Mobile Number" header.
	a, err := ResolveColumns([]string{"Name", "Phone Number", "Pledge", "Paid"})
	if err != nil {
		t.Fatalf("ResolveColumns with Phone Number failed: %v", err)
	}
	b, err := ResolveColumns([]string{"Name", "Mobile Number", "Pledge", "Paid"})
	if err != nil {
		t.Fatalf("ResolveColumns with Mobile Number failed: %v", err)
	}

	row := func(header string) Row {
		return Row{Index: 1, Values: map[string]string{
			"Name": "John", header: "0712345678", "Pledge": "100", "Paid": "50",
		}}
	}
	gotA, _ := a.Cell(row("Phone Number"), FieldMobile)
	gotB, _ := b.Cell(row("Mobile Number"), FieldMobile)
	if gotA != gotB {
		t.Errorf("Phone Number cell %q != Mobile Number cell %q", gotA, gotB)
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mobile Number", "mobile_number"},
		{"  PLEDGE  ", "pledge"},
		{"amount_paid", "amount_paid"},
		{"Person  Name", "person_name"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeHeader(tt.in); got != tt.want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
