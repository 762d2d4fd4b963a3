package pledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMobileNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already local", "0712345678", "0712345678"},
		{"international plus passthrough", "+255712345678", "+255712345678"},
		{"country code converted", "255712345678", "0712345678"},
		{"spaces stripped", "0712 345 678", "0712345678"},
		{"punctuation stripped", "(071) 234-5678", "0712345678"},
		{"missing leading zero", "712345678", "0712345678"},
		{"short number padded", "0712", "0712000000"},
		{"long number trimmed to last nine", "07123456789", "0123456789"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMobileNumber(tt.in))
		})
	}
}
