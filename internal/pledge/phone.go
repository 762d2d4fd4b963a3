package pledge

import "strings"

// FormatMobileNumber normalizes a mobile number to the local convention:
//   - numbers starting with '+' pass through untouched
//   - non-digit characters are stripped
//   - a 255-prefixed 12-digit number is converted to local 0-prefix form
//   - the result is padded or trimmed to exactly 10 digits starting with 0
//
// Ingestion does not call this; the upload key accepts any non-empty
// string. It backs the normalize-phones maintenance tool.
func FormatMobileNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if strings.HasPrefix(s, "+") {
		return s
	}

	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	if strings.HasPrefix(d, "255") && len(d) == 12 {
		d = "0" + d[3:]
	}
	if !strings.HasPrefix(d, "0") {
		d = "0" + d
	}
	if len(d) > 10 {
		d = "0" + d[len(d)-9:]
	} else if len(d) < 10 {
		d = d + strings.Repeat("0", 10-len(d))
	}
	return d
}
