package activity

import "strings"

// NormalizePhone reduces a French phone number to its ten-digit national
// form. Separators are dropped and the +33 prefix becomes a leading
// zero. An empty string means the input is not a usable number.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+':
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "+33") {
		digits = "0" + digits[3:]
	}
	digits = strings.TrimPrefix(digits, "+")
	if len(digits) != 10 || digits[0] != '0' || digits[1] == '0' {
		return ""
	}
	return digits
}

// FormatPhone renders a normalized number in the conventional paired
// form, "01 42 55 66 77". Input that does not normalize is returned
// unchanged.
func FormatPhone(raw string) string {
	digits := NormalizePhone(raw)
	if digits == "" {
		return raw
	}
	parts := make([]string, 0, 5)
	for i := 0; i < len(digits); i += 2 {
		parts = append(parts, digits[i:i+2])
	}
	return strings.Join(parts, " ")
}
