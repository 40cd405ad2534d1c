package reconcile

import "strings"

// PhoneDigits is the length of the canonical phone form used for joining.
const PhoneDigits = 10

// NormalizePhone keeps the digits of phone and returns the last
// PhoneDigits of them. Numbers with fewer digits cannot identify a
// customer and normalize to "", which excludes them from phone matching.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < PhoneDigits {
		return ""
	}
	return digits[len(digits)-PhoneDigits:]
}
