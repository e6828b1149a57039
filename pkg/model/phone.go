package model

import "regexp"

// phonePattern accepts local numbers (leading 0) and the international
// prefix, nine digits after either.
var phonePattern = regexp.MustCompile(`^(0|84|\+84)\d{9}$`)

// ValidPhone reports whether s is an acceptable staff phone number. Shared
// by the staff create/update flow and the bulk importer.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}
