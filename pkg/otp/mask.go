package otp

import "strings"

// MaskIdentifier hides a delivery destination before it reaches any log
// sink. Emails keep the first local-part character and the domain; other
// identifiers (phone numbers) keep the last 4 characters.
func MaskIdentifier(identifier string) string {
	if identifier == "" {
		return ""
	}

	if at := strings.LastIndex(identifier, "@"); at > 0 {
		local, domain := identifier[:at], identifier[at+1:]
		if len(local) == 1 {
			return "*@" + domain
		}
		return string(local[0]) + strings.Repeat("*", len(local)-1) + "@" + domain
	}

	if len(identifier) <= 4 {
		return strings.Repeat("*", len(identifier))
	}
	return strings.Repeat("*", len(identifier)-4) + identifier[len(identifier)-4:]
}
