package model

import (
	"errors"
	"strings"
)

// ErrAttributionMissing indicates a private event that cannot be mapped to a
// contact: aggregate updates are skipped but the match itself still records.
var ErrAttributionMissing = errors.New("event carries no contact attribution")

// attributionPrefix is the display-string convention the ingestion pipeline
// uses for email-derived signals. Parsing it here is deliberate legacy
// behavior; an explicit contact foreign key should replace it at ingestion.
const attributionPrefix = "email:"

// ContactFromSource resolves the contact key from a private event's source
// attribution string of the form "Email: <address>". The address is
// normalized to lower case.
func ContactFromSource(sourceName string) (string, error) {
	s := strings.TrimSpace(sourceName)
	if len(s) < len(attributionPrefix) || !strings.EqualFold(s[:len(attributionPrefix)], attributionPrefix) {
		return "", ErrAttributionMissing
	}
	addr := strings.TrimSpace(s[len(attributionPrefix):])
	if addr == "" || !strings.Contains(addr, "@") {
		return "", ErrAttributionMissing
	}
	return strings.ToLower(addr), nil
}
