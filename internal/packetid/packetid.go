// Package packetid validates and canonicalises packet id strings,
// shared by the metadata and location indexes and by ingestion.
package packetid

import (
	"regexp"
	"strings"

	"github.com/mrc-ide/outpack-server/internal/apperror"
)

// Pattern matches a canonical packet id: YYYYMMDD-HHMMSS-xxxxxxxx, eight
// lowercase hex characters at the end.
var Pattern = regexp.MustCompile(`^[0-9]{8}-[0-9]{6}-[0-9a-f]{8}$`)

// Valid reports whether id (already trimmed) matches Pattern.
func Valid(id string) bool {
	return Pattern.MatchString(id)
}

// Canonicalise trims surrounding whitespace and validates the result,
// returning an apperror.InvalidInput if it does not match Pattern.
func Canonicalise(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if !Valid(trimmed) {
		return "", apperror.New(apperror.InvalidInput, "Invalid packet id '%s'", id)
	}
	return trimmed, nil
}
