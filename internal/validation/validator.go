// Package validation provides input validation for values arriving from the
// MCP layer before they reach the Kintone client.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const maxQueryLength = 4000

var recordIDPattern = regexp.MustCompile(`^[0-9]+$`)

// ValidateRecordID checks a record identifier. Kintone record IDs are
// numeric strings.
func ValidateRecordID(id string) error {
	if id == "" {
		return fmt.Errorf("record id cannot be empty")
	}
	if !recordIDPattern.MatchString(id) {
		return fmt.Errorf("record id must be numeric: %q", id)
	}
	return nil
}

// ValidateRevision checks a revision token. Empty means "no precondition"
// and is accepted.
func ValidateRevision(revision string) error {
	if revision == "" {
		return nil
	}
	if !recordIDPattern.MatchString(revision) {
		return fmt.Errorf("revision must be numeric: %q", revision)
	}
	return nil
}

// ValidateQuery checks a query expression for transport-level problems.
// Query syntax itself is not validated; a malformed query surfaces as an
// error from the remote side.
func ValidateQuery(query string) error {
	if len(query) > maxQueryLength {
		return fmt.Errorf("query too long: %d characters (max %d)", len(query), maxQueryLength)
	}
	if strings.ContainsAny(query, "\x00") {
		return fmt.Errorf("query contains a null byte")
	}
	return nil
}
