package sqlite

import "strings"

// isStorageFull reports SQLITE_FULL style failures, surfaced to callers
// as quota errors.
func isStorageFull(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database or disk is full") || strings.Contains(msg, "SQLITE_FULL")
}
