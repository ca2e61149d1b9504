package domain

import "time"

// AuditStamp holds the concurrency and audit fields written by every mutation.
type AuditStamp struct {
	Version   int
	UpdatedBy string
	UpdatedAt time.Time
}

// Stamp returns the audit fields for a mutation by actor of a record last read at version.
func Stamp(actor string, version int) AuditStamp {
	return StampAt(actor, version, time.Now())
}

// StampAt is Stamp with an explicit clock. A version of zero or less is treated as a record that
// was never versioned and yields 1.
func StampAt(actor string, version int, now time.Time) AuditStamp {
	next := 1
	if version > 0 {
		next = version + 1
	}
	return AuditStamp{Version: next, UpdatedBy: actor, UpdatedAt: now.UTC()}
}
