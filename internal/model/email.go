package model

import (
	"strconv"
	"time"
)

// ProcessedEmail tracks a single IMAP message so a scan never
// re-ingests it. The triple (Source, UIDValidity, UID) is unique;
// when a folder's UIDVALIDITY changes, every row for the old value is
// stale and must be dropped before new UIDs are enumerated.
type ProcessedEmail struct {
	Source      string
	UIDValidity uint32
	UID         uint32
	ProcessedAt time.Time
}

// ID formats the tracking key the same way the repository's unique
// index does: "source:uidvalidity:uid".
func (p ProcessedEmail) ID() string {
	return MakeEmailID(p.Source, p.UIDValidity, p.UID)
}

// MakeEmailID builds the tracking key for a (source, uidvalidity, uid) triple.
func MakeEmailID(source string, uidValidity, uid uint32) string {
	return source + ":" + strconv.FormatUint(uint64(uidValidity), 10) + ":" + strconv.FormatUint(uint64(uid), 10)
}

// TrackerStats summarizes a source's processed-email history, used by
// the doctor command.
type TrackerStats struct {
	SourceName       string
	TotalProcessed   int
	LastProcessedAt  *time.Time
	CurrentUIDValid  *uint32
}
