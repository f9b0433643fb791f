package models

import "time"

// LedgerEntry records one item the user has already been shown, with the
// moment it scrolled past. At most one entry exists per item id.
type LedgerEntry struct {
	Item      CatalogItem `json:"item"`
	SkippedAt int64       `json:"skippedAt"` // epoch milliseconds
}

// SkippedTime returns the skip timestamp as a time.Time.
func (e LedgerEntry) SkippedTime() time.Time {
	return time.UnixMilli(e.SkippedAt)
}
