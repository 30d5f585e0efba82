package service

import (
	"time"

	"commerce-cms/internal/models"
)

// RecordStatusChange returns an audit entry when the status actually changed
// from a previously-set value, nil otherwise. Pure; never deduplicates or
// compacts existing history.
func RecordStatusChange(prior, next string, at time.Time, by *int64) *models.StatusHistoryEntry {
	if prior == "" || next == "" || prior == next {
		return nil
	}
	return &models.StatusHistoryEntry{
		From: prior,
		To:   next,
		At:   at,
		By:   by,
	}
}
