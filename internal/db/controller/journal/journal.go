// Package journal provides the persistence operations of the provisioning journal.
package journal

import (
	"errors"

	"gorm.io/gorm"

	"github.com/scim-bridge/scim-bridge/internal/db/models"
)

const (
	// DefaultLimit is used when a list call passes a limit <= 0.
	DefaultLimit = 100
	// MaxLimit caps the number of entries of one list call.
	MaxLimit = 1000

	newestFirst = "created_at DESC, id DESC"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrEntryNil is returned when Record is called without an entry.
	ErrEntryNil = errors.New("journal entry is nil")
	// ErrOperationEmpty is returned when an entry has no operation.
	ErrOperationEmpty = errors.New("journal entry operation cannot be empty")
	// ErrExternalIDEmpty is returned when ListByExternalID is called without an id.
	ErrExternalIDEmpty = errors.New("external id cannot be empty")
)

// Record stores a journal entry. The entry's ID and CreatedAt are filled in.
func Record(db *gorm.DB, entry *models.JournalEntry) error {
	if db == nil {
		return ErrDBNil
	}

	if entry == nil {
		return ErrEntryNil
	}

	if entry.Operation == "" {
		return ErrOperationEmpty
	}

	if entry.Outcome == "" {
		entry.Outcome = models.OutcomeSuccess
	}

	return db.Create(entry).Error
}

// List returns the newest entries first.
func List(db *gorm.DB, limit int) ([]models.JournalEntry, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var entries []models.JournalEntry

	result := db.Order(newestFirst).Limit(clamp(limit)).Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}

// ListByExternalID returns the newest entries of one identity first.
func ListByExternalID(db *gorm.DB, externalID string, limit int) ([]models.JournalEntry, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if externalID == "" {
		return nil, ErrExternalIDEmpty
	}

	var entries []models.JournalEntry

	result := db.Where("external_id = ?", externalID).Order(newestFirst).Limit(clamp(limit)).Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}

func clamp(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
