// Package models contains database model definitions.
package models

import "time"

// Operation names a provisioning event kind.
type Operation string

const (
	// OperationCreate is a SCIM POST: create or overwrite an identity.
	OperationCreate Operation = "create"
	// OperationPatch is a SCIM PATCH: group or active changes.
	OperationPatch Operation = "patch"
	// OperationDeactivate is a SCIM DELETE: leave all groups and deactivate.
	OperationDeactivate Operation = "deactivate"
)

// Outcome is the result of a provisioning event.
type Outcome string

const (
	// OutcomeSuccess means every step of the event completed.
	OutcomeSuccess Outcome = "success"
	// OutcomePartial means some group files or the review request failed after files were written.
	OutcomePartial Outcome = "partial"
	// OutcomeFailed means the event changed nothing.
	OutcomeFailed Outcome = "failed"
)

// JournalEntry records one provisioning event handled by the bridge.
type JournalEntry struct {
	ID        uint64    `gorm:"primaryKey"                       json:"id"`
	CreatedAt time.Time `gorm:"index"                            json:"created_at"`
	Operation Operation `gorm:"type:varchar(20);not null;index"  json:"operation"`
	Outcome   Outcome   `gorm:"type:varchar(20);not null"        json:"outcome"`

	ExternalID  string `gorm:"size:255;index" json:"external_id"`
	DisplayName string `gorm:"size:255"       json:"display_name"`
	Filename    string `gorm:"size:255"       json:"filename,omitempty"`

	// GroupFiles are the repository relative group documents the event modified.
	GroupFiles     []string `gorm:"serializer:json" json:"group_files,omitempty"`
	ReviewURL      string   `gorm:"size:512"        json:"review_url,omitempty"`
	GroupReviewURL string   `gorm:"size:512"        json:"group_review_url,omitempty"`
	Error          string   `gorm:"type:text"       json:"error,omitempty"`
}
