package domain

import (
	"fmt"
	"time"
)

// AuditLogEntry is the denormalized ledger mirror of a HistoryEntry. It lives
// in a single flat collection so changes can be searched across every entity
// kind without scanning per-entity history streams. A ledger row is logically
// one-to-one with a history entry but written independently, so the two may
// diverge on partial failure.
type AuditLogEntry struct {
	ID         string        `json:"id,omitempty"`
	EntityType EntityType    `json:"entityType"`
	EntityID   string        `json:"entityId"`
	Operation  Operation     `json:"operation"`
	ChangedBy  AuditUser     `json:"changedBy"`
	ChangedAt  time.Time     `json:"changedAt"`
	Changes    []FieldChange `json:"changes"`
	Version    int64         `json:"version"`
}

// Document serializes the entry into a store document, id excluded.
func (e AuditLogEntry) Document() (map[string]any, error) {
	entry := e
	entry.ID = ""
	return toDocument(entry)
}

// AuditLogEntryFromDocument rebuilds a ledger entry from a stored document.
func AuditLogEntryFromDocument(id string, doc map[string]any) (AuditLogEntry, error) {
	var entry AuditLogEntry
	if err := fromDocument(doc, &entry); err != nil {
		return AuditLogEntry{}, fmt.Errorf("failed to decode audit log entry %s: %w", id, err)
	}
	if entry.ID == "" {
		entry.ID = id
	}
	return entry, nil
}

// AuditLogFilter narrows an audit ledger search. All fields are optional;
// Limit defaults to 100.
type AuditLogFilter struct {
	EntityType     *EntityType
	EntityID       *string
	Operation      *Operation
	ChangedByEmail *string
	StartDate      *time.Time
	EndDate        *time.Time
	Limit          int
}
