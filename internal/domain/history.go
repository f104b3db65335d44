package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Operation classifies what a history entry records.
type Operation string

const (
	OperationCreate   Operation = "create"
	OperationUpdate   Operation = "update"
	OperationDelete   Operation = "delete"
	OperationRestore  Operation = "restore"
	OperationRollback Operation = "rollback"
)

// Valid reports whether the operation is a known kind.
func (op Operation) Valid() bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete, OperationRestore, OperationRollback:
		return true
	}
	return false
}

// FieldChange records one field's transition between two entity states.
// Field may be a dotted path when the nested diff variant produced it.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// HistoryEntry is one immutable record in an entity's history stream.
// Entries for a given entity are strictly increasing in Version and are never
// mutated or deleted, even when the entity itself is deleted.
type HistoryEntry struct {
	ID                  string        `json:"id,omitempty"`
	Version             int64         `json:"version"`
	Operation           Operation     `json:"operation"`
	ChangedBy           AuditUser     `json:"changedBy"`
	ChangedAt           time.Time     `json:"changedAt"`
	Changes             []FieldChange `json:"changes"`
	Snapshot            Snapshot      `json:"snapshot"`
	RollbackFromVersion int64         `json:"rollbackFromVersion,omitempty"`
	RollbackToVersion   int64         `json:"rollbackToVersion,omitempty"`
}

// Document serializes the entry into a store document. The id is kept out of
// the document body; the store assigns and returns it on append.
func (e HistoryEntry) Document() (map[string]any, error) {
	entry := e
	entry.ID = ""
	return toDocument(entry)
}

// HistoryEntryFromDocument rebuilds an entry from a stored document and its
// store-assigned id.
func HistoryEntryFromDocument(id string, doc map[string]any) (HistoryEntry, error) {
	var entry HistoryEntry
	if err := fromDocument(doc, &entry); err != nil {
		return HistoryEntry{}, fmt.Errorf("failed to decode history entry %s: %w", id, err)
	}
	if entry.ID == "" {
		entry.ID = id
	}
	return entry, nil
}

// RollbackResult is the value returned by every rollback entry point. Failures
// are reported here rather than raised, so callers can render the error.
type RollbackResult struct {
	Success      bool     `json:"success"`
	NewVersion   int64    `json:"newVersion"`
	RestoredData Snapshot `json:"restoredData"`
	Error        string   `json:"error,omitempty"`
}

func toDocument(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDocument(doc map[string]any, out any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
