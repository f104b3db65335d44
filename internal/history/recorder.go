package history

import (
	"context"
	"log"
	"time"

	"github.com/jumokuso/crmaudit/internal/domain"
	"github.com/jumokuso/crmaudit/internal/store"
)

// Allocator assigns the next version number for an entity's history stream.
//
// Allocation is a read followed by an independent write and is not safe
// against concurrent writers to the same entity: two concurrent callers can
// compute the same next version. That weakness is part of the contract, not
// something to harden here.
type Allocator struct {
	store store.DocumentStore
	now   func() time.Time
}

// NewAllocator wires a version allocator over the document store.
func NewAllocator(st store.DocumentStore) *Allocator {
	return &Allocator{store: st, now: time.Now}
}

// NextVersion returns max(version)+1 over the entity's history stream, or 1
// when no history exists. When the stream cannot be read the allocator
// degrades to a wall-clock version so the write can still proceed; the
// version sequence is no longer dense after that.
func (a *Allocator) NextVersion(ctx context.Context, entityType domain.EntityType, entityID string) int64 {
	docs, err := a.store.Query(ctx, entityType.HistoryCollection(entityID), store.QueryOptions{
		OrderBy:    "version",
		Descending: true,
		Limit:      1,
	})
	if err != nil {
		fallback := a.now().UnixMilli()
		log.Printf("[HISTORY] failed to read history for %s/%s, falling back to timestamp version %d: %v",
			entityType, entityID, fallback, err)
		return fallback
	}
	if len(docs) == 0 {
		return 1
	}

	latest, err := domain.HistoryEntryFromDocument(docs[0].ID, docs[0].Data)
	if err != nil {
		fallback := a.now().UnixMilli()
		log.Printf("[HISTORY] failed to decode latest history for %s/%s, falling back to timestamp version %d: %v",
			entityType, entityID, fallback, err)
		return fallback
	}
	return latest.Version + 1
}

// RecordParams carries everything needed to append one history fact.
type RecordParams struct {
	EntityType          domain.EntityType
	EntityID            string
	Operation           domain.Operation
	Changes             []domain.FieldChange
	Snapshot            domain.Snapshot
	Actor               domain.AuditUser
	RollbackFromVersion int64
	RollbackToVersion   int64
}

// RecordResult reports the ids obtained by the dual write. An empty id means
// that side of the write failed; the version is always allocated.
type RecordResult struct {
	HistoryID  string `json:"historyId"`
	AuditLogID string `json:"auditLogId"`
	Version    int64  `json:"version"`
}

// Recorder appends immutable history facts to the per-entity stream and,
// independently, to the global audit ledger.
type Recorder struct {
	store     store.DocumentStore
	allocator *Allocator
	now       func() time.Time
}

// NewRecorder wires a recorder over the document store.
func NewRecorder(st store.DocumentStore) *Recorder {
	return &Recorder{store: st, allocator: NewAllocator(st), now: time.Now}
}

// Record allocates a version and performs the best-effort dual write. Each of
// the two writes is attempted on its own: failure of one is logged and does
// not prevent, retry or roll back the other, and Record never returns an
// error. Audit durability stays secondary to the primary entity mutation.
func (r *Recorder) Record(ctx context.Context, p RecordParams) RecordResult {
	version := r.allocator.NextVersion(ctx, p.EntityType, p.EntityID)
	changedAt := r.now().UTC()

	result := RecordResult{Version: version}

	changes := p.Changes
	if changes == nil {
		changes = []domain.FieldChange{}
	}

	entry := domain.HistoryEntry{
		Version:             version,
		Operation:           p.Operation,
		ChangedBy:           p.Actor,
		ChangedAt:           changedAt,
		Changes:             changes,
		Snapshot:            domain.CloneSnapshot(p.Snapshot),
		RollbackFromVersion: p.RollbackFromVersion,
		RollbackToVersion:   p.RollbackToVersion,
	}
	if doc, err := entry.Document(); err != nil {
		log.Printf("[HISTORY] failed to encode history entry for %s/%s v%d: %v", p.EntityType, p.EntityID, version, err)
	} else if historyID, err := r.store.Append(ctx, p.EntityType.HistoryCollection(p.EntityID), doc); err != nil {
		log.Printf("[HISTORY] failed to append history for %s/%s v%d: %v", p.EntityType, p.EntityID, version, err)
	} else {
		result.HistoryID = historyID
	}

	ledgerEntry := domain.AuditLogEntry{
		EntityType: p.EntityType,
		EntityID:   p.EntityID,
		Operation:  p.Operation,
		ChangedBy:  p.Actor,
		ChangedAt:  changedAt,
		Changes:    changes,
		Version:    version,
	}
	if doc, err := ledgerEntry.Document(); err != nil {
		log.Printf("[AUDIT] failed to encode audit log entry for %s/%s v%d: %v", p.EntityType, p.EntityID, version, err)
	} else if auditLogID, err := r.store.Append(ctx, domain.AuditLogCollection, doc); err != nil {
		log.Printf("[AUDIT] failed to append audit log for %s/%s v%d: %v", p.EntityType, p.EntityID, version, err)
	} else {
		result.AuditLogID = auditLogID
	}

	return result
}
