package history

import (
	"context"
	"fmt"

	"github.com/jumokuso/crmaudit/internal/domain"
	"github.com/jumokuso/crmaudit/internal/store"
)

const (
	defaultHistoryLimit = 50
	defaultAuditLimit   = 100
)

// Reader retrieves history entries and audit ledger records. All operations
// are read-only against the document store.
type Reader struct {
	store store.DocumentStore
}

// NewReader wires a reader over the document store.
func NewReader(st store.DocumentStore) *Reader {
	return &Reader{store: st}
}

// HistoryQuery narrows a per-entity history listing. Zero values mean no
// cursor, no operation filter and the default limit of 50.
type HistoryQuery struct {
	Limit             int
	StartAfterVersion int64
	Operation         domain.Operation
}

// GetHistory lists an entity's history ordered by version descending. The
// cursor is seeded by a version-equality lookup: when the start-after entry no
// longer resolves the listing restarts from the top.
func (r *Reader) GetHistory(ctx context.Context, entityType domain.EntityType, entityID string, q HistoryQuery) ([]domain.HistoryEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	opts := store.QueryOptions{
		OrderBy:    "version",
		Descending: true,
		Limit:      limit,
	}
	if q.Operation != "" {
		opts.Filters = append(opts.Filters, store.Filter{Field: "operation", Value: string(q.Operation)})
	}
	if q.StartAfterVersion > 0 {
		seed, err := r.GetHistoryByVersion(ctx, entityType, entityID, q.StartAfterVersion)
		if err != nil {
			return nil, err
		}
		if seed != nil {
			opts.StartAfter = seed.Version
		}
	}

	docs, err := r.store.Query(ctx, entityType.HistoryCollection(entityID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list history for %s/%s: %w", entityType, entityID, err)
	}

	entries := make([]domain.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entry, err := domain.HistoryEntryFromDocument(doc.ID, doc.Data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetHistoryByVersion returns the entry recorded at the given version, or nil
// when no such version exists.
func (r *Reader) GetHistoryByVersion(ctx context.Context, entityType domain.EntityType, entityID string, version int64) (*domain.HistoryEntry, error) {
	docs, err := r.store.Query(ctx, entityType.HistoryCollection(entityID), store.QueryOptions{
		Filters: []store.Filter{{Field: "version", Value: version}},
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get history version %d for %s/%s: %w", version, entityType, entityID, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	entry, err := domain.HistoryEntryFromDocument(docs[0].ID, docs[0].Data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetVersionSnapshot returns the full entity state recorded at the given
// version, or nil when no such version exists.
func (r *Reader) GetVersionSnapshot(ctx context.Context, entityType domain.EntityType, entityID string, version int64) (domain.Snapshot, error) {
	entry, err := r.GetHistoryByVersion(ctx, entityType, entityID, version)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return entry.Snapshot, nil
}

// GetLatestVersion returns the highest recorded version, or 0 when the entity
// has no history.
func (r *Reader) GetLatestVersion(ctx context.Context, entityType domain.EntityType, entityID string) (int64, error) {
	docs, err := r.store.Query(ctx, entityType.HistoryCollection(entityID), store.QueryOptions{
		OrderBy:    "version",
		Descending: true,
		Limit:      1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get latest version for %s/%s: %w", entityType, entityID, err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	entry, err := domain.HistoryEntryFromDocument(docs[0].ID, docs[0].Data)
	if err != nil {
		return 0, err
	}
	return entry.Version, nil
}

// GetHistoryCount returns the number of entries in the entity's history stream.
func (r *Reader) GetHistoryCount(ctx context.Context, entityType domain.EntityType, entityID string) (int64, error) {
	count, err := r.store.Count(ctx, entityType.HistoryCollection(entityID))
	if err != nil {
		return 0, fmt.Errorf("failed to count history for %s/%s: %w", entityType, entityID, err)
	}
	return count, nil
}

// HasHistory reports whether any history exists for the entity.
func (r *Reader) HasHistory(ctx context.Context, entityType domain.EntityType, entityID string) (bool, error) {
	count, err := r.GetHistoryCount(ctx, entityType, entityID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SearchAuditLogs searches the global ledger ordered by changedAt descending.
// The store backends only guarantee single-field equality without extra
// indexes, so at most one equality filter is pushed down; the remaining
// equality filters and the date range apply client-side after the fetch,
// which can return fewer rows than the limit.
func (r *Reader) SearchAuditLogs(ctx context.Context, filter domain.AuditLogFilter) ([]domain.AuditLogEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	opts := store.QueryOptions{
		OrderBy:    "changedAt",
		Descending: true,
		Limit:      limit,
	}

	serverSide := ""
	switch {
	case filter.EntityType != nil:
		opts.Filters = []store.Filter{{Field: "entityType", Value: string(*filter.EntityType)}}
		serverSide = "entityType"
	case filter.EntityID != nil:
		opts.Filters = []store.Filter{{Field: "entityId", Value: *filter.EntityID}}
		serverSide = "entityId"
	case filter.Operation != nil:
		opts.Filters = []store.Filter{{Field: "operation", Value: string(*filter.Operation)}}
		serverSide = "operation"
	case filter.ChangedByEmail != nil:
		opts.Filters = []store.Filter{{Field: "changedBy.email", Value: *filter.ChangedByEmail}}
		serverSide = "changedByEmail"
	}

	docs, err := r.store.Query(ctx, domain.AuditLogCollection, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}

	entries := make([]domain.AuditLogEntry, 0, len(docs))
	for _, doc := range docs {
		entry, err := domain.AuditLogEntryFromDocument(doc.ID, doc.Data)
		if err != nil {
			return nil, err
		}
		if !matchesAuditFilter(entry, filter, serverSide) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func matchesAuditFilter(entry domain.AuditLogEntry, filter domain.AuditLogFilter, serverSide string) bool {
	if filter.EntityType != nil && serverSide != "entityType" && entry.EntityType != *filter.EntityType {
		return false
	}
	if filter.EntityID != nil && serverSide != "entityId" && entry.EntityID != *filter.EntityID {
		return false
	}
	if filter.Operation != nil && serverSide != "operation" && entry.Operation != *filter.Operation {
		return false
	}
	if filter.ChangedByEmail != nil && serverSide != "changedByEmail" && entry.ChangedBy.Email != *filter.ChangedByEmail {
		return false
	}
	if filter.StartDate != nil && entry.ChangedAt.Before(*filter.StartDate) {
		return false
	}
	if filter.EndDate != nil && entry.ChangedAt.After(*filter.EndDate) {
		return false
	}
	return true
}
