package records

import (
	"context"
	"fmt"
	"time"

	"github.com/jumokuso/crmaudit/internal/domain"
	"github.com/jumokuso/crmaudit/internal/history"
	"github.com/jumokuso/crmaudit/internal/store"
)

// Service implements the mutation side of the CRUD collaborator contract:
// read the old value, compute the diff, write the new value, then append
// history. Passing a nil actor opts the call out of audit recording.
//
// Nothing here is serialized against concurrent callers; two users editing
// the same record race on the shared store, as do rollbacks.
type Service struct {
	store    store.DocumentStore
	recorder *history.Recorder
	now      func() time.Time
}

// NewService wires a records service over the document store.
func NewService(st store.DocumentStore) *Service {
	return &Service{store: st, recorder: history.NewRecorder(st), now: time.Now}
}

// Create writes a new record and returns its generated id.
func (s *Service) Create(ctx context.Context, entityType domain.EntityType, data domain.Snapshot, actor *domain.AuditUser) (string, error) {
	if !entityType.Valid() {
		return "", fmt.Errorf("unknown entity type %q", entityType)
	}

	doc := domain.CloneSnapshot(data)
	now := s.now().UTC().Format(time.RFC3339)
	doc["createdAt"] = now
	doc["updatedAt"] = now

	id, err := s.store.Append(ctx, entityType.Collection(), doc)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", entityType, err)
	}

	if actor != nil {
		s.recorder.Record(ctx, history.RecordParams{
			EntityType: entityType,
			EntityID:   id,
			Operation:  domain.OperationCreate,
			Changes:    domain.ComputeChanges(nil, doc),
			Snapshot:   doc,
			Actor:      *actor,
		})
	}
	return id, nil
}

// Update merges data into an existing record. History is only written when
// the merge actually changed something.
func (s *Service) Update(ctx context.Context, entityType domain.EntityType, entityID string, data domain.Snapshot, actor *domain.AuditUser) error {
	if !entityType.Valid() {
		return fmt.Errorf("unknown entity type %q", entityType)
	}

	old, err := s.store.Get(ctx, entityType.Collection(), entityID)
	if err != nil {
		return fmt.Errorf("failed to read %s/%s: %w", entityType, entityID, err)
	}

	updated := domain.CloneSnapshot(old)
	for field, value := range data {
		updated[field] = value
	}
	updated["updatedAt"] = s.now().UTC().Format(time.RFC3339)

	if err := s.store.Update(ctx, entityType.Collection(), entityID, updated); err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", entityType, entityID, err)
	}

	if actor != nil {
		changes := domain.ComputeChanges(old, updated)
		if len(changes) > 0 {
			s.recorder.Record(ctx, history.RecordParams{
				EntityType: entityType,
				EntityID:   entityID,
				Operation:  domain.OperationUpdate,
				Changes:    changes,
				Snapshot:   updated,
				Actor:      *actor,
			})
		}
	}
	return nil
}

// Delete removes the live record. The history stream is untouched except for
// the delete entry itself, whose snapshot is a tombstone marking the entity
// as removed without erasing its past.
func (s *Service) Delete(ctx context.Context, entityType domain.EntityType, entityID string, actor *domain.AuditUser) error {
	if !entityType.Valid() {
		return fmt.Errorf("unknown entity type %q", entityType)
	}

	old, err := s.store.Get(ctx, entityType.Collection(), entityID)
	if err != nil {
		return fmt.Errorf("failed to read %s/%s: %w", entityType, entityID, err)
	}

	if err := s.store.Delete(ctx, entityType.Collection(), entityID); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", entityType, entityID, err)
	}

	if actor != nil {
		tombstone := domain.Snapshot{"deleted": true}
		s.recorder.Record(ctx, history.RecordParams{
			EntityType: entityType,
			EntityID:   entityID,
			Operation:  domain.OperationDelete,
			Changes:    domain.ComputeChanges(old, tombstone),
			Snapshot:   tombstone,
			Actor:      *actor,
		})
	}
	return nil
}

// Get returns the live record state.
func (s *Service) Get(ctx context.Context, entityType domain.EntityType, entityID string) (domain.Snapshot, error) {
	if !entityType.Valid() {
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}

	doc, err := s.store.Get(ctx, entityType.Collection(), entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", entityType, entityID, err)
	}
	return doc, nil
}
