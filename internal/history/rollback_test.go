package history

import (
	"context"
	"testing"
	"time"

	"github.com/jumokuso/crmaudit/internal/domain"
	"github.com/jumokuso/crmaudit/internal/store"
)

// seedCustomerLifecycle writes the live document and two history versions:
// v1 create with the original phone, v2 update with the new one.
func seedCustomerLifecycle(t *testing.T, s *store.BadgerStore) {
	t.Helper()
	ctx := context.Background()
	recorder := NewRecorder(s)

	v1 := domain.Snapshot{"name": "田中", "phone": "090-0000-0000"}
	v2 := domain.Snapshot{"name": "田中", "phone": "080-1111-1111"}

	if err := s.Put(ctx, "customers", "c1", map[string]any(v2)); err != nil {
		t.Fatalf("failed to seed live document: %v", err)
	}
	recorder.Record(ctx, RecordParams{
		EntityType: domain.EntityTypeCustomer,
		EntityID:   "c1",
		Operation:  domain.OperationCreate,
		Changes:    domain.ComputeChanges(nil, v1),
		Snapshot:   v1,
		Actor:      testActor,
	})
	recorder.Record(ctx, RecordParams{
		EntityType: domain.EntityTypeCustomer,
		EntityID:   "c1",
		Operation:  domain.OperationUpdate,
		Changes:    domain.ComputeChanges(v1, v2),
		Snapshot:   v2,
		Actor:      testActor,
	})
}

func TestRollbackRestoresTargetSnapshot(t *testing.T) {
	s := newTestStore(t)
	seedCustomerLifecycle(t, s)
	ctx := context.Background()

	engine := NewEngine(s)
	fixed := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return fixed }

	result := engine.RollbackToVersion(ctx, RollbackRequest{
		EntityType:    domain.EntityTypeCustomer,
		EntityID:      "c1",
		TargetVersion: 1,
	}, testActor)

	if !result.Success {
		t.Fatalf("rollback failed: %s", result.Error)
	}
	if result.NewVersion != 3 {
		t.Errorf("expected new version 3, got %d", result.NewVersion)
	}
	if result.RestoredData["phone"] != "090-0000-0000" {
		t.Errorf("expected the v1 phone restored, got %v", result.RestoredData["phone"])
	}
	if result.RestoredData["updatedAt"] != fixed.Format(time.RFC3339) {
		t.Errorf("expected a fresh updatedAt stamp, got %v", result.RestoredData["updatedAt"])
	}
	if _, ok := result.RestoredData["id"]; ok {
		t.Errorf("id must be stripped from restored data")
	}

	live, err := s.Get(ctx, "customers", "c1")
	if err != nil {
		t.Fatalf("failed to read live document: %v", err)
	}
	if live["phone"] != "090-0000-0000" {
		t.Errorf("live document not restored: %v", live)
	}

	entry, err := NewReader(s).GetHistoryByVersion(ctx, domain.EntityTypeCustomer, "c1", 3)
	if err != nil || entry == nil {
		t.Fatalf("rollback history entry missing: entry=%v err=%v", entry, err)
	}
	if entry.Operation != domain.OperationRollback {
		t.Errorf("expected rollback operation, got %q", entry.Operation)
	}
	if entry.RollbackFromVersion != 2 || entry.RollbackToVersion != 1 {
		t.Errorf("expected rollback 2 -> 1, got %d -> %d", entry.RollbackFromVersion, entry.RollbackToVersion)
	}

	var phoneChange *domain.FieldChange
	for i := range entry.Changes {
		if entry.Changes[i].Field == "phone" {
			phoneChange = &entry.Changes[i]
		}
	}
	if phoneChange == nil {
		t.Fatalf("expected a phone change in the rollback entry, got %v", entry.Changes)
	}
	if phoneChange.OldValue != "080-1111-1111" || phoneChange.NewValue != "090-0000-0000" {
		t.Errorf("unexpected phone transition: %v -> %v", phoneChange.OldValue, phoneChange.NewValue)
	}
}

func TestRollbackRejectsCurrentVersion(t *testing.T) {
	s := newTestStore(t)
	seedCustomerLifecycle(t, s)

	result := NewEngine(s).RollbackToVersion(context.Background(), RollbackRequest{
		EntityType:    domain.EntityTypeCustomer,
		EntityID:      "c1",
		TargetVersion: 2,
	}, testActor)

	if result.Success {
		t.Fatalf("rolling back to the current version must fail")
	}
	if result.Error != "already at that version" {
		t.Errorf("unexpected error message: %q", result.Error)
	}
	if latest, _ := NewReader(s).GetLatestVersion(context.Background(), domain.EntityTypeCustomer, "c1"); latest != 2 {
		t.Errorf("a rejected rollback must not record history, latest is %d", latest)
	}
}

func TestRollbackWithoutHistory(t *testing.T) {
	s := newTestStore(t)

	result := NewEngine(s).RollbackToVersion(context.Background(), RollbackRequest{
		EntityType:    domain.EntityTypeCustomer,
		EntityID:      "never-seen",
		TargetVersion: 1,
	}, testActor)

	if result.Success || result.Error != "no history exists" {
		t.Fatalf("expected a no-history failure, got %+v", result)
	}
}

func TestRollbackUnknownVersion(t *testing.T) {
	s := newTestStore(t)
	seedCustomerLifecycle(t, s)

	result := NewEngine(s).RollbackToVersion(context.Background(), RollbackRequest{
		EntityType:    domain.EntityTypeCustomer,
		EntityID:      "c1",
		TargetVersion: 42,
	}, testActor)

	if result.Success || result.Error != "version not found" {
		t.Fatalf("expected a version-not-found failure, got %+v", result)
	}
}

func TestRollbackUnknownEntityType(t *testing.T) {
	s := newTestStore(t)

	result := NewEngine(s).RollbackToVersion(context.Background(), RollbackRequest{
		EntityType:    "invoice",
		EntityID:      "x",
		TargetVersion: 1,
	}, testActor)

	if result.Success || result.Error == "" {
		t.Fatalf("expected a failure for an unknown entity type, got %+v", result)
	}
}

// seedDeletedCustomer records a create then a delete and removes the live
// document, leaving only history behind.
func seedDeletedCustomer(t *testing.T, s *store.BadgerStore) {
	t.Helper()
	ctx := context.Background()
	recorder := NewRecorder(s)

	v1 := domain.Snapshot{"name": "田中", "phone": "090-0000-0000"}
	recorder.Record(ctx, RecordParams{
		EntityType: domain.EntityTypeCustomer,
		EntityID:   "c1",
		Operation:  domain.OperationCreate,
		Changes:    domain.ComputeChanges(nil, v1),
		Snapshot:   v1,
		Actor:      testActor,
	})

	tombstone := domain.Snapshot{"deleted": true}
	recorder.Record(ctx, RecordParams{
		EntityType: domain.EntityTypeCustomer,
		EntityID:   "c1",
		Operation:  domain.OperationDelete,
		Changes:    domain.ComputeChanges(v1, tombstone),
		Snapshot:   tombstone,
		Actor:      testActor,
	})
	if err := s.Delete(ctx, "customers", "c1"); err != nil {
		t.Fatalf("failed to delete live document: %v", err)
	}
}

func TestRollbackResurrectsDeletedEntity(t *testing.T) {
	s := newTestStore(t)
	seedDeletedCustomer(t, s)
	ctx := context.Background()

	result := NewEngine(s).RollbackToVersion(ctx, RollbackRequest{
		EntityType:    domain.EntityTypeCustomer,
		EntityID:      "c1",
		TargetVersion: 1,
	}, testActor)

	if !result.Success {
		t.Fatalf("rollback failed: %s", result.Error)
	}
	live, err := s.Get(ctx, "customers", "c1")
	if err != nil {
		t.Fatalf("live document was not recreated: %v", err)
	}
	if live["name"] != "田中" {
		t.Errorf("unexpected resurrected document: %v", live)
	}
}

func TestRestoreDeletedFindsLastLiveVersion(t *testing.T) {
	s := newTestStore(t)
	seedDeletedCustomer(t, s)
	ctx := context.Background()

	result := NewEngine(s).RestoreDeleted(ctx, domain.EntityTypeCustomer, "c1", testActor)
	if !result.Success {
		t.Fatalf("restore failed: %s", result.Error)
	}
	if result.NewVersion != 3 {
		t.Errorf("expected new version 3, got %d", result.NewVersion)
	}
	if result.RestoredData["name"] != "田中" {
		t.Errorf("expected the pre-delete snapshot restored, got %v", result.RestoredData)
	}

	entry, err := NewReader(s).GetHistoryByVersion(ctx, domain.EntityTypeCustomer, "c1", 3)
	if err != nil || entry == nil {
		t.Fatalf("restore history entry missing: entry=%v err=%v", entry, err)
	}
	if entry.RollbackFromVersion != 2 || entry.RollbackToVersion != 1 {
		t.Errorf("expected restore recorded as rollback 2 -> 1, got %d -> %d", entry.RollbackFromVersion, entry.RollbackToVersion)
	}
}

func TestRestoreDeletedWithoutHistory(t *testing.T) {
	s := newTestStore(t)

	result := NewEngine(s).RestoreDeleted(context.Background(), domain.EntityTypeCustomer, "ghost", testActor)
	if result.Success || result.Error != "no history exists" {
		t.Fatalf("expected a no-history failure, got %+v", result)
	}
}

func TestRestoreDeletedWithOnlyDeleteHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	NewRecorder(s).Record(ctx, RecordParams{
		EntityType: domain.EntityTypeCustomer,
		EntityID:   "c1",
		Operation:  domain.OperationDelete,
		Snapshot:   domain.Snapshot{"deleted": true},
		Actor:      testActor,
	})

	result := NewEngine(s).RestoreDeleted(ctx, domain.EntityTypeCustomer, "c1", testActor)
	if result.Success || result.Error != "no restorable version exists" {
		t.Fatalf("expected a no-restorable-version failure, got %+v", result)
	}
}
