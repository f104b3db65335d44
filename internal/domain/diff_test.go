package domain

import (
	"testing"
)

func changesByField(changes []FieldChange) map[string]FieldChange {
	out := make(map[string]FieldChange, len(changes))
	for _, change := range changes {
		out[change.Field] = change
	}
	return out
}

func TestComputeChangesCreation(t *testing.T) {
	created := Snapshot{
		"id":        "abc",
		"name":      "田中",
		"phone":     "090-0000-0000",
		"note":      "",
		"createdAt": "2026-01-01T00:00:00Z",
	}

	changes := ComputeChanges(nil, created)
	byField := changesByField(changes)

	if len(changes) != 2 {
		t.Fatalf("expected 2 changes on creation, got %d: %v", len(changes), changes)
	}
	for _, field := range []string{"name", "phone"} {
		change, ok := byField[field]
		if !ok {
			t.Fatalf("expected change for %q, got %v", field, changes)
		}
		if change.OldValue != nil {
			t.Errorf("creation change %q should have nil old value, got %v", field, change.OldValue)
		}
	}
	if _, ok := byField["id"]; ok {
		t.Errorf("excluded field id must not appear in changes")
	}
	if _, ok := byField["note"]; ok {
		t.Errorf("empty field note must not appear in creation changes")
	}
}

func TestComputeChangesReflexive(t *testing.T) {
	snapshot := Snapshot{
		"name":    "base",
		"tags":    []any{"a", "b"},
		"address": map[string]any{"city": "東京", "zip": "100-0001"},
		"count":   float64(3),
	}

	if changes := ComputeChanges(snapshot, snapshot); len(changes) != 0 {
		t.Fatalf("expected no changes diffing a snapshot against itself, got %v", changes)
	}
	if changes := ComputeChanges(CloneSnapshot(snapshot), snapshot); len(changes) != 0 {
		t.Fatalf("expected no changes diffing a clone, got %v", changes)
	}
}

func TestComputeChangesDetectsUpdates(t *testing.T) {
	old := Snapshot{
		"name":      "田中",
		"phone":     "090-0000-0000",
		"updatedAt": "2026-01-01T00:00:00Z",
	}
	updated := Snapshot{
		"name":      "田中",
		"phone":     "080-1111-1111",
		"updatedAt": "2026-01-02T00:00:00Z",
	}

	changes := ComputeChanges(old, updated)
	if len(changes) != 1 {
		t.Fatalf("expected exactly one change, got %v", changes)
	}
	change := changes[0]
	if change.Field != "phone" {
		t.Errorf("expected phone change, got %q", change.Field)
	}
	if change.OldValue != "090-0000-0000" || change.NewValue != "080-1111-1111" {
		t.Errorf("unexpected transition: %v -> %v", change.OldValue, change.NewValue)
	}
}

func TestComputeChangesAddedAndRemovedFields(t *testing.T) {
	old := Snapshot{"name": "base", "legacy": "x"}
	updated := Snapshot{"name": "base", "fresh": "y"}

	byField := changesByField(ComputeChanges(old, updated))
	if len(byField) != 2 {
		t.Fatalf("expected 2 changes, got %v", byField)
	}
	if change := byField["legacy"]; change.OldValue != "x" || change.NewValue != nil {
		t.Errorf("removed field should transition to nil, got %v -> %v", change.OldValue, change.NewValue)
	}
	if change := byField["fresh"]; change.OldValue != nil || change.NewValue != "y" {
		t.Errorf("added field should transition from nil, got %v -> %v", change.OldValue, change.NewValue)
	}
}

func TestDeepEqualSemantics(t *testing.T) {
	cases := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{"nil vs nil", nil, nil, true},
		{"nil vs false", nil, false, false},
		{"nil vs empty string", nil, "", false},
		{"nil vs zero", nil, float64(0), false},
		{"int vs float same value", int64(3), float64(3), true},
		{"arrays equal", []any{"a", float64(1)}, []any{"a", float64(1)}, true},
		{"arrays order matters", []any{"a", "b"}, []any{"b", "a"}, false},
		{"arrays length matters", []any{"a"}, []any{"a", "a"}, false},
		{"objects equal", map[string]any{"x": float64(1)}, map[string]any{"x": float64(1)}, true},
		{"objects key set", map[string]any{"x": float64(1)}, map[string]any{"y": float64(1)}, false},
		{"nested objects", map[string]any{"x": map[string]any{"y": "z"}}, map[string]any{"x": map[string]any{"y": "z"}}, true},
	}

	for _, tc := range cases {
		if got := deepEqual(tc.a, tc.b); got != tc.equal {
			t.Errorf("%s: deepEqual(%v, %v) = %v, want %v", tc.name, tc.a, tc.b, got, tc.equal)
		}
	}
}

func TestComputeChangesNestedEmitsDottedPaths(t *testing.T) {
	old := Snapshot{
		"name": "田中",
		"address": map[string]any{
			"city": "東京",
			"zip":  "100-0001",
		},
	}
	updated := Snapshot{
		"name": "田中",
		"address": map[string]any{
			"city": "大阪",
			"zip":  "100-0001",
		},
	}

	changes := ComputeChangesNested(old, updated)
	if len(changes) != 1 {
		t.Fatalf("expected one nested change, got %v", changes)
	}
	change := changes[0]
	if change.Field != "address.city" {
		t.Errorf("expected dotted path address.city, got %q", change.Field)
	}
	if change.OldValue != "東京" || change.NewValue != "大阪" {
		t.Errorf("unexpected transition: %v -> %v", change.OldValue, change.NewValue)
	}
}

func TestComputeChangesNestedDoesNotRecurseIntoArrays(t *testing.T) {
	old := Snapshot{"tags": []any{"a", "b"}}
	updated := Snapshot{"tags": []any{"a", "c"}}

	changes := ComputeChangesNested(old, updated)
	if len(changes) != 1 {
		t.Fatalf("expected one change, got %v", changes)
	}
	if changes[0].Field != "tags" {
		t.Errorf("array change must be reported at the array field, got %q", changes[0].Field)
	}
}

func TestComputeChangesCustomExclusions(t *testing.T) {
	old := Snapshot{"name": "a", "secret": "x"}
	updated := Snapshot{"name": "b", "secret": "y"}

	byField := changesByField(ComputeChanges(old, updated, "secret"))
	if _, ok := byField["secret"]; ok {
		t.Errorf("secret should be excluded")
	}
	if _, ok := byField["name"]; !ok {
		t.Errorf("name change missing; custom exclusions replace the defaults")
	}
}

func TestComputeChangesStableOutput(t *testing.T) {
	old := Snapshot{"b": "1", "a": "1", "c": "1"}
	updated := Snapshot{"b": "2", "a": "2", "c": "2"}

	first := ComputeChanges(old, updated)
	for i := 0; i < 10; i++ {
		again := ComputeChanges(old, updated)
		if len(again) != len(first) {
			t.Fatalf("unstable change count: %d vs %d", len(again), len(first))
		}
		for j := range first {
			if first[j].Field != again[j].Field {
				t.Fatalf("unstable ordering at %d: %q vs %q", j, first[j].Field, again[j].Field)
			}
		}
	}
}
