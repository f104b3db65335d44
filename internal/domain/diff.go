package domain

import (
	"reflect"
	"sort"
)

// Fields excluded from diffs unless the caller overrides the exclusion set.
var defaultExcludedFields = []string{"id", "createdAt", "updatedAt"}

// ComputeChanges computes the field-level changes between two entity states.
// A nil old snapshot means creation: every non-excluded, non-empty field of
// new is emitted with a nil old value. Otherwise the union of keys from both
// snapshots is examined and a field is included iff its values are not deeply
// equal. Output is sorted by field name.
//
// When no excluded fields are given, id, createdAt and updatedAt are skipped.
func ComputeChanges(old, updated Snapshot, excluded ...string) []FieldChange {
	skip := exclusionSet(excluded)
	changes := []FieldChange{}

	if old == nil {
		for field, value := range updated {
			if skip[field] || isEmptyValue(value) {
				continue
			}
			changes = append(changes, FieldChange{Field: field, OldValue: nil, NewValue: value})
		}
		sortChanges(changes)
		return changes
	}

	for _, field := range unionKeys(old, updated) {
		if skip[field] {
			continue
		}
		oldValue := old[field]
		newValue := updated[field]
		if deepEqual(oldValue, newValue) {
			continue
		}
		changes = append(changes, FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
	}
	sortChanges(changes)
	return changes
}

// ComputeChangesNested behaves like ComputeChanges but recurses into nested
// plain objects (not arrays), emitting dotted-path field names so changes
// inside composite fields like an address are tracked individually. The
// exclusion set applies to top-level field names.
func ComputeChangesNested(old, updated Snapshot, excluded ...string) []FieldChange {
	skip := exclusionSet(excluded)
	changes := []FieldChange{}

	oldMap := map[string]any(old)
	newMap := map[string]any(updated)
	if oldMap == nil {
		oldMap = map[string]any{}
	}

	for _, field := range unionKeys(oldMap, newMap) {
		if skip[field] {
			continue
		}
		appendNestedChanges(field, oldMap[field], newMap[field], &changes)
	}
	sortChanges(changes)
	return changes
}

func appendNestedChanges(path string, oldValue, newValue any, changes *[]FieldChange) {
	oldMap, oldIsMap := oldValue.(map[string]any)
	newMap, newIsMap := newValue.(map[string]any)
	if oldIsMap && newIsMap {
		for _, key := range unionKeys(oldMap, newMap) {
			appendNestedChanges(path+"."+key, oldMap[key], newMap[key], changes)
		}
		return
	}

	if deepEqual(oldValue, newValue) {
		return
	}
	*changes = append(*changes, FieldChange{Field: path, OldValue: oldValue, NewValue: newValue})
}

// deepEqual compares two JSON-like values. Primitives compare by value with
// numeric types normalized, arrays by length and pairwise elements in order,
// objects by key set and pairwise values. nil equals nil only; it is not
// equal to false, zero or the empty string.
func deepEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if aNum, ok := asFloat(a); ok {
		bNum, ok := asFloat(b)
		return ok && aNum == bNum
	}

	switch typedA := a.(type) {
	case string:
		typedB, ok := b.(string)
		return ok && typedA == typedB
	case bool:
		typedB, ok := b.(bool)
		return ok && typedA == typedB
	case []any:
		typedB, ok := b.([]any)
		if !ok || len(typedA) != len(typedB) {
			return false
		}
		for i := range typedA {
			if !deepEqual(typedA[i], typedB[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		typedB, ok := b.(map[string]any)
		if !ok || len(typedA) != len(typedB) {
			return false
		}
		for key, valueA := range typedA {
			valueB, present := typedB[key]
			if !present || !deepEqual(valueA, valueB) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

func asFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	}
	return 0, false
}

func isEmptyValue(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	return false
}

func exclusionSet(excluded []string) map[string]bool {
	if len(excluded) == 0 {
		excluded = defaultExcludedFields
	}
	skip := make(map[string]bool, len(excluded))
	for _, field := range excluded {
		skip[field] = true
	}
	return skip
}

func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for key := range a {
		keys = append(keys, key)
		seen[key] = true
	}
	for key := range b {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func sortChanges(changes []FieldChange) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Field < changes[j].Field
	})
}
