package domain

// EntityType identifies one of the business record collections tracked by the
// audit engine.
type EntityType string

const (
	EntityTypeCustomer       EntityType = "customer"
	EntityTypeDeal           EntityType = "deal"
	EntityTypeRelationship   EntityType = "relationship"
	EntityTypeTreeBurialDeal EntityType = "tree_burial_deal"
	EntityTypeBurialPerson   EntityType = "burial_person"
)

// AuditLogCollection is the single flat collection holding the cross-entity
// audit ledger.
const AuditLogCollection = "audit_logs"

var entityCollections = map[EntityType]string{
	EntityTypeCustomer:       "customers",
	EntityTypeDeal:           "deals",
	EntityTypeRelationship:   "relationships",
	EntityTypeTreeBurialDeal: "tree_burial_deals",
	EntityTypeBurialPerson:   "burial_persons",
}

// Valid reports whether the entity type is one of the known record kinds.
func (t EntityType) Valid() bool {
	_, ok := entityCollections[t]
	return ok
}

// Collection returns the live document collection for the entity type.
func (t EntityType) Collection() string {
	return entityCollections[t]
}

// HistoryCollection returns the per-entity history stream collection path.
func (t EntityType) HistoryCollection(entityID string) string {
	return entityCollections[t] + "/" + entityID + "/history"
}

// Snapshot is the full serialized state of an entity at a point in time.
type Snapshot map[string]any

// CloneSnapshot copies a snapshot so callers can mutate the result without
// affecting the source. Values are copied shallowly.
func CloneSnapshot(s Snapshot) Snapshot {
	if s == nil {
		return Snapshot{}
	}
	out := make(Snapshot, len(s))
	for key, value := range s {
		out[key] = value
	}
	return out
}
