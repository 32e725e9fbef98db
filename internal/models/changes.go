package models

// PersistenceIntent tells the storage gateway how an in-memory aggregate
// should be persisted.
type PersistenceIntent int

const (
	// IntentNew marks an aggregate that has never been saved.
	IntentNew PersistenceIntent = iota
	// IntentUnchanged marks a loaded aggregate with no pending mutations.
	IntentUnchanged
	// IntentUpdated marks a loaded aggregate with pending mutations.
	IntentUpdated
)

func (i PersistenceIntent) String() string {
	switch i {
	case IntentNew:
		return "new"
	case IntentUnchanged:
		return "unchanged"
	case IntentUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// ChangeSet is the explicit diff handed to the storage gateway alongside the
// aggregate. The per-collection flags let the gateway skip rewriting a child
// collection that was not touched.
type ChangeSet struct {
	Intent       PersistenceIntent
	MembersDirty bool
	RecordsDirty bool
}
