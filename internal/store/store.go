// Package store implements the in-memory document store backing the mock backend.
package store

import "errors"

var (
	// ErrCollectionNotFound is returned when a requested collection does not exist.
	ErrCollectionNotFound = errors.New("collection does not exist")
	// ErrEntryNotFound is returned when a requested record does not exist within a collection.
	ErrEntryNotFound = errors.New("entry does not exist")
)

// System fields maintained by the store on every record.
const (
	FieldID        = "_id"
	FieldOwnerID   = "_ownerId"
	FieldCreatedOn = "_createdOn"
	FieldUpdatedOn = "_updatedOn"
	FieldDeletedOn = "_deletedOn"
)

var systemFields = []string{FieldID, FieldCreatedOn, FieldUpdatedOn, FieldOwnerID}

// Record is a single JSON document.
type Record map[string]any

// ID returns the record id or an empty string.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// OwnerID returns the id of the user that created the record.
func (r Record) OwnerID() string {
	id, _ := r[FieldOwnerID].(string)
	return id
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Record(deepCopy(map[string]any(r)).(map[string]any))
}

// Without returns a copy of the record with the given fields removed.
func (r Record) Without(fields ...string) Record {
	out := r.Clone()
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// Snapshot is a set of collections keyed by name, each keyed by record id.
type Snapshot map[string]map[string]Record

// Store is the contract shared by the public and the protected document stores.
type Store interface {
	// Collections lists collection names in creation order.
	Collections() []string
	// List returns every record of a collection in insertion order.
	List(collection string) ([]Record, error)
	// Get returns a single record.
	Get(collection, id string) (Record, error)
	// Add stores a new record under a freshly generated id.
	Add(collection string, data Record) (Record, error)
	// Set replaces a record, keeping its system fields.
	Set(collection, id string, data Record) (Record, error)
	// Merge shallow-merges data into an existing record.
	Merge(collection, id string, data Record) (Record, error)
	// Delete removes a record and returns the deletion marker.
	Delete(collection, id string) (Record, error)
	// Query returns the records whose fields equal the query values (strings compared case-insensitively).
	Query(collection string, query Record) ([]Record, error)
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = deepCopy(inner)
		}
		return out
	case Record:
		return Record(deepCopy(map[string]any(val)).(map[string]any))
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = deepCopy(inner)
		}
		return out
	default:
		return val
	}
}

func isSystemField(key string) bool {
	for _, f := range systemFields {
		if f == key {
			return true
		}
	}
	return false
}
