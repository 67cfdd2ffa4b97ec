// Package jsonstore serves a schemaless tree of JSON documents addressed by path.
// It predates the collection based data service and skips access rules.
package jsonstore

import (
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"
)

// Tree is a nested document tree guarded by a mutex.
type Tree struct {
	mu    sync.RWMutex
	root  map[string]any
	newID func() string
}

// NewTree returns a tree seeded with one top-level node per collection.
func NewTree(seed map[string]map[string]any) *Tree {
	root := make(map[string]any, len(seed))
	for name, docs := range seed {
		root[name] = clone(map[string]any(docs))
	}
	return &Tree{root: root, newID: uuid.NewString}
}

// walk follows path from the root. It MUST be called with t.mu held.
func (t *Tree) walk(path []string) (any, bool) {
	var node any = t.root
	for _, token := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		if node, ok = m[token]; !ok {
			return nil, false
		}
	}
	return node, true
}

// Get returns a copy of the node at path.
func (t *Tree) Get(path []string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, ok := t.walk(path)
	if !ok {
		return nil, false
	}
	return clone(node), true
}

// Create stores doc under a fresh id below path, creating missing parents.
func (t *Tree) Create(path []string, doc map[string]any) (map[string]any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent := t.root
	for _, token := range path {
		child, ok := parent[token]
		if !ok {
			next := map[string]any{}
			parent[token] = next
			parent = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s is not a document", token)
		}
		parent = next
	}

	id := t.newID()
	node := clone(doc).(map[string]any)
	node["_id"] = id
	parent[id] = node
	return clone(node).(map[string]any), nil
}

// Replace overwrites an existing node. It reports false when nothing is stored at path.
func (t *Tree) Replace(path []string, value any) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	parentNode, ok := t.walk(path[:len(path)-1])
	if !ok {
		return nil, false
	}
	parent, ok := parentNode.(map[string]any)
	if !ok {
		return nil, false
	}
	key := path[len(path)-1]
	if _, ok := parent[key]; !ok {
		return nil, false
	}
	parent[key] = clone(value)
	return clone(value), true
}

// Merge shallow-merges fields into an existing document.
func (t *Tree) Merge(path []string, fields map[string]any) (any, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.walk(path)
	if !ok {
		return nil, false, nil
	}
	doc, ok := node.(map[string]any)
	if !ok {
		return nil, true, fmt.Errorf("node is not a document")
	}
	maps.Copy(doc, clone(fields).(map[string]any))
	return clone(doc), true, nil
}

// Remove deletes the node at path and returns it.
func (t *Tree) Remove(path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	parentNode, ok := t.walk(path[:len(path)-1])
	if !ok {
		return nil, false
	}
	parent, ok := parentNode.(map[string]any)
	if !ok {
		return nil, false
	}
	key := path[len(path)-1]
	node, ok := parent[key]
	if !ok {
		return nil, false
	}
	delete(parent, key)
	return node, true
}

func clone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = clone(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = clone(inner)
		}
		return out
	default:
		return val
	}
}
