package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// collection keeps records in insertion order.
type collection struct {
	order   []string
	records map[string]Record
}

func newCollection() *collection {
	return &collection{records: make(map[string]Record)}
}

func (c *collection) put(id string, r Record) {
	if _, ok := c.records[id]; !ok {
		c.order = append(c.order, id)
	}
	c.records[id] = r
}

func (c *collection) remove(id string) {
	delete(c.records, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// MemStore is a thread-safe in-memory document store.
type MemStore struct {
	mu    sync.RWMutex
	names []string
	data  map[string]*collection
	now   func() time.Time
	newID func() string
}

var _ Store = (*MemStore)(nil)

// Option configures a MemStore.
type Option func(*MemStore)

// WithClock overrides the clock used for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *MemStore) { m.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen func() string) Option {
	return func(m *MemStore) { m.newID = gen }
}

// NewMemStore initializes a store populated with the given seed data.
// Records of each collection are inserted ordered by creation time.
func NewMemStore(seed Snapshot, opts ...Option) *MemStore {
	m := &MemStore{
		data:  make(map[string]*collection),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}

	names := make([]string, 0, len(seed))
	for name := range seed {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := m.ensure(name)
		for _, id := range seedOrder(seed[name]) {
			rec := seed[name][id].Clone()
			if rec == nil {
				rec = Record{}
			}
			rec[FieldID] = id
			normalizeTimestamps(rec)
			c.put(id, rec)
		}
	}
	return m
}

func seedOrder(records map[string]Record) []string {
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := toMillis(records[ids[i]][FieldCreatedOn]), toMillis(records[ids[j]][FieldCreatedOn])
		if a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}

// ensure returns the named collection, creating it if needed.
// It MUST be called while holding m.mu.Lock.
func (m *MemStore) ensure(name string) *collection {
	c, ok := m.data[name]
	if !ok {
		c = newCollection()
		m.data[name] = c
		m.names = append(m.names, name)
	}
	return c
}

func (m *MemStore) lookup(name string) (*collection, error) {
	c, ok := m.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return c, nil
}

func (m *MemStore) stamp() int64 {
	return m.now().UnixMilli()
}

// --- Interface Implementation ---

func (m *MemStore) Collections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.names...)
}

func (m *MemStore) List(name string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, withID(c.records[id], id))
	}
	return out, nil
}

func (m *MemStore) Get(name, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	rec, ok := c.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return withID(rec, id), nil
}

func (m *MemStore) Add(name string, data Record) (Record, error) {
	rec := Record{}
	if owner, ok := data[FieldOwnerID]; ok && owner != nil {
		rec[FieldOwnerID] = owner
	}
	assignClean(rec, data)

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.ensure(name)
	id := m.newID()
	for {
		if _, taken := c.records[id]; !taken {
			break
		}
		id = m.newID()
	}
	rec[FieldID] = id
	rec[FieldCreatedOn] = m.stamp()
	c.put(id, rec)

	return withID(rec, id), nil
}

func (m *MemStore) Set(name, id string, data Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	existing, ok := c.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	rec := assignClean(Record{}, data)
	for _, f := range systemFields {
		if v, ok := existing[f]; ok {
			rec[f] = deepCopy(v)
		}
	}
	rec[FieldUpdatedOn] = m.stamp()
	c.put(id, rec)

	return withID(rec, id), nil
}

func (m *MemStore) Merge(name, id string, data Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	existing, ok := c.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	rec := assignClean(existing.Clone(), data)
	rec[FieldUpdatedOn] = m.stamp()
	c.put(id, rec)

	return withID(rec, id), nil
}

func (m *MemStore) Delete(name, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	if _, ok := c.records[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	c.remove(id)

	return Record{FieldDeletedOn: m.stamp()}, nil
}

func (m *MemStore) Query(name string, query Record) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, err := m.lookup(name)
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, id := range c.order {
		rec := c.records[id]
		if matches(rec, query) {
			out = append(out, withID(rec, id))
		}
	}
	return out, nil
}

// matches reports whether every query field is present in rec with an equal value.
func matches(rec, query Record) bool {
	for field, want := range query {
		got, ok := rec[field]
		if !ok {
			return false
		}
		ws, wok := want.(string)
		gs, gok := got.(string)
		if wok && gok {
			if !strings.EqualFold(ws, gs) {
				return false
			}
			continue
		}
		if fmt.Sprint(want) != fmt.Sprint(got) {
			return false
		}
	}
	return true
}

// assignClean copies every non-system field of src into dst.
func assignClean(dst, src Record) Record {
	for k, v := range src {
		if !isSystemField(k) {
			dst[k] = deepCopy(v)
		}
	}
	return dst
}

func withID(rec Record, id string) Record {
	out := rec.Clone()
	out[FieldID] = id
	return out
}

func normalizeTimestamps(rec Record) {
	for _, f := range []string{FieldCreatedOn, FieldUpdatedOn} {
		if v, ok := rec[f]; ok {
			rec[f] = toMillis(v)
		}
	}
}

func toMillis(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
