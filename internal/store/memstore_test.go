package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"testing/fstest"
	"time"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func sequentialIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestMemStore_AddGet(t *testing.T) {
	ms := NewMemStore(nil, WithClock(fixedClock(1000)))

	added, err := ms.Add("games", Record{"title": "Satisfactory", "category": "Building"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if added.ID() == "" {
		t.Fatal("Expected a generated _id")
	}
	if added[FieldCreatedOn] != int64(1000) {
		t.Errorf("Expected _createdOn 1000, got %v", added[FieldCreatedOn])
	}

	got, err := ms.Get("games", added.ID())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got["title"] != "Satisfactory" || got["category"] != "Building" {
		t.Errorf("Unexpected record: %v", got)
	}
	if got.ID() != added.ID() {
		t.Errorf("Expected id %s, got %s", added.ID(), got.ID())
	}
}

func TestMemStore_AddStripsSystemFields(t *testing.T) {
	ms := NewMemStore(nil, WithClock(fixedClock(5)))

	added, _ := ms.Add("games", Record{
		"_id":        "forged",
		"_createdOn": 1,
		"_updatedOn": 2,
		"_ownerId":   "owner-1",
		"title":      "x",
	})
	if added.ID() == "forged" {
		t.Error("Caller supplied _id must be ignored")
	}
	if added[FieldCreatedOn] != int64(5) {
		t.Errorf("Expected server timestamp, got %v", added[FieldCreatedOn])
	}
	if _, ok := added[FieldUpdatedOn]; ok {
		t.Error("_updatedOn must not be set on add")
	}
	if added.OwnerID() != "owner-1" {
		t.Errorf("Expected _ownerId to be kept, got %v", added.OwnerID())
	}
}

func TestMemStore_AddRegeneratesCollidingID(t *testing.T) {
	ms := NewMemStore(Snapshot{"games": {"a": {"title": "seeded"}}},
		WithIDGenerator(sequentialIDs("a", "a", "b")))

	added, err := ms.Add("games", Record{"title": "new"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if added.ID() != "b" {
		t.Errorf("Expected colliding ids to be skipped, got %s", added.ID())
	}
	seeded, _ := ms.Get("games", "a")
	if seeded["title"] != "seeded" {
		t.Error("Seeded record was overwritten")
	}
}

func TestMemStore_GetErrors(t *testing.T) {
	ms := NewMemStore(Snapshot{"games": {}})

	if _, err := ms.Get("missing", "x"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Expected ErrCollectionNotFound, got %v", err)
	}
	if _, err := ms.Get("games", "x"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}
	if _, err := ms.List("missing"); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Expected ErrCollectionNotFound from List, got %v", err)
	}
}

func TestMemStore_SetPreservesSystemFields(t *testing.T) {
	ms := NewMemStore(nil, WithClock(fixedClock(10)))
	added, _ := ms.Add("games", Record{"_ownerId": "u1", "title": "old", "category": "Rally"})

	ms.now = fixedClock(20)
	updated, err := ms.Set("games", added.ID(), Record{
		"_ownerId":   "intruder",
		"_createdOn": 99,
		"title":      "new",
	})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if updated["title"] != "new" {
		t.Errorf("Expected title to be replaced, got %v", updated["title"])
	}
	if _, ok := updated["category"]; ok {
		t.Error("Set must replace the whole record")
	}
	if updated.OwnerID() != "u1" || updated[FieldCreatedOn] != int64(10) || updated.ID() != added.ID() {
		t.Errorf("System fields not preserved: %v", updated)
	}
	if updated[FieldUpdatedOn] != int64(20) {
		t.Errorf("Expected _updatedOn 20, got %v", updated[FieldUpdatedOn])
	}
}

func TestMemStore_Merge(t *testing.T) {
	ms := NewMemStore(nil, WithClock(fixedClock(10)))
	added, _ := ms.Add("games", Record{"_ownerId": "u1", "title": "old", "category": "Rally"})

	merged, err := ms.Merge("games", added.ID(), Record{"title": "new", "_ownerId": "intruder"})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged["title"] != "new" || merged["category"] != "Rally" {
		t.Errorf("Unexpected merge result: %v", merged)
	}
	if merged.OwnerID() != "u1" {
		t.Error("Merge must not touch _ownerId")
	}
	if _, ok := merged[FieldUpdatedOn]; !ok {
		t.Error("Merge must stamp _updatedOn")
	}
}

func TestMemStore_Delete(t *testing.T) {
	ms := NewMemStore(nil, WithClock(fixedClock(42)))
	added, _ := ms.Add("games", Record{"title": "x"})

	marker, err := ms.Delete("games", added.ID())
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if marker[FieldDeletedOn] != int64(42) {
		t.Errorf("Expected deletion marker, got %v", marker)
	}
	if _, err := ms.Get("games", added.ID()); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound after delete, got %v", err)
	}
	if _, err := ms.Delete("games", added.ID()); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Expected second delete to fail, got %v", err)
	}
}

func TestMemStore_Query(t *testing.T) {
	ms := NewMemStore(nil)
	ms.Add("users", Record{"email": "Peter@abv.bg", "age": 30})
	ms.Add("users", Record{"email": "george@abv.bg", "age": 31})
	ms.Add("users", Record{"username": "no-email"})

	res, err := ms.Query("users", Record{"email": "peter@ABV.bg"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(res) != 1 || res[0]["email"] != "Peter@abv.bg" {
		t.Errorf("Expected case-insensitive match, got %v", res)
	}

	res, _ = ms.Query("users", Record{"age": 31})
	if len(res) != 1 || res[0]["email"] != "george@abv.bg" {
		t.Errorf("Expected numeric match, got %v", res)
	}

	if _, err := ms.Query("missing", Record{}); !errors.Is(err, ErrCollectionNotFound) {
		t.Errorf("Expected ErrCollectionNotFound, got %v", err)
	}
}

func TestMemStore_ReadsReturnCopies(t *testing.T) {
	ms := NewMemStore(nil)
	added, _ := ms.Add("games", Record{"tags": []any{"a"}, "meta": map[string]any{"k": "v"}})

	got, _ := ms.Get("games", added.ID())
	got["title"] = "mutated"
	got["tags"].([]any)[0] = "z"
	got["meta"].(map[string]any)["k"] = "z"

	again, _ := ms.Get("games", added.ID())
	if _, ok := again["title"]; ok {
		t.Error("Top-level mutation leaked into the store")
	}
	if again["tags"].([]any)[0] != "a" || again["meta"].(map[string]any)["k"] != "v" {
		t.Errorf("Nested mutation leaked into the store: %v", again)
	}
}

func TestMemStore_InsertionOrder(t *testing.T) {
	ms := NewMemStore(Snapshot{"records": {
		"i02": {"name": "second", "_createdOn": float64(2)},
		"i01": {"name": "first", "_createdOn": float64(1)},
	}})
	ms.Add("records", Record{"name": "third"})

	list, _ := ms.List("records")
	if len(list) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(list))
	}
	for i, want := range []string{"first", "second", "third"} {
		if list[i]["name"] != want {
			t.Errorf("Position %d: expected %s, got %v", i, want, list[i]["name"])
		}
	}
	if list[0][FieldCreatedOn] != int64(1) {
		t.Errorf("Seed timestamps should be normalized, got %T", list[0][FieldCreatedOn])
	}
}

func TestMemStore_CollectionsCreatedLazily(t *testing.T) {
	ms := NewMemStore(Snapshot{"games": {}})
	ms.Add("comments", Record{"text": "hi"})

	names := ms.Collections()
	if len(names) != 2 || names[0] != "games" || names[1] != "comments" {
		t.Errorf("Expected [games comments], got %v", names)
	}
}

func TestMemStore_ConcurrentAdds(t *testing.T) {
	ms := NewMemStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ms.Add("games", Record{"n": n})
		}(i)
	}
	wg.Wait()

	list, _ := ms.List("games")
	if len(list) != 50 {
		t.Errorf("Expected 50 records, got %d", len(list))
	}
	seen := map[string]bool{}
	for _, r := range list {
		if seen[r.ID()] {
			t.Fatalf("Duplicate id %s", r.ID())
		}
		seen[r.ID()] = true
	}
}

func TestLoadSnapshot(t *testing.T) {
	fsys := fstest.MapFS{
		"games.json":    {Data: []byte(`{"g1": {"title": "WoW", "_createdOn": 1722172366344}}`)},
		"sessions.json": {Data: []byte(`{}`)},
		"notes.txt":     {Data: []byte(`ignored`)},
	}

	snap, err := LoadSnapshot(fsys)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(snap) != 2 {
		t.Errorf("Expected 2 collections, got %d", len(snap))
	}
	if snap["games"]["g1"]["title"] != "WoW" {
		t.Errorf("Loaded data mismatch: %v", snap["games"])
	}

	ms := NewMemStore(snap)
	g, err := ms.Get("games", "g1")
	if err != nil {
		t.Fatalf("Get on seeded store failed: %v", err)
	}
	if g[FieldCreatedOn] != int64(1722172366344) {
		t.Errorf("Expected integer timestamp, got %v", g[FieldCreatedOn])
	}
	if _, err := ms.Query("sessions", Record{"userId": "x"}); err != nil {
		t.Errorf("Empty seeded collection should exist: %v", err)
	}
}

func TestLoadSnapshot_RejectsNonObjects(t *testing.T) {
	fsys := fstest.MapFS{"games.json": {Data: []byte(`{"g1": 5}`)}}
	if _, err := LoadSnapshot(fsys); err == nil {
		t.Error("Expected error for non-object entry")
	}

	fsys = fstest.MapFS{"games.json": {Data: []byte(`not json`)}}
	if _, err := LoadSnapshot(fsys); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestLoadDir_Missing(t *testing.T) {
	docs, err := LoadDir(fmt.Sprintf("%s/does-not-exist", t.TempDir()))
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Expected no documents, got %v", docs)
	}
}
