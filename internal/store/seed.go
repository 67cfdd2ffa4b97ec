package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// LoadDocuments reads every "<collection>.json" file found at the root of fsys.
// Each file holds a JSON object keyed by record id.
func LoadDocuments(fsys fs.FS) (map[string]map[string]any, error) {
	all := make(map[string]map[string]any)

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if file.IsDir() || path.Ext(file.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(file.Name(), ".json")

		content, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file.Name(), err)
		}

		var docs map[string]any
		if err := json.Unmarshal(content, &docs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", file.Name(), err)
		}
		if docs == nil {
			docs = make(map[string]any)
		}
		all[name] = docs
	}
	return all, nil
}

// LoadSnapshot reads seed collections from fsys. Entries that are not JSON objects are rejected.
func LoadSnapshot(fsys fs.FS) (Snapshot, error) {
	docs, err := LoadDocuments(fsys)
	if err != nil {
		return nil, err
	}

	snap := make(Snapshot, len(docs))
	for name, entries := range docs {
		records := make(map[string]Record, len(entries))
		for id, v := range entries {
			obj, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("collection %s: entry %s is not an object", name, id)
			}
			records[id] = Record(obj)
		}
		snap[name] = records
	}
	return snap, nil
}

// LoadDir is LoadDocuments over a directory on disk. A missing directory yields no documents.
func LoadDir(dir string) (map[string]map[string]any, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return map[string]map[string]any{}, nil
	}
	return LoadDocuments(os.DirFS(dir))
}
