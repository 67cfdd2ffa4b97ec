// Package seed embeds the data the server starts with: public collections,
// the protected users and sessions, and the default access rules.
package seed

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/victornedelchev/Games-Play/internal/rules"
	"github.com/victornedelchev/Games-Play/internal/store"
)

var (
	//go:embed data/*.json
	dataFS embed.FS

	//go:embed protected/*.json
	protectedFS embed.FS

	//go:embed rules.yaml
	rulesYAML []byte
)

// Public returns the collections served by the data service.
func Public() (store.Snapshot, error) {
	return load(dataFS, "data")
}

// Protected returns the users and sessions collections.
func Protected() (store.Snapshot, error) {
	return load(protectedFS, "protected")
}

// Rules returns the default rule set.
func Rules() (rules.Set, error) {
	return rules.Parse(rulesYAML)
}

func load(fsys embed.FS, dir string) (store.Snapshot, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, err
	}
	snap, err := store.LoadSnapshot(sub)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", dir, err)
	}
	return snap, nil
}
