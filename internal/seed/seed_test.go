package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornedelchev/Games-Play/internal/rules"
	"github.com/victornedelchev/Games-Play/internal/vault"
)

func TestPublic(t *testing.T) {
	snap, err := Public()
	require.NoError(t, err)

	for _, name := range []string{"games", "comments", "recipes", "records", "teams", "members"} {
		assert.Contains(t, snap, name)
	}
	assert.Len(t, snap["records"], 10)
	assert.Contains(t, snap["games"], "1c32eb6f-66d7-41fc-841f-ec06b1349a5d")
}

func TestProtected(t *testing.T) {
	snap, err := Protected()
	require.NoError(t, err)
	require.Contains(t, snap, "sessions")
	assert.Empty(t, snap["sessions"])

	users := snap["users"]
	require.Len(t, users, 3)

	h := vault.NewHasher("")
	peter := users["35c62d76-8152-4626-8712-eeb96381bea8"]
	assert.Equal(t, "peter@abv.bg", peter["email"])
	assert.True(t, h.Verify("123456", peter["hashedPassword"].(string)))

	admin := users["60f0cf0b-34b0-4abd-9769-8c42f830dffc"]
	assert.True(t, h.Verify("admin", admin["hashedPassword"].(string)))
}

func TestRules(t *testing.T) {
	set, err := Rules()
	require.NoError(t, err)

	e := rules.NewEngine(set, nil)
	rule, _ := e.Resolve(rules.ActionRead, "users", nil)
	assert.Equal(t, "[Owner]", rule.String())

	rule, fields := e.Resolve(rules.ActionUpdate, "members", nil)
	assert.Equal(t, "ownsParent(teams, teamId)", rule.String())
	require.Len(t, fields, 1)
	assert.Equal(t, "teamId", fields[0].Field)
}
