package jsonstore

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/victornedelchev/Games-Play/internal/server"
)

func newTestTree() *Tree {
	tree := NewTree(map[string]map[string]any{
		"catalog": {
			"p1": map[string]any{"name": "Chair", "tags": []any{"wood"}},
		},
	})
	tree.newID = func() string { return "new-id" }
	return tree
}

func TestTree_Get(t *testing.T) {
	tree := newTestTree()

	v, ok := tree.Get([]string{"catalog", "p1", "name"})
	require.True(t, ok)
	assert.Equal(t, "Chair", v)

	_, ok = tree.Get([]string{"catalog", "p1", "name", "deeper"})
	assert.False(t, ok)
	_, ok = tree.Get([]string{"missing"})
	assert.False(t, ok)

	doc, _ := tree.Get([]string{"catalog", "p1"})
	doc.(map[string]any)["tags"].([]any)[0] = "changed"
	again, _ := tree.Get([]string{"catalog", "p1", "tags"})
	assert.Equal(t, []any{"wood"}, again)
}

func TestTree_Create(t *testing.T) {
	tree := newTestTree()

	created, err := tree.Create([]string{"orders", "2024"}, map[string]any{"total": 5.0, "_id": "forged"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"total": 5.0, "_id": "new-id"}, created)

	v, ok := tree.Get([]string{"orders", "2024", "new-id", "total"})
	require.True(t, ok)
	assert.Equal(t, 5.0, v)

	_, err = tree.Create([]string{"catalog", "p1", "name"}, map[string]any{})
	assert.Error(t, err)
}

func TestTree_ReplaceMergeRemove(t *testing.T) {
	tree := newTestTree()

	_, ok := tree.Replace([]string{"catalog", "p2"}, map[string]any{})
	assert.False(t, ok, "replace never creates")

	v, ok := tree.Replace([]string{"catalog", "p1"}, map[string]any{"name": "Table"})
	require.True(t, ok)
	assert.Equal(t, map[string]any{"name": "Table"}, v)

	merged, found, err := tree.Merge([]string{"catalog", "p1"}, map[string]any{"price": 10.0})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, map[string]any{"name": "Table", "price": 10.0}, merged)

	_, _, err = tree.Merge([]string{"catalog", "p1", "name"}, map[string]any{"x": 1.0})
	assert.Error(t, err)

	removed, ok := tree.Remove([]string{"catalog", "p1"})
	require.True(t, ok)
	assert.Equal(t, "Table", removed.(map[string]any)["name"])
	_, ok = tree.Get([]string{"catalog", "p1"})
	assert.False(t, ok)

	_, ok = tree.Remove([]string{"catalog", "p1"})
	assert.False(t, ok)
}

func TestService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	router := server.NewRouter(log, nil, map[string]server.ServiceHandler{
		"jsonstore": NewService(newTestTree(), log),
	})
	engine := gin.New()
	engine.NoRoute(router.Handle)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
		return w
	}

	w := do(http.MethodGet, "/jsonstore/catalog/p1/name", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"Chair"`, w.Body.String())

	w = do(http.MethodGet, "/jsonstore/catalog/nope", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(http.MethodPost, "/jsonstore/catalog", `{"name":"Lamp"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"Lamp","_id":"new-id"}`, w.Body.String())

	w = do(http.MethodPatch, "/jsonstore/catalog/new-id", `{"price":3}`)
	assert.JSONEq(t, `{"name":"Lamp","_id":"new-id","price":3}`, w.Body.String())

	w = do(http.MethodPut, "/jsonstore/catalog/new-id/name", `"Desk lamp"`)
	assert.Equal(t, `"Desk lamp"`, w.Body.String())

	w = do(http.MethodDelete, "/jsonstore/catalog/new-id", "")
	assert.JSONEq(t, `{"name":"Desk lamp","_id":"new-id","price":3}`, w.Body.String())

	w = do(http.MethodPost, "/jsonstore/catalog", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
