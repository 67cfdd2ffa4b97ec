package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/victornedelchev/Games-Play/internal/config"
)

const peterID = "35c62d76-8152-4626-8712-eeb96381bea8"

func setupTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := New(&cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func do(s *Server, method, target, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Authorization", token)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func login(t *testing.T, s *Server, email, password string) string {
	t.Helper()
	w := do(s, "POST", "/users/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["accessToken"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestGameLifecycle(t *testing.T) {
	s := setupTestServer(t)
	peter := login(t, s, "peter@abv.bg", "123456")
	george := login(t, s, "george@abv.bg", "123456")

	w := do(s, "POST", "/data/games", peter, map[string]any{"title": "Factorio", "category": "Building"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, peterID, created["_ownerId"])
	id := created["_id"].(string)

	w = do(s, "GET", "/data/games/"+id, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Factorio", decode(t, w)["title"])

	w = do(s, "PUT", "/data/games/"+id, george, map[string]any{"title": "Stolen"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(s, "PATCH", "/data/games/"+id, peter, map[string]any{"summary": "Automation"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Factorio", decode(t, w)["title"])

	w = do(s, "DELETE", "/data/games/"+id, peter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "_deletedOn")

	w = do(s, "GET", "/data/games/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGuestCannotCreate(t *testing.T) {
	s := setupTestServer(t)

	w := do(s, "POST", "/data/games", "", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, float64(http.StatusUnauthorized), decode(t, w)["code"])
}

func TestLatestGames(t *testing.T) {
	s := setupTestServer(t)

	w := do(s, "GET", "/data/games?sortBy=_createdOn%20desc&pageSize=3", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var games []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &games))
	require.LessOrEqual(t, len(games), 3)
	for i := 1; i < len(games); i++ {
		assert.GreaterOrEqual(t, games[i-1]["_createdOn"], games[i]["_createdOn"])
	}
}

func TestUsersMe(t *testing.T) {
	s := setupTestServer(t)

	w := do(s, "GET", "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := login(t, s, "peter@abv.bg", "123456")
	w = do(s, "GET", "/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "peter@abv.bg", me["email"])
	assert.NotContains(t, me, "hashedPassword")

	w = do(s, "GET", "/users/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(s, "GET", "/users/me", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUsersCollectionIsProtected(t *testing.T) {
	s := setupTestServer(t)
	token := login(t, s, "peter@abv.bg", "123456")

	w := do(s, "POST", "/data/users", token, map[string]any{"email": "x@abv.bg"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPreflight(t *testing.T) {
	s := setupTestServer(t)

	w := do(s, "OPTIONS", "/data/games", "invalid-token", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Authorization")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestUnknownService(t *testing.T) {
	s := setupTestServer(t)

	w := do(s, "GET", "/nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminAssets(t *testing.T) {
	s := setupTestServer(t)

	w := do(s, "GET", "/admin", "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/", w.Header().Get("Location"))

	w = do(s, "GET", "/admin/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/admin/app.js")

	w = do(s, "GET", "/admin/app.js", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))

	w = do(s, "GET", "/admin/missing.js", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFavicon(t *testing.T) {
	s := setupTestServer(t)

	w := do(s, "GET", "/favicon.ico", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	do(s, "GET", "/data/games", "", nil)

	w := do(s, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `gameplay_http_requests_total{method="GET",service="/data",status="200"} 1`)
}

func TestJsonStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"),
		[]byte(`{"n1": {"text": "seeded"}}`), 0o600))
	s := setupTestServer(t, func(c *config.Config) { c.DataDir = dir })

	w := do(s, "GET", "/jsonstore/notes/n1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "seeded", decode(t, w)["text"])

	w = do(s, "GET", "/jsonstore/notes/missing", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRulesFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("games:\n  .read: false\n"), 0o600))
	s := setupTestServer(t, func(c *config.Config) { c.RulesFile = path })

	w := do(s, "GET", "/data/games", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(s, "GET", "/data/comments", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRulesFileMissing(t *testing.T) {
	cfg := config.Defaults()
	cfg.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(&cfg, nil)
	assert.Error(t, err)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(zaptest.NewLogger(t)))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"message":"Server Error"}`, w.Body.String())
}
