// Package client is a Go SDK for the Games Play REST backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/victornedelchev/Games-Play/pkg/schema"
)

// DefaultURL is where gameplayd listens by default.
const DefaultURL = "http://localhost:3030"

const (
	headerAuthorization = "X-Authorization"
	latestGames         = 3
)

// Client talks to a Games Play server over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

var _ GamesPlay = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken starts the client with an existing access token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current access token, empty when logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// do sends a request and decodes a JSON response into out. A 204 leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set(headerAuthorization, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// --- Auth ---

func (c *Client) Register(ctx context.Context, creds schema.Credentials) (*schema.Session, error) {
	var s schema.Session
	if err := c.do(ctx, http.MethodPost, "/users/register", nil, creds, &s); err != nil {
		return nil, err
	}
	c.setToken(s.AccessToken)
	return &s, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*schema.Session, error) {
	var s schema.Session
	creds := schema.Credentials{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/users/login", nil, creds, &s); err != nil {
		return nil, err
	}
	c.setToken(s.AccessToken)
	return &s, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/users/logout", nil, nil, nil); err != nil {
		return err
	}
	c.setToken("")
	return nil
}

func (c *Client) Me(ctx context.Context) (*schema.User, error) {
	var u schema.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// --- Games ---

func (c *Client) ListGames(ctx context.Context) ([]schema.Game, error) {
	return List[schema.Game](ctx, c, "games", url.Values{"sortBy": {"_createdOn desc"}})
}

func (c *Client) LatestGames(ctx context.Context) ([]schema.Game, error) {
	return List[schema.Game](ctx, c, "games", url.Values{
		"sortBy":   {"_createdOn desc"},
		"pageSize": {fmt.Sprint(latestGames)},
	})
}

func (c *Client) GetGame(ctx context.Context, id string) (*schema.Game, error) {
	return Get[schema.Game](ctx, c, "games", id)
}

func (c *Client) CreateGame(ctx context.Context, g schema.Game) (*schema.Game, error) {
	g.Meta = schema.Meta{}
	return Create(ctx, c, "games", g)
}

func (c *Client) UpdateGame(ctx context.Context, id string, g schema.Game) (*schema.Game, error) {
	g.Meta = schema.Meta{}
	return Update(ctx, c, "games", id, g)
}

func (c *Client) DeleteGame(ctx context.Context, id string) error {
	return c.Delete(ctx, "games", id)
}

// --- Comments ---

func (c *Client) ListComments(ctx context.Context, gameID string) ([]schema.Comment, error) {
	return List[schema.Comment](ctx, c, "comments", url.Values{
		"where": {fmt.Sprintf("gameId=%q", gameID)},
	})
}

func (c *Client) CreateComment(ctx context.Context, gameID, text string) (*schema.Comment, error) {
	return Create(ctx, c, "comments", schema.Comment{GameID: gameID, Comment: text})
}

// --- Generic collection helpers ---

// Delete removes a record from any collection.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, recordPath(collection, id), nil, nil, &schema.Deleted{})
}

// List reads a collection into a slice of T. query carries where, sortBy,
// offset, pageSize and the other list options verbatim.
func List[T any](ctx context.Context, c *Client, collection string, query url.Values) ([]T, error) {
	var out []T
	if err := c.do(ctx, http.MethodGet, recordPath(collection, ""), query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get reads a single record into T.
func Get[T any](ctx context.Context, c *Client, collection, id string) (*T, error) {
	var out T
	if err := c.do(ctx, http.MethodGet, recordPath(collection, id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create stores val as a new record and returns the stored version.
func Create[T any](ctx context.Context, c *Client, collection string, val T) (*T, error) {
	var out T
	if err := c.do(ctx, http.MethodPost, recordPath(collection, ""), nil, val, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces a record with val.
func Update[T any](ctx context.Context, c *Client, collection, id string, val T) (*T, error) {
	var out T
	if err := c.do(ctx, http.MethodPut, recordPath(collection, id), nil, val, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func recordPath(collection, id string) string {
	p := "/data/" + url.PathEscape(collection)
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}
