package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/victornedelchev/Games-Play/internal/apperr"
	"github.com/victornedelchev/Games-Play/internal/store"
)

// MaxBodyBytes caps request bodies; seeded records carry inline images.
const MaxBodyBytes = 16 << 20

// Request is an HTTP request broken down for service dispatch.
type Request struct {
	Method  string
	Service string
	Tokens  []string
	Query   Query
	// Body is the decoded JSON payload, or the raw text when it is not valid JSON.
	Body any
}

// ParseRequest splits the URL path into a service name and tokens, flattens the
// query string and decodes the body.
func ParseRequest(r *http.Request) (*Request, error) {
	var tokens []string
	for _, t := range strings.Split(r.URL.Path, "/") {
		if t != "" {
			tokens = append(tokens, t)
		}
	}

	req := &Request{Method: r.Method, Query: Query{}}
	if len(tokens) > 0 {
		req.Service, req.Tokens = tokens[0], tokens[1:]
	}

	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			req.Query[k] = v[0]
		}
	}

	body, err := parseBody(r)
	if err != nil {
		return nil, err
	}
	req.Body = body
	return req, nil
}

func parseBody(r *http.Request) (any, error) {
	if r.Body == nil {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) > MaxBodyBytes {
		return nil, apperr.Request("Request body too large")
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw), nil
	}
	return v, nil
}

// BodyRecord returns body as a record when it is a JSON object.
func BodyRecord(body any) (store.Record, bool) {
	switch b := body.(type) {
	case map[string]any:
		return store.Record(b), true
	case store.Record:
		return b, true
	default:
		return nil, false
	}
}
