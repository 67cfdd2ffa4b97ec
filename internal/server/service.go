package server

import (
	"net/http"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Query holds decoded query string parameters, one value per key.
type Query map[string]string

// HandlerFunc handles a matched service action. tokens are the path tokens
// remaining after the action name. A nil result produces an empty 204 response.
type HandlerFunc func(ctx *Context, tokens []string, query Query, body any) (any, error)

// ServiceHandler serves every request addressed to one service name.
type ServiceHandler interface {
	Handle(ctx *Context, req *Request) (any, error)
}

type action struct {
	method  string
	name    string
	handler HandlerFunc
}

// Service is an ordered table of actions. The first action whose method and
// name pattern match the first path token wins.
type Service struct {
	actions []action
}

// NewService returns an empty action table.
func NewService() *Service {
	return &Service{}
}

// Handle dispatches req to the first matching action. Without a match it
// returns a nil result.
func (s *Service) Handle(ctx *Context, req *Request) (any, error) {
	var first string
	var rest []string
	if len(req.Tokens) > 0 {
		first, rest = req.Tokens[0], req.Tokens[1:]
	}
	for _, a := range s.actions {
		if a.method == req.Method && matchAndAssignParams(ctx, first, a.name) {
			return a.handler(ctx, rest, req.Query, req.Body)
		}
	}
	return nil, nil
}

// Register adds an action. name may be a literal, ":param" or a glob pattern.
func (s *Service) Register(method, name string, h HandlerFunc) {
	s.actions = append(s.actions, action{method: method, name: name, handler: h})
}

func (s *Service) Get(name string, h HandlerFunc)    { s.Register(http.MethodGet, name, h) }
func (s *Service) Post(name string, h HandlerFunc)   { s.Register(http.MethodPost, name, h) }
func (s *Service) Put(name string, h HandlerFunc)    { s.Register(http.MethodPut, name, h) }
func (s *Service) Patch(name string, h HandlerFunc)  { s.Register(http.MethodPatch, name, h) }
func (s *Service) Delete(name string, h HandlerFunc) { s.Register(http.MethodDelete, name, h) }

func matchAndAssignParams(ctx *Context, token, pattern string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasPrefix(pattern, ":"):
		ctx.Params[pattern[1:]] = token
		return true
	case token == pattern:
		return true
	case strings.ContainsAny(pattern, "*?[{"):
		ok, err := doublestar.Match(pattern, token)
		return err == nil && ok
	default:
		return false
	}
}
