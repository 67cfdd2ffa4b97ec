package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/victornedelchev/Games-Play/internal/store"
)

// Authenticator performs the session lifecycle operations for the current request.
type Authenticator interface {
	Register(body store.Record) (store.Record, error)
	Login(body store.Record) (store.Record, error)
	Logout() error
}

// Guard decides whether the current request may touch a record and redacts
// the fields it may not see or write.
type Guard interface {
	// CanAccess checks a single record. data is the stored record (nil on create),
	// newData the incoming payload (nil on read and delete).
	CanAccess(data, newData store.Record) error
	// CanAccessList checks a read over many records and redacts each of them.
	CanAccessList(items []store.Record) error
}

// Context is the per-request execution context. Plugins decorate it before the
// matched service handler runs.
type Context struct {
	// Ctx is the request context; it is done when the client goes away.
	Ctx    context.Context
	Params map[string]string
	Log    *zap.Logger

	Storage   store.Store
	Protected store.Store

	// User is the authenticated user record, nil for guests.
	User store.Record
	// SessionID is the id of the session the request authenticated with.
	SessionID string

	Auth  Authenticator
	Guard Guard
	Util  *Util
}

// Param returns a bound path parameter.
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// UserID returns the id of the authenticated user or an empty string.
func (c *Context) UserID() string {
	if c.User == nil {
		return ""
	}
	return c.User.ID()
}

// Plugin decorates the context of every non-preflight request. Returning an
// error aborts the request.
type Plugin func(ctx *Context, r *http.Request) error

// StoragePlugin attaches the public and protected document stores.
func StoragePlugin(public, protected store.Store) Plugin {
	return func(ctx *Context, _ *http.Request) error {
		ctx.Storage = public
		ctx.Protected = protected
		return nil
	}
}

// UtilPlugin attaches the shared debug utilities.
func UtilPlugin(u *Util) Plugin {
	return func(ctx *Context, _ *http.Request) error {
		ctx.Util = u
		return nil
	}
}
