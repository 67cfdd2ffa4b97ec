// Package users exposes registration, login, logout and the current user.
package users

import (
	"github.com/victornedelchev/Games-Play/internal/apperr"
	"github.com/victornedelchev/Games-Play/internal/server"
	"github.com/victornedelchev/Games-Play/internal/store"
)

// NewService returns the users service. It requires the storage and auth plugins.
func NewService() *server.Service {
	s := server.NewService()
	s.Get("me", me)
	s.Post("register", register)
	s.Post("login", login)
	s.Get("logout", logout)
	return s
}

func me(ctx *server.Context, _ []string, _ server.Query, _ any) (any, error) {
	if ctx.User == nil {
		return nil, apperr.Authorization()
	}
	return ctx.User.Without("hashedPassword"), nil
}

func register(ctx *server.Context, _ []string, _ server.Query, body any) (any, error) {
	data, ok := server.BodyRecord(body)
	if !ok {
		return nil, apperr.Request("Missing fields")
	}
	return ctx.Auth.Register(data)
}

func login(ctx *server.Context, _ []string, _ server.Query, body any) (any, error) {
	data, ok := server.BodyRecord(body)
	if !ok {
		data = store.Record{}
	}
	return ctx.Auth.Login(data)
}

func logout(ctx *server.Context, _ []string, _ server.Query, _ any) (any, error) {
	return nil, ctx.Auth.Logout()
}
