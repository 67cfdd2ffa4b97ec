package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/victornedelchev/Games-Play/pkg/schema"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrUnauthorized is returned when the call needs a logged in user.
	ErrUnauthorized = errors.New("not logged in")
	// ErrForbidden is returned when the user may not perform the call.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a record clashes with an existing one.
	ErrConflict = errors.New("conflict")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Is maps status codes onto the package sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == 404
	case ErrUnauthorized:
		return e.Status == 401
	case ErrForbidden:
		return e.Status == 403
	case ErrConflict:
		return e.Status == 409
	}
	return false
}

// Auth manages the session of the client.
type Auth interface {
	Register(ctx context.Context, creds schema.Credentials) (*schema.Session, error)
	Login(ctx context.Context, email, password string) (*schema.Session, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*schema.User, error)
}

// Games covers the games collection.
type Games interface {
	ListGames(ctx context.Context) ([]schema.Game, error)
	LatestGames(ctx context.Context) ([]schema.Game, error)
	GetGame(ctx context.Context, id string) (*schema.Game, error)
	CreateGame(ctx context.Context, g schema.Game) (*schema.Game, error)
	UpdateGame(ctx context.Context, id string, g schema.Game) (*schema.Game, error)
	DeleteGame(ctx context.Context, id string) error
}

// Comments covers the comments collection.
type Comments interface {
	ListComments(ctx context.Context, gameID string) ([]schema.Comment, error)
	CreateComment(ctx context.Context, gameID, text string) (*schema.Comment, error)
}

// GamesPlay is the full client surface used by the CLI.
type GamesPlay interface {
	Auth
	Games
	Comments
}
