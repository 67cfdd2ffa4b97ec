// Package auth implements user registration, login and logout on top of the
// protected store, and authenticates requests by their session token.
package auth

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/victornedelchev/Games-Play/internal/apperr"
	"github.com/victornedelchev/Games-Play/internal/server"
	"github.com/victornedelchev/Games-Play/internal/store"
	"github.com/victornedelchev/Games-Play/internal/vault"
)

// HeaderAuthorization carries the access token of a session.
const HeaderAuthorization = "X-Authorization"

// Reserved protected collections and fields.
const (
	CollectionUsers    = "users"
	CollectionSessions = "sessions"

	FieldPassword       = "password"
	FieldHashedPassword = "hashedPassword"
	FieldAccessToken    = "accessToken"
	FieldUserID         = "userId"
)

// DefaultIdentity is the unique login field of a user.
const DefaultIdentity = "email"

// Service manages sessions. It is stateless; users and sessions live in the
// protected store attached to each request.
type Service struct {
	identity string
	hasher   *vault.Hasher
	log      *zap.Logger
}

// New returns an auth service keyed on the identity field.
func New(identity string, hasher *vault.Hasher, log *zap.Logger) *Service {
	if identity == "" {
		identity = DefaultIdentity
	}
	if hasher == nil {
		hasher = vault.NewHasher("")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{identity: identity, hasher: hasher, log: log}
}

// Identity returns the login field name.
func (s *Service) Identity() string {
	return s.identity
}

// Plugin attaches the session operations and resolves the user of the
// access token, if one is sent. It must run after the storage plugin.
func (s *Service) Plugin() server.Plugin {
	return func(ctx *server.Context, r *http.Request) error {
		if ctx.Protected == nil {
			return errors.New("auth: protected storage is not attached")
		}
		ctx.Auth = &session{svc: s, ctx: ctx}

		values, ok := r.Header[http.CanonicalHeaderKey(HeaderAuthorization)]
		if !ok {
			return nil
		}
		var token string
		if len(values) > 0 {
			token = values[0]
		}

		user, sessionID := s.authenticate(ctx.Protected, token)
		if user == nil {
			return apperr.Credential("Invalid access token")
		}
		s.log.Debug("authorized", zap.Any(s.identity, user[s.identity]))
		ctx.User = user
		ctx.SessionID = sessionID
		return nil
	}
}

func (s *Service) authenticate(protected store.Store, token string) (store.Record, string) {
	if token == "" {
		return nil, ""
	}
	sessions, err := protected.Query(CollectionSessions, store.Record{FieldAccessToken: token})
	if err != nil || len(sessions) == 0 {
		return nil, ""
	}
	userID, _ := sessions[0][FieldUserID].(string)
	user, err := protected.Get(CollectionUsers, userID)
	if err != nil {
		return nil, ""
	}
	return user, sessions[0].ID()
}

// session implements server.Authenticator for one request.
type session struct {
	svc *Service
	ctx *server.Context
}

var _ server.Authenticator = (*session)(nil)

func (a *session) Register(body store.Record) (store.Record, error) {
	identity := a.svc.identity
	id, idOK := body[identity].(string)
	password, pwOK := body[FieldPassword].(string)
	if !idOK || !pwOK || id == "" || password == "" {
		return nil, apperr.Request("Missing fields")
	}

	if existing, err := a.ctx.Protected.Query(CollectionUsers, store.Record{identity: id}); err == nil && len(existing) > 0 {
		return nil, apperr.Conflict(fmt.Sprintf("A user with the same %s already exists", identity))
	}

	user := body.Without(FieldPassword)
	user[FieldHashedPassword] = a.svc.hasher.Hash(password)

	created, err := a.ctx.Protected.Add(CollectionUsers, user)
	if err != nil {
		return nil, fmt.Errorf("add user: %w", err)
	}
	return a.issue(created)
}

func (a *session) Login(body store.Record) (store.Record, error) {
	identity := a.svc.identity
	id, _ := body[identity].(string)
	password, _ := body[FieldPassword].(string)

	matches, err := a.ctx.Protected.Query(CollectionUsers, store.Record{identity: id})
	if err != nil || len(matches) != 1 {
		return nil, apperr.Credential("Login or password don't match")
	}
	hashed, _ := matches[0][FieldHashedPassword].(string)
	if !a.svc.hasher.Verify(password, hashed) {
		return nil, apperr.Credential("Login or password don't match")
	}
	return a.issue(matches[0])
}

func (a *session) Logout() error {
	if a.ctx.User == nil {
		return apperr.Credential("User session does not exist")
	}
	if a.ctx.SessionID == "" {
		return nil
	}
	if _, err := a.ctx.Protected.Delete(CollectionSessions, a.ctx.SessionID); err != nil &&
		!errors.Is(err, store.ErrEntryNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// issue opens a session for user and returns the user with its access token.
func (a *session) issue(user store.Record) (store.Record, error) {
	sess, err := a.ctx.Protected.Add(CollectionSessions, store.Record{FieldUserID: user.ID()})
	if err != nil {
		return nil, fmt.Errorf("add session: %w", err)
	}
	token := a.svc.hasher.Hash(sess.ID())
	if _, err := a.ctx.Protected.Set(CollectionSessions, sess.ID(), store.Record{
		FieldUserID:      user.ID(),
		FieldAccessToken: token,
	}); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	result := user.Without(FieldHashedPassword, FieldPassword)
	result[FieldAccessToken] = token
	return result, nil
}
