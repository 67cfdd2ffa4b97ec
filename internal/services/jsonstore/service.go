package jsonstore

import (
	"go.uber.org/zap"

	"github.com/victornedelchev/Games-Play/internal/apperr"
	"github.com/victornedelchev/Games-Play/internal/server"
)

// NewService returns the jsonstore service over tree. Paths start at ":collection".
func NewService(tree *Tree, log *zap.Logger) *server.Service {
	if log == nil {
		log = zap.NewNop()
	}

	s := server.NewService()
	s.Get(":collection", func(ctx *server.Context, tokens []string, _ server.Query, _ any) (any, error) {
		v, _ := tree.Get(nodePath(ctx, tokens))
		return v, nil
	})
	s.Post(":collection", func(ctx *server.Context, tokens []string, _ server.Query, body any) (any, error) {
		doc, ok := server.BodyRecord(body)
		if !ok {
			return nil, apperr.Request()
		}
		created, err := tree.Create(nodePath(ctx, tokens), doc)
		if err != nil {
			return nil, apperr.Wrap(apperr.Request(err.Error()), err)
		}
		log.Debug("jsonstore node created", zap.Strings("path", nodePath(ctx, tokens)))
		return created, nil
	})
	s.Put(":collection", func(ctx *server.Context, tokens []string, _ server.Query, body any) (any, error) {
		v, _ := tree.Replace(nodePath(ctx, tokens), body)
		return v, nil
	})
	s.Patch(":collection", func(ctx *server.Context, tokens []string, _ server.Query, body any) (any, error) {
		fields, ok := server.BodyRecord(body)
		if !ok {
			return nil, apperr.Request()
		}
		v, _, err := tree.Merge(nodePath(ctx, tokens), fields)
		if err != nil {
			return nil, apperr.Wrap(apperr.Request(err.Error()), err)
		}
		return v, nil
	})
	s.Delete(":collection", func(ctx *server.Context, tokens []string, _ server.Query, _ any) (any, error) {
		v, _ := tree.Remove(nodePath(ctx, tokens))
		return v, nil
	})
	return s
}

// nodePath prefixes the remaining tokens with the collection. An empty
// collection addresses the root.
func nodePath(ctx *server.Context, tokens []string) []string {
	c := ctx.Param("collection")
	if c == "" {
		return tokens
	}
	return append([]string{c}, tokens...)
}
