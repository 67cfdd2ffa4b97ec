// Package util exposes the debug toggles shared by every request.
package util

import (
	"go.uber.org/zap"

	"github.com/victornedelchev/Games-Play/internal/apperr"
	"github.com/victornedelchev/Games-Play/internal/server"
)

// NewService returns the util service: POST sets flags from a JSON object,
// GET /util/<flag> reads one back.
func NewService(log *zap.Logger) *server.Service {
	if log == nil {
		log = zap.NewNop()
	}

	s := server.NewService()
	s.Post("*", func(ctx *server.Context, _ []string, _ server.Query, body any) (any, error) {
		flags, ok := server.BodyRecord(body)
		if !ok {
			return nil, apperr.Request()
		}
		for name, v := range flags {
			log.Info("util flag changed", zap.String("flag", name), zap.Bool("enabled", server.Truthy(v)))
			ctx.Util.Set(name, v)
		}
		return "", nil
	})
	s.Get(":service", func(ctx *server.Context, _ []string, _ server.Query, _ any) (any, error) {
		v, ok := ctx.Util.Get(ctx.Param("service"))
		if !ok {
			return nil, nil
		}
		return v, nil
	})
	return s
}
