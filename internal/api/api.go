// Package api assembles the HTTP surface: stores, plugins, services, static
// assets and the gin middleware stack around them.
package api

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/victornedelchev/Games-Play/internal/apperr"
	"github.com/victornedelchev/Games-Play/internal/auth"
	"github.com/victornedelchev/Games-Play/internal/config"
	"github.com/victornedelchev/Games-Play/internal/metrics"
	"github.com/victornedelchev/Games-Play/internal/rules"
	"github.com/victornedelchev/Games-Play/internal/seed"
	"github.com/victornedelchev/Games-Play/internal/server"
	"github.com/victornedelchev/Games-Play/internal/services/crud"
	"github.com/victornedelchev/Games-Play/internal/services/jsonstore"
	"github.com/victornedelchev/Games-Play/internal/services/users"
	"github.com/victornedelchev/Games-Play/internal/services/util"
	"github.com/victornedelchev/Games-Play/internal/store"
	"github.com/victornedelchev/Games-Play/internal/vault"
)

//go:embed assets
var assets embed.FS

// Server holds the assembled HTTP handler and the state behind it.
type Server struct {
	Engine    *gin.Engine
	Public    *store.MemStore
	Protected *store.MemStore
	Tree      *jsonstore.Tree
	Util      *server.Util
	Metrics   *metrics.Metrics
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New seeds the stores and wires every plugin and service.
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	public, err := seed.Public()
	if err != nil {
		return nil, fmt.Errorf("seed public store: %w", err)
	}
	protected, err := seed.Protected()
	if err != nil {
		return nil, fmt.Errorf("seed protected store: %w", err)
	}

	set, err := seed.Rules()
	if err != nil {
		return nil, fmt.Errorf("load built-in rules: %w", err)
	}
	if cfg.RulesFile != "" {
		overlay, err := rules.LoadFile(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		set = set.Merge(overlay)
		log.Info("rules loaded", zap.String("file", cfg.RulesFile))
	}

	docs := map[string]map[string]any{}
	if cfg.DataDir != "" {
		if docs, err = store.LoadDir(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("load jsonstore data: %w", err)
		}
	}

	s := &Server{
		Public:    store.NewMemStore(public),
		Protected: store.NewMemStore(protected),
		Tree:      jsonstore.NewTree(docs),
		Util:      server.NewUtil(cfg.Throttle),
		Metrics:   metrics.New(),
	}

	authService := auth.New(cfg.Identity, vault.NewHasher(cfg.Secret), log)
	router := server.NewRouter(log, []server.Plugin{
		server.StoragePlugin(s.Public, s.Protected),
		authService.Plugin(),
		server.UtilPlugin(s.Util),
		rules.NewEngine(set, log).Plugin(),
	}, map[string]server.ServiceHandler{
		"jsonstore": jsonstore.NewService(s.Tree, log),
		"data":      crud.NewService(log),
		"users":     users.NewService(),
		"util":      util.NewService(log),
	})
	router.ServeAsset("admin", adminAsset)
	router.ServeAsset("favicon.ico", faviconAsset)

	r := gin.New()
	r.Use(Recovery(log), RequestLogger(log), s.Metrics.Middleware(), CORS())
	r.GET(metrics.Path, gin.WrapH(s.Metrics.Handler()))
	r.NoRoute(router.Handle)
	s.Engine = r

	log.Info("server assembled",
		zap.Int("collections", len(s.Public.Collections())),
		zap.String("identity", authService.Identity()),
		zap.Bool("throttle", cfg.Throttle),
	)
	return s, nil
}

// adminAsset serves the admin panel. Script requests resolve to files next to
// index.html; everything else gets the panel itself.
func adminAsset(_ string, tokens []string) (server.Asset, error) {
	resource := strings.Join(tokens, "/")
	if path.Ext(resource) == ".js" {
		body, err := fs.ReadFile(assets, path.Join("assets/admin", resource))
		if err != nil {
			return server.Asset{}, apperr.NotFound()
		}
		return server.Asset{ContentType: "application/javascript", Body: body}, nil
	}

	body, err := assets.ReadFile("assets/admin/index.html")
	if err != nil {
		return server.Asset{}, err
	}
	return server.Asset{ContentType: "text/html; charset=utf-8", Body: body}, nil
}

func faviconAsset(string, []string) (server.Asset, error) {
	body, err := assets.ReadFile("assets/favicon.png")
	if err != nil {
		return server.Asset{}, err
	}
	return server.Asset{ContentType: "image/png", Body: body}, nil
}
