// Package server implements the request dispatcher: it parses requests, runs
// the context plugins, invokes the matched service and encodes the outcome.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/victornedelchev/Games-Play/internal/apperr"
)

// Asset is a static response served outside the plugin pipeline.
type Asset struct {
	ContentType string
	Body        []byte
}

// AssetFunc resolves a static asset from the path tokens following its service name.
type AssetFunc func(method string, tokens []string) (Asset, error)

// Router dispatches requests to named services.
type Router struct {
	plugins  []Plugin
	services map[string]ServiceHandler
	assets   map[string]AssetFunc
	log      *zap.Logger
	sleep    func(ctx context.Context, d time.Duration)
}

// NewRouter builds a dispatcher. Plugins run in order for every request.
func NewRouter(log *zap.Logger, plugins []Plugin, services map[string]ServiceHandler) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		plugins:  plugins,
		services: services,
		assets:   map[string]AssetFunc{},
		log:      log,
		sleep:    sleep,
	}
}

// ServeAsset registers a static pseudo-service. Assets bypass plugins and services.
func (r *Router) ServeAsset(name string, fn AssetFunc) {
	r.assets[name] = fn
}

// Handle is the gin entry point for every dynamic request.
func (r *Router) Handle(c *gin.Context) {
	req := c.Request
	r.log.Debug("<<", zap.String("method", req.Method), zap.String("url", req.URL.String()))

	if strings.HasSuffix(req.URL.Path, "/admin") {
		c.Redirect(http.StatusFound, "/admin/")
		return
	}

	c.Header("Access-Control-Allow-Origin", "*")

	ctx, err := r.processPlugins(req)
	if err == nil {
		var result any
		var served bool
		result, served, err = r.handle(c, ctx)
		if served {
			return
		}
		if err == nil {
			r.throttle(ctx)
			if result == nil {
				c.Status(http.StatusNoContent)
				c.Writer.WriteHeaderNow()
				return
			}
			c.JSON(http.StatusOK, result)
			return
		}
	}

	r.throttle(ctx)
	r.writeError(c, err)
}

func (r *Router) processPlugins(req *http.Request) (*Context, error) {
	ctx := &Context{
		Ctx:    req.Context(),
		Params: map[string]string{},
		Log:    r.log,
	}
	for _, decorate := range r.plugins {
		if err := decorate(ctx, req); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

// handle resolves the service. served is true when a static asset was written.
func (r *Router) handle(c *gin.Context, ctx *Context) (result any, served bool, err error) {
	req, err := ParseRequest(c.Request)
	if err != nil {
		return nil, false, err
	}

	if asset, ok := r.assets[req.Service]; ok {
		a, err := asset(req.Method, req.Tokens)
		if err != nil {
			return nil, false, err
		}
		c.Data(http.StatusOK, a.ContentType, a.Body)
		return nil, true, nil
	}

	service, ok := r.services[req.Service]
	if !ok {
		r.log.Error("missing service", zap.String("service", req.Service))
		return nil, false, apperr.Errorf("Service %q is not supported", req.Service)
	}

	result, err = service.Handle(ctx, req)
	return result, false, err
}

func (r *Router) writeError(c *gin.Context, err error) {
	if e, ok := apperr.As(err); ok {
		c.JSON(e.StatusCode(), apperr.BodyOf(e))
		return
	}
	r.log.Error("unhandled error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, apperr.Body{Code: http.StatusInternalServerError, Message: "Server Error"})
}

func (r *Router) throttle(ctx *Context) {
	if ctx != nil && ctx.Util != nil && ctx.Util.Throttle() {
		r.sleep(ctx.Ctx, ThrottleDelay())
	}
}
