// Package crud serves generic collections: any collection name is accepted and
// created on first write.
package crud

import (
	"errors"

	"go.uber.org/zap"

	"github.com/victornedelchev/Games-Play/internal/apperr"
	"github.com/victornedelchev/Games-Play/internal/server"
	"github.com/victornedelchev/Games-Play/internal/store"
)

// Query parameters understood by GET.
const (
	ParamWhere    = "where"
	ParamSortBy   = "sortBy"
	ParamOffset   = "offset"
	ParamPageSize = "pageSize"
	ParamDistinct = "distinct"
	ParamCount    = "count"
	ParamSelect   = "select"
	ParamLoad     = "load"
)

const protectedCollection = "users"

var errNoGuard = errors.New("crud: access guard is not attached")

// Handler implements the collection verbs.
type Handler struct {
	log *zap.Logger
}

// NewService returns the data service: every verb bound to ":collection".
func NewService(log *zap.Logger) *server.Service {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{log: log}

	s := server.NewService()
	s.Get(":collection", h.Get)
	s.Post(":collection", h.Post)
	s.Put(":collection", h.Put)
	s.Patch(":collection", h.Patch)
	s.Delete(":collection", h.Delete)
	return s
}

func validateRequest(tokens []string) error {
	if len(tokens) > 1 {
		return apperr.Request()
	}
	return nil
}

func guard(ctx *server.Context) (server.Guard, error) {
	if ctx.Guard == nil {
		return nil, errNoGuard
	}
	return ctx.Guard, nil
}

// mapStoreError turns lookup failures into NotFound and anything else into a request error.
func mapStoreError(err error) error {
	if errors.Is(err, store.ErrCollectionNotFound) || errors.Is(err, store.ErrEntryNotFound) {
		return apperr.Wrap(apperr.NotFound(), err)
	}
	if errors.Is(err, ErrWhereSyntax) {
		return apperr.Wrap(apperr.Request(ErrWhereSyntax.Error()), err)
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Wrap(apperr.Request(err.Error()), err)
}

// Get lists the collection names, a collection or a single record.
func (h *Handler) Get(ctx *server.Context, tokens []string, query server.Query, _ any) (any, error) {
	if err := validateRequest(tokens); err != nil {
		return nil, err
	}
	g, err := guard(ctx)
	if err != nil {
		return nil, err
	}
	collection := ctx.Param("collection")

	if query[ParamWhere] == "" && collection == "" {
		return ctx.Storage.Collections(), nil
	}

	if query[ParamWhere] == "" && len(tokens) == 1 {
		rec, err := ctx.Storage.Get(collection, tokens[0])
		if err != nil {
			return nil, mapStoreError(err)
		}
		return h.getOne(ctx, g, rec, query)
	}

	list, err := h.list(ctx, collection, query)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if query[ParamCount] != "" {
		if err := g.CanAccessList(nil); err != nil {
			return nil, err
		}
		return len(list), nil
	}
	if err := g.CanAccessList(list); err != nil {
		return nil, err
	}
	return list, nil
}

func (h *Handler) getOne(ctx *server.Context, g server.Guard, rec store.Record, query server.Query) (any, error) {
	if query[ParamCount] != "" {
		if err := g.CanAccess(rec, nil); err != nil {
			return nil, err
		}
		return 1, nil
	}
	if props := splitList(query[ParamSelect]); len(props) > 0 {
		rec = project(rec, props)
	}
	if query[ParamLoad] != "" {
		list, err := h.load(ctx, []store.Record{rec}, query[ParamLoad])
		if err != nil {
			return nil, mapStoreError(err)
		}
		rec = list[0]
	}
	if err := g.CanAccess(rec, nil); err != nil {
		return nil, err
	}
	return rec, nil
}

// list reads a collection and applies where, sortBy, offset, pageSize,
// distinct, select and load in that order.
func (h *Handler) list(ctx *server.Context, collection string, query server.Query) ([]store.Record, error) {
	records, err := ctx.Storage.List(collection)
	if err != nil {
		return nil, err
	}

	if where := query[ParamWhere]; where != "" {
		filter, err := ParseWhere(where)
		if err != nil {
			return nil, err
		}
		matched := records[:0]
		for _, r := range records {
			if filter(r) {
				matched = append(matched, r)
			}
		}
		records = matched
	}

	sortRecords(records, parseSortBy(query[ParamSortBy]))
	records = paginate(records, query[ParamOffset], query[ParamPageSize])

	if props := splitList(query[ParamDistinct]); len(props) > 0 {
		records = distinct(records, props)
	}
	if query[ParamCount] != "" {
		return records, nil
	}
	if props := splitList(query[ParamSelect]); len(props) > 0 {
		for i, r := range records {
			records[i] = project(r, props)
		}
	}
	if load := query[ParamLoad]; load != "" {
		return h.load(ctx, records, load)
	}
	return records, nil
}

// load joins related records into each record. Users come from the protected
// store without their password hash.
func (h *Handler) load(ctx *server.Context, records []store.Record, src string) ([]store.Record, error) {
	relations, err := parseLoad(src)
	if err != nil {
		return nil, err
	}
	for _, rel := range relations {
		h.log.Debug("loading related records",
			zap.String("collection", rel.collection),
			zap.String("into", rel.prop),
			zap.String("on", rel.idSource),
		)
		source := ctx.Storage
		if rel.collection == protectedCollection {
			source = ctx.Protected
		}
		for _, r := range records {
			id, _ := r[rel.idSource].(string)
			related, err := source.Get(rel.collection, id)
			if err != nil {
				return nil, err
			}
			r[rel.prop] = related.Without("hashedPassword")
		}
	}
	return records, nil
}

// Post creates a record owned by the current user.
func (h *Handler) Post(ctx *server.Context, tokens []string, _ server.Query, body any) (any, error) {
	if err := validateRequest(tokens); err != nil {
		return nil, err
	}
	if len(tokens) > 0 {
		return nil, apperr.Request("Use PUT to update records")
	}
	g, err := guard(ctx)
	if err != nil {
		return nil, err
	}
	data, ok := server.BodyRecord(body)
	if !ok {
		return nil, apperr.Request()
	}

	if err := g.CanAccess(nil, data); err != nil {
		return nil, err
	}
	delete(data, store.FieldOwnerID)
	if id := ctx.UserID(); id != "" {
		data[store.FieldOwnerID] = id
	}

	created, err := ctx.Storage.Add(ctx.Param("collection"), data)
	if err != nil {
		return nil, apperr.Wrap(apperr.Request(), err)
	}
	return created, nil
}

// Put replaces a record.
func (h *Handler) Put(ctx *server.Context, tokens []string, _ server.Query, body any) (any, error) {
	return h.mutate(ctx, tokens, body, ctx.Storage.Set)
}

// Patch merges fields into a record.
func (h *Handler) Patch(ctx *server.Context, tokens []string, _ server.Query, body any) (any, error) {
	return h.mutate(ctx, tokens, body, ctx.Storage.Merge)
}

func (h *Handler) mutate(ctx *server.Context, tokens []string, body any, apply func(collection, id string, data store.Record) (store.Record, error)) (any, error) {
	existing, g, err := h.existing(ctx, tokens)
	if err != nil {
		return nil, err
	}
	data, ok := server.BodyRecord(body)
	if !ok {
		return nil, apperr.Request()
	}

	if err := g.CanAccess(existing, data); err != nil {
		return nil, err
	}

	updated, err := apply(ctx.Param("collection"), tokens[0], data)
	if err != nil {
		return nil, apperr.Wrap(apperr.Request(), err)
	}
	return updated, nil
}

// Delete removes a record and returns the deletion marker.
func (h *Handler) Delete(ctx *server.Context, tokens []string, _ server.Query, _ any) (any, error) {
	existing, g, err := h.existing(ctx, tokens)
	if err != nil {
		return nil, err
	}

	if err := g.CanAccess(existing, nil); err != nil {
		return nil, err
	}

	marker, err := ctx.Storage.Delete(ctx.Param("collection"), tokens[0])
	if err != nil {
		return nil, apperr.Wrap(apperr.Request(), err)
	}
	return marker, nil
}

// existing loads the record addressed by the single id token.
func (h *Handler) existing(ctx *server.Context, tokens []string) (store.Record, server.Guard, error) {
	if err := validateRequest(tokens); err != nil {
		return nil, nil, err
	}
	if len(tokens) != 1 {
		return nil, nil, apperr.Request("Missing entry ID")
	}
	g, err := guard(ctx)
	if err != nil {
		return nil, nil, err
	}
	rec, err := ctx.Storage.Get(ctx.Param("collection"), tokens[0])
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.NotFound(), err)
	}
	return rec, g, nil
}
