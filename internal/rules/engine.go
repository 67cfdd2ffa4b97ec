package rules

import (
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/victornedelchev/Games-Play/internal/apperr"
	"github.com/victornedelchev/Games-Play/internal/server"
	"github.com/victornedelchev/Games-Play/internal/store"
)

// HeaderAdmin requests the coarse permission bypass.
const HeaderAdmin = "X-Admin"

// Engine evaluates a rule set.
type Engine struct {
	set Set
	log *zap.Logger
}

// NewEngine returns an engine over the defaults merged with set.
func NewEngine(set Set, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{set: Default().Merge(set), log: log}
}

// Resolve returns the coarse rule and the field rules for action on a record.
// The default rule is refined by the collection rule, then by the rule of the
// record id; a more specific rule applies only when it is not empty.
func (e *Engine) Resolve(action Action, collection string, data store.Record) (Rule, []FieldRule) {
	current := Allow(true)
	if def, ok := e.set[Wildcard]; ok {
		current = def.Actions[action].or(current)
	}

	var fields []FieldRule
	c, ok := e.set[collection]
	if !ok {
		return current, fields
	}
	current = c.Actions[action].or(current)
	if f := fieldRules(c.Fields, action); len(f) > 0 {
		fields = f
	}

	if id := data.ID(); id != "" {
		if rec, ok := c.Records[id]; ok {
			current = rec.Actions[action].or(current)
			if f := fieldRules(rec.Fields, action); len(f) > 0 {
				fields = f
			}
		}
	}
	return current, fields
}

// FieldRule is the rule of one field for a resolved action.
type FieldRule struct {
	Field string
	Rule  Rule
}

func fieldRules(fields []FieldRules, action Action) []FieldRule {
	var out []FieldRule
	for _, f := range fields {
		if r, ok := f.Actions[action]; ok {
			out = append(out, FieldRule{Field: f.Field, Rule: r})
		}
	}
	return out
}

// Plugin attaches a Guard bound to the request method, the collection
// parameter and the authenticated user.
func (e *Engine) Plugin() server.Plugin {
	return func(ctx *server.Context, r *http.Request) error {
		_, admin := r.Header[http.CanonicalHeaderKey(HeaderAdmin)]
		ctx.Guard = &guard{
			engine: e,
			ctx:    ctx,
			action: ActionFor(r.Method),
			admin:  admin,
		}
		return nil
	}
}

type guard struct {
	engine *Engine
	ctx    *server.Context
	action Action
	admin  bool
}

var _ server.Guard = (*guard)(nil)

func (g *guard) CanAccess(data, newData store.Record) error {
	rule, fields := g.engine.Resolve(g.action, g.ctx.Param("collection"), data)

	env := g.env(data, newData)
	allowed, err := g.check(rule, env)
	if err != nil {
		return err
	}
	if !allowed {
		if !g.admin {
			return apperr.Credential()
		}
		g.engine.log.Debug("admin bypass",
			zap.String("collection", g.ctx.Param("collection")),
			zap.String("action", string(g.action)),
		)
	}

	g.redact(fields, env)
	return nil
}

func (g *guard) CanAccessList(items []store.Record) error {
	if err := g.CanAccess(store.Record{}, nil); err != nil {
		return err
	}
	for _, item := range items {
		_, fields := g.engine.Resolve(g.action, g.ctx.Param("collection"), item)
		g.redact(fields, g.env(item, nil))
	}
	return nil
}

func (g *guard) env(data, newData store.Record) *Env {
	env := &Env{User: g.ctx.User, Data: data, NewData: newData}
	if g.ctx.Storage != nil {
		env.Lookup = g.ctx.Storage.Get
	}
	return env
}

// check evaluates a coarse rule.
func (g *guard) check(rule Rule, env *Env) (bool, error) {
	switch rule.kind {
	case kindBool:
		return rule.value, nil
	case kindRoles:
		return g.checkRoles(rule.roles, env.Data)
	case kindExpr:
		return rule.expr.Eval(env), nil
	default:
		return true, nil
	}
}

func (g *guard) checkRoles(roles []string, data store.Record) (bool, error) {
	switch {
	case slices.Contains(roles, RoleGuest):
		return true, nil
	case g.ctx.User == nil && !g.admin:
		return false, apperr.Authorization()
	case slices.Contains(roles, RoleUser):
		return true, nil
	case g.ctx.User != nil && slices.Contains(roles, RoleOwner):
		return owns(g.ctx.User, data), nil
	default:
		return false, nil
	}
}

// redact drops the fields whose rule fails: from the payload on writes, from
// the stored record on reads.
func (g *guard) redact(fields []FieldRule, env *Env) {
	for _, f := range fields {
		env.Field = f.Field
		ok, err := g.check(f.Rule, env)
		if err == nil && ok {
			continue
		}
		switch g.action {
		case ActionCreate, ActionUpdate:
			delete(env.NewData, f.Field)
		case ActionRead:
			delete(env.Data, f.Field)
		}
	}
	env.Field = ""
}
