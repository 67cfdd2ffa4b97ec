package rules

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/victornedelchev/Games-Play/internal/store"
)

// Env is the evaluation scope of a rule.
type Env struct {
	// User is the authenticated user, nil for guests.
	User store.Record
	// Data is the stored record, nil on create.
	Data store.Record
	// NewData is the incoming payload, nil on read and delete.
	NewData store.Record
	// Field is the field a field rule is evaluated for.
	Field string
	// Lookup reads a record from the public store.
	Lookup func(collection, id string) (store.Record, error)
}

// Predicate is a named check usable inside rule expressions.
type Predicate func(env *Env) bool

type factory struct {
	arity int
	build func(args []string) Predicate
}

var predicates = map[string]factory{
	// isOwner: the user created the record.
	"isOwner": {0, func([]string) Predicate {
		return func(env *Env) bool { return owns(env.User, env.Data) }
	}},
	// isAuthenticated: the request carries a valid session.
	"isAuthenticated": {0, func([]string) Predicate {
		return func(env *Env) bool { return env.User != nil }
	}},
	// ownsParent(collection, field): the user created the record of collection
	// whose id is stored in field.
	"ownsParent": {2, func(args []string) Predicate {
		collection, field := args[0], args[1]
		return func(env *Env) bool {
			if env.Data == nil || env.Lookup == nil {
				return false
			}
			id, ok := env.Data[field].(string)
			if !ok {
				return false
			}
			parent, err := env.Lookup(collection, id)
			if err != nil {
				return false
			}
			return owns(env.User, parent)
		}
	}},
	// preserve: the field keeps its stored value on write.
	"preserve": {0, func([]string) Predicate {
		return func(env *Env) bool {
			if env.NewData == nil || env.Data == nil {
				return false
			}
			v, ok := env.Data[env.Field]
			if !ok || v == nil {
				return false
			}
			env.NewData[env.Field] = v
			return true
		}
	}},
	// assign(value): the field is forced to value on write.
	"assign": {1, func(args []string) Predicate {
		value := literalValue(args[0])
		return func(env *Env) bool {
			if env.NewData == nil {
				return false
			}
			env.NewData[env.Field] = value
			return true
		}
	}},
}

func bind(name string, args []string) (Predicate, error) {
	f, ok := predicates[name]
	if !ok {
		return nil, fmt.Errorf("unknown predicate %q", name)
	}
	if len(args) != f.arity {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", name, f.arity, len(args))
	}
	return f.build(args), nil
}

func owns(user, record store.Record) bool {
	if user == nil || record == nil {
		return false
	}
	return user.ID() != "" && user.ID() == record.OwnerID()
}

// literalValue decodes a JSON literal argument. Bare words are strings.
func literalValue(arg string) any {
	if gjson.Valid(arg) {
		return gjson.Parse(arg).Value()
	}
	return arg
}
