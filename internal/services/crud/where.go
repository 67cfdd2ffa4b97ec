package crud

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/victornedelchev/Games-Play/internal/store"
)

// ErrWhereSyntax is returned for where clauses that cannot be compiled.
var ErrWhereSyntax = errors.New("Could not parse WHERE clause, check your syntax.")

var (
	clausePattern = regexp.MustCompile(`(?i)^(.+?)(<=|<|>=|>|=| like | in )(.+?)$`)
	andPattern    = regexp.MustCompile(`(?i) and `)
	orPattern     = regexp.MustCompile(`(?i) or `)
	listPattern   = regexp.MustCompile(`\((.+?)\)`)
)

// Filter reports whether a record satisfies a where clause.
type Filter func(store.Record) bool

// ParseWhere compiles a where clause: comparisons joined by "and" or by "or"
// (not both). Values are JSON literals:
//
//	category="Strategy" and maxLevel>=50
//	_ownerId in ("a","b")
func ParseWhere(src string) (Filter, error) {
	clauses := []string{strings.TrimSpace(src)}
	all := true
	switch {
	case andPattern.MatchString(src):
		clauses = andPattern.Split(src, -1)
	case orPattern.MatchString(src):
		clauses = orPattern.Split(src, -1)
		all = false
	}

	checks := make([]Filter, 0, len(clauses))
	for _, c := range clauses {
		check, err := parseClause(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWhereSyntax, err)
		}
		checks = append(checks, check)
	}

	return func(r store.Record) bool {
		for _, check := range checks {
			ok := check(r)
			if all && !ok {
				return false
			}
			if !all && ok {
				return true
			}
		}
		return all
	}, nil
}

func parseClause(clause string) (Filter, error) {
	m := clausePattern.FindStringSubmatch(clause)
	if m == nil {
		return nil, fmt.Errorf("invalid clause %q", clause)
	}
	prop, op, raw := strings.TrimSpace(m[1]), strings.ToLower(m[2]), strings.TrimSpace(m[3])

	if op == " in " {
		inner := listPattern.FindStringSubmatch(raw)
		if inner == nil {
			return nil, fmt.Errorf("invalid list %q", raw)
		}
		list := "[" + inner[1] + "]"
		if !gjson.Valid(list) {
			return nil, fmt.Errorf("invalid list %q", raw)
		}
		values := gjson.Parse(list).Array()
		return func(r store.Record) bool {
			v, ok := r[prop]
			if !ok {
				return false
			}
			for _, want := range values {
				if strictEqual(v, want.Value()) {
					return true
				}
			}
			return false
		}, nil
	}

	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("invalid value %q", raw)
	}
	value := gjson.Parse(raw).Value()

	switch op {
	case "=":
		return func(r store.Record) bool { return looseEqual(r[prop], value) }, nil
	case " like ":
		needle, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("like expects a string, got %s", raw)
		}
		needle = strings.ToLower(needle)
		return func(r store.Record) bool {
			s, ok := r[prop].(string)
			return ok && strings.Contains(strings.ToLower(s), needle)
		}, nil
	default:
		return func(r store.Record) bool {
			c, ok := compareLoose(r[prop], value)
			if !ok {
				return false
			}
			switch op {
			case "<":
				return c < 0
			case "<=":
				return c <= 0
			case ">":
				return c > 0
			default:
				return c >= 0
			}
		}, nil
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// looseEqual compares values the way JSON documents are usually queried:
// strings and numbers match their numeric counterparts.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return as == bs
	}
	af, aok := toNumber(a)
	bf, bok := toNumber(b)
	return aok && bok && af == bf
}

func strictEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	af, aok := toNumber(a)
	if _, isStr := b.(string); isStr {
		return false
	}
	if _, isBool := b.(bool); isBool {
		return false
	}
	bf, bok := toNumber(b)
	return aok && bok && af == bf
}

// compareLoose orders two values. Strings compare lexically with strings,
// everything else numerically.
func compareLoose(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		return strings.Compare(as, bs), true
	}
	af, aok := toNumber(a)
	bf, bok := toNumber(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}
