// Package rules implements the declarative access rules evaluated for every
// data request: coarse per-action permissions and per-field redaction.
package rules

import (
	"fmt"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is the rule key a request method maps to.
type Action string

const (
	ActionCreate Action = ".create"
	ActionRead   Action = ".read"
	ActionUpdate Action = ".update"
	ActionDelete Action = ".delete"
)

// ActionFor returns the action checked for an HTTP method.
func ActionFor(method string) Action {
	switch method {
	case http.MethodGet:
		return ActionRead
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate
	case http.MethodDelete:
		return ActionDelete
	default:
		return ""
	}
}

// Roles recognised in role lists.
const (
	RoleGuest = "Guest"
	RoleUser  = "User"
	RoleOwner = "Owner"
)

type ruleKind int

const (
	kindUnset ruleKind = iota
	kindBool
	kindRoles
	kindExpr
)

// Rule is a single permission: a boolean, a role list or a predicate expression.
type Rule struct {
	kind  ruleKind
	value bool
	roles []string
	expr  Expr
	src   string
}

// Allow returns a constant rule.
func Allow(v bool) Rule {
	return Rule{kind: kindBool, value: v}
}

// RequireRoles returns a role list rule.
func RequireRoles(roles ...string) Rule {
	return Rule{kind: kindRoles, roles: roles}
}

// When compiles a predicate expression rule.
func When(src string) (Rule, error) {
	e, err := ParseExpr(src)
	if err != nil {
		return Rule{}, err
	}
	return Rule{kind: kindExpr, expr: e, src: src}, nil
}

// Empty reports whether the rule leaves the inherited rule in place.
// Unset rules, empty role lists and blank expressions are empty.
func (r Rule) Empty() bool {
	switch r.kind {
	case kindUnset:
		return true
	case kindRoles:
		return len(r.roles) == 0
	case kindExpr:
		return strings.TrimSpace(r.src) == ""
	default:
		return false
	}
}

func (r Rule) String() string {
	switch r.kind {
	case kindBool:
		return fmt.Sprint(r.value)
	case kindRoles:
		return fmt.Sprint(r.roles)
	case kindExpr:
		return r.src
	default:
		return "<unset>"
	}
}

// or returns r unless it is empty, in which case current is kept.
func (r Rule) or(current Rule) Rule {
	if r.Empty() {
		return current
	}
	return r
}

func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!bool" {
			var b bool
			if err := node.Decode(&b); err != nil {
				return err
			}
			*r = Allow(b)
			return nil
		}
		if strings.TrimSpace(node.Value) == "" {
			*r = Rule{kind: kindExpr}
			return nil
		}
		rule, err := When(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*r = rule
		return nil
	case yaml.SequenceNode:
		var roles []string
		if err := node.Decode(&roles); err != nil {
			return err
		}
		for _, role := range roles {
			switch role {
			case RoleGuest, RoleUser, RoleOwner:
			default:
				return fmt.Errorf("line %d: unknown role %q", node.Line, role)
			}
		}
		*r = RequireRoles(roles...)
		return nil
	default:
		return fmt.Errorf("line %d: rule must be a boolean, a role list or an expression", node.Line)
	}
}
