package rules

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wildcard names the default collection and the collection-wide field rules.
const Wildcard = "*"

// Actions maps an action to its rule.
type Actions map[Action]Rule

// FieldRules holds the per-action rules of one record field.
type FieldRules struct {
	Field   string
	Actions Actions
}

// Scope holds the action rules and field rules of a collection or of a single record.
type Scope struct {
	Actions Actions
	Fields  []FieldRules
}

// Collection holds the rules of one collection. Records overrides apply to a
// single record id.
type Collection struct {
	Scope
	Records map[string]*Scope
}

// Set maps collection names to their rules. The Wildcard entry carries the defaults.
type Set map[string]*Collection

// Default returns the built-in defaults: any user may create, owners may
// update and delete, reads are open.
func Default() Set {
	return Set{
		Wildcard: {
			Scope: Scope{Actions: Actions{
				ActionCreate: RequireRoles(RoleUser),
				ActionUpdate: RequireRoles(RoleOwner),
				ActionDelete: RequireRoles(RoleOwner),
			}},
		},
	}
}

// Merge returns a copy of s with every collection of overlay replacing the
// collection of the same name.
func (s Set) Merge(overlay Set) Set {
	out := make(Set, len(s)+len(overlay))
	for name, c := range s {
		out[name] = c
	}
	for name, c := range overlay {
		out[name] = c
	}
	return out
}

// Parse decodes a YAML rule set.
//
//	games:
//	  .create: [User]
//	  "*":
//	    secret:
//	      .read: false
//	  some-record-id:
//	    .delete: false
func Parse(data []byte) (Set, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	set := Set{}
	if root.Kind == 0 {
		return set, nil
	}
	doc := root.Content[0]
	if doc.Kind == yaml.ScalarNode && doc.ShortTag() == "!!null" {
		return set, nil
	}
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: rule set must be a mapping", doc.Line)
	}
	for i := 0; i < len(doc.Content); i += 2 {
		name, body := doc.Content[i].Value, doc.Content[i+1]
		c, err := parseCollection(body)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", name, err)
		}
		set[name] = c
	}
	return set, nil
}

// Load reads a YAML rule set from r.
func Load(r io.Reader) (Set, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}
	return Parse(buf.Bytes())
}

// LoadFile reads a YAML rule set from disk.
func LoadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func parseCollection(node *yaml.Node) (*Collection, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	c := &Collection{Scope: Scope{Actions: Actions{}}, Records: map[string]*Scope{}}
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		switch {
		case strings.HasPrefix(key, "."):
			var r Rule
			if err := val.Decode(&r); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			c.Actions[Action(key)] = r
		case key == Wildcard:
			fields, err := parseFields(val)
			if err != nil {
				return nil, err
			}
			c.Fields = fields
		default:
			scope, err := parseScope(val)
			if err != nil {
				return nil, fmt.Errorf("record %s: %w", key, err)
			}
			c.Records[key] = scope
		}
	}
	return c, nil
}

// parseScope reads a record override: action keys start with a dot, other keys are fields.
func parseScope(node *yaml.Node) (*Scope, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	s := &Scope{Actions: Actions{}}
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if strings.HasPrefix(key, ".") {
			var r Rule
			if err := val.Decode(&r); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			s.Actions[Action(key)] = r
			continue
		}
		actions, err := parseActions(val)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		s.Fields = append(s.Fields, FieldRules{Field: key, Actions: actions})
	}
	return s, nil
}

func parseFields(node *yaml.Node) ([]FieldRules, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	var fields []FieldRules
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if strings.HasPrefix(key, ".") {
			continue
		}
		actions, err := parseActions(val)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		fields = append(fields, FieldRules{Field: key, Actions: actions})
	}
	return fields, nil
}

func parseActions(node *yaml.Node) (Actions, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	actions := Actions{}
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if !strings.HasPrefix(key, ".") {
			return nil, fmt.Errorf("line %d: unexpected key %q", node.Content[i].Line, key)
		}
		var r Rule
		if err := val.Decode(&r); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		actions[Action(key)] = r
	}
	return actions, nil
}
