package rules

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Expr is a compiled predicate expression.
type Expr interface {
	Eval(env *Env) bool
}

type orExpr struct{ left, right Expr }

func (e orExpr) Eval(env *Env) bool { return e.left.Eval(env) || e.right.Eval(env) }

type andExpr struct{ left, right Expr }

func (e andExpr) Eval(env *Env) bool { return e.left.Eval(env) && e.right.Eval(env) }

type notExpr struct{ inner Expr }

func (e notExpr) Eval(env *Env) bool { return !e.inner.Eval(env) }

type literal bool

func (e literal) Eval(*Env) bool { return bool(e) }

type call struct {
	name string
	fn   Predicate
}

func (e call) Eval(env *Env) bool { return e.fn(env) }

// ParseExpr compiles an expression over the named predicates, combined with
// "&&", "||", "!" and parentheses:
//
//	ownsParent(teams, teamId) || isOwner
func ParseExpr(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at offset %d", t.text, t.pos)
	}
	return e, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokString
	tokLParen
	tokRParen
	tokComma
	tokAnd
	tokOr
	tokNot
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	rs := []rune(src)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case r == ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
		case r == '!':
			toks = append(toks, token{tokNot, "!", i})
			i++
		case r == '&' || r == '|':
			if i+1 >= len(rs) || rs[i+1] != r {
				return nil, fmt.Errorf("expected %c%c at offset %d", r, r, i)
			}
			kind := tokAnd
			if r == '|' {
				kind = tokOr
			}
			toks = append(toks, token{kind, string([]rune{r, r}), i})
			i += 2
		case r == '\'' || r == '"':
			start := i
			i++
			var sb strings.Builder
			for i < len(rs) && rs[i] != r {
				sb.WriteRune(rs[i])
				i++
			}
			if i >= len(rs) {
				return nil, fmt.Errorf("unterminated string at offset %d", start)
			}
			i++
			toks = append(toks, token{tokString, sb.String(), start})
		case isWordRune(r):
			start := i
			for i < len(rs) && isWordRune(rs[i]) {
				i++
			}
			toks = append(toks, token{tokIdent, string(rs[start:i]), start})
		default:
			return nil, fmt.Errorf("unexpected %q at offset %d", r, i)
		}
	}
	return append(toks, token{tokEOF, "", len(rs)}), nil
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' || r == '$'
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokKind, what string) (token, error) {
	t := p.next()
	if t.kind != kind {
		if t.kind == tokEOF {
			return t, fmt.Errorf("expected %s, got end of expression", what)
		}
		return t, fmt.Errorf("expected %s, got %q at offset %d", what, t.text, t.pos)
	}
	return t, nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andExpr{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.next()
	switch t.kind {
	case tokLParen:
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	case tokIdent:
		switch t.text {
		case "true":
			return literal(true), nil
		case "false":
			return literal(false), nil
		}
		var args []string
		if p.peek().kind == tokLParen {
			p.next()
			var err error
			if args, err = p.parseArgs(); err != nil {
				return nil, err
			}
		}
		fn, err := bind(t.text, args)
		if err != nil {
			return nil, err
		}
		return call{name: t.text, fn: fn}, nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", t.text, t.pos)
	}
}

// parseArgs reads a comma separated argument list after the opening parenthesis.
// Quoted arguments keep their quotes so literal values can tell strings from numbers.
func (p *parser) parseArgs() ([]string, error) {
	var args []string
	if p.peek().kind == tokRParen {
		p.next()
		return args, nil
	}
	for {
		t := p.next()
		switch t.kind {
		case tokIdent:
			args = append(args, t.text)
		case tokString:
			args = append(args, strconv.Quote(t.text))
		default:
			return nil, fmt.Errorf("expected argument, got %q at offset %d", t.text, t.pos)
		}
		sep := p.next()
		if sep.kind == tokRParen {
			return args, nil
		}
		if sep.kind != tokComma {
			return nil, fmt.Errorf("expected ',' or ')', got %q at offset %d", sep.text, sep.pos)
		}
	}
}
