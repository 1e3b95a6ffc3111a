// Package mapping implements driven.FieldMapper with a small expression
// language: field references, quoted literals and "|" fallbacks.
//
//	title   = "$handle.name"
//	source  = "'graph'"
//	owner   = "author | handle.path.0.name | 'unknown'"
//
// A reference walks nested maps by key and slices by index. The first
// alternative yielding a non-empty value wins; when none does the field is
// left out of the result.
package mapping

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
	"github.com/custodia-labs/sercha-graph/internal/core/ports/driven"
)

// Ensure Mapper implements the interface.
var _ driven.FieldMapper = (*Mapper)(nil)

// ErrInvalidExpression indicates a mapping expression could not be parsed.
var ErrInvalidExpression = errors.New("mapping: invalid expression")

type term struct {
	literal *string
	path    []string
}

type expression []term

// Mapper evaluates mapping expressions. Parsed expressions are cached.
type Mapper struct {
	compiled sync.Map // string -> expression
}

// New creates a mapper.
func New() *Mapper {
	return &Mapper{}
}

// Evaluate returns one field per expression that yields a value.
func (m *Mapper) Evaluate(exprs map[string]string, ctx map[string]any) (domain.OutputRecord, error) {
	out := make(domain.OutputRecord, len(exprs))
	for name, src := range exprs {
		expr, err := m.compile(src)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		if v, ok := expr.eval(ctx); ok {
			out[name] = v
		}
	}
	return out, nil
}

// Validate parses every expression without evaluating it.
func (m *Mapper) Validate(exprs map[string]string) error {
	for name, src := range exprs {
		if _, err := m.compile(src); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return nil
}

func (m *Mapper) compile(src string) (expression, error) {
	if cached, ok := m.compiled.Load(src); ok {
		return cached.(expression), nil
	}
	expr, err := parse(src)
	if err != nil {
		return nil, err
	}
	m.compiled.Store(src, expr)
	return expr, nil
}

func parse(src string) (expression, error) {
	alts, err := splitAlternatives(src)
	if err != nil {
		return nil, err
	}

	expr := make(expression, 0, len(alts))
	for _, alt := range alts {
		alt = strings.TrimSpace(alt)
		switch {
		case alt == "":
			return nil, fmt.Errorf("%w: empty term in %q", ErrInvalidExpression, src)
		case alt[0] == '"' || alt[0] == '\'':
			if len(alt) < 2 || alt[len(alt)-1] != alt[0] {
				return nil, fmt.Errorf("%w: unterminated literal in %q", ErrInvalidExpression, src)
			}
			lit := alt[1 : len(alt)-1]
			expr = append(expr, term{literal: &lit})
		default:
			ref := strings.TrimPrefix(alt, "$")
			if ref == "" || strings.ContainsAny(ref, " \t\"'") {
				return nil, fmt.Errorf("%w: bad reference %q", ErrInvalidExpression, alt)
			}
			expr = append(expr, term{path: strings.Split(ref, ".")})
		}
	}
	return expr, nil
}

// splitAlternatives splits on "|" outside quotes.
func splitAlternatives(src string) ([]string, error) {
	var (
		parts []string
		cur   strings.Builder
		quote rune
	)
	for _, r := range src {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		case r == '|':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: unterminated literal in %q", ErrInvalidExpression, src)
	}
	return append(parts, cur.String()), nil
}

func (e expression) eval(ctx map[string]any) (any, bool) {
	for _, t := range e {
		if t.literal != nil {
			if *t.literal != "" {
				return *t.literal, true
			}
			continue
		}
		if v, ok := lookup(ctx, t.path); ok && !empty(v) {
			return v, true
		}
	}
	return nil, false
}

func lookup(ctx map[string]any, path []string) (any, bool) {
	var cur any = ctx
	for _, key := range path {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case domain.OutputRecord:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		case []string:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func empty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	default:
		return false
	}
}
