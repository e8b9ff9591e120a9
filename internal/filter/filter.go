// Package filter parses and evaluates ledger query filters.
//
// The supported grammar is a conjunction of equality terms:
//
//	filter  = term { "AND" term }
//	term    = path "=" value
//	path    = ident { "." ident }
//	value   = "$" digits | "'" chars "'" | number
//
// Paths address fields of the item's JSON form, e.g. "tags.type" or
// "destination_account_id". Positional values ($1, $2, ...) are taken from
// the filter parameters supplied with the query.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrMalformed is wrapped by every parse failure.
var ErrMalformed = errors.New("malformed filter")

type term struct {
	path  []string
	param int    // 1-based positional index; 0 when literal is used
	lit   string // literal compared in its string form
}

// Filter is a compiled filter expression.
type Filter struct {
	terms []term
}

// Parse compiles expr. An empty expression matches everything.
func Parse(expr string, params []any) (*Filter, error) {
	f := &Filter{}
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return f, nil
	}

	for _, part := range splitAnd(expr) {
		t, err := parseTerm(part)
		if err != nil {
			return nil, err
		}
		if t.param > len(params) {
			return nil, fmt.Errorf("%w: $%d has no matching parameter", ErrMalformed, t.param)
		}
		if t.param > 0 {
			t.lit = stringify(params[t.param-1])
		}
		f.terms = append(f.terms, t)
	}
	return f, nil
}

// Match reports whether item satisfies every term. item is compared through
// its JSON encoding so struct field tags define the addressable paths.
func (f *Filter) Match(item any) (bool, error) {
	if len(f.terms) == 0 {
		return true, nil
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return false, fmt.Errorf("encode item: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false, fmt.Errorf("decode item: %w", err)
	}

	for _, t := range f.terms {
		v, ok := lookup(doc, t.path)
		if !ok || stringify(v) != t.lit {
			return false, nil
		}
	}
	return true, nil
}

// splitAnd splits on the AND keyword outside quoted literals.
func splitAnd(expr string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false

	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		if ch == '\'' {
			inQuote = !inQuote
		}
		if !inQuote && isAndAt(expr, i) {
			parts = append(parts, cur.String())
			cur.Reset()
			i += len("AND") - 1
			continue
		}
		cur.WriteByte(ch)
	}
	parts = append(parts, cur.String())
	return parts
}

// isAndAt reports whether a standalone, case-insensitive AND starts at i.
func isAndAt(s string, i int) bool {
	if i+3 > len(s) || !strings.EqualFold(s[i:i+3], "AND") {
		return false
	}
	before := i == 0 || s[i-1] == ' ' || s[i-1] == '\t'
	after := i+3 == len(s) || s[i+3] == ' ' || s[i+3] == '\t'
	return before && after
}

func parseTerm(s string) (term, error) {
	s = strings.TrimSpace(s)
	lhs, rhs, ok := strings.Cut(s, "=")
	if !ok {
		return term{}, fmt.Errorf("%w: expected '=' in %q", ErrMalformed, s)
	}
	lhs, rhs = strings.TrimSpace(lhs), strings.TrimSpace(rhs)

	path := strings.Split(lhs, ".")
	for _, seg := range path {
		if !isIdent(seg) {
			return term{}, fmt.Errorf("%w: invalid field %q", ErrMalformed, lhs)
		}
	}

	switch {
	case strings.HasPrefix(rhs, "$"):
		n, err := strconv.Atoi(rhs[1:])
		if err != nil || n < 1 {
			return term{}, fmt.Errorf("%w: invalid placeholder %q", ErrMalformed, rhs)
		}
		return term{path: path, param: n}, nil
	case len(rhs) >= 2 && rhs[0] == '\'' && rhs[len(rhs)-1] == '\'':
		return term{path: path, lit: rhs[1 : len(rhs)-1]}, nil
	default:
		n, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return term{}, fmt.Errorf("%w: invalid value %q", ErrMalformed, rhs)
		}
		return term{path: path, lit: stringify(n)}, nil
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func lookup(doc map[string]any, path []string) (any, bool) {
	var cur any = doc
	for _, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// stringify gives JSON numbers, strings and bools one comparable form.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case nil:
		return "null"
	default:
		return fmt.Sprint(x)
	}
}
