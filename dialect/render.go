package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/upsertkit/upsertkit/predicate"
	"github.com/upsertkit/upsertkit/schema"
)

// placeholderFunc renders the n-th (1-based) bind parameter marker.
type placeholderFunc func(n int) string

func dollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

func questionPlaceholder(int) string { return "?" }

func atPlaceholder(n int) string { return "@p" + strconv.Itoa(n) }

// predicateRenderer walks a predicate tree and accumulates SQL text plus
// bind arguments. qualifier, when non-empty, is prepended (already quoted)
// to every column reference.
type predicateRenderer struct {
	model     *schema.Model
	quotes    quoting
	qualifier string
	ph        placeholderFunc
	next      int
	args      []any
}

// render returns the SQL for p. An empty disjunction renders as 1 = 0 so an
// upsert match clause built from it can never match a row; an empty
// conjunction renders as 1 = 1.
func (r *predicateRenderer) render(p predicate.Predicate) (string, error) {
	switch v := p.(type) {
	case predicate.Eq:
		return r.renderEq(v)
	case predicate.And:
		return r.renderJoin([]predicate.Predicate(v), " AND ", "1 = 1")
	case predicate.Or:
		return r.renderJoin([]predicate.Predicate(v), " OR ", "1 = 0")
	case nil:
		return "1 = 0", nil
	}
	return "", fmt.Errorf("unsupported predicate node %T", p)
}

func (r *predicateRenderer) renderEq(eq predicate.Eq) (string, error) {
	col, err := quoteIdentifier(r.model.ColumnFor(eq.Field), r.quotes)
	if err != nil {
		return "", fmt.Errorf("predicate field %q: %w", eq.Field, err)
	}
	if r.qualifier != "" {
		col = r.qualifier + "." + col
	}
	if eq.Value == nil {
		return col + " IS NULL", nil
	}
	r.next++
	r.args = append(r.args, eq.Value)
	return col + " = " + r.ph(r.next), nil
}

func (r *predicateRenderer) renderJoin(children []predicate.Predicate, sep, empty string) (string, error) {
	if len(children) == 0 {
		return empty, nil
	}
	parts := make([]string, len(children))
	for i, child := range children {
		text, err := r.render(child)
		if err != nil {
			return "", err
		}
		if _, leaf := child.(predicate.Eq); !leaf {
			text = "(" + text + ")"
		}
		parts[i] = text
	}
	return strings.Join(parts, sep), nil
}
