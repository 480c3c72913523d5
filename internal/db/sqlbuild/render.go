// Package sqlbuild renders a query.Query into parameterized SQL.
package sqlbuild

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/domain/search/query"
)

var identRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Dialect describes the SQL differences between drivers.
type Dialect struct {
	// Placeholder returns the n-th (1-based) bind parameter marker.
	Placeholder func(n int) string
	// ILike is the case-insensitive match operator.
	ILike string
}

// Postgres uses $n placeholders and ILIKE.
var Postgres = Dialect{
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	ILike:       "ILIKE",
}

// SQLite uses ? placeholders. LIKE is case-insensitive for ASCII in SQLite.
var SQLite = Dialect{
	Placeholder: func(int) string { return "?" },
	ILike:       "LIKE",
}

type builder struct {
	d     Dialect
	where []string
	args  []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func (b *builder) condition(c query.Condition) (string, error) {
	col, err := ident(c.Column)
	if err != nil {
		return "", err
	}
	switch c.Op {
	case query.OpEq:
		return col + " = " + b.bind(c.Value), nil
	case query.OpILike:
		return col + " " + b.d.ILike + " " + b.bind(c.Value), nil
	case query.OpLte:
		return col + " <= " + b.bind(c.Value), nil
	case query.OpGte:
		return col + " >= " + b.bind(c.Value), nil
	default:
		return "", fmt.Errorf("unsupported operator %q", c.Op)
	}
}

// Render returns the SELECT statement and its bind arguments.
func Render(q *query.Query, d Dialect) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}
	table, err := ident(q.Table)
	if err != nil {
		return "", nil, err
	}

	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, 0, len(q.Columns))
		for _, c := range q.Columns {
			qc, err := ident(c)
			if err != nil {
				return "", nil, err
			}
			quoted = append(quoted, qc)
		}
		cols = strings.Join(quoted, ", ")
	}

	b := &builder{d: d}
	for _, p := range q.Predicates {
		parts := make([]string, 0, len(p.Conditions()))
		for _, c := range p.Conditions() {
			s, err := b.condition(c)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, s)
		}
		if p.IsOr() {
			b.where = append(b.where, "("+strings.Join(parts, " OR ")+")")
		} else {
			b.where = append(b.where, parts[0])
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(table)
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	if len(q.Orders) > 0 {
		orders := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			col, err := ident(o.Column)
			if err != nil {
				return "", nil, err
			}
			if o.Descending {
				col += " DESC"
			} else {
				col += " ASC"
			}
			orders = append(orders, col)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}
	sb.WriteString(" LIMIT ")
	sb.WriteString(b.bind(q.Window.Limit()))
	sb.WriteString(" OFFSET ")
	sb.WriteString(b.bind(q.Window.From))

	return sb.String(), b.args, nil
}

func ident(name string) (string, error) {
	if !identRegex.MatchString(name) {
		return "", fmt.Errorf("%w: %q", db.ErrBadColumn, name)
	}
	return `"` + name + `"`, nil
}
