// Package query models a driver-neutral read request against the remote listing store.
package query

import (
	"fmt"
	"strings"
)

// Op is a predicate operator understood by every store driver.
type Op string

// Supported operators. ILike values carry SQL wildcards (%).
const (
	OpEq    Op = "eq"
	OpILike Op = "ilike"
	OpLte   Op = "lte"
	OpGte   Op = "gte"
)

// Condition compares one column with a value.
type Condition struct {
	Column string
	Op     Op
	Value  any
}

// Predicate is a single condition or a disjunction of conditions.
type Predicate struct {
	anyOf []Condition
}

// Conditions returns the conditions of the predicate.
func (p Predicate) Conditions() []Condition { return p.anyOf }

// IsOr reports whether the predicate is a disjunction.
func (p Predicate) IsOr() bool { return len(p.anyOf) > 1 }

// Order is a sort key.
type Order struct {
	Column     string
	Descending bool
}

// Range is an inclusive row window [From, To].
type Range struct {
	From int
	To   int
}

// Limit returns the number of rows in the window.
func (r Range) Limit() int { return r.To - r.From + 1 }

// Query is a validated read request. Predicates are joined with AND.
type Query struct {
	Table      string
	Columns    []string
	Predicates []Predicate
	Orders     []Order
	Window     Range
}

// Builder is a fluent builder for Query.
type Builder struct {
	q   Query
	err error
}

// From starts building a query against table.
func From(table string) *Builder {
	return &Builder{q: Query{Table: table}}
}

// Select sets the projected columns. No columns means all.
func (b *Builder) Select(columns ...string) *Builder {
	b.q.Columns = append(b.q.Columns, columns...)
	return b
}

// Eq adds column = value.
func (b *Builder) Eq(column string, value any) *Builder {
	return b.where(Condition{Column: column, Op: OpEq, Value: value})
}

// ILike adds a case-insensitive pattern match.
func (b *Builder) ILike(column, pattern string) *Builder {
	return b.where(Condition{Column: column, Op: OpILike, Value: pattern})
}

// Lte adds column <= value.
func (b *Builder) Lte(column string, value any) *Builder {
	return b.where(Condition{Column: column, Op: OpLte, Value: value})
}

// Gte adds column >= value.
func (b *Builder) Gte(column string, value any) *Builder {
	return b.where(Condition{Column: column, Op: OpGte, Value: value})
}

// Or adds a disjunction of conditions.
func (b *Builder) Or(conds ...Condition) *Builder {
	if len(conds) == 0 {
		b.err = fmt.Errorf("or group requires at least one condition")
		return b
	}
	b.q.Predicates = append(b.q.Predicates, Predicate{anyOf: conds})
	return b
}

// OrderDesc appends a descending sort key.
func (b *Builder) OrderDesc(column string) *Builder {
	b.q.Orders = append(b.q.Orders, Order{Column: column, Descending: true})
	return b
}

// OrderAsc appends an ascending sort key.
func (b *Builder) OrderAsc(column string) *Builder {
	b.q.Orders = append(b.q.Orders, Order{Column: column})
	return b
}

// Range sets the inclusive row window.
func (b *Builder) Range(from, to int) *Builder {
	b.q.Window = Range{From: from, To: to}
	return b
}

func (b *Builder) where(c Condition) *Builder {
	b.q.Predicates = append(b.q.Predicates, Predicate{anyOf: []Condition{c}})
	return b
}

// Build validates and returns the query.
func (b *Builder) Build() (*Query, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.q.Validate(); err != nil {
		return nil, err
	}
	q := b.q
	return &q, nil
}

// MustBuild calls Build and panics on error.
func (b *Builder) MustBuild() *Query {
	q, err := b.Build()
	if err != nil {
		panic(err)
	}
	return q
}

// Validate checks table, columns and window.
func (q *Query) Validate() error {
	if q.Table == "" {
		return fmt.Errorf("table is required")
	}
	if q.Window.From < 0 {
		return fmt.Errorf("range start must be >= 0, got %d", q.Window.From)
	}
	if q.Window.To < q.Window.From {
		return fmt.Errorf("range end %d before start %d", q.Window.To, q.Window.From)
	}
	for _, p := range q.Predicates {
		for _, c := range p.anyOf {
			if c.Column == "" {
				return fmt.Errorf("predicate column is required")
			}
			switch c.Op {
			case OpEq, OpILike, OpLte, OpGte:
			default:
				return fmt.Errorf("unsupported operator %q on %q", c.Op, c.Column)
			}
		}
	}
	return nil
}

// String returns a debug representation resembling SQL.
func (q *Query) String() string {
	cols := "*"
	if len(q.Columns) > 0 {
		cols = strings.Join(q.Columns, ",")
	}
	parts := []string{"SELECT", cols, "FROM", q.Table}
	if len(q.Predicates) > 0 {
		where := make([]string, 0, len(q.Predicates))
		for _, p := range q.Predicates {
			conds := make([]string, 0, len(p.anyOf))
			for _, c := range p.anyOf {
				conds = append(conds, fmt.Sprintf("%s %s %v", c.Column, strings.ToUpper(string(c.Op)), c.Value))
			}
			s := strings.Join(conds, " OR ")
			if p.IsOr() {
				s = "(" + s + ")"
			}
			where = append(where, s)
		}
		parts = append(parts, "WHERE", strings.Join(where, " AND "))
	}
	if len(q.Orders) > 0 {
		orders := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			orders = append(orders, o.Column+" "+dir)
		}
		parts = append(parts, "ORDER BY", strings.Join(orders, ", "))
	}
	parts = append(parts, "RANGE", fmt.Sprintf("%d-%d", q.Window.From, q.Window.To))
	return strings.Join(parts, " ")
}
