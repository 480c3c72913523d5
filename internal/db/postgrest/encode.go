package postgrest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dealscout/dealscout/internal/domain/search/query"
)

// Encode renders the query's projection, filters and ordering as PostgREST URL
// parameters. The row window travels separately in the Range header.
func Encode(q *query.Query) (string, error) {
	if err := q.Validate(); err != nil {
		return "", fmt.Errorf("invalid query: %w", err)
	}

	v := url.Values{}
	sel := "*"
	if len(q.Columns) > 0 {
		sel = strings.Join(q.Columns, ",")
	}
	v.Set("select", sel)

	for _, p := range q.Predicates {
		conds := p.Conditions()
		if p.IsOr() {
			parts := make([]string, 0, len(conds))
			for _, c := range conds {
				op, val, err := operand(c)
				if err != nil {
					return "", err
				}
				parts = append(parts, c.Column+"."+op+"."+quote(val))
			}
			v.Add("or", "("+strings.Join(parts, ",")+")")
			continue
		}
		c := conds[0]
		op, val, err := operand(c)
		if err != nil {
			return "", err
		}
		v.Add(c.Column, op+"."+val)
	}

	if len(q.Orders) > 0 {
		orders := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "asc"
			if o.Descending {
				dir = "desc"
			}
			orders = append(orders, o.Column+"."+dir)
		}
		v.Set("order", strings.Join(orders, ","))
	}

	return v.Encode(), nil
}

// RangeHeader formats an inclusive row window, e.g. "0-49".
func RangeHeader(r query.Range) string {
	return strconv.Itoa(r.From) + "-" + strconv.Itoa(r.To)
}

func operand(c query.Condition) (op, val string, err error) {
	val, err = formatValue(c.Value)
	if err != nil {
		return "", "", fmt.Errorf("column %s: %w", c.Column, err)
	}
	switch c.Op {
	case query.OpEq:
		return "eq", val, nil
	case query.OpILike:
		// PostgREST accepts * as the LIKE wildcard in URLs.
		return "ilike", strings.ReplaceAll(val, "%", "*"), nil
	case query.OpLte:
		return "lte", val, nil
	case query.OpGte:
		return "gte", val, nil
	default:
		return "", "", fmt.Errorf("unsupported operator %q", c.Op)
	}
}

func formatValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// quote wraps values containing PostgREST reserved characters in double quotes.
func quote(s string) string {
	if !strings.ContainsAny(s, `,.:()" \`) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
