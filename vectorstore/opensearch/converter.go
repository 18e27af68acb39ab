package opensearch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aiwire-dev/aiwire/vectorstore/filter"
)

// ConvertFilter renders a filter expression as a Lucene query_string clause
// against the metadata.* fields, e.g.
//
//	country == 'BG' && year >= 2020
//
// becomes
//
//	metadata.country:"BG" AND metadata.year:[2020 TO *]
func ConvertFilter(e filter.Expr) (string, error) {
	if e == nil {
		return "", nil
	}
	var b strings.Builder
	if err := writeExpr(&b, e); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeExpr(b *strings.Builder, e filter.Expr) error {
	switch x := e.(type) {
	case filter.Cmp:
		return writeCmp(b, x)
	case filter.AndExpr:
		if err := writeExpr(b, x.Left); err != nil {
			return err
		}
		b.WriteString(" AND ")
		return writeExpr(b, x.Right)
	case filter.OrExpr:
		if err := writeExpr(b, x.Left); err != nil {
			return err
		}
		b.WriteString(" OR ")
		return writeExpr(b, x.Right)
	case filter.NotExpr:
		b.WriteString("NOT (")
		if err := writeExpr(b, x.Inner); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case filter.Group:
		b.WriteString("(")
		if err := writeExpr(b, x.Inner); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	}
	return fmt.Errorf("opensearch: unsupported filter expression %T", e)
}

func writeCmp(b *strings.Builder, c filter.Cmp) error {
	field := "metadata." + c.Key

	if c.Op == filter.OpIn || c.Op == filter.OpNin {
		list, err := listValues(c.Value)
		if err != nil {
			return fmt.Errorf("opensearch: %s on %q: %w", c.Op, c.Key, err)
		}
		clause := field + ":(" + strings.Join(list, " OR ") + ")"
		if c.Op == filter.OpNin {
			clause = "NOT " + clause
		}
		b.WriteString(clause)
		return nil
	}

	val, err := luceneValue(c.Value)
	if err != nil {
		return fmt.Errorf("opensearch: %s on %q: %w", c.Op, c.Key, err)
	}

	switch c.Op {
	case filter.OpEq:
		b.WriteString(field + ":" + val)
	case filter.OpNe:
		b.WriteString("NOT " + field + ":" + val)
	case filter.OpGt:
		b.WriteString(field + ":{" + val + " TO *]")
	case filter.OpGte:
		b.WriteString(field + ":[" + val + " TO *]")
	case filter.OpLt:
		b.WriteString(field + ":[* TO " + val + "}")
	case filter.OpLte:
		b.WriteString(field + ":[* TO " + val + "]")
	default:
		return fmt.Errorf("opensearch: unsupported operator %q", c.Op)
	}
	return nil
}

func listValues(v any) ([]string, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	out := make([]string, len(list))
	for i, e := range list {
		val, err := luceneValue(e)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// luceneValue rejects anything query_string syntax cannot express instead of
// stringifying it.
func luceneValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
