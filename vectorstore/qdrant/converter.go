package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/aiwire-dev/aiwire/vectorstore/filter"
)

// ConvertFilter maps a filter expression onto Qdrant's payload filter model.
// Metadata keys live under the "metadata" payload object, so a comparison on
// "country" targets payload key "metadata.country".
func ConvertFilter(e filter.Expr) (*qdrant.Filter, error) {
	if e == nil {
		return nil, nil
	}
	cond, err := convert(e)
	if err != nil {
		return nil, err
	}
	if f := cond.GetFilter(); f != nil {
		return f, nil
	}
	return &qdrant.Filter{Must: []*qdrant.Condition{cond}}, nil
}

func convert(e filter.Expr) (*qdrant.Condition, error) {
	switch x := e.(type) {
	case filter.Cmp:
		return convertCmp(x)
	case filter.AndExpr:
		l, err := convert(x.Left)
		if err != nil {
			return nil, err
		}
		r, err := convert(x.Right)
		if err != nil {
			return nil, err
		}
		return qdrant.NewFilterAsCondition(&qdrant.Filter{
			Must: []*qdrant.Condition{l, r},
		}), nil
	case filter.OrExpr:
		l, err := convert(x.Left)
		if err != nil {
			return nil, err
		}
		r, err := convert(x.Right)
		if err != nil {
			return nil, err
		}
		return qdrant.NewFilterAsCondition(&qdrant.Filter{
			Should: []*qdrant.Condition{l, r},
		}), nil
	case filter.NotExpr:
		inner, err := convert(x.Inner)
		if err != nil {
			return nil, err
		}
		return qdrant.NewFilterAsCondition(&qdrant.Filter{
			MustNot: []*qdrant.Condition{inner},
		}), nil
	case filter.Group:
		return convert(x.Inner)
	}
	return nil, fmt.Errorf("qdrant: unsupported filter expression %T", e)
}

func convertCmp(c filter.Cmp) (*qdrant.Condition, error) {
	key := "metadata." + c.Key

	switch c.Op {
	case filter.OpEq:
		return matchCondition(key, c.Value)
	case filter.OpNe:
		m, err := matchCondition(key, c.Value)
		if err != nil {
			return nil, err
		}
		return qdrant.NewFilterAsCondition(&qdrant.Filter{
			MustNot: []*qdrant.Condition{m},
		}), nil
	case filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte:
		f, ok := toFloat(c.Value)
		if !ok {
			return nil, fmt.Errorf("qdrant: %s on %q requires a numeric value, got %T", c.Op, c.Key, c.Value)
		}
		r := &qdrant.Range{}
		switch c.Op {
		case filter.OpGt:
			r.Gt = qdrant.PtrOf(f)
		case filter.OpGte:
			r.Gte = qdrant.PtrOf(f)
		case filter.OpLt:
			r.Lt = qdrant.PtrOf(f)
		case filter.OpLte:
			r.Lte = qdrant.PtrOf(f)
		}
		return qdrant.NewRange(key, r), nil
	case filter.OpIn:
		return inCondition(key, c)
	case filter.OpNin:
		in, err := inCondition(key, c)
		if err != nil {
			return nil, err
		}
		return qdrant.NewFilterAsCondition(&qdrant.Filter{
			MustNot: []*qdrant.Condition{in},
		}), nil
	}
	return nil, fmt.Errorf("qdrant: unsupported operator %q", c.Op)
}

func matchCondition(key string, v any) (*qdrant.Condition, error) {
	switch x := v.(type) {
	case string:
		return qdrant.NewMatch(key, x), nil
	case bool:
		return qdrant.NewMatchBool(key, x), nil
	case int:
		return qdrant.NewMatchInt(key, int64(x)), nil
	case int64:
		return qdrant.NewMatchInt(key, x), nil
	case float32, float64:
		// Payload match has no float form; an exact range stands in.
		f, _ := toFloat(x)
		return qdrant.NewRange(key, &qdrant.Range{
			Gte: qdrant.PtrOf(f),
			Lte: qdrant.PtrOf(f),
		}), nil
	}
	return nil, fmt.Errorf("qdrant: unsupported match value %T", v)
}

func inCondition(key string, c filter.Cmp) (*qdrant.Condition, error) {
	list, ok := c.Value.([]any)
	if !ok {
		return nil, fmt.Errorf("qdrant: in/nin on %q requires a list, got %T", c.Key, c.Value)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("qdrant: in/nin on %q requires a non-empty list", c.Key)
	}

	if keywords, ok := allStrings(list); ok {
		return qdrant.NewMatchKeywords(key, keywords...), nil
	}
	if ints, ok := allInts(list); ok {
		return qdrant.NewMatchInts(key, ints...), nil
	}

	// Mixed lists fall back to a should-of-matches.
	conds := make([]*qdrant.Condition, 0, len(list))
	for _, v := range list {
		m, err := matchCondition(key, v)
		if err != nil {
			return nil, err
		}
		conds = append(conds, m)
	}
	return qdrant.NewFilterAsCondition(&qdrant.Filter{Should: conds}), nil
}

func allStrings(list []any) ([]string, bool) {
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func allInts(list []any) ([]int64, bool) {
	out := make([]int64, 0, len(list))
	for _, v := range list {
		switch x := v.(type) {
		case int:
			out = append(out, int64(x))
		case int64:
			out = append(out, x)
		default:
			return nil, false
		}
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
