package filter

import (
	"fmt"
	"strings"
)

// Eval applies the expression to a document metadata map. Missing keys fail
// every comparison (and therefore pass NE and NIN). Numeric values compare
// across int/float representations.
func Eval(e Expr, metadata map[string]any) (bool, error) {
	switch x := e.(type) {
	case nil:
		return true, nil
	case Cmp:
		return evalCmp(x, metadata)
	case AndExpr:
		l, err := Eval(x.Left, metadata)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return Eval(x.Right, metadata)
	case OrExpr:
		l, err := Eval(x.Left, metadata)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return Eval(x.Right, metadata)
	case NotExpr:
		v, err := Eval(x.Inner, metadata)
		if err != nil {
			return false, err
		}
		return !v, nil
	case Group:
		return Eval(x.Inner, metadata)
	}
	return false, fmt.Errorf("filter: unknown expression type %T", e)
}

func evalCmp(c Cmp, metadata map[string]any) (bool, error) {
	got, ok := lookup(metadata, c.Key)

	switch c.Op {
	case OpEq:
		return ok && equalValues(got, c.Value), nil
	case OpNe:
		return !ok || !equalValues(got, c.Value), nil
	case OpGt, OpGte, OpLt, OpLte:
		if !ok {
			return false, nil
		}
		return orderValues(c.Op, got, c.Value)
	case OpIn:
		if !ok {
			return false, nil
		}
		return containsValue(c.Value, got)
	case OpNin:
		if !ok {
			return true, nil
		}
		in, err := containsValue(c.Value, got)
		return !in, err
	}
	return false, fmt.Errorf("filter: unknown operator %q", c.Op)
}

// lookup resolves dotted keys against nested maps before falling back to a
// literal dotted key.
func lookup(metadata map[string]any, key string) (any, bool) {
	if v, ok := metadata[key]; ok {
		return v, true
	}
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return nil, false
	}
	var cur any = metadata
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func containsValue(listVal any, got any) (bool, error) {
	list, ok := listVal.([]any)
	if !ok {
		return false, fmt.Errorf("filter: in/nin requires a list, got %T", listVal)
	}
	for _, v := range list {
		if equalValues(got, v) {
			return true, nil
		}
	}
	return false, nil
}

func equalValues(a, b any) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	switch av := a.(type) {
	case string:
		bs, ok := b.(string)
		return ok && av == bs
	case bool:
		bb, ok := b.(bool)
		return ok && av == bb
	}
	return a == b
}

func orderValues(op Op, got, want any) (bool, error) {
	gf, gok := toFloat(got)
	wf, wok := toFloat(want)
	if gok && wok {
		switch op {
		case OpGt:
			return gf > wf, nil
		case OpGte:
			return gf >= wf, nil
		case OpLt:
			return gf < wf, nil
		case OpLte:
			return gf <= wf, nil
		}
	}

	gs, gok2 := got.(string)
	ws, wok2 := want.(string)
	if gok2 && wok2 {
		switch op {
		case OpGt:
			return gs > ws, nil
		case OpGte:
			return gs >= ws, nil
		case OpLt:
			return gs < ws, nil
		case OpLte:
			return gs <= ws, nil
		}
	}
	return false, fmt.Errorf("filter: cannot order %T against %T", got, want)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
