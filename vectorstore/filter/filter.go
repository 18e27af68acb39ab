// Package filter defines a small portable filter expression tree over
// document metadata, a text parser for it, and an in-memory evaluator.
// Vector store packages convert the tree into their native query syntax.
package filter

import (
	"fmt"
	"strconv"
	"strings"
)

type Op string

const (
	OpEq  Op = "EQ"
	OpNe  Op = "NE"
	OpGt  Op = "GT"
	OpGte Op = "GTE"
	OpLt  Op = "LT"
	OpLte Op = "LTE"
	OpIn  Op = "IN"
	OpNin Op = "NIN"
)

// Expr is a node in the filter tree: a comparison, a boolean combination,
// or an explicit group.
type Expr interface {
	isExpr()
	String() string
}

// Cmp compares a metadata key against a literal value. For OpIn and OpNin
// the Value is a []any of literals.
type Cmp struct {
	Op    Op
	Key   string
	Value any
}

type AndExpr struct{ Left, Right Expr }

type OrExpr struct{ Left, Right Expr }

type NotExpr struct{ Inner Expr }

// Group preserves explicit parentheses so converters can reproduce the
// author's grouping.
type Group struct{ Inner Expr }

func (Cmp) isExpr()     {}
func (AndExpr) isExpr() {}
func (OrExpr) isExpr()  {}
func (NotExpr) isExpr() {}
func (Group) isExpr()   {}

func Eq(key string, v any) Expr  { return Cmp{Op: OpEq, Key: key, Value: v} }
func Ne(key string, v any) Expr  { return Cmp{Op: OpNe, Key: key, Value: v} }
func Gt(key string, v any) Expr  { return Cmp{Op: OpGt, Key: key, Value: v} }
func Gte(key string, v any) Expr { return Cmp{Op: OpGte, Key: key, Value: v} }
func Lt(key string, v any) Expr  { return Cmp{Op: OpLt, Key: key, Value: v} }
func Lte(key string, v any) Expr { return Cmp{Op: OpLte, Key: key, Value: v} }

func In(key string, vs ...any) Expr    { return Cmp{Op: OpIn, Key: key, Value: vs} }
func NotIn(key string, vs ...any) Expr { return Cmp{Op: OpNin, Key: key, Value: vs} }

func And(l, r Expr) Expr { return AndExpr{Left: l, Right: r} }
func Or(l, r Expr) Expr  { return OrExpr{Left: l, Right: r} }
func Not(x Expr) Expr    { return NotExpr{Inner: x} }

func Grouped(x Expr) Expr { return Group{Inner: x} }

func (c Cmp) String() string {
	switch c.Op {
	case OpEq:
		return c.Key + " == " + formatValue(c.Value)
	case OpNe:
		return c.Key + " != " + formatValue(c.Value)
	case OpGt:
		return c.Key + " > " + formatValue(c.Value)
	case OpGte:
		return c.Key + " >= " + formatValue(c.Value)
	case OpLt:
		return c.Key + " < " + formatValue(c.Value)
	case OpLte:
		return c.Key + " <= " + formatValue(c.Value)
	case OpIn:
		return c.Key + " in " + formatValue(c.Value)
	case OpNin:
		return c.Key + " nin " + formatValue(c.Value)
	}
	return fmt.Sprintf("<%s %s %v>", c.Op, c.Key, c.Value)
}

func (e AndExpr) String() string { return e.Left.String() + " && " + e.Right.String() }
func (e OrExpr) String() string  { return e.Left.String() + " || " + e.Right.String() }
func (e NotExpr) String() string {
	if g, ok := e.Inner.(Group); ok {
		return "!(" + g.Inner.String() + ")"
	}
	return "!(" + e.Inner.String() + ")"
}
func (g Group) String() string   { return "(" + g.Inner.String() + ")" }

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(x, "'", `\'`) + "'"
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", x)
	}
}
