// Package filter describes boolean predicates over record fields.
//
// A predicate is built once by application code and translated by each driver:
// to a SQL WHERE clause, to a DynamoDB condition expression, or evaluated in
// process against decoded documents with Match.
package filter

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Op is a comparison operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// String returns the SQL spelling of the operator.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Expr is a predicate node. The concrete types are Comparison, Logical and Negation.
type Expr interface {
	isExpr()
}

// Comparison compares a document field (dotted path for nested fields) with a value.
type Comparison struct {
	Field string
	Op    Op
	Value any
}

// Logical joins expressions with AND (Any == false) or OR (Any == true).
type Logical struct {
	Any   bool
	Exprs []Expr
}

// Negation inverts an expression.
type Negation struct {
	Expr Expr
}

func (Comparison) isExpr() {}
func (Logical) isExpr()    {}
func (Negation) isExpr()   {}

func Eq(field string, value any) Expr { return Comparison{Field: field, Op: OpEq, Value: value} }
func Ne(field string, value any) Expr { return Comparison{Field: field, Op: OpNe, Value: value} }
func Lt(field string, value any) Expr { return Comparison{Field: field, Op: OpLt, Value: value} }
func Le(field string, value any) Expr { return Comparison{Field: field, Op: OpLe, Value: value} }
func Gt(field string, value any) Expr { return Comparison{Field: field, Op: OpGt, Value: value} }
func Ge(field string, value any) Expr { return Comparison{Field: field, Op: OpGe, Value: value} }

// And matches when every expression matches.
func And(exprs ...Expr) Expr { return Logical{Exprs: exprs} }

// Or matches when at least one expression matches.
func Or(exprs ...Expr) Expr { return Logical{Any: true, Exprs: exprs} }

// Not inverts e.
func Not(e Expr) Expr { return Negation{Expr: e} }

// Match evaluates e against a decoded JSON document.
// A missing field never satisfies a comparison, including OpNe.
func Match(e Expr, doc map[string]any) bool {
	switch x := e.(type) {
	case Comparison:
		v, ok := lookup(doc, x.Field)
		if !ok {
			return false
		}
		return compare(v, x.Op, Normalize(x.Value))
	case Logical:
		if x.Any {
			for _, sub := range x.Exprs {
				if Match(sub, doc) {
					return true
				}
			}
			return false
		}
		for _, sub := range x.Exprs {
			if !Match(sub, doc) {
				return false
			}
		}
		return true
	case Negation:
		return !Match(x.Expr, doc)
	}
	return false
}

// Param is a named query parameter produced by SQL.
type Param struct {
	Name  string
	Value any
}

// SQL renders e as a WHERE clause body against alias (for example "c"),
// binding every value as a parameter named @p0, @p1, ...
func SQL(e Expr, alias string) (string, []Param) {
	var params []Param
	clause := renderSQL(e, alias, &params)
	return clause, params
}

func renderSQL(e Expr, alias string, params *[]Param) string {
	switch x := e.(type) {
	case Comparison:
		name := fmt.Sprintf("@p%d", len(*params))
		*params = append(*params, Param{Name: name, Value: Normalize(x.Value)})
		return fmt.Sprintf("%s %s %s", fieldRef(alias, x.Field), x.Op, name)
	case Logical:
		if len(x.Exprs) == 0 {
			if x.Any {
				return "false"
			}
			return "true"
		}
		parts := make([]string, 0, len(x.Exprs))
		for _, sub := range x.Exprs {
			parts = append(parts, renderSQL(sub, alias, params))
		}
		if len(parts) == 1 {
			return parts[0]
		}
		sep := " AND "
		if x.Any {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")"
	case Negation:
		return "NOT (" + renderSQL(x.Expr, alias, params) + ")"
	}
	return "true"
}

func fieldRef(alias, field string) string {
	var b strings.Builder
	b.WriteString(alias)
	for _, part := range strings.Split(field, ".") {
		b.WriteString(`["`)
		b.WriteString(strings.ReplaceAll(part, `"`, `\"`))
		b.WriteString(`"]`)
	}
	return b.String()
}

// Normalize converts a Go value into the form it takes after a JSON round
// trip: numbers become float64 and times become RFC 3339 strings.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func compare(a any, op Op, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return op == OpNe
		}
		return ordered(strings.Compare(av, bv), op)
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return op == OpNe
		}
		switch {
		case av < bv:
			return ordered(-1, op)
		case av > bv:
			return ordered(1, op)
		}
		return ordered(0, op)
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return op == OpNe
		}
		switch op {
		case OpEq:
			return av == bv
		case OpNe:
			return av != bv
		}
		return false
	case nil:
		switch op {
		case OpEq:
			return b == nil
		case OpNe:
			return b != nil
		}
		return false
	}
	return false
}

func ordered(cmp int, op Op) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	}
	return false
}
