package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"github.com/jacentio/docbind/filter"
)

// FilterExpression translates where into a scan filter. idAttr is an
// attribute present on every item; it anchors the constant true and false
// conditions that empty AND and OR groups reduce to.
func FilterExpression(where filter.Expr, idAttr string) (expression.Expression, error) {
	cond, err := condition(where, idAttr)
	if err != nil {
		return expression.Expression{}, err
	}
	expr, err := expression.NewBuilder().WithFilter(cond).Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("build filter expression: %w", err)
	}
	return expr, nil
}

func condition(e filter.Expr, idAttr string) (expression.ConditionBuilder, error) {
	switch x := e.(type) {
	case filter.Comparison:
		name := expression.Name(x.Field)
		value := expression.Value(filter.Normalize(x.Value))
		switch x.Op {
		case filter.OpEq:
			return name.Equal(value), nil
		case filter.OpNe:
			// A missing attribute never matches.
			return expression.And(name.AttributeExists(), name.NotEqual(value)), nil
		case filter.OpLt:
			return name.LessThan(value), nil
		case filter.OpLe:
			return name.LessThanEqual(value), nil
		case filter.OpGt:
			return name.GreaterThan(value), nil
		case filter.OpGe:
			return name.GreaterThanEqual(value), nil
		}
		return expression.ConditionBuilder{}, fmt.Errorf("dynamo: unsupported operator %v", x.Op)

	case filter.Logical:
		if len(x.Exprs) == 0 {
			if x.Any {
				return expression.Name(idAttr).AttributeNotExists(), nil
			}
			return expression.Name(idAttr).AttributeExists(), nil
		}
		conds := make([]expression.ConditionBuilder, 0, len(x.Exprs))
		for _, sub := range x.Exprs {
			c, err := condition(sub, idAttr)
			if err != nil {
				return expression.ConditionBuilder{}, err
			}
			conds = append(conds, c)
		}
		if len(conds) == 1 {
			return conds[0], nil
		}
		if x.Any {
			return expression.Or(conds[0], conds[1], conds[2:]...), nil
		}
		return expression.And(conds[0], conds[1], conds[2:]...), nil

	case filter.Negation:
		c, err := condition(x.Expr, idAttr)
		if err != nil {
			return expression.ConditionBuilder{}, err
		}
		return expression.Not(c), nil
	}
	return expression.ConditionBuilder{}, fmt.Errorf("dynamo: unsupported expression %T", e)
}
