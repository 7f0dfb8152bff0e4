package store

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type condOp int

const (
	opNone condOp = iota
	opExists
	opNotExists
	opEqual
	opNotEqual
	opAnd
	opOr
)

// Condition is a write precondition or query filter.
// The zero value means "no condition".
type Condition struct {
	op       condOp
	attr     string
	value    any
	children []Condition
}

// AttributeExists holds when attr is present on the item.
func AttributeExists(attr string) Condition {
	return Condition{op: opExists, attr: attr}
}

// AttributeNotExists holds when attr is absent from the item.
func AttributeNotExists(attr string) Condition {
	return Condition{op: opNotExists, attr: attr}
}

// Equal holds when attr is present and equal to value.
func Equal(attr string, value any) Condition {
	return Condition{op: opEqual, attr: attr, value: value}
}

// NotEqual holds when attr is absent or differs from value.
func NotEqual(attr string, value any) Condition {
	return Condition{op: opNotEqual, attr: attr, value: value}
}

// And combines conditions; zero conditions are ignored.
func And(conds ...Condition) Condition {
	return combine(opAnd, conds)
}

// Or combines conditions; zero conditions are ignored.
func Or(conds ...Condition) Condition {
	return combine(opOr, conds)
}

func combine(op condOp, conds []Condition) Condition {
	var kept []Condition
	for _, c := range conds {
		if !c.IsZero() {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return Condition{}
	case 1:
		return kept[0]
	}
	return Condition{op: op, children: kept}
}

// IsZero reports whether c is the empty condition.
func (c Condition) IsZero() bool {
	return c.op == opNone
}

func (c Condition) String() string {
	switch c.op {
	case opExists:
		return fmt.Sprintf("attribute_exists(%s)", c.attr)
	case opNotExists:
		return fmt.Sprintf("attribute_not_exists(%s)", c.attr)
	case opEqual:
		return fmt.Sprintf("%s = %v", c.attr, c.value)
	case opNotEqual:
		return fmt.Sprintf("%s <> %v", c.attr, c.value)
	case opAnd, opOr:
		sep := " AND "
		if c.op == opOr {
			sep = " OR "
		}
		parts := make([]string, len(c.children))
		for i, child := range c.children {
			parts[i] = "(" + child.String() + ")"
		}
		return joinStrings(parts, sep)
	}
	return ""
}

// Builder converts c into a DynamoDB expression condition.
func (c Condition) Builder() (expression.ConditionBuilder, error) {
	switch c.op {
	case opExists:
		return expression.AttributeExists(expression.Name(c.attr)), nil
	case opNotExists:
		return expression.AttributeNotExists(expression.Name(c.attr)), nil
	case opEqual:
		return expression.Equal(expression.Name(c.attr), expression.Value(c.value)), nil
	case opNotEqual:
		return expression.NotEqual(expression.Name(c.attr), expression.Value(c.value)), nil
	case opAnd, opOr:
		builders := make([]expression.ConditionBuilder, len(c.children))
		for i, child := range c.children {
			b, err := child.Builder()
			if err != nil {
				return expression.ConditionBuilder{}, err
			}
			builders[i] = b
		}
		if c.op == opAnd {
			return expression.And(builders[0], builders[1], builders[2:]...), nil
		}
		return expression.Or(builders[0], builders[1], builders[2:]...), nil
	}
	return expression.ConditionBuilder{}, errors.New("store: empty condition")
}

// Eval evaluates c against item. A nil item behaves like a missing item.
func (c Condition) Eval(item Item) (bool, error) {
	switch c.op {
	case opNone:
		return true, nil
	case opExists:
		_, ok := item[c.attr]
		return ok, nil
	case opNotExists:
		_, ok := item[c.attr]
		return !ok, nil
	case opEqual, opNotEqual:
		want, err := attributevalue.Marshal(c.value)
		if err != nil {
			return false, fmt.Errorf("marshal condition value: %w", err)
		}
		got, ok := item[c.attr]
		eq := ok && AttributeValuesEqual(got, want)
		if c.op == opEqual {
			return eq, nil
		}
		return !eq, nil
	case opAnd:
		for _, child := range c.children {
			ok, err := child.Eval(item)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case opOr:
		for _, child := range c.children {
			ok, err := child.Eval(item)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("store: unknown condition op %d", c.op)
}

// AttributeValuesEqual compares two attribute values the way DynamoDB
// comparisons do: numbers by value, sets ignoring order.
func AttributeValuesEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && numbersEqual(av.Value, bv.Value)
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberNULL:
		_, ok := b.(*types.AttributeValueMemberNULL)
		return ok
	case *types.AttributeValueMemberB:
		bv, ok := b.(*types.AttributeValueMemberB)
		return ok && bytes.Equal(av.Value, bv.Value)
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		return ok && sameSet(av.Value, bv.Value)
	case *types.AttributeValueMemberNS:
		bv, ok := b.(*types.AttributeValueMemberNS)
		return ok && sameSet(av.Value, bv.Value)
	case *types.AttributeValueMemberL:
		bv, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i := range av.Value {
			if !AttributeValuesEqual(av.Value[i], bv.Value[i]) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberM:
		bv, ok := b.(*types.AttributeValueMemberM)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for k, v := range av.Value {
			other, ok := bv.Value[k]
			if !ok || !AttributeValuesEqual(v, other) {
				return false
			}
		}
		return true
	}
	return false
}

func numbersEqual(a, b string) bool {
	x, okA := new(big.Float).SetString(a)
	y, okB := new(big.Float).SetString(b)
	if !okA || !okB {
		return a == b
	}
	return x.Cmp(y) == 0
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
