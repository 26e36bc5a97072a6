package constraints

import (
	"fmt"
	"strconv"

	"github.com/mandelsoft/goutils/errors"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/primitives"
)

// Parse creates a constraint from its TOSCA representation,
// a constraint kind and its canonical operand.
func Parse(kind string, raw interface{}) (Constraint, error) {
	raw = primitives.Canonical(raw)
	switch kind {
	case Equal, GreaterThan, GreaterOrEqual, LessThan, LessOrEqual:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("constraint %s requires a scalar operand", kind)
		}
		switch kind {
		case Equal:
			return NewEqual(s), nil
		case GreaterThan:
			return NewGreaterThan(s), nil
		case GreaterOrEqual:
			return NewGreaterOrEqual(s), nil
		case LessThan:
			return NewLessThan(s), nil
		default:
			return NewLessOrEqual(s), nil
		}
	case InRange:
		l, ok := raw.([]interface{})
		if !ok || len(l) != 2 {
			return nil, fmt.Errorf("constraint %s requires a list of two bounds", kind)
		}
		min, ok1 := l[0].(string)
		max, ok2 := l[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("constraint %s requires scalar bounds", kind)
		}
		return NewInRange(min, max), nil
	case Length, MinLength, MaxLength:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("constraint %s requires an integer operand", kind)
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("constraint %s requires an integer operand: %q", kind, s)
		}
		switch kind {
		case Length:
			return NewLength(n), nil
		case MinLength:
			return NewMinLength(n), nil
		default:
			return NewMaxLength(n), nil
		}
	case Pattern:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("constraint %s requires a scalar operand", kind)
		}
		return NewPattern(s)
	case ValidValues:
		l, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("constraint %s requires a list operand", kind)
		}
		values := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("constraint %s requires scalar values", kind)
			}
			values = append(values, s)
		}
		return NewValidValues(values...), nil
	}
	return nil, fmt.Errorf("unknown constraint %q", kind)
}

// List is the compiled constraint list of a property definition.
type List []Constraint

// Check verifies that every constraint kind appears at most once
// and that all operands match the given type.
func (l List) Check(typ string) error {
	seen := map[string]bool{}
	list := errors.ErrListf("constraints")
	for _, c := range l {
		if seen[c.Kind()] {
			list.Add(fmt.Errorf("duplicate constraint %s", c.Kind()))
			continue
		}
		seen[c.Kind()] = true
		list.Add(c.Initialize(typ))
	}
	return list.Result()
}

// Validate checks a canonical value against all constraints.
func (l List) Validate(typ string, value interface{}) error {
	for _, c := range l {
		if err := c.Validate(typ, value); err != nil {
			return err
		}
	}
	return nil
}

func (l List) Raw() []interface{} {
	if len(l) == 0 {
		return nil
	}
	r := make([]interface{}, len(l))
	for i, c := range l {
		r[i] = map[string]interface{}{c.Kind(): c.Raw()}
	}
	return r
}

func ParseList(raw []interface{}) (List, error) {
	var l List
	for _, e := range raw {
		m, ok := primitives.Canonical(e).(map[string]interface{})
		if !ok || len(m) != 1 {
			return nil, fmt.Errorf("constraint must be a map with a single key")
		}
		for k, v := range m {
			c, err := Parse(k, v)
			if err != nil {
				return nil, err
			}
			l = append(l, c)
		}
	}
	return l, nil
}
