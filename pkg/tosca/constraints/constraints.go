// Package constraints implements the TOSCA property constraints.
package constraints

import (
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/primitives"
)

const (
	Equal          = "equal"
	GreaterThan    = "greater_than"
	GreaterOrEqual = "greater_or_equal"
	LessThan       = "less_than"
	LessOrEqual    = "less_or_equal"
	InRange        = "in_range"
	Length         = "length"
	MinLength      = "min_length"
	MaxLength      = "max_length"
	Pattern        = "pattern"
	ValidValues    = "valid_values"
)

// Constraint is a single constraint clause of a property definition.
type Constraint interface {
	Kind() string
	// Raw returns the operand in its canonical TOSCA form.
	Raw() interface{}
	// Initialize checks the operand against the property type.
	Initialize(typ string) error
	// Validate checks a canonical value (a string for scalars,
	// a list or map for collections).
	Validate(typ string, value interface{}) error
}

func violation(value interface{}, msg string, args ...interface{}) error {
	return errkind.Newf(errkind.ConstraintViolation, "value %v: %s", value, fmt.Sprintf(msg, args...))
}

////////////////////////////////////////////////////////////////////////////////

type comparison struct {
	kind    string
	operand string
	accept  func(r int) bool
	text    string
}

func (c *comparison) Kind() string {
	return c.kind
}

func (c *comparison) Raw() interface{} {
	return c.operand
}

func (c *comparison) Initialize(typ string) error {
	if c.kind != Equal && !primitives.IsComparable(typ) {
		return fmt.Errorf("constraint %s not applicable to type %s", c.kind, typ)
	}
	if primitives.IsSimple(typ) {
		if err := primitives.Validate(typ, c.operand); err != nil {
			return fmt.Errorf("constraint %s: %w", c.kind, err)
		}
	}
	return nil
}

func (c *comparison) Validate(typ string, value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return violation(value, "%s requires a scalar", c.kind)
	}
	if !primitives.IsSimple(typ) {
		if c.kind == Equal && s == c.operand {
			return nil
		}
		return violation(value, "must be %s %s", c.text, c.operand)
	}
	r, err := primitives.Compare(typ, s, c.operand)
	if err != nil {
		return errkind.Wrapf(errkind.TypeMismatch, err, "constraint %s", c.kind)
	}
	if !c.accept(r) {
		return violation(value, "must be %s %s", c.text, c.operand)
	}
	return nil
}

func NewEqual(v string) Constraint {
	return &comparison{Equal, v, func(r int) bool { return r == 0 }, "equal to"}
}

func NewGreaterThan(v string) Constraint {
	return &comparison{GreaterThan, v, func(r int) bool { return r > 0 }, "greater than"}
}

func NewGreaterOrEqual(v string) Constraint {
	return &comparison{GreaterOrEqual, v, func(r int) bool { return r >= 0 }, "greater or equal to"}
}

func NewLessThan(v string) Constraint {
	return &comparison{LessThan, v, func(r int) bool { return r < 0 }, "less than"}
}

func NewLessOrEqual(v string) Constraint {
	return &comparison{LessOrEqual, v, func(r int) bool { return r <= 0 }, "less or equal to"}
}

////////////////////////////////////////////////////////////////////////////////

type inRange struct {
	min string
	max string
}

func NewInRange(min, max string) Constraint {
	return &inRange{min, max}
}

func (c *inRange) Kind() string {
	return InRange
}

func (c *inRange) Raw() interface{} {
	return []interface{}{c.min, c.max}
}

func (c *inRange) Initialize(typ string) error {
	if !primitives.IsComparable(typ) {
		return fmt.Errorf("constraint %s not applicable to type %s", InRange, typ)
	}
	r, err := primitives.Compare(typ, c.min, c.max)
	if err != nil {
		return fmt.Errorf("constraint %s: %w", InRange, err)
	}
	if r > 0 {
		return fmt.Errorf("constraint %s: lower bound %s greater than upper bound %s", InRange, c.min, c.max)
	}
	return nil
}

func (c *inRange) Validate(typ string, value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return violation(value, "%s requires a scalar", InRange)
	}
	lo, err := primitives.Compare(typ, s, c.min)
	if err != nil {
		return errkind.Wrapf(errkind.TypeMismatch, err, "constraint %s", InRange)
	}
	hi, err := primitives.Compare(typ, s, c.max)
	if err != nil {
		return errkind.Wrapf(errkind.TypeMismatch, err, "constraint %s", InRange)
	}
	if lo < 0 || hi > 0 {
		return violation(value, "must be in range [%s, %s]", c.min, c.max)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

type length struct {
	kind   string
	length int
	accept func(n, l int) bool
	text   string
}

func NewLength(l int) Constraint {
	return &length{Length, l, func(n, l int) bool { return n == l }, "exactly"}
}

func NewMinLength(l int) Constraint {
	return &length{MinLength, l, func(n, l int) bool { return n >= l }, "at least"}
}

func NewMaxLength(l int) Constraint {
	return &length{MaxLength, l, func(n, l int) bool { return n <= l }, "at most"}
}

func (c *length) Kind() string {
	return c.kind
}

func (c *length) Raw() interface{} {
	return strconv.Itoa(c.length)
}

func (c *length) Initialize(typ string) error {
	if typ != primitives.String && !primitives.IsCollection(typ) {
		return fmt.Errorf("constraint %s not applicable to type %s", c.kind, typ)
	}
	if c.length < 0 {
		return fmt.Errorf("constraint %s: negative length %d", c.kind, c.length)
	}
	return nil
}

func (c *length) Validate(typ string, value interface{}) error {
	var n int
	switch t := value.(type) {
	case string:
		n = utf8.RuneCountInString(t)
	case []interface{}:
		n = len(t)
	case map[string]interface{}:
		n = len(t)
	default:
		return violation(value, "%s not applicable", c.kind)
	}
	if !c.accept(n, c.length) {
		return violation(value, "length must be %s %d", c.text, c.length)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

type pattern struct {
	expr   string
	regexp *regexp.Regexp
}

func NewPattern(expr string) (Constraint, error) {
	exp, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("constraint %s: %w", Pattern, err)
	}
	return &pattern{expr, exp}, nil
}

func (c *pattern) Kind() string {
	return Pattern
}

func (c *pattern) Raw() interface{} {
	return c.expr
}

func (c *pattern) Initialize(typ string) error {
	if typ != primitives.String {
		return fmt.Errorf("constraint %s not applicable to type %s", Pattern, typ)
	}
	return nil
}

func (c *pattern) Validate(typ string, value interface{}) error {
	s, ok := value.(string)
	if !ok || !c.regexp.MatchString(s) {
		return violation(value, "does not match pattern %q", c.expr)
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////

type validValues struct {
	values []string
}

func NewValidValues(values ...string) Constraint {
	return &validValues{values}
}

func (c *validValues) Kind() string {
	return ValidValues
}

func (c *validValues) Raw() interface{} {
	r := make([]interface{}, len(c.values))
	for i, v := range c.values {
		r[i] = v
	}
	return r
}

func (c *validValues) Initialize(typ string) error {
	if !primitives.IsSimple(typ) {
		return nil
	}
	for _, v := range c.values {
		if err := primitives.Validate(typ, v); err != nil {
			return fmt.Errorf("constraint %s: %w", ValidValues, err)
		}
	}
	return nil
}

func (c *validValues) Validate(typ string, value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return violation(value, "%s requires a scalar", ValidValues)
	}
	for _, v := range c.values {
		if v == s {
			return nil
		}
		if primitives.IsComparable(typ) && typ != primitives.String {
			if r, err := primitives.Compare(typ, s, v); err == nil && r == 0 {
				return nil
			}
		}
	}
	return violation(value, "must be one of %v", c.values)
}
