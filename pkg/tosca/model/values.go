package model

import (
	"fmt"
)

const (
	FunctionGetInput         = "get_input"
	FunctionGetSecret        = "get_secret"
	FunctionGetProperty      = "get_property"
	FunctionGetAttribute     = "get_attribute"
	FunctionGetOperationOut  = "get_operation_output"
	FunctionConcat           = "concat"
	FunctionGetInputArtifact = "get_input_artifact"

	KeywordSelf   = "SELF"
	KeywordSource = "SOURCE"
	KeywordTarget = "TARGET"
	KeywordHost   = "HOST"
)

var functions = map[string]bool{
	FunctionGetInput:        true,
	FunctionGetSecret:       true,
	FunctionGetProperty:     true,
	FunctionGetAttribute:    true,
	FunctionGetOperationOut: true,
	FunctionConcat:          true,
}

// IsFunction reports whether the name is a known value function.
func IsFunction(name string) bool {
	return functions[name]
}

// PropertyValue is the value of a template property.
type PropertyValue interface {
	// Raw returns the canonical raw form (strings, lists and maps).
	Raw() interface{}
}

// ScalarValue is a single value in its string form. Type is the
// primitive type the value was validated against, if known.
type ScalarValue struct {
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

func NewScalarValue(v, typ string) *ScalarValue {
	return &ScalarValue{Value: v, Type: typ}
}

func (v *ScalarValue) Raw() interface{} {
	return v.Value
}

type ListValue struct {
	Value []interface{} `json:"value"`
}

func (v *ListValue) Raw() interface{} {
	return v.Value
}

type ComplexValue struct {
	Value map[string]interface{} `json:"value"`
}

func (v *ComplexValue) Raw() interface{} {
	return v.Value
}

// FunctionValue is a TOSCA function reference like get_input.
type FunctionValue struct {
	Function   string   `json:"function"`
	Parameters []string `json:"parameters"`
}

func NewFunctionValue(f string, params ...string) *FunctionValue {
	return &FunctionValue{Function: f, Parameters: params}
}

func (v *FunctionValue) Raw() interface{} {
	if len(v.Parameters) == 1 && v.Function != FunctionGetAttribute && v.Function != FunctionGetProperty {
		return map[string]interface{}{v.Function: v.Parameters[0]}
	}
	params := make([]interface{}, len(v.Parameters))
	for i, p := range v.Parameters {
		params[i] = p
	}
	return map[string]interface{}{v.Function: params}
}

// IsFunctionOf reports whether the value is a call of the given function.
func IsFunctionOf(v PropertyValue, name string) bool {
	f, ok := v.(*FunctionValue)
	return ok && f.Function == name
}

// FunctionOf detects a function call in a canonical raw value.
func FunctionOf(raw interface{}) (*FunctionValue, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok || len(m) != 1 {
		return nil, false
	}
	for k, p := range m {
		if !IsFunction(k) && k != FunctionGetInputArtifact {
			return nil, false
		}
		switch t := p.(type) {
		case string:
			return NewFunctionValue(k, t), true
		case []interface{}:
			params := make([]string, 0, len(t))
			for _, e := range t {
				params = append(params, fmt.Sprint(e))
			}
			return NewFunctionValue(k, params...), true
		}
	}
	return nil, false
}

// ValueOf wraps a canonical raw value without type information.
func ValueOf(raw interface{}) PropertyValue {
	if f, ok := FunctionOf(raw); ok {
		return f
	}
	switch t := raw.(type) {
	case nil:
		return nil
	case []interface{}:
		return &ListValue{t}
	case map[string]interface{}:
		return &ComplexValue{t}
	default:
		return &ScalarValue{Value: fmt.Sprint(t)}
	}
}

// RawOf returns the raw form of a possibly nil value.
func RawOf(v PropertyValue) interface{} {
	if v == nil {
		return nil
	}
	return v.Raw()
}
