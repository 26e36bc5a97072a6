// Package properties converts raw values into typed property values
// and validates them against their property definitions.
package properties

import (
	"fmt"

	"github.com/mandelsoft/goutils/errors"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/constraints"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/primitives"
)

// Types resolves types by kind and name.
type Types interface {
	Get(kind model.Kind, name string) model.Type
}

// Convert coerces a raw value into a property value matching the
// definition and checks all constraints. Function calls are returned
// as FunctionValue without further checks. A nil value results in nil.
func Convert(raw interface{}, def *model.PropertyDefinition, types Types) (model.PropertyValue, error) {
	raw = primitives.Canonical(raw)
	if raw == nil {
		return nil, nil
	}
	if f, ok := model.FunctionOf(raw); ok {
		return f, nil
	}
	v, err := convert(raw, def, types)
	if err != nil {
		return nil, err
	}
	if err := checkConstraints(raw, def, types); err != nil {
		return nil, err
	}
	return v, nil
}

func convert(raw interface{}, def *model.PropertyDefinition, types Types) (model.PropertyValue, error) {
	if def == nil {
		return nil, errkind.ErrInvalidArgument("no property definition")
	}
	if primitives.IsSimple(def.Type) {
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch(raw, def.Type)
		}
		if err := primitives.Validate(def.Type, s); err != nil {
			return nil, errkind.Wrapf(errkind.TypeMismatch, err, "property value")
		}
		return model.NewScalarValue(s, def.Type), nil
	}

	switch def.Type {
	case primitives.List:
		l, ok := raw.([]interface{})
		if !ok {
			return nil, mismatch(raw, def.Type)
		}
		for i, e := range l {
			if err := convertEntry(e, def.EntrySchema, types); err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
		}
		return &model.ListValue{Value: l}, nil
	case primitives.Map:
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, mismatch(raw, def.Type)
		}
		for k, e := range m {
			if err := convertEntry(e, def.EntrySchema, types); err != nil {
				return nil, errors.Wrapf(err, "entry %q", k)
			}
		}
		return &model.ComplexValue{Value: m}, nil
	case primitives.Range:
		l, ok := raw.([]interface{})
		if !ok {
			return nil, mismatch(raw, def.Type)
		}
		bounds := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, mismatch(raw, def.Type)
			}
			bounds = append(bounds, s)
		}
		if err := primitives.ValidateRange(bounds); err != nil {
			return nil, errkind.Wrapf(errkind.TypeMismatch, err, "property value")
		}
		return &model.ListValue{Value: l}, nil
	}

	dt, err := dataType(def.Type, types)
	if err != nil {
		return nil, err
	}
	if dt.Primitive != "" {
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch(raw, def.Type)
		}
		if err := primitives.Validate(dt.Primitive, s); err != nil {
			return nil, errkind.Wrapf(errkind.TypeMismatch, err, "property value")
		}
		if err := validate(s, dt.Primitive, dt.Constraints); err != nil {
			return nil, err
		}
		return model.NewScalarValue(s, dt.Primitive), nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, mismatch(raw, def.Type)
	}
	// Complex values are kept as given. Their entries are not checked
	// against the property definitions of the data type.
	return &model.ComplexValue{Value: m}, nil
}

func convertEntry(raw interface{}, schema *model.PropertyDefinition, types Types) error {
	if schema == nil || raw == nil {
		return nil
	}
	if _, err := convert(raw, schema, types); err != nil {
		return err
	}
	return checkConstraints(raw, schema, types)
}

func dataType(name string, types Types) (*model.DataType, error) {
	var t model.Type
	if types != nil {
		t = types.Get(model.DataKind, name)
	}
	dt, ok := t.(*model.DataType)
	if !ok || dt == nil {
		return nil, errkind.New(errkind.DataTypeNotFound, "data type", name)
	}
	return dt, nil
}

func mismatch(raw interface{}, typ string) error {
	return errkind.Newf(errkind.TypeMismatch, "value %v does not match type %s", raw, typ)
}

// ValueType returns the primitive type constraints of the definition
// are validated against.
func ValueType(def *model.PropertyDefinition, types Types) string {
	if primitives.IsPrimitive(def.Type) {
		return def.Type
	}
	if dt, err := dataType(def.Type, types); err == nil && dt.Primitive != "" {
		return dt.Primitive
	}
	return def.Type
}

func checkConstraints(raw interface{}, def *model.PropertyDefinition, types Types) error {
	if len(def.Constraints) == 0 {
		return nil
	}
	return validate(raw, ValueType(def, types), def.Constraints)
}

func validate(raw interface{}, typ string, list []model.Constraint) error {
	compiled, err := Compile(list)
	if err != nil {
		return errkind.Wrapf(errkind.InvalidArgument, err, "invalid constraints")
	}
	return compiled.Validate(typ, raw)
}

// Compile creates the validators for constraints in their data form.
func Compile(list []model.Constraint) (constraints.List, error) {
	var result constraints.List
	for _, c := range list {
		e, err := constraints.Parse(c.Kind, c.Operand)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// Default returns the default value of a definition as property value.
func Default(def *model.PropertyDefinition, types Types) model.PropertyValue {
	if def == nil || def.Default == nil {
		return nil
	}
	v, err := convert(primitives.Canonical(def.Default), def, types)
	if err != nil {
		return model.ValueOf(primitives.Canonical(def.Default))
	}
	return v
}

// Validate checks an existing property value against a definition.
// Function values are accepted.
func Validate(v model.PropertyValue, def *model.PropertyDefinition, types Types) error {
	if v == nil {
		return nil
	}
	_, err := Convert(v.Raw(), def, types)
	return err
}

// CheckDefinition validates a property definition: its type must be
// known, collections require an entry schema, constraints must be
// unique per kind and applicable, and the default must be valid.
func CheckDefinition(def *model.PropertyDefinition, types Types) error {
	if def.Type == "" {
		return errkind.Newf(errkind.InvalidArgument, "property type must be defined")
	}
	if !primitives.IsPrimitive(def.Type) {
		if _, err := dataType(def.Type, types); err != nil {
			return err
		}
	}
	if primitives.IsCollection(def.Type) {
		if def.EntrySchema == nil {
			return errkind.Newf(errkind.InvalidArgument, "type %s must define entry schema", def.Type)
		}
		if err := CheckDefinition(def.EntrySchema, types); err != nil {
			return errors.Wrapf(err, "entry schema")
		}
	}
	if len(def.Constraints) > 0 {
		compiled, err := Compile(def.Constraints)
		if err != nil {
			return errkind.Wrapf(errkind.InvalidArgument, err, "invalid constraints")
		}
		if err := compiled.Check(ValueType(def, types)); err != nil {
			return errkind.Wrapf(errkind.InvalidArgument, err, "invalid constraints")
		}
	}
	if def.Default != nil {
		if _, err := Convert(def.Default, def, types); err != nil {
			return fmt.Errorf("invalid default value: %w", err)
		}
	}
	return nil
}
