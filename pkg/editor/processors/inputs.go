package processors

import (
	"github.com/mandelsoft/goutils/errors"
	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/toscaeditor/pkg/archives"
	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/properties"
)

func init() {
	Register(DefaultRegistry, AddInput)
	Register(DefaultRegistry, DeleteInput)
	Register(DefaultRegistry, RenameInput)
	Register(DefaultRegistry, UpdateInputDefinition)
	Register(DefaultRegistry, UpdateInputPreconfiguredValue)
}

func (e *Edition) input(name string) (*model.PropertyDefinition, error) {
	d := e.Topology.Inputs[name]
	if d == nil {
		return nil, errkind.ErrNotFound("input", name)
	}
	return d, nil
}

func AddInput(e *Edition, op *operations.AddInput) error {
	if !model.GroupNamePattern.MatchString(op.InputName) {
		return errkind.ErrInvalidName("input", op.InputName)
	}
	if e.Topology.Inputs[op.InputName] != nil {
		return errkind.ErrAlreadyExists("input", op.InputName)
	}
	if op.PropertyDefinition == nil {
		return errkind.ErrInvalidArgument("input %q requires a property definition", op.InputName)
	}
	if err := properties.CheckDefinition(op.PropertyDefinition, e.Types()); err != nil {
		return errors.Wrapf(err, "input %q", op.InputName)
	}
	e.Topology.Inputs[op.InputName] = op.PropertyDefinition
	return nil
}

// DeleteInput removes an input. Properties bound to it get back the
// default of their definition.
func DeleteInput(e *Edition, op *operations.DeleteInput) error {
	if _, err := e.input(op.InputName); err != nil {
		return err
	}
	for _, s := range e.inputSlots(op.InputName) {
		s.reset(e.Types())
	}
	delete(e.Topology.Inputs, op.InputName)
	return e.updatePreconfigured(func(values map[string]interface{}) {
		delete(values, op.InputName)
	})
}

func RenameInput(e *Edition, op *operations.RenameInput) error {
	def, err := e.input(op.InputName)
	if err != nil {
		return err
	}
	if op.NewInputName == op.InputName {
		return nil
	}
	if !model.GroupNamePattern.MatchString(op.NewInputName) {
		return errkind.ErrInvalidName("input", op.NewInputName)
	}
	if e.Topology.Inputs[op.NewInputName] != nil {
		return errkind.ErrAlreadyExists("input", op.NewInputName)
	}
	for _, s := range e.inputSlots(op.InputName) {
		s.props[s.name] = model.NewFunctionValue(model.FunctionGetInput, op.NewInputName)
	}
	delete(e.Topology.Inputs, op.InputName)
	e.Topology.Inputs[op.NewInputName] = def
	return e.updatePreconfigured(func(values map[string]interface{}) {
		if v, ok := values[op.InputName]; ok {
			delete(values, op.InputName)
			values[op.NewInputName] = v
		}
	})
}

// UpdateInputDefinition replaces the definition of an input. Bound
// properties no longer compatible with the new definition are reset
// to their defaults.
func UpdateInputDefinition(e *Edition, op *operations.UpdateInputDefinition) error {
	if _, err := e.input(op.InputName); err != nil {
		return err
	}
	if op.PropertyDefinition == nil {
		return errkind.ErrInvalidArgument("input %q requires a property definition", op.InputName)
	}
	if err := properties.CheckDefinition(op.PropertyDefinition, e.Types()); err != nil {
		return errors.Wrapf(err, "input %q", op.InputName)
	}
	for _, s := range e.inputSlots(op.InputName) {
		if !op.PropertyDefinition.IsCompatible(s.def) {
			log.Info("property {{property}} no longer bound to input {{input}}", "property", s.name, "input", op.InputName)
			s.reset(e.Types())
		}
	}
	e.Topology.Inputs[op.InputName] = op.PropertyDefinition
	return e.updatePreconfigured(func(values map[string]interface{}) {
		if v, ok := values[op.InputName]; ok {
			if _, err := properties.Convert(v, op.PropertyDefinition, e.Types()); err != nil {
				delete(values, op.InputName)
			}
		}
	})
}

// UpdateInputPreconfiguredValue stores a deployment value for an
// input in the inputs file of the archive. A nil value removes it.
func UpdateInputPreconfiguredValue(e *Edition, op *operations.UpdateInputPreconfiguredValue) error {
	def, err := e.input(op.InputName)
	if err != nil {
		return err
	}
	var raw interface{}
	if op.Value != nil {
		v, err := properties.Convert(op.Value, def, e.Types())
		if err != nil {
			return errors.Wrapf(err, "input %q", op.InputName)
		}
		raw = model.RawOf(v)
	}
	return e.updatePreconfigured(func(values map[string]interface{}) {
		if raw == nil {
			delete(values, op.InputName)
		} else {
			values[op.InputName] = raw
		}
	})
}

// Preconfigured returns the preconfigured input values of the archive.
func (e *Edition) Preconfigured() (map[string]interface{}, error) {
	values := map[string]interface{}{}
	if e.Files == nil || !e.Files.Exists(archives.InputsFile) {
		return values, nil
	}
	data, err := e.Files.Read(archives.InputsFile)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrapf(err, "invalid inputs file %s", archives.InputsFile)
	}
	if values == nil {
		values = map[string]interface{}{}
	}
	return values, nil
}

func (e *Edition) updatePreconfigured(f func(values map[string]interface{})) error {
	if e.Files == nil {
		return nil
	}
	values, err := e.Preconfigured()
	if err != nil {
		return err
	}
	l := len(values)
	f(values)
	switch {
	case len(values) > 0:
		data, err := yaml.Marshal(values)
		if err != nil {
			return err
		}
		return e.Files.Write(archives.InputsFile, data)
	case l > 0:
		return e.Files.Delete(archives.InputsFile)
	}
	return nil
}
