package processors

import (
	"github.com/mandelsoft/goutils/errors"
	"github.com/mandelsoft/goutils/maputils"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/properties"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

func (e *Edition) nodeType(n *model.NodeTemplate) (*model.NodeType, error) {
	return typectx.Require[*model.NodeType](e.Context, n.Type)
}

func (e *Edition) capability(n *model.NodeTemplate, name string) (*model.Capability, *model.CapabilityType, error) {
	c := n.Capabilities[name]
	if c == nil {
		return nil, nil, errkind.ErrNotFound("capability", n.Name+"."+name)
	}
	ct, err := typectx.Require[*model.CapabilityType](e.Context, c.Type)
	if err != nil {
		return nil, nil, err
	}
	if c.Properties == nil {
		c.Properties = map[string]model.PropertyValue{}
	}
	return c, ct, nil
}

func (e *Edition) relationship(n *model.NodeTemplate, name string) (*model.RelationshipTemplate, error) {
	r := n.Relationships.Get(name)
	if r == nil {
		return nil, errkind.ErrNotFound("relationship", n.Name+"."+name)
	}
	return r, nil
}

// setProperty converts and validates a raw value for a property
// definition. Function values are only checked for their references.
func (e *Edition) setProperty(props map[string]model.PropertyValue, defs map[string]*model.PropertyDefinition, name string, raw interface{}) error {
	def := defs[name]
	if def == nil {
		return errkind.ErrNotFound("property", name)
	}
	v, err := properties.Convert(raw, def, e.Types())
	if err != nil {
		return errors.Wrapf(err, "property %q", name)
	}
	if f, ok := v.(*model.FunctionValue); ok {
		if err := e.checkFunction(f); err != nil {
			return err
		}
	}
	props[name] = v
	return nil
}

func (e *Edition) checkFunction(f *model.FunctionValue) error {
	switch f.Function {
	case model.FunctionGetInput:
		if len(f.Parameters) != 1 {
			return errkind.ErrInvalidArgument("%s requires a single input name", f.Function)
		}
		if e.Topology.Inputs[f.Parameters[0]] == nil {
			return errkind.ErrNotFound("input", f.Parameters[0])
		}
	case model.FunctionGetSecret:
		if len(f.Parameters) == 0 || f.Parameters[0] == "" {
			return errkind.ErrInvalidArgument("%s requires a secret path", f.Function)
		}
	case model.FunctionGetProperty, model.FunctionGetAttribute:
		if len(f.Parameters) < 2 {
			return errkind.ErrInvalidArgument("%s requires an entity and a name", f.Function)
		}
		switch ref := f.Parameters[0]; ref {
		case model.KeywordSelf, model.KeywordSource, model.KeywordTarget, model.KeywordHost:
		default:
			if !e.Topology.NodeTemplates.Has(ref) {
				return errkind.ErrNotFound("node template", ref)
			}
		}
	}
	return nil
}

// slot is a template property together with its definition.
type slot struct {
	props map[string]model.PropertyValue
	name  string
	def   *model.PropertyDefinition
}

func (s slot) value() model.PropertyValue {
	return s.props[s.name]
}

func (s slot) reset(types properties.Types) {
	s.props[s.name] = properties.Default(s.def, types)
}

// slots lists the properties of all node, capability and
// relationship templates with known definitions.
func (e *Edition) slots() []slot {
	var list []slot
	add := func(props map[string]model.PropertyValue, defs map[string]*model.PropertyDefinition) {
		for _, k := range maputils.OrderedKeys(props) {
			if d := defs[k]; d != nil {
				list = append(list, slot{props: props, name: k, def: d})
			}
		}
	}
	for _, n := range e.Topology.NodeTemplates.List() {
		if nt := typectx.Lookup[*model.NodeType](e.Context, n.Type); nt != nil {
			add(n.Properties, nt.Properties)
		}
		for _, c := range maputils.OrderedKeys(n.Capabilities) {
			if ct := typectx.Lookup[*model.CapabilityType](e.Context, n.Capabilities[c].Type); ct != nil {
				add(n.Capabilities[c].Properties, ct.Properties)
			}
		}
		for _, r := range n.Relationships.List() {
			if rt := typectx.Lookup[*model.RelationshipType](e.Context, r.Type); rt != nil {
				add(r.Properties, rt.Properties)
			}
		}
	}
	return list
}

// inputSlots lists the properties bound to an input.
func (e *Edition) inputSlots(input string) []slot {
	var list []slot
	for _, s := range e.slots() {
		if f, ok := s.value().(*model.FunctionValue); ok && f.Function == model.FunctionGetInput && len(f.Parameters) == 1 && f.Parameters[0] == input {
			list = append(list, s)
		}
	}
	return list
}
