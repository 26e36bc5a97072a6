package parser

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/constraints"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/primitives"
)

func (s *state) typeSection(n *yaml.Node, kind model.Kind) {
	for _, e := range s.entries(n, string(kind)+" types") {
		if s.root.Type(kind, e.key) != nil {
			s.error(ValidationError, e.node, e.key, "%s type %q defined twice", kind, e.key)
			continue
		}
		t := model.NewType(kind)
		t.Base().ElementId = e.key
		s.typeLocs[t] = s.loc(e.node)
		for _, f := range s.entries(e.node, e.key) {
			if !s.typeBase(t.Base(), f) && !s.typeMember(t, f) {
				s.unrecognized(f, e.key)
			}
		}
		s.root.SetType(t)
	}
}

func (s *state) typeBase(b *model.TypeBase, e entry) bool {
	switch e.key {
	case "derived_from":
		if p := s.scalar(e.node, e.key); p != "" {
			b.DerivedFrom = []string{p}
		}
	case "description":
		b.Description = s.scalar(e.node, e.key)
	case "abstract":
		b.Abstract = s.boolean(e.node, e.key)
	case "tags", "metadata":
		b.Tags = s.stringMap(e.node, e.key)
	case "version":
	default:
		return false
	}
	return true
}

func (s *state) typeMember(t model.Type, e entry) bool {
	context := t.Base().ElementId + "." + e.key
	switch typ := t.(type) {
	case *model.NodeType:
		switch e.key {
		case "properties":
			typ.Properties = s.propertyDefinitions(e.node, context)
		case "attributes":
			typ.Attributes = s.attributeDefinitions(e.node, context)
		case "capabilities":
			typ.Capabilities = s.capabilityDefinitions(e.node, context)
		case "requirements":
			typ.Requirements = s.requirementDefinitions(e.node, context)
		case "interfaces":
			typ.Interfaces = s.interfaces(e.node, context)
		case "artifacts":
			typ.Artifacts = s.artifacts(e.node, context)
		default:
			return false
		}
	case *model.RelationshipType:
		switch e.key {
		case "properties":
			typ.Properties = s.propertyDefinitions(e.node, context)
		case "attributes":
			typ.Attributes = s.attributeDefinitions(e.node, context)
		case "interfaces":
			typ.Interfaces = s.interfaces(e.node, context)
		case "valid_target_types":
			typ.ValidTargets = s.stringList(e.node, context)
		case "valid_source_types":
			typ.ValidSources = s.stringList(e.node, context)
		default:
			return false
		}
	case *model.CapabilityType:
		switch e.key {
		case "properties":
			typ.Properties = s.propertyDefinitions(e.node, context)
		case "attributes":
			typ.Attributes = s.attributeDefinitions(e.node, context)
		case "valid_source_types":
			typ.ValidSources = s.stringList(e.node, context)
		default:
			return false
		}
	case *model.DataType:
		switch e.key {
		case "properties":
			typ.Properties = s.propertyDefinitions(e.node, context)
		case "constraints":
			typ.Constraints = s.constraints(e.node, context)
		default:
			return false
		}
	case *model.PolicyType:
		switch e.key {
		case "properties":
			typ.Properties = s.propertyDefinitions(e.node, context)
		case "targets":
			typ.Targets = s.stringList(e.node, context)
		default:
			return false
		}
	case *model.ArtifactType:
		switch e.key {
		case "mime_type":
			typ.MimeType = s.scalar(e.node, context)
		case "file_ext":
			typ.FileExt = s.stringList(e.node, context)
		default:
			return false
		}
	default:
		return false
	}
	return true
}

////////////////////////////////////////////////////////////////////////////////

func (s *state) propertyDefinitions(n *yaml.Node, context string) map[string]*model.PropertyDefinition {
	defs := map[string]*model.PropertyDefinition{}
	for _, e := range s.entries(n, context) {
		d := s.propertyDefinition(e.node, context+"."+e.key)
		if d != nil {
			defs[e.key] = d
			s.definitions = append(s.definitions, definition{name: context + "." + e.key, def: d, loc: s.loc(e.node)})
		}
	}
	return defs
}

func (s *state) propertyDefinition(n *yaml.Node, context string) *model.PropertyDefinition {
	d := &model.PropertyDefinition{Required: true}
	for _, e := range s.entries(n, context) {
		switch e.key {
		case "type":
			d.Type = s.scalar(e.node, context)
		case "description":
			d.Description = s.scalar(e.node, context)
		case "required":
			d.Required = s.boolean(e.node, context)
		case "default", "value":
			d.Default = s.raw(e.node, context)
		case "constraints":
			d.Constraints = s.constraints(e.node, context)
		case "entry_schema":
			if r := resolve(e.node); r != nil && r.Kind == yaml.ScalarNode {
				d.EntrySchema = &model.PropertyDefinition{Type: r.Value, Required: true}
			} else {
				d.EntrySchema = s.propertyDefinition(e.node, context+".entry_schema")
			}
		case "password":
			d.Password = s.boolean(e.node, context)
		case "status":
		default:
			s.unrecognized(e, context)
		}
	}
	return d
}

// constraints parses the constraint clauses. Malformed clauses are
// reported and dropped.
func (s *state) constraints(n *yaml.Node, context string) []model.Constraint {
	var list []model.Constraint
	for _, c := range s.sequence(n, context) {
		e, ok := s.single(c, context)
		if !ok {
			continue
		}
		op := s.raw(e.node, context)
		if _, err := constraints.Parse(e.key, op); err != nil {
			s.error(InvalidConstraint, c, context, "%s", err)
			continue
		}
		list = append(list, model.Constraint{Kind: e.key, Operand: op})
	}
	return list
}

func (s *state) attributeDefinitions(n *yaml.Node, context string) map[string]*model.AttributeDefinition {
	defs := map[string]*model.AttributeDefinition{}
	for _, e := range s.entries(n, context) {
		d := &model.AttributeDefinition{}
		for _, f := range s.entries(e.node, context+"."+e.key) {
			switch f.key {
			case "type":
				d.Type = s.scalar(f.node, f.key)
			case "description":
				d.Description = s.scalar(f.node, f.key)
			case "default":
				d.Default = s.raw(f.node, f.key)
			case "status":
			default:
				s.unrecognized(f, context+"."+e.key)
			}
		}
		defs[e.key] = d
	}
	return defs
}

// occurrences parses [lower, upper] bounds, UNBOUNDED for the upper one.
func (s *state) occurrences(n *yaml.Node, context string, lower, upper *int) {
	list := s.stringList(n, context)
	if len(list) != 2 {
		s.error(SyntaxError, n, context, "occurrences require a lower and an upper bound")
		return
	}
	l, err := strconv.Atoi(list[0])
	if err != nil {
		s.error(SyntaxError, n, context, "invalid lower bound %q", list[0])
		return
	}
	u := model.Unbounded
	if list[1] != primitives.Unbounded {
		u, err = strconv.Atoi(list[1])
		if err != nil {
			s.error(SyntaxError, n, context, "invalid upper bound %q", list[1])
			return
		}
	}
	if l > u {
		s.error(ValidationError, n, context, "lower bound %d greater than upper bound %d", l, u)
		return
	}
	*lower, *upper = l, u
}

func (s *state) capabilityDefinitions(n *yaml.Node, context string) []*model.CapabilityDefinition {
	var list []*model.CapabilityDefinition
	for _, e := range s.entries(n, context) {
		c := &model.CapabilityDefinition{Id: e.key, LowerBound: 0, UpperBound: model.Unbounded}
		if r := resolve(e.node); r != nil && r.Kind == yaml.ScalarNode {
			c.Type = r.Value
		} else {
			ctx := context + "." + e.key
			for _, f := range s.entries(e.node, ctx) {
				switch f.key {
				case "type":
					c.Type = s.scalar(f.node, ctx)
				case "description":
					c.Description = s.scalar(f.node, ctx)
				case "occurrences":
					s.occurrences(f.node, ctx, &c.LowerBound, &c.UpperBound)
				case "valid_source_types":
					c.ValidSources = s.stringList(f.node, ctx)
				case "properties":
					if m, ok := s.raw(f.node, ctx).(map[string]interface{}); ok {
						c.Properties = m
					}
				default:
					s.unrecognized(f, ctx)
				}
			}
		}
		if c.Type == "" {
			s.error(ValidationError, e.node, context, "capability %q requires a type", e.key)
		}
		list = append(list, c)
	}
	return list
}

func (s *state) requirementDefinitions(n *yaml.Node, context string) []*model.RequirementDefinition {
	var list []*model.RequirementDefinition
	for _, i := range s.sequence(n, context) {
		e, ok := s.single(i, context)
		if !ok {
			continue
		}
		r := &model.RequirementDefinition{Id: e.key, LowerBound: 1, UpperBound: 1}
		if v := resolve(e.node); v != nil && v.Kind == yaml.ScalarNode {
			r.Type = v.Value
		} else {
			ctx := context + "." + e.key
			for _, f := range s.entries(e.node, ctx) {
				switch f.key {
				case "capability":
					r.Type = s.scalar(f.node, ctx)
				case "node":
					r.NodeType = s.scalar(f.node, ctx)
				case "relationship", "relationship_type":
					if v := resolve(f.node); v != nil && v.Kind == yaml.MappingNode {
						for _, g := range s.entries(f.node, ctx) {
							if g.key == "type" {
								r.RelationshipType = s.scalar(g.node, ctx)
							}
						}
					} else {
						r.RelationshipType = s.scalar(f.node, ctx)
					}
				case "capability_name":
					r.CapabilityName = s.scalar(f.node, ctx)
				case "description":
					r.Description = s.scalar(f.node, ctx)
				case "occurrences":
					s.occurrences(f.node, ctx, &r.LowerBound, &r.UpperBound)
				default:
					s.unrecognized(f, ctx)
				}
			}
		}
		if r.Type == "" {
			s.error(ValidationError, e.node, context, "requirement %q requires a capability type", e.key)
		}
		list = append(list, r)
	}
	return list
}

func (s *state) interfaces(n *yaml.Node, context string) map[string]*model.Interface {
	m := map[string]*model.Interface{}
	for _, e := range s.entries(n, context) {
		name := model.InterfaceName(e.key)
		i := &model.Interface{Operations: map[string]*model.Operation{}}
		switch name {
		case model.StandardInterface:
			i.Type = model.StandardInterfaceType
		case model.ConfigureInterface:
			i.Type = model.ConfigureInterfaceType
		}
		ctx := context + "." + name
		for _, f := range s.entries(e.node, ctx) {
			switch f.key {
			case "type":
				i.Type = s.scalar(f.node, ctx)
			case "description", "inputs":
			default:
				i.Operations[f.key] = s.operation(f.node, ctx+"."+f.key)
			}
		}
		m[name] = i
	}
	return m
}

func (s *state) operation(n *yaml.Node, context string) *model.Operation {
	o := &model.Operation{}
	if r := resolve(n); r == nil || r.Kind == yaml.ScalarNode {
		o.Implementation = s.scalar(n, context)
		return o
	}
	for _, e := range s.entries(n, context) {
		switch e.key {
		case "implementation":
			if r := resolve(e.node); r != nil && r.Kind == yaml.MappingNode {
				for _, f := range s.entries(e.node, context) {
					if f.key == "primary" {
						o.Implementation = s.scalar(f.node, context)
					}
				}
			} else {
				o.Implementation = s.scalar(e.node, context)
			}
		case "description":
			o.Description = s.scalar(e.node, context)
		case "inputs":
			if m, ok := s.raw(e.node, context).(map[string]interface{}); ok {
				o.Inputs = m
			}
		default:
			s.unrecognized(e, context)
		}
	}
	return o
}

func (s *state) artifacts(n *yaml.Node, context string) map[string]*model.DeploymentArtifact {
	m := map[string]*model.DeploymentArtifact{}
	for _, e := range s.entries(n, context) {
		m[e.key] = s.artifact(e.key, e.node, context+"."+e.key)
	}
	return m
}

func (s *state) artifact(name string, n *yaml.Node, context string) *model.DeploymentArtifact {
	a := &model.DeploymentArtifact{ArtifactName: name}
	if r := resolve(n); r == nil || r.Kind == yaml.ScalarNode {
		a.ArtifactRef = s.scalar(n, context)
		return a
	}
	for _, e := range s.entries(n, context) {
		switch e.key {
		case "type":
			a.ArtifactType = s.scalar(e.node, context)
		case "file":
			a.ArtifactRef = s.scalar(e.node, context)
		case "repository":
			a.ArtifactRepository = s.scalar(e.node, context)
		case "repository_url":
			a.RepositoryURL = s.scalar(e.node, context)
		case "repository_name":
			a.RepositoryName = s.scalar(e.node, context)
		case "description":
			a.Description = s.scalar(e.node, context)
		case "archive_name":
			a.ArchiveName = s.scalar(e.node, context)
		case "archive_version":
			a.ArchiveVersion = s.scalar(e.node, context)
		case "deploy_path":
		default:
			s.unrecognized(e, context)
		}
	}
	return a
}
