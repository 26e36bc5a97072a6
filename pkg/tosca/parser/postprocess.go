package parser

import (
	"slices"
	"strings"

	"github.com/mandelsoft/goutils/maputils"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/topology"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/primitives"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/properties"
	"github.com/mandelsoft/toscaeditor/pkg/utils"
)

func (s *state) postProcess() {
	a := &s.root.Archive
	for _, k := range model.Kinds {
		for _, t := range s.root.Types(k) {
			t.Base().ArchiveName = a.Name
			t.Base().ArchiveVersion = a.Version
		}
	}
	s.types.Register(s.root)

	s.resolveTypes()
	s.checkDefinitions()

	if t := s.root.Topology; t != nil {
		t.ArchiveName = a.Name
		t.ArchiveVersion = a.Version
		t.Dependencies = slices.Clone(a.Dependencies)
		s.nodeTemplates(t)
		s.relationships(t)
		s.groupTemplates(t)
		s.policyTemplateValues(t)
		s.outputValues(t)
		s.substitutionMapping(t)
		s.workflows(t)
	}
}

////////////////////////////////////////////////////////////////////////////////
// derived_from

func (s *state) resolveTypes() {
	done := sets.New[model.Type]()
	for _, k := range model.Kinds {
		for _, t := range s.sortedTypes(k) {
			s.resolveType(t, done)
		}
	}
}

func (s *state) sortedTypes(k model.Kind) []model.Type {
	list := s.root.Types(k)
	slices.SortFunc(list, func(a, b model.Type) int {
		return strings.Compare(a.Base().ElementId, b.Base().ElementId)
	})
	return list
}

// resolveType merges the members of the parent chain into a local
// type. Parents of the archive itself are resolved first.
func (s *state) resolveType(t model.Type, done sets.Set[model.Type], stack ...string) {
	if done.Has(t) {
		return
	}
	b := t.Base()
	if c := utils.Cycle(b.ElementId, stack...); c != nil {
		s.report(Error, CyclicDerivedFrom, s.typeLocs[t], b.ElementId, "cyclic derived_from: %s", strings.Join(c, " -> "))
		b.DerivedFrom = nil
		done.Insert(t)
		return
	}
	parentName := b.Parent()
	if parentName == "" {
		done.Insert(t)
		return
	}
	if dt, ok := t.(*model.DataType); ok && primitives.IsPrimitive(parentName) {
		dt.Primitive = parentName
		done.Insert(t)
		return
	}

	if local := s.root.Type(t.Kind(), parentName); local != nil {
		s.resolveType(local, done, append(stack, b.ElementId)...)
		if done.Has(t) {
			// resolved as part of a cycle
			return
		}
	}
	done.Insert(t)
	parent := s.types.Get(t.Kind(), parentName)
	if parent == nil {
		s.typeNotFound(s.typeLocs[t], t.Kind(), parentName)
		return
	}
	log.Trace("merging {{kind}} type {{type}} with {{parent}}", "kind", t.Kind(), "type", b.ElementId, "parent", parentName)
	b.DerivedFrom = append([]string{parentName}, parent.Base().DerivedFrom...)
	b.Tags = mergeMap(b.Tags, parent.Base().Tags)
	merge(t, parent)
}

func merge(t, parent model.Type) {
	switch c := t.(type) {
	case *model.NodeType:
		p, ok := parent.(*model.NodeType)
		if !ok {
			return
		}
		c.Properties = mergeMap(c.Properties, p.Properties)
		c.Attributes = mergeMap(c.Attributes, p.Attributes)
		c.Artifacts = mergeMap(c.Artifacts, p.Artifacts)
		c.Interfaces = mergeInterfaces(c.Interfaces, p.Interfaces)
		c.Capabilities = mergeList(c.Capabilities, p.Capabilities, func(e *model.CapabilityDefinition) string { return e.Id })
		c.Requirements = mergeList(c.Requirements, p.Requirements, func(e *model.RequirementDefinition) string { return e.Id })
	case *model.RelationshipType:
		p, ok := parent.(*model.RelationshipType)
		if !ok {
			return
		}
		c.Properties = mergeMap(c.Properties, p.Properties)
		c.Attributes = mergeMap(c.Attributes, p.Attributes)
		c.Interfaces = mergeInterfaces(c.Interfaces, p.Interfaces)
		if len(c.ValidTargets) == 0 {
			c.ValidTargets = p.ValidTargets
		}
		if len(c.ValidSources) == 0 {
			c.ValidSources = p.ValidSources
		}
	case *model.CapabilityType:
		p, ok := parent.(*model.CapabilityType)
		if !ok {
			return
		}
		c.Properties = mergeMap(c.Properties, p.Properties)
		c.Attributes = mergeMap(c.Attributes, p.Attributes)
		if len(c.ValidSources) == 0 {
			c.ValidSources = p.ValidSources
		}
	case *model.DataType:
		p, ok := parent.(*model.DataType)
		if !ok {
			return
		}
		c.Primitive = p.Primitive
		c.Properties = mergeMap(c.Properties, p.Properties)
		c.Constraints = append(slices.Clone(p.Constraints), c.Constraints...)
	case *model.PolicyType:
		p, ok := parent.(*model.PolicyType)
		if !ok {
			return
		}
		c.Properties = mergeMap(c.Properties, p.Properties)
		if len(c.Targets) == 0 {
			c.Targets = p.Targets
		}
	case *model.ArtifactType:
		p, ok := parent.(*model.ArtifactType)
		if !ok {
			return
		}
		if c.MimeType == "" {
			c.MimeType = p.MimeType
		}
		if len(c.FileExt) == 0 {
			c.FileExt = p.FileExt
		}
	}
}

// mergeMap adds the parent entries not overridden by the child.
func mergeMap[V any](child, parent map[string]V) map[string]V {
	if len(parent) == 0 {
		return child
	}
	if child == nil {
		child = map[string]V{}
	}
	for k, v := range parent {
		if _, ok := child[k]; !ok {
			child[k] = v
		}
	}
	return child
}

// mergeList keeps the parent order, child elements replace the
// parent elements with the same id or are appended.
func mergeList[E any](child, parent []E, id func(E) string) []E {
	var result []E
	used := sets.New[string]()
	for _, p := range parent {
		e := p
		for _, c := range child {
			if id(c) == id(p) {
				e = c
				used.Insert(id(c))
				break
			}
		}
		result = append(result, e)
	}
	for _, c := range child {
		if !used.Has(id(c)) {
			result = append(result, c)
		}
	}
	return result
}

func mergeInterfaces(child, parent map[string]*model.Interface) map[string]*model.Interface {
	if len(parent) == 0 {
		return child
	}
	result := map[string]*model.Interface{}
	for k, p := range parent {
		result[k] = p
	}
	for k, c := range child {
		p := parent[k]
		if p == nil {
			result[k] = c
			continue
		}
		i := &model.Interface{Type: c.Type, Operations: mergeMap(c.Operations, p.Operations)}
		if i.Type == "" {
			i.Type = p.Type
		}
		result[k] = i
	}
	return result
}

////////////////////////////////////////////////////////////////////////////////
// property definitions

func (s *state) checkDefinitions() {
	for _, d := range s.definitions {
		err := properties.CheckDefinition(d.def, s.types)
		if err == nil {
			continue
		}
		if e := errkind.Find(err); e != nil && e.Kind == errkind.DataTypeNotFound {
			s.typeNotFound(d.loc, model.DataKind, e.Name)
			continue
		}
		s.report(Error, ValidationError, d.loc, d.name, "invalid property definition %s: %s", d.name, err)
	}
}

// value converts a template value. Invalid values are reported and
// kept in their untyped form.
func (s *state) value(t *model.Topology, v rawValue, def *model.PropertyDefinition, context string) model.PropertyValue {
	if f, ok := model.FunctionOf(v.value); ok {
		if f.Function == model.FunctionGetInput && len(f.Parameters) > 0 && t.Inputs[f.Parameters[0]] == nil {
			s.error(MissingTopologyInput, v.node, context, "input %q referenced by %s not found", f.Parameters[0], context)
		}
		return f
	}
	pv, err := properties.Convert(v.value, def, s.types)
	if err != nil {
		s.error(ValidationError, v.node, context, "invalid value for %s: %s", context, err)
		return model.ValueOf(v.value)
	}
	return pv
}

func (s *state) assign(t *model.Topology, target map[string]model.PropertyValue, defs map[string]*model.PropertyDefinition, values []rawValue, context string) {
	for _, v := range values {
		ctx := context + "." + v.name
		def := defs[v.name]
		if def == nil {
			s.warning(UnrecognizedProperty, v.node, ctx, "unknown property %q in %s", v.name, context)
			continue
		}
		target[v.name] = s.value(t, v, def, ctx)
	}
}

////////////////////////////////////////////////////////////////////////////////
// templates

func (s *state) nodeTemplates(t *model.Topology) {
	for _, r := range s.nodes {
		context := "node_templates." + r.name
		if !model.NodeNamePattern.MatchString(r.name) {
			s.error(InvalidName, r.node, context, "invalid node name %q", r.name)
			continue
		}
		if r.typ == "" {
			continue
		}
		nt, ok := s.types.Get(model.NodeKind, r.typ).(*model.NodeType)
		if !ok || nt == nil {
			s.typeNotFound(s.loc(r.node), model.NodeKind, r.typ)
			continue
		}
		n := topology.BuildNodeTemplate(s.types, nt, r.name)
		n.Description = r.description
		n.Tags = r.tags
		n.NodeFilter = r.nodeFilter
		if len(r.artifacts) > 0 {
			n.Artifacts = mergeMap(r.artifacts, n.Artifacts)
		}
		n.Interfaces = r.interfaces
		s.assign(t, n.Properties, nt.Properties, r.properties, context+".properties")
		for _, name := range maputils.OrderedKeys(r.capabilities) {
			c := n.Capabilities[name]
			if c == nil {
				s.error(CapabilityNotFound, r.node, context, "capability %q not defined by type %s", name, r.typ)
				continue
			}
			var defs map[string]*model.PropertyDefinition
			if ct, ok := s.types.Get(model.CapabilityKind, c.Type).(*model.CapabilityType); ok && ct != nil {
				defs = ct.Properties
			}
			s.assign(t, c.Properties, defs, r.capabilities[name], context+".capabilities."+name)
		}
		t.NodeTemplates.Set(n.Name, n)
	}
}

func (s *state) relationships(t *model.Topology) {
	for _, r := range s.nodes {
		n := t.NodeTemplates.Get(r.name)
		if n == nil {
			continue
		}
		nt, ok := s.types.Get(model.NodeKind, n.Type).(*model.NodeType)
		if !ok || nt == nil {
			continue
		}
		for _, q := range r.requirements {
			s.relationship(t, n, nt, q)
		}
	}
}

func (s *state) relationship(t *model.Topology, n *model.NodeTemplate, nt *model.NodeType, q *rawRequirement) {
	context := "node_templates." + n.Name + ".requirements." + q.key
	requirement, name := q.requirement, ""
	if requirement == "" {
		requirement = q.key
	} else {
		name = q.key
	}
	def := nt.Requirement(requirement)
	if def == nil {
		s.error(RequirementNotFound, q.node, context, "requirement %q not defined by type %s", requirement, n.Type)
		return
	}
	target := t.NodeTemplates.Get(q.target)
	if target == nil {
		s.error(RequirementTargetNotFound, q.node, context, "target node %q of requirement %q not found", q.target, requirement)
		return
	}

	relType := firstOf(q.relationship, def.RelationshipType, model.DependsOnType)
	rt, ok := s.types.Get(model.RelationshipKind, relType).(*model.RelationshipType)
	if !ok || rt == nil {
		s.typeNotFound(s.loc(q.node), model.RelationshipKind, relType)
		return
	}

	reqType := firstOf(q.capability, def.Type)
	capability := q.targetedCapability
	if capability == "" {
		capability = s.matchingCapability(target, reqType)
		if capability == "" {
			s.error(CapabilityNotFound, q.node, context, "node %q has no capability of type %s", target.Name, reqType)
			return
		}
	} else if target.Capabilities[capability] == nil {
		s.error(CapabilityNotFound, q.node, context, "capability %q not found on node %q", capability, target.Name)
		return
	}

	if name == "" {
		name = topology.RelationshipName(relType, target.Name)
	}
	name = topology.UniqueName(name, n.Relationships.Has)
	rel := topology.BuildRelationshipTemplate(s.types, rt, name, target.Name, requirement, reqType, capability)
	rel.Interfaces = q.interfaces
	s.assign(t, rel.Properties, rt.Properties, q.properties, context+".properties")
	n.Relationships.Set(name, rel)
}

// matchingCapability returns the first capability of the node whose
// type is compatible with the requested capability type.
func (s *state) matchingCapability(n *model.NodeTemplate, typ string) string {
	nt, ok := s.types.Get(model.NodeKind, n.Type).(*model.NodeType)
	if !ok || nt == nil {
		return ""
	}
	for _, c := range nt.Capabilities {
		if c.Type == typ {
			return c.Id
		}
		if ct := s.types.Get(model.CapabilityKind, c.Type); ct != nil && ct.Base().IsA(typ) {
			return c.Id
		}
	}
	return ""
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *state) groupTemplates(t *model.Topology) {
	for i, g := range s.groups {
		context := "groups." + g.name
		if !model.GroupNamePattern.MatchString(g.name) {
			s.error(InvalidName, g.node, context, "invalid group name %q", g.name)
			continue
		}
		group := &model.NodeGroup{Name: g.name, Index: i, Members: sets.New[string]()}
		for _, m := range g.members {
			n := t.NodeTemplates.Get(m)
			if n == nil {
				s.error(NodeNotFound, g.node, context, "member %q of group %q not found", m, g.name)
				continue
			}
			group.Members.Insert(m)
			n.Groups.Insert(g.name)
		}
		t.Groups[g.name] = group
	}
}

func (s *state) policyTemplateValues(t *model.Topology) {
	for _, p := range s.policies {
		context := "policies." + p.name
		pt, ok := s.types.Get(model.PolicyKind, p.typ).(*model.PolicyType)
		if !ok || pt == nil {
			s.typeNotFound(s.loc(p.node), model.PolicyKind, p.typ)
			continue
		}
		policy := topology.BuildPolicyTemplate(s.types, pt, p.name)
		policy.Description = p.description
		for _, target := range p.targets {
			if !t.NodeTemplates.Has(target) {
				s.error(NodeNotFound, p.node, context, "target %q of policy %q not found", target, p.name)
				continue
			}
			policy.Targets.Insert(target)
		}
		s.assign(t, policy.Properties, pt.Properties, p.properties, context+".properties")
		t.Policies.Set(p.name, policy)
	}
}

func (s *state) outputValues(t *model.Topology) {
	for _, o := range s.outputs {
		context := "outputs." + o.name
		if len(o.params) < 2 {
			s.error(ValidationError, o.node, context, "output %q requires a node and a member", o.name)
			continue
		}
		node := o.params[0]
		if !t.NodeTemplates.Has(node) {
			s.error(NodeNotFound, o.node, context, "node %q of output %q not found", node, o.name)
			continue
		}
		switch {
		case o.function == model.FunctionGetAttribute:
			addOutput(t.OutputAttributes, node, o.params[1])
		case len(o.params) == 2:
			addOutput(t.OutputProperties, node, o.params[1])
		default:
			caps := t.OutputCapabilityProperties[node]
			if caps == nil {
				caps = map[string]sets.Set[string]{}
				t.OutputCapabilityProperties[node] = caps
			}
			addOutput(caps, o.params[1], o.params[2])
		}
	}
}

func addOutput(m map[string]sets.Set[string], key, value string) {
	if m[key] == nil {
		m[key] = sets.New[string]()
	}
	m[key].Insert(value)
}

func (s *state) substitutionMapping(t *model.Topology) {
	r := s.substitution
	if r == nil {
		return
	}
	if nt := s.types.Get(model.NodeKind, r.typ); nt == nil {
		s.typeNotFound(s.loc(r.node), model.NodeKind, r.typ)
		return
	}
	m := &model.SubstitutionMapping{
		SubstitutionType: r.typ,
		Capabilities:     s.substitutionTargets(t, r.capabilities, "capabilities"),
		Requirements:     s.substitutionTargets(t, r.requirements, "requirements"),
	}
	t.Substitution = m
}

func (s *state) substitutionTargets(t *model.Topology, raw map[string][]string, kind string) map[string]*model.SubstitutionTarget {
	m := map[string]*model.SubstitutionTarget{}
	for _, k := range maputils.OrderedKeys(raw) {
		context := "substitution_mappings." + kind + "." + k
		v := raw[k]
		if len(v) != 2 {
			s.error(ValidationError, s.substitution.node, context, "exposed %s %q requires a node and a member", kind, k)
			continue
		}
		if !t.NodeTemplates.Has(v[0]) {
			s.error(NodeNotFound, s.substitution.node, context, "node %q not found", v[0])
			continue
		}
		m[k] = &model.SubstitutionTarget{NodeTemplateName: v[0], TargetId: v[1]}
	}
	return m
}

// workflows checks the step references and computes the
// preceding steps.
func (s *state) workflows(t *model.Topology) {
	for _, w := range t.Workflows.List() {
		loc := s.workflowLocs[w.Name]
		for _, st := range w.Steps.List() {
			if st.Target != "" && !t.NodeTemplates.Has(st.Target) {
				s.report(Warning, NodeNotFound, loc, w.Name, "target %q of step %q not found", st.Target, st.Name)
			}
			for _, next := range slices.Concat(st.OnSuccess, st.OnFailure) {
				if !w.Steps.Has(next) {
					s.report(Error, ValidationError, loc, w.Name, "successor %q of step %q not found", next, st.Name)
				}
			}
		}
		w.UpdatePrecedings()
	}
}
