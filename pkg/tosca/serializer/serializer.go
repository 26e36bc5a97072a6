// Package serializer writes a topology as TOSCA definitions file.
//
// The output is deterministic: node templates, relationships, policies
// and workflow steps keep their insertion order, all other maps are
// sorted by key. Parsing the output yields an equal topology.
package serializer

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/mandelsoft/goutils/maputils"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/primitives"
)

const DefinitionsVersion = "alien_dsl_2_0_0"

// Marshal serializes the topology of an archive.
func Marshal(csar *model.Csar, topo *model.Topology) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Document(csar, topo)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Document creates the YAML document node for a topology.
func Document(csar *model.Csar, topo *model.Topology) *yaml.Node {
	doc := mapping()
	add(doc, "tosca_definitions_version", str(DefinitionsVersion))

	meta := mapping()
	add(meta, "template_name", str(csar.Name))
	add(meta, "template_version", str(csar.Version))
	if csar.Author != "" {
		add(meta, "template_author", str(csar.Author))
	}
	add(doc, "metadata", meta)
	if csar.Description != "" {
		add(doc, "description", str(csar.Description))
	}

	if len(topo.Dependencies) > 0 {
		imports := sequence()
		for _, d := range topo.Dependencies {
			imports.Content = append(imports.Content, str(d.String()))
		}
		add(doc, "imports", imports)
	}
	add(doc, "topology_template", topologyTemplate(topo))
	return doc
}

func topologyTemplate(t *model.Topology) *yaml.Node {
	n := mapping()
	if t.Description != "" {
		add(n, "description", str(t.Description))
	}
	if len(t.Inputs) > 0 {
		inputs := mapping()
		for _, k := range maputils.OrderedKeys(t.Inputs) {
			add(inputs, k, PropertyDefinition(t.Inputs[k]))
		}
		add(n, "inputs", inputs)
	}
	if len(t.InputArtifacts) > 0 {
		add(n, "input_artifacts", artifacts(t.InputArtifacts))
	}
	if s := t.Substitution; s != nil {
		add(n, "substitution_mappings", substitution(s))
	}
	if t.NodeTemplates.Len() > 0 {
		nodes := mapping()
		for _, e := range t.NodeTemplates.List() {
			add(nodes, e.Name, nodeTemplate(e))
		}
		add(n, "node_templates", nodes)
	}
	if len(t.Groups) > 0 {
		add(n, "groups", groups(t.Groups))
	}
	if t.Policies.Len() > 0 {
		policies := sequence()
		for _, p := range t.Policies.List() {
			e := mapping()
			add(e, p.Name, policy(p))
			policies.Content = append(policies.Content, e)
		}
		add(n, "policies", policies)
	}
	if o := outputs(t); len(o.Content) > 0 {
		add(n, "outputs", o)
	}
	if t.Workflows.Len() > 0 {
		workflows := mapping()
		for _, w := range t.Workflows.List() {
			add(workflows, w.Name, workflow(w))
		}
		add(n, "workflows", workflows)
	}
	return n
}

func nodeTemplate(t *model.NodeTemplate) *yaml.Node {
	n := mapping()
	add(n, "type", str(t.Type))
	if t.Description != "" {
		add(n, "description", str(t.Description))
	}
	if len(t.Tags) > 0 {
		add(n, "metadata", stringMap(t.Tags))
	}
	if p := properties(t.Properties); p != nil {
		add(n, "properties", p)
	}
	if t.Relationships.Len() > 0 {
		reqs := sequence()
		for _, r := range t.Relationships.List() {
			e := mapping()
			add(e, r.Name, relationship(r))
			reqs.Content = append(reqs.Content, e)
		}
		add(n, "requirements", reqs)
	}
	caps := mapping()
	for _, k := range maputils.OrderedKeys(t.Capabilities) {
		if p := properties(t.Capabilities[k].Properties); p != nil {
			c := mapping()
			add(c, "properties", p)
			add(caps, k, c)
		}
	}
	if len(caps.Content) > 0 {
		add(n, "capabilities", caps)
	}
	if len(t.Artifacts) > 0 {
		add(n, "artifacts", artifacts(t.Artifacts))
	}
	if len(t.Interfaces) > 0 {
		add(n, "interfaces", interfaces(t.Interfaces))
	}
	if t.NodeFilter != nil {
		add(n, "node_filter", Raw(t.NodeFilter))
	}
	return n
}

func relationship(r *model.RelationshipTemplate) *yaml.Node {
	n := mapping()
	add(n, "type_requirement", str(r.RequirementName))
	add(n, "node", str(r.Target))
	if r.RequirementType != "" {
		add(n, "capability", str(r.RequirementType))
	}
	if r.TargetedCapabilityName != "" {
		add(n, "targeted_capability_name", str(r.TargetedCapabilityName))
	}
	add(n, "relationship", str(r.Type))
	if p := properties(r.Properties); p != nil {
		add(n, "properties", p)
	}
	if len(r.Interfaces) > 0 {
		add(n, "interfaces", interfaces(r.Interfaces))
	}
	return n
}

func groups(m map[string]*model.NodeGroup) *yaml.Node {
	list := maputils.Values(m)
	slices.SortFunc(list, func(a, b *model.NodeGroup) int {
		if a.Index != b.Index {
			return a.Index - b.Index
		}
		return strings.Compare(a.Name, b.Name)
	})
	n := mapping()
	for _, g := range list {
		e := mapping()
		add(e, "members", flowList(sets.List(g.Members)))
		add(n, g.Name, e)
	}
	return n
}

func policy(p *model.PolicyTemplate) *yaml.Node {
	n := mapping()
	add(n, "type", str(p.Type))
	if p.Description != "" {
		add(n, "description", str(p.Description))
	}
	if p.Targets.Len() > 0 {
		add(n, "targets", flowList(sets.List(p.Targets)))
	}
	if v := properties(p.Properties); v != nil {
		add(n, "properties", v)
	}
	return n
}

func substitution(s *model.SubstitutionMapping) *yaml.Node {
	n := mapping()
	add(n, "node_type", str(s.SubstitutionType))
	exposed := func(key string, m map[string]*model.SubstitutionTarget) {
		if len(m) == 0 {
			return
		}
		e := mapping()
		for _, k := range maputils.OrderedKeys(m) {
			add(e, k, flowList([]string{m[k].NodeTemplateName, m[k].TargetId}))
		}
		add(n, key, e)
	}
	exposed("capabilities", s.Capabilities)
	exposed("requirements", s.Requirements)
	return n
}

// outputs creates the output definitions. Names are derived from the
// node and the member, clashes get a numbered suffix.
func outputs(t *model.Topology) *yaml.Node {
	n := mapping()
	used := sets.New[string]()
	output := func(name, function string, params ...string) {
		unique := name
		for i := 1; used.Has(unique); i++ {
			unique = fmt.Sprintf("%s_%d", name, i)
		}
		used.Insert(unique)
		e := mapping()
		add(e, "value", Value(model.NewFunctionValue(function, params...)))
		add(n, unique, e)
	}
	for _, node := range maputils.OrderedKeys(t.OutputAttributes) {
		for _, a := range sets.List(t.OutputAttributes[node]) {
			output(node+"_"+a, model.FunctionGetAttribute, node, a)
		}
	}
	for _, node := range maputils.OrderedKeys(t.OutputProperties) {
		for _, p := range sets.List(t.OutputProperties[node]) {
			output(node+"_"+p, model.FunctionGetProperty, node, p)
		}
	}
	for _, node := range maputils.OrderedKeys(t.OutputCapabilityProperties) {
		caps := t.OutputCapabilityProperties[node]
		for _, c := range maputils.OrderedKeys(caps) {
			for _, p := range sets.List(caps[c]) {
				output(node+"_"+c+"_"+p, model.FunctionGetProperty, node, c, p)
			}
		}
	}
	return n
}

func workflow(w *model.Workflow) *yaml.Node {
	n := mapping()
	if w.Description != "" {
		add(n, "description", str(w.Description))
	}
	steps := mapping()
	for _, s := range w.Steps.List() {
		add(steps, s.Name, step(s))
	}
	add(n, "steps", steps)
	return n
}

func step(s *model.Step) *yaml.Node {
	n := mapping()
	if s.Target != "" {
		add(n, "target", str(s.Target))
	}
	if s.TargetRelationship != "" {
		add(n, "target_relationship", str(s.TargetRelationship))
	}
	if s.OperationHost != "" {
		add(n, "operation_host", str(s.OperationHost))
	}
	if len(s.Activities) > 0 {
		list := sequence()
		for _, a := range s.Activities {
			e := mapping()
			add(e, a.Type, str(a.Value))
			list.Content = append(list.Content, e)
		}
		add(n, "activities", list)
	}
	if len(s.OnSuccess) > 0 {
		add(n, "on_success", flowList(s.OnSuccess))
	}
	if len(s.OnFailure) > 0 {
		add(n, "on_failure", flowList(s.OnFailure))
	}
	return n
}

////////////////////////////////////////////////////////////////////////////////
// definitions

// PropertyDefinition creates the node for a property definition.
func PropertyDefinition(d *model.PropertyDefinition) *yaml.Node {
	n := mapping()
	add(n, "type", str(d.Type))
	if !d.Required {
		add(n, "required", plain("false"))
	}
	if d.Description != "" {
		add(n, "description", str(d.Description))
	}
	if d.Default != nil {
		add(n, "default", Raw(d.Default))
	}
	if len(d.Constraints) > 0 {
		list := sequence()
		for _, c := range d.Constraints {
			e := mapping()
			add(e, c.Kind, Raw(c.Operand))
			list.Content = append(list.Content, e)
		}
		add(n, "constraints", list)
	}
	if s := d.EntrySchema; s != nil {
		if s.Required && s.Description == "" && s.Default == nil && len(s.Constraints) == 0 && s.EntrySchema == nil {
			add(n, "entry_schema", str(s.Type))
		} else {
			add(n, "entry_schema", PropertyDefinition(s))
		}
	}
	if d.Password {
		add(n, "password", plain("true"))
	}
	return n
}

func artifacts(m map[string]*model.DeploymentArtifact) *yaml.Node {
	n := mapping()
	for _, k := range maputils.OrderedKeys(m) {
		add(n, k, artifact(m[k]))
	}
	return n
}

func artifact(a *model.DeploymentArtifact) *yaml.Node {
	n := mapping()
	opt := func(key, value string) {
		if value != "" {
			add(n, key, str(value))
		}
	}
	opt("type", a.ArtifactType)
	opt("file", a.ArtifactRef)
	opt("repository", a.ArtifactRepository)
	opt("repository_url", a.RepositoryURL)
	opt("repository_name", a.RepositoryName)
	opt("archive_name", a.ArchiveName)
	opt("archive_version", a.ArchiveVersion)
	opt("description", a.Description)
	return n
}

func interfaces(m map[string]*model.Interface) *yaml.Node {
	n := mapping()
	for _, k := range maputils.OrderedKeys(m) {
		i := m[k]
		e := mapping()
		if i.Type != "" {
			add(e, "type", str(i.Type))
		}
		for _, o := range maputils.OrderedKeys(i.Operations) {
			add(e, o, operation(i.Operations[o]))
		}
		add(n, k, e)
	}
	return n
}

func operation(o *model.Operation) *yaml.Node {
	if o.Description == "" && len(o.Inputs) == 0 {
		return str(o.Implementation)
	}
	n := mapping()
	if o.Implementation != "" {
		add(n, "implementation", str(o.Implementation))
	}
	if o.Description != "" {
		add(n, "description", str(o.Description))
	}
	if len(o.Inputs) > 0 {
		add(n, "inputs", Raw(o.Inputs))
	}
	return n
}

////////////////////////////////////////////////////////////////////////////////
// values

func properties(m map[string]model.PropertyValue) *yaml.Node {
	n := mapping()
	for _, k := range maputils.OrderedKeys(m) {
		if m[k] != nil {
			add(n, k, Value(m[k]))
		}
	}
	if len(n.Content) == 0 {
		return nil
	}
	return n
}

// Value creates the node for a property value. Functions are
// written in flow style.
func Value(v model.PropertyValue) *yaml.Node {
	switch t := v.(type) {
	case *model.FunctionValue:
		n := Raw(t.Raw())
		n.Style = yaml.FlowStyle
		return n
	case *model.ScalarValue:
		switch t.Type {
		case primitives.Integer, primitives.Float, primitives.Boolean:
			return plain(t.Value)
		}
		return str(t.Value)
	}
	return Raw(model.RawOf(v))
}

// Raw creates the node for a canonical raw value.
func Raw(v interface{}) *yaml.Node {
	switch t := primitives.Canonical(v).(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case []interface{}:
		n := sequence()
		scalars := true
		for _, e := range t {
			c := Raw(e)
			scalars = scalars && c.Kind == yaml.ScalarNode
			n.Content = append(n.Content, c)
		}
		if scalars {
			n.Style = yaml.FlowStyle
		}
		return n
	case map[string]interface{}:
		n := mapping()
		for _, k := range maputils.OrderedKeys(t) {
			add(n, k, Raw(t[k]))
		}
		return n
	case string:
		return str(t)
	default:
		return str(fmt.Sprint(t))
	}
}

////////////////////////////////////////////////////////////////////////////////
// nodes

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func sequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

// str creates a string scalar, quoted if it would be read as another type.
func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// plain creates an untagged scalar for numbers and booleans.
func plain(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func add(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, str(key), value)
}

func flowList(list []string) *yaml.Node {
	n := sequence()
	n.Style = yaml.FlowStyle
	for _, e := range list {
		n.Content = append(n.Content, str(e))
	}
	return n
}

func stringMap(m map[string]string) *yaml.Node {
	n := mapping()
	for _, k := range maputils.OrderedKeys(m) {
		add(n, k, str(m[k]))
	}
	return n
}
