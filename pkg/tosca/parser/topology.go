package parser

import (
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
)

// The raw templates keep their YAML nodes until the types of the
// archive are resolved in the post processing.

type rawValue struct {
	name  string
	node  *yaml.Node
	value interface{}
}

type rawNode struct {
	name         string
	node         *yaml.Node
	typ          string
	description  string
	properties   []rawValue
	capabilities map[string][]rawValue
	requirements []*rawRequirement
	artifacts    map[string]*model.DeploymentArtifact
	interfaces   map[string]*model.Interface
	tags         map[string]string
	nodeFilter   interface{}
}

type rawRequirement struct {
	key                string
	node               *yaml.Node
	requirement        string
	target             string
	capability         string
	targetedCapability string
	relationship       string
	properties         []rawValue
	interfaces         map[string]*model.Interface
}

type rawGroup struct {
	name    string
	node    *yaml.Node
	members []string
}

type rawPolicy struct {
	name        string
	node        *yaml.Node
	typ         string
	description string
	targets     []string
	properties  []rawValue
}

type rawOutput struct {
	name     string
	node     *yaml.Node
	function string
	params   []string
}

type rawSubstitution struct {
	node         *yaml.Node
	typ          string
	capabilities map[string][]string
	requirements map[string][]string
}

func (s *state) topologyTemplate(n *yaml.Node) {
	t := model.NewTopology("", "", "")
	s.root.Topology = t
	for _, e := range s.entries(n, "topology_template") {
		switch e.key {
		case "description":
			t.Description = s.scalar(e.node, e.key)
		case "inputs":
			for _, i := range s.entries(e.node, e.key) {
				d := s.propertyDefinition(i.node, "inputs."+i.key)
				t.Inputs[i.key] = d
				s.definitions = append(s.definitions, definition{name: "inputs." + i.key, def: d, loc: s.loc(i.node)})
			}
		case "input_artifacts":
			for _, i := range s.entries(e.node, e.key) {
				t.InputArtifacts[i.key] = s.artifact(i.key, i.node, "input_artifacts."+i.key)
			}
		case "substitution_mappings":
			s.substitutionMappings(e.node)
		case "node_templates":
			for _, i := range s.entries(e.node, e.key) {
				s.nodes = append(s.nodes, s.nodeTemplate(i.key, i.node))
			}
		case "groups":
			for _, i := range s.entries(e.node, e.key) {
				g := &rawGroup{name: i.key, node: i.node}
				for _, f := range s.entries(i.node, "groups."+i.key) {
					switch f.key {
					case "members":
						g.members = s.stringList(f.node, "groups."+i.key)
					case "policies", "description":
					default:
						s.unrecognized(f, "groups."+i.key)
					}
				}
				s.groups = append(s.groups, g)
			}
		case "policies":
			s.policyTemplates(e.node)
		case "outputs":
			for _, i := range s.entries(e.node, e.key) {
				s.output(i)
			}
		case "workflows":
			for _, i := range s.entries(e.node, e.key) {
				if w := s.workflow(i.key, i.node); w != nil {
					t.Workflows.Set(w.Name, w)
				}
			}
		default:
			s.unrecognized(e, "topology_template")
		}
	}
}

func (s *state) values(n *yaml.Node, context string) []rawValue {
	var list []rawValue
	for _, e := range s.entries(n, context) {
		list = append(list, rawValue{name: e.key, node: e.node, value: s.raw(e.node, context+"."+e.key)})
	}
	return list
}

func (s *state) nodeTemplate(name string, n *yaml.Node) *rawNode {
	r := &rawNode{name: name, node: n, capabilities: map[string][]rawValue{}}
	context := "node_templates." + name
	for _, e := range s.entries(n, context) {
		switch e.key {
		case "type":
			r.typ = s.scalar(e.node, context)
		case "description":
			r.description = s.scalar(e.node, context)
		case "metadata":
			r.tags = s.stringMap(e.node, context+".metadata")
		case "properties":
			r.properties = s.values(e.node, context+".properties")
		case "capabilities":
			for _, c := range s.entries(e.node, context+".capabilities") {
				ctx := context + ".capabilities." + c.key
				r.capabilities[c.key] = nil
				for _, f := range s.entries(c.node, ctx) {
					if f.key == "properties" {
						r.capabilities[c.key] = s.values(f.node, ctx)
					} else {
						s.unrecognized(f, ctx)
					}
				}
			}
		case "requirements":
			for _, i := range s.sequence(e.node, context+".requirements") {
				if q := s.requirement(i, context); q != nil {
					r.requirements = append(r.requirements, q)
				}
			}
		case "artifacts":
			r.artifacts = s.artifacts(e.node, context+".artifacts")
		case "interfaces":
			r.interfaces = s.interfaces(e.node, context+".interfaces")
		case "node_filter":
			r.nodeFilter = s.raw(e.node, context)
		default:
			s.unrecognized(e, context)
		}
	}
	if r.typ == "" {
		s.error(ValidationError, n, context, "node template %q requires a type", name)
	}
	return r
}

// requirement parses a requirement assignment. The key is the
// requirement name, or the relationship name if type_requirement
// is given.
func (s *state) requirement(n *yaml.Node, context string) *rawRequirement {
	e, ok := s.single(n, context+".requirements")
	if !ok {
		return nil
	}
	r := &rawRequirement{key: e.key, node: n}
	if v := resolve(e.node); v == nil || v.Kind == yaml.ScalarNode {
		r.target = s.scalar(e.node, context)
		return r
	}
	ctx := context + ".requirements." + e.key
	for _, f := range s.entries(e.node, ctx) {
		switch f.key {
		case "type_requirement":
			r.requirement = s.scalar(f.node, ctx)
		case "node":
			r.target = s.scalar(f.node, ctx)
		case "capability":
			r.capability = s.scalar(f.node, ctx)
		case "targeted_capability_name":
			r.targetedCapability = s.scalar(f.node, ctx)
		case "relationship":
			if v := resolve(f.node); v != nil && v.Kind == yaml.MappingNode {
				for _, g := range s.entries(f.node, ctx+".relationship") {
					switch g.key {
					case "type":
						r.relationship = s.scalar(g.node, ctx)
					case "properties":
						r.properties = s.values(g.node, ctx+".properties")
					case "interfaces":
						r.interfaces = s.interfaces(g.node, ctx+".interfaces")
					default:
						s.unrecognized(g, ctx+".relationship")
					}
				}
			} else {
				r.relationship = s.scalar(f.node, ctx)
			}
		case "properties":
			r.properties = s.values(f.node, ctx+".properties")
		case "interfaces":
			r.interfaces = s.interfaces(f.node, ctx+".interfaces")
		case "occurrences", "node_filter":
		default:
			s.unrecognized(f, ctx)
		}
	}
	return r
}

// policyTemplates accepts the list of single key mappings as well as
// a plain mapping.
func (s *state) policyTemplates(n *yaml.Node) {
	var list []entry
	if r := resolve(n); r != nil && r.Kind == yaml.SequenceNode {
		for _, i := range s.sequence(n, "policies") {
			if e, ok := s.single(i, "policies"); ok {
				list = append(list, e)
			}
		}
	} else {
		list = s.entries(n, "policies")
	}
	for _, e := range list {
		p := &rawPolicy{name: e.key, node: e.node}
		ctx := "policies." + e.key
		for _, f := range s.entries(e.node, ctx) {
			switch f.key {
			case "type":
				p.typ = s.scalar(f.node, ctx)
			case "description":
				p.description = s.scalar(f.node, ctx)
			case "targets":
				p.targets = s.stringList(f.node, ctx)
			case "properties":
				p.properties = s.values(f.node, ctx+".properties")
			case "metadata", "triggers":
			default:
				s.unrecognized(f, ctx)
			}
		}
		s.policies = append(s.policies, p)
	}
}

func (s *state) output(e entry) {
	ctx := "outputs." + e.key
	for _, f := range s.entries(e.node, ctx) {
		switch f.key {
		case "value":
			fv, ok := model.FunctionOf(s.raw(f.node, ctx))
			if !ok || (fv.Function != model.FunctionGetAttribute && fv.Function != model.FunctionGetProperty) {
				s.warning(ValidationError, f.node, ctx, "output %q must use get_attribute or get_property, ignored", e.key)
				continue
			}
			s.outputs = append(s.outputs, &rawOutput{name: e.key, node: f.node, function: fv.Function, params: fv.Parameters})
		case "description":
		default:
			s.unrecognized(f, ctx)
		}
	}
}

func (s *state) substitutionMappings(n *yaml.Node) {
	r := &rawSubstitution{node: n, capabilities: map[string][]string{}, requirements: map[string][]string{}}
	for _, e := range s.entries(n, "substitution_mappings") {
		switch e.key {
		case "node_type":
			r.typ = s.scalar(e.node, e.key)
		case "capabilities":
			for _, c := range s.entries(e.node, e.key) {
				r.capabilities[c.key] = s.stringList(c.node, "substitution_mappings.capabilities."+c.key)
			}
		case "requirements":
			for _, c := range s.entries(e.node, e.key) {
				r.requirements[c.key] = s.stringList(c.node, "substitution_mappings.requirements."+c.key)
			}
		default:
			s.unrecognized(e, "substitution_mappings")
		}
	}
	s.substitution = r
}

var activityTypes = []string{model.ActivitySetState, model.ActivityCallOperation, model.ActivityDelegate, model.ActivityInline}

func (s *state) workflow(name string, n *yaml.Node) *model.Workflow {
	w := model.NewWorkflow(name, model.IsStandardWorkflow(name))
	s.workflowLocs[name] = s.loc(n)
	ctx := "workflows." + name
	for _, e := range s.entries(n, ctx) {
		switch e.key {
		case "description":
			w.Description = s.scalar(e.node, ctx)
		case "steps":
			for _, i := range s.entries(e.node, ctx+".steps") {
				w.Steps.Set(i.key, s.step(i.key, i.node, ctx+".steps."+i.key))
			}
		case "inputs", "preconditions":
		default:
			s.unrecognized(e, ctx)
		}
	}
	return w
}

func (s *state) step(name string, n *yaml.Node, context string) *model.Step {
	st := &model.Step{Name: name}
	for _, e := range s.entries(n, context) {
		switch e.key {
		case "target":
			st.Target = s.scalar(e.node, context)
		case "target_relationship":
			st.TargetRelationship = s.scalar(e.node, context)
		case "operation_host":
			st.OperationHost = s.scalar(e.node, context)
		case "activities":
			for _, a := range s.sequence(e.node, context+".activities") {
				f, ok := s.single(a, context+".activities")
				if !ok {
					continue
				}
				if !slices.Contains(activityTypes, f.key) {
					s.error(ValidationError, a, context, "unknown activity %q", f.key)
					continue
				}
				st.Activities = append(st.Activities, model.Activity{Type: f.key, Value: s.scalar(f.node, context)})
			}
		case "on_success":
			st.OnSuccess = s.stringList(e.node, context)
		case "on_failure":
			st.OnFailure = s.stringList(e.node, context)
		case "filter":
		default:
			s.unrecognized(e, context)
		}
	}
	return st
}
