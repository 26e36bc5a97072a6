// Package topology maintains the templates of a topology graph: it
// builds templates from their types, keeps the archive dependencies
// of the topology in line with the used types and rewrites references
// when templates are renamed or removed.
package topology

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/mandelsoft/logging"
	"github.com/tiendc/go-deepcopy"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/properties"
)

var REALM = logging.DefineRealm("toscaeditor/topology", "topology maintenance")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

// BuildNodeTemplate creates a node template for a node type with
// the defaults of all properties, capabilities and requirements.
func BuildNodeTemplate(types properties.Types, t *model.NodeType, name string) *model.NodeTemplate {
	n := &model.NodeTemplate{
		Name:          name,
		Type:          t.ElementId,
		Properties:    BuildProperties(types, t.Properties),
		Capabilities:  map[string]*model.Capability{},
		Requirements:  map[string]*model.Requirement{},
		Relationships: model.NewOrderedMap[*model.RelationshipTemplate](),
		Groups:        sets.New[string](),
	}
	if len(t.Attributes) > 0 {
		n.Attributes = map[string]interface{}{}
		for k, a := range t.Attributes {
			n.Attributes[k] = a.Default
		}
	}
	for _, c := range t.Capabilities {
		n.Capabilities[c.Id] = BuildCapability(types, c)
	}
	for _, r := range t.Requirements {
		n.Requirements[r.Id] = &model.Requirement{Type: r.Type}
	}
	if len(t.Artifacts) > 0 {
		deepcopy.Copy(&n.Artifacts, t.Artifacts)
	}
	return n
}

// BuildProperties creates the default values for a set of definitions.
// Properties without default are present with a nil value.
func BuildProperties(types properties.Types, defs map[string]*model.PropertyDefinition) map[string]model.PropertyValue {
	props := map[string]model.PropertyValue{}
	for n, d := range defs {
		props[n] = properties.Default(d, types)
	}
	return props
}

// BuildCapability creates a capability from its definition. Property
// values given by the definition override the capability type defaults.
func BuildCapability(types properties.Types, def *model.CapabilityDefinition) *model.Capability {
	c := &model.Capability{Type: def.Type, Properties: map[string]model.PropertyValue{}}
	var defs map[string]*model.PropertyDefinition
	if ct, ok := types.Get(model.CapabilityKind, def.Type).(*model.CapabilityType); ok && ct != nil {
		defs = ct.Properties
		c.Properties = BuildProperties(types, defs)
	}
	for k, raw := range def.Properties {
		if d := defs[k]; d != nil {
			if v, err := properties.Convert(raw, d, types); err == nil {
				c.Properties[k] = v
				continue
			}
		}
		c.Properties[k] = model.ValueOf(raw)
	}
	return c
}

// BuildRelationshipTemplate creates a relationship template for a
// requirement of a source node.
func BuildRelationshipTemplate(types properties.Types, t *model.RelationshipType, name, target, requirement, requirementType, capability string) *model.RelationshipTemplate {
	r := &model.RelationshipTemplate{
		Name:                   name,
		Type:                   t.ElementId,
		Target:                 target,
		RequirementName:        requirement,
		RequirementType:        requirementType,
		TargetedCapabilityName: capability,
		Properties:             BuildProperties(types, t.Properties),
	}
	return r
}

func BuildPolicyTemplate(types properties.Types, t *model.PolicyType, name string) *model.PolicyTemplate {
	return &model.PolicyTemplate{
		Name:       name,
		Type:       t.ElementId,
		Targets:    sets.New[string](),
		Properties: BuildProperties(types, t.Properties),
	}
}

// RelationshipName derives the default name of a relationship from
// its type and target, for example hostedOnCompute.
func RelationshipName(typ, target string) string {
	return uncapitalize(model.ShortName(typ)) + capitalize(target)
}

// UniqueName returns the name or, if already used, the first
// free name of the form <name>_<n>.
func UniqueName(name string, used func(string) bool) string {
	unique := name
	for i := 0; used(unique); i++ {
		unique = name + "_" + strconv.Itoa(i)
	}
	return unique
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func uncapitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
