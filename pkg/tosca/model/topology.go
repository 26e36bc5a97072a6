package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/mandelsoft/goutils/maputils"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
)

var (
	NodeNamePattern  = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	GroupNamePattern = regexp.MustCompile(`^\w+$`)
)

// CSARDependency references an archive by name and version.
type CSARDependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (d CSARDependency) String() string {
	return d.Name + ":" + d.Version
}

// ParseDependency parses the <name>:<version> form.
func ParseDependency(s string) (CSARDependency, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return CSARDependency{}, fmt.Errorf("invalid archive reference %q (expected <name>:<version>)", s)
	}
	return CSARDependency{Name: s[:i], Version: s[i+1:]}, nil
}

// Csar is the identity of an archive.
type Csar struct {
	Name         string           `json:"name"`
	Version      string           `json:"version"`
	Workspace    string           `json:"workspace,omitempty"`
	Description  string           `json:"description,omitempty"`
	Author       string           `json:"author,omitempty"`
	Hash         string           `json:"hash,omitempty"`
	Dependencies []CSARDependency `json:"dependencies,omitempty"`
}

// Id returns the topology id <name>:<version>.
func (c *Csar) Id() string {
	return c.Name + ":" + c.Version
}

type Topology struct {
	ArchiveName    string `json:"archiveName"`
	ArchiveVersion string `json:"archiveVersion"`
	Workspace      string `json:"workspace,omitempty"`
	Description    string `json:"description,omitempty"`

	NodeTemplates *OrderedMap[*NodeTemplate]   `json:"nodeTemplates,omitempty"`
	Policies      *OrderedMap[*PolicyTemplate] `json:"policies,omitempty"`
	Groups        map[string]*NodeGroup        `json:"groups,omitempty"`
	Workflows     *OrderedMap[*Workflow]       `json:"workflows,omitempty"`

	Inputs         map[string]*PropertyDefinition `json:"inputs,omitempty"`
	InputArtifacts map[string]*DeploymentArtifact `json:"inputArtifacts,omitempty"`

	OutputProperties           map[string]sets.Set[string]            `json:"outputProperties,omitempty"`
	OutputAttributes           map[string]sets.Set[string]            `json:"outputAttributes,omitempty"`
	OutputCapabilityProperties map[string]map[string]sets.Set[string] `json:"outputCapabilityProperties,omitempty"`

	Substitution *SubstitutionMapping `json:"substitution,omitempty"`
	Dependencies []CSARDependency     `json:"dependencies,omitempty"`
}

func NewTopology(name, version, workspace string) *Topology {
	t := &Topology{
		ArchiveName:    name,
		ArchiveVersion: version,
		Workspace:      workspace,
	}
	t.Init()
	return t
}

// Init assures that all containers exist.
func (t *Topology) Init() {
	if t.NodeTemplates == nil {
		t.NodeTemplates = NewOrderedMap[*NodeTemplate]()
	}
	if t.Policies == nil {
		t.Policies = NewOrderedMap[*PolicyTemplate]()
	}
	if t.Workflows == nil {
		t.Workflows = NewOrderedMap[*Workflow]()
	}
	if t.Groups == nil {
		t.Groups = map[string]*NodeGroup{}
	}
	if t.Inputs == nil {
		t.Inputs = map[string]*PropertyDefinition{}
	}
	if t.InputArtifacts == nil {
		t.InputArtifacts = map[string]*DeploymentArtifact{}
	}
	if t.OutputProperties == nil {
		t.OutputProperties = map[string]sets.Set[string]{}
	}
	if t.OutputAttributes == nil {
		t.OutputAttributes = map[string]sets.Set[string]{}
	}
	if t.OutputCapabilityProperties == nil {
		t.OutputCapabilityProperties = map[string]map[string]sets.Set[string]{}
	}
}

func (t *Topology) Id() string {
	return t.ArchiveName + ":" + t.ArchiveVersion
}

func (t *Topology) GetNode(name string) (*NodeTemplate, error) {
	n := t.NodeTemplates.Get(name)
	if n == nil {
		return nil, errkind.ErrNotFound("node template", name)
	}
	return n, nil
}

func (t *Topology) GetPolicy(name string) (*PolicyTemplate, error) {
	p := t.Policies.Get(name)
	if p == nil {
		return nil, errkind.ErrNotFound("policy", name)
	}
	return p, nil
}

func (t *Topology) GetWorkflow(name string) (*Workflow, error) {
	w := t.Workflows.Get(name)
	if w == nil {
		return nil, errkind.ErrNotFound("workflow", name)
	}
	return w, nil
}

// HasDependency reports whether an archive is a dependency, regardless of
// its version.
func (t *Topology) HasDependency(name string) bool {
	return slices.ContainsFunc(t.Dependencies, func(d CSARDependency) bool { return d.Name == name })
}

// AddDependency adds or replaces the dependency for the archive name.
// It returns the replaced dependency, if any.
func (t *Topology) AddDependency(d CSARDependency) *CSARDependency {
	for i, e := range t.Dependencies {
		if e.Name == d.Name {
			if e.Version == d.Version {
				return nil
			}
			t.Dependencies[i] = d
			return &e
		}
	}
	t.Dependencies = append(t.Dependencies, d)
	slices.SortFunc(t.Dependencies, func(a, b CSARDependency) int { return strings.Compare(a.String(), b.String()) })
	return nil
}

func (t *Topology) RemoveDependency(d CSARDependency) bool {
	l := len(t.Dependencies)
	t.Dependencies = slices.DeleteFunc(t.Dependencies, func(e CSARDependency) bool { return e == d })
	return l != len(t.Dependencies)
}

// RemoveOutputs drops all output references to the node.
func (t *Topology) RemoveOutputs(node string) {
	delete(t.OutputProperties, node)
	delete(t.OutputAttributes, node)
	delete(t.OutputCapabilityProperties, node)
}

// RenameOutputs moves all output references of a node.
func (t *Topology) RenameOutputs(old, new string) {
	renameKey(t.OutputProperties, old, new)
	renameKey(t.OutputAttributes, old, new)
	renameKey(t.OutputCapabilityProperties, old, new)
}

func renameKey[V any](m map[string]V, old, new string) {
	if v, ok := m[old]; ok {
		delete(m, old)
		m[new] = v
	}
}

// InputReferences lists the node properties bound to the input
// via get_input as <node>.<property> or <node>.<capability>.<property>.
func (t *Topology) InputReferences(input string) []string {
	var refs []string
	match := func(v PropertyValue) bool {
		f, ok := v.(*FunctionValue)
		return ok && f.Function == FunctionGetInput && len(f.Parameters) > 0 && f.Parameters[0] == input
	}
	for _, n := range t.NodeTemplates.List() {
		for _, p := range maputils.OrderedKeys(n.Properties) {
			if match(n.Properties[p]) {
				refs = append(refs, n.Name+"."+p)
			}
		}
		for _, c := range maputils.OrderedKeys(n.Capabilities) {
			for _, p := range maputils.OrderedKeys(n.Capabilities[c].Properties) {
				if match(n.Capabilities[c].Properties[p]) {
					refs = append(refs, n.Name+"."+c+"."+p)
				}
			}
		}
		for _, rel := range n.Relationships.List() {
			for _, p := range maputils.OrderedKeys(rel.Properties) {
				if match(rel.Properties[p]) {
					refs = append(refs, n.Name+"."+rel.Name+"."+p)
				}
			}
		}
	}
	return refs
}

// PruneOutputs removes empty output containers.
func (t *Topology) PruneOutputs() {
	for k, v := range t.OutputProperties {
		if v.Len() == 0 {
			delete(t.OutputProperties, k)
		}
	}
	for k, v := range t.OutputAttributes {
		if v.Len() == 0 {
			delete(t.OutputAttributes, k)
		}
	}
	for k, caps := range t.OutputCapabilityProperties {
		for c, v := range caps {
			if v.Len() == 0 {
				delete(caps, c)
			}
		}
		if len(caps) == 0 {
			delete(t.OutputCapabilityProperties, k)
		}
	}
}
