package model

import (
	"slices"
)

// Kind is the kind of TOSCA type.
type Kind string

const (
	NodeKind         Kind = "node"
	RelationshipKind Kind = "relationship"
	CapabilityKind   Kind = "capability"
	DataKind         Kind = "data"
	PolicyKind       Kind = "policy"
	ArtifactKind     Kind = "artifact"
)

var Kinds = []Kind{NodeKind, RelationshipKind, CapabilityKind, DataKind, PolicyKind, ArtifactKind}

// Type is any TOSCA type definition.
type Type interface {
	Kind() Kind
	Base() *TypeBase
}

// TypeBase holds the members common to all types.
// DerivedFrom is the complete parent chain, nearest parent first.
type TypeBase struct {
	ElementId      string            `json:"elementId"`
	ArchiveName    string            `json:"archiveName"`
	ArchiveVersion string            `json:"archiveVersion"`
	DerivedFrom    []string          `json:"derivedFrom,omitempty"`
	Description    string            `json:"description,omitempty"`
	Abstract       bool              `json:"abstract,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
}

func (t *TypeBase) Base() *TypeBase {
	return t
}

// Parent returns the direct parent type name.
func (t *TypeBase) Parent() string {
	if len(t.DerivedFrom) == 0 {
		return ""
	}
	return t.DerivedFrom[0]
}

// IsA reports whether the type is or is derived from the given one.
func (t *TypeBase) IsA(name string) bool {
	return t.ElementId == name || slices.Contains(t.DerivedFrom, name)
}

func (t *TypeBase) Dependency() CSARDependency {
	return CSARDependency{Name: t.ArchiveName, Version: t.ArchiveVersion}
}

type NodeType struct {
	TypeBase     `json:",inline"`
	Properties   map[string]*PropertyDefinition  `json:"properties,omitempty"`
	Attributes   map[string]*AttributeDefinition `json:"attributes,omitempty"`
	Capabilities []*CapabilityDefinition         `json:"capabilities,omitempty"`
	Requirements []*RequirementDefinition        `json:"requirements,omitempty"`
	Interfaces   map[string]*Interface           `json:"interfaces,omitempty"`
	Artifacts    map[string]*DeploymentArtifact  `json:"artifacts,omitempty"`
}

func (t *NodeType) Kind() Kind {
	return NodeKind
}

func (t *NodeType) Capability(id string) *CapabilityDefinition {
	for _, c := range t.Capabilities {
		if c.Id == id {
			return c
		}
	}
	return nil
}

func (t *NodeType) Requirement(id string) *RequirementDefinition {
	for _, r := range t.Requirements {
		if r.Id == id {
			return r
		}
	}
	return nil
}

type RelationshipType struct {
	TypeBase     `json:",inline"`
	Properties   map[string]*PropertyDefinition  `json:"properties,omitempty"`
	Attributes   map[string]*AttributeDefinition `json:"attributes,omitempty"`
	Interfaces   map[string]*Interface           `json:"interfaces,omitempty"`
	ValidSources []string                        `json:"validSources,omitempty"`
	ValidTargets []string                        `json:"validTargets,omitempty"`
}

func (t *RelationshipType) Kind() Kind {
	return RelationshipKind
}

type CapabilityType struct {
	TypeBase     `json:",inline"`
	Properties   map[string]*PropertyDefinition  `json:"properties,omitempty"`
	Attributes   map[string]*AttributeDefinition `json:"attributes,omitempty"`
	ValidSources []string                        `json:"validSources,omitempty"`
}

func (t *CapabilityType) Kind() Kind {
	return CapabilityKind
}

// DataType is a complex data type or, if Primitive is set,
// a data type derived from a simple type.
type DataType struct {
	TypeBase    `json:",inline"`
	Primitive   string                         `json:"primitive,omitempty"`
	Properties  map[string]*PropertyDefinition `json:"properties,omitempty"`
	Constraints []Constraint                   `json:"constraints,omitempty"`
}

func (t *DataType) Kind() Kind {
	return DataKind
}

type PolicyType struct {
	TypeBase   `json:",inline"`
	Properties map[string]*PropertyDefinition `json:"properties,omitempty"`
	Targets    []string                       `json:"targets,omitempty"`
}

func (t *PolicyType) Kind() Kind {
	return PolicyKind
}

type ArtifactType struct {
	TypeBase `json:",inline"`
	MimeType string   `json:"mimeType,omitempty"`
	FileExt  []string `json:"fileExt,omitempty"`
}

func (t *ArtifactType) Kind() Kind {
	return ArtifactKind
}

// NewType creates an empty type object of the given kind.
func NewType(k Kind) Type {
	switch k {
	case NodeKind:
		return &NodeType{}
	case RelationshipKind:
		return &RelationshipType{}
	case CapabilityKind:
		return &CapabilityType{}
	case DataKind:
		return &DataType{}
	case PolicyKind:
		return &PolicyType{}
	case ArtifactKind:
		return &ArtifactType{}
	}
	return nil
}

// PropertiesOf returns the property definitions of a type, if it has some.
func PropertiesOf(t Type) map[string]*PropertyDefinition {
	switch e := t.(type) {
	case *NodeType:
		return e.Properties
	case *RelationshipType:
		return e.Properties
	case *CapabilityType:
		return e.Properties
	case *DataType:
		return e.Properties
	case *PolicyType:
		return e.Properties
	}
	return nil
}
