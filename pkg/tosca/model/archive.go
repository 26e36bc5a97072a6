package model

// ArchiveRoot is the content of a parsed TOSCA archive.
type ArchiveRoot struct {
	Archive                 Csar   `json:"archive"`
	ToscaDefinitionsVersion string `json:"toscaDefinitionsVersion"`

	NodeTypes         map[string]*NodeType         `json:"nodeTypes,omitempty"`
	RelationshipTypes map[string]*RelationshipType `json:"relationshipTypes,omitempty"`
	CapabilityTypes   map[string]*CapabilityType   `json:"capabilityTypes,omitempty"`
	DataTypes         map[string]*DataType         `json:"dataTypes,omitempty"`
	PolicyTypes       map[string]*PolicyType       `json:"policyTypes,omitempty"`
	ArtifactTypes     map[string]*ArtifactType     `json:"artifactTypes,omitempty"`

	Topology *Topology `json:"topology,omitempty"`
}

func NewArchiveRoot() *ArchiveRoot {
	return &ArchiveRoot{
		NodeTypes:         map[string]*NodeType{},
		RelationshipTypes: map[string]*RelationshipType{},
		CapabilityTypes:   map[string]*CapabilityType{},
		DataTypes:         map[string]*DataType{},
		PolicyTypes:       map[string]*PolicyType{},
		ArtifactTypes:     map[string]*ArtifactType{},
	}
}

// Type looks up a type of the archive itself.
func (a *ArchiveRoot) Type(kind Kind, name string) Type {
	var t Type
	switch kind {
	case NodeKind:
		if e := a.NodeTypes[name]; e != nil {
			t = e
		}
	case RelationshipKind:
		if e := a.RelationshipTypes[name]; e != nil {
			t = e
		}
	case CapabilityKind:
		if e := a.CapabilityTypes[name]; e != nil {
			t = e
		}
	case DataKind:
		if e := a.DataTypes[name]; e != nil {
			t = e
		}
	case PolicyKind:
		if e := a.PolicyTypes[name]; e != nil {
			t = e
		}
	case ArtifactKind:
		if e := a.ArtifactTypes[name]; e != nil {
			t = e
		}
	}
	return t
}

// SetType adds a type to the archive.
func (a *ArchiveRoot) SetType(t Type) {
	name := t.Base().ElementId
	switch e := t.(type) {
	case *NodeType:
		a.NodeTypes[name] = e
	case *RelationshipType:
		a.RelationshipTypes[name] = e
	case *CapabilityType:
		a.CapabilityTypes[name] = e
	case *DataType:
		a.DataTypes[name] = e
	case *PolicyType:
		a.PolicyTypes[name] = e
	case *ArtifactType:
		a.ArtifactTypes[name] = e
	}
}

// Types lists all types of the given kind.
func (a *ArchiveRoot) Types(kind Kind) []Type {
	var r []Type
	add := func(t Type) { r = append(r, t) }
	switch kind {
	case NodeKind:
		for _, e := range a.NodeTypes {
			add(e)
		}
	case RelationshipKind:
		for _, e := range a.RelationshipTypes {
			add(e)
		}
	case CapabilityKind:
		for _, e := range a.CapabilityTypes {
			add(e)
		}
	case DataKind:
		for _, e := range a.DataTypes {
			add(e)
		}
	case PolicyKind:
		for _, e := range a.PolicyTypes {
			add(e)
		}
	case ArtifactKind:
		for _, e := range a.ArtifactTypes {
			add(e)
		}
	}
	return r
}
