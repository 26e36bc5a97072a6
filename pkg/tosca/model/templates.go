package model

import (
	"k8s.io/apimachinery/pkg/util/sets"
)

type Capability struct {
	Type       string                   `json:"type"`
	Properties map[string]PropertyValue `json:"properties,omitempty"`
}

type Requirement struct {
	Type       string                   `json:"type"`
	Properties map[string]PropertyValue `json:"properties,omitempty"`
}

type RelationshipTemplate struct {
	Name                   string                   `json:"name"`
	Type                   string                   `json:"type"`
	Target                 string                   `json:"target"`
	RequirementName        string                   `json:"requirementName"`
	RequirementType        string                   `json:"requirementType"`
	TargetedCapabilityName string                   `json:"targetedCapabilityName,omitempty"`
	Properties             map[string]PropertyValue `json:"properties,omitempty"`
	Interfaces             map[string]*Interface    `json:"interfaces,omitempty"`
}

type NodeTemplate struct {
	Name          string                              `json:"name"`
	Type          string                              `json:"type"`
	Description   string                              `json:"description,omitempty"`
	Properties    map[string]PropertyValue            `json:"properties,omitempty"`
	Attributes    map[string]interface{}              `json:"attributes,omitempty"`
	Capabilities  map[string]*Capability              `json:"capabilities,omitempty"`
	Requirements  map[string]*Requirement             `json:"requirements,omitempty"`
	Relationships *OrderedMap[*RelationshipTemplate] `json:"relationships,omitempty"`
	Artifacts     map[string]*DeploymentArtifact      `json:"artifacts,omitempty"`
	Interfaces    map[string]*Interface               `json:"interfaces,omitempty"`
	Groups        sets.Set[string]                    `json:"groups,omitempty"`
	Tags          map[string]string                   `json:"tags,omitempty"`
	NodeFilter    interface{}                         `json:"nodeFilter,omitempty"`
}

// RelationshipsTo returns the relationships of the template
// targeting the given node.
func (n *NodeTemplate) RelationshipsTo(target string) []*RelationshipTemplate {
	var r []*RelationshipTemplate
	for _, rel := range n.Relationships.List() {
		if rel.Target == target {
			r = append(r, rel)
		}
	}
	return r
}

// CountRequirement counts the relationships established for
// the requirement.
func (n *NodeTemplate) CountRequirement(name string) int {
	c := 0
	for _, rel := range n.Relationships.List() {
		if rel.RequirementName == name {
			c++
		}
	}
	return c
}

type NodeGroup struct {
	Name    string           `json:"name"`
	Index   int              `json:"index"`
	Members sets.Set[string] `json:"members,omitempty"`
}

type PolicyTemplate struct {
	Name        string                   `json:"name"`
	Type        string                   `json:"type"`
	Description string                   `json:"description,omitempty"`
	Targets     sets.Set[string]         `json:"targets,omitempty"`
	Properties  map[string]PropertyValue `json:"properties,omitempty"`
}

// SubstitutionTarget is an exposed capability or requirement.
type SubstitutionTarget struct {
	NodeTemplateName string `json:"nodeTemplateName"`
	TargetId         string `json:"targetId"`
}

type SubstitutionMapping struct {
	SubstitutionType string                         `json:"substitutionType"`
	Capabilities     map[string]*SubstitutionTarget `json:"capabilities,omitempty"`
	Requirements     map[string]*SubstitutionTarget `json:"requirements,omitempty"`
}
