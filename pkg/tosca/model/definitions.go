package model

import (
	"math"
	"strings"
)

// Unbounded is the upper bound of an unlimited occurrence range.
const Unbounded = math.MaxInt32

// Constraint is a single constraint clause in its data form.
type Constraint struct {
	Kind    string      `json:"kind"`
	Operand interface{} `json:"operand"`
}

type PropertyDefinition struct {
	Type        string              `json:"type"`
	EntrySchema *PropertyDefinition `json:"entry_schema,omitempty"`
	Required    bool                `json:"required,omitempty"`
	Description string              `json:"description,omitempty"`
	// Default is the canonical raw default value.
	Default     interface{}  `json:"default,omitempty"`
	Constraints []Constraint `json:"constraints,omitempty"`
	Password    bool         `json:"password,omitempty"`
}

// IsCompatible checks whether values of the other definition
// can be assigned to properties of this one.
func (d *PropertyDefinition) IsCompatible(o *PropertyDefinition) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Type != o.Type {
		return false
	}
	if d.EntrySchema != nil || o.EntrySchema != nil {
		return d.EntrySchema.IsCompatible(o.EntrySchema)
	}
	return true
}

type AttributeDefinition struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

type CapabilityDefinition struct {
	Id           string                 `json:"id"`
	Type         string                 `json:"type"`
	Description  string                 `json:"description,omitempty"`
	LowerBound   int                    `json:"lowerBound"`
	UpperBound   int                    `json:"upperBound"`
	ValidSources []string               `json:"validSources,omitempty"`
	Properties   map[string]interface{} `json:"properties,omitempty"`
}

type RequirementDefinition struct {
	Id               string `json:"id"`
	Type             string `json:"type"`
	Description      string `json:"description,omitempty"`
	RelationshipType string `json:"relationshipType,omitempty"`
	CapabilityName   string `json:"capabilityName,omitempty"`
	NodeType         string `json:"nodeType,omitempty"`
	LowerBound       int    `json:"lowerBound"`
	UpperBound       int    `json:"upperBound"`
}

type Operation struct {
	Description    string                 `json:"description,omitempty"`
	Implementation string                 `json:"implementation,omitempty"`
	Inputs         map[string]interface{} `json:"inputs,omitempty"`
}

type Interface struct {
	Type       string                `json:"type,omitempty"`
	Operations map[string]*Operation `json:"operations,omitempty"`
}

// HasOperation reports whether the interface defines the operation.
func (i *Interface) HasOperation(name string) bool {
	return i != nil && i.Operations[name] != nil
}

type DeploymentArtifact struct {
	ArtifactType       string `json:"artifactType,omitempty"`
	ArtifactRef        string `json:"artifactRef,omitempty"`
	ArtifactRepository string `json:"artifactRepository,omitempty"`
	ArtifactName       string `json:"artifactName,omitempty"`
	RepositoryURL      string `json:"repositoryURL,omitempty"`
	RepositoryName     string `json:"repositoryName,omitempty"`
	ArchiveName        string `json:"archiveName,omitempty"`
	ArchiveVersion     string `json:"archiveVersion,omitempty"`
	Description        string `json:"description,omitempty"`
}

// InputArtifactRef is the artifact reference binding an artifact
// to an input artifact of the topology.
func InputArtifactRef(input string) string {
	return "{ " + FunctionGetInputArtifact + ": " + input + " }"
}

// InputArtifactOf returns the input artifact an artifact reference
// is bound to.
func InputArtifactOf(ref string) (string, bool) {
	prefix := "{ " + FunctionGetInputArtifact + ": "
	if !strings.HasPrefix(ref, prefix) || !strings.HasSuffix(ref, " }") {
		return "", false
	}
	return strings.TrimSpace(ref[len(prefix) : len(ref)-2]), true
}
