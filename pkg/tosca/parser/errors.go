package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type Level string

const (
	Error   Level = "ERROR"
	Warning Level = "WARNING"
	Info    Level = "INFO"
)

type Code string

const (
	FailedToReadFile          Code = "FAILED_TO_READ_FILE"
	ErroneousArchiveFile      Code = "ERRONEOUS_ARCHIVE_FILE"
	EntryDefinitionNotFound   Code = "ENTRY_DEFINITION_NOT_FOUND"
	SingleDefinitionSupported Code = "SINGLE_DEFINITION_SUPPORTED"

	SyntaxError               Code = "SYNTAX_ERROR"
	MissingToscaVersion       Code = "MISSING_TOSCA_VERSION"
	UnknownToscaVersion       Code = "UNKNOWN_TOSCA_VERSION"
	YamlMappingExpected       Code = "YAML_MAPPING_NODE_EXPECTED"
	YamlSequenceExpected      Code = "YAML_SEQUENCE_EXPECTED"
	YamlScalarExpected        Code = "YAML_SCALAR_NODE_EXPECTED"
	UnrecognizedProperty      Code = "UNRECOGNIZED_PROPERTY"
	MissingFile               Code = "MISSING_FILE"
	MissingDependency         Code = "MISSING_DEPENDENCY"
	UnknownImport             Code = "UNKNOWN_IMPORT"
	TypeNotFound              Code = "TYPE_NOT_FOUND"
	CyclicDerivedFrom         Code = "CYCLIC_DERIVED_FROM"
	ValidationError           Code = "VALIDATION_ERROR"
	InvalidConstraint         Code = "INVALID_CONSTRAINT"
	InvalidName               Code = "INVALID_NAME"
	RequirementNotFound       Code = "REQUIREMENT_NOT_FOUND"
	RequirementTargetNotFound Code = "REQUIREMENT_TARGET_NOT_FOUND"
	CapabilityNotFound        Code = "CAPABILITY_NOT_FOUND"
	MissingTopologyInput      Code = "MISSING_TOPOLOGY_INPUT"
	NodeNotFound              Code = "NODE_NOT_FOUND"
)

// Mark is a position in a YAML source file, line and column start at 1.
type Mark struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (m Mark) String() string {
	return fmt.Sprintf("%d:%d", m.Line, m.Column)
}

type ParsingError struct {
	Level     Level  `json:"level"`
	Code      Code   `json:"code"`
	File      string `json:"file,omitempty"`
	StartMark Mark   `json:"startMark"`
	EndMark   Mark   `json:"endMark"`
	Problem   string `json:"problem"`
	Note      string `json:"note,omitempty"`
	Context   string `json:"context,omitempty"`
}

func (e ParsingError) String() string {
	s := fmt.Sprintf("%s:%s: %s %s: %s", e.File, e.StartMark, e.Level, e.Code, e.Problem)
	if e.Note != "" {
		s += " (" + e.Note + ")"
	}
	return s
}

// ParsingException is returned for archives that cannot be parsed at all,
// or by ParsingResult.Error if the result contains errors.
type ParsingException struct {
	Path   string
	Errors []ParsingError
}

func (e *ParsingException) Error() string {
	var msgs []string
	for _, p := range e.Errors {
		if p.Level == Error {
			msgs = append(msgs, p.String())
		}
	}
	return fmt.Sprintf("parsing %s failed: %s", e.Path, strings.Join(msgs, "; "))
}

func exception(path string, code Code, problem string, args ...interface{}) *ParsingException {
	return &ParsingException{
		Path: path,
		Errors: []ParsingError{{
			Level:   Error,
			Code:    code,
			File:    path,
			Problem: fmt.Sprintf(problem, args...),
		}},
	}
}

func startMark(n *yaml.Node) Mark {
	if n == nil {
		return Mark{}
	}
	return Mark{Line: n.Line, Column: n.Column}
}

// endMark approximates the end of a node by its last scalar.
func endMark(n *yaml.Node) Mark {
	if n == nil {
		return Mark{}
	}
	for len(n.Content) > 0 {
		n = n.Content[len(n.Content)-1]
	}
	return Mark{Line: n.Line, Column: n.Column + len(n.Value)}
}
