package model

import (
	"slices"
)

const (
	InstallWorkflow   = "install"
	UninstallWorkflow = "uninstall"
	StartWorkflow     = "start"
	StopWorkflow      = "stop"
)

// StandardWorkflows are maintained by the workflow builder.
var StandardWorkflows = []string{InstallWorkflow, UninstallWorkflow, StartWorkflow, StopWorkflow}

func IsStandardWorkflow(name string) bool {
	return slices.Contains(StandardWorkflows, name)
}

const (
	ActivitySetState      = "set_state"
	ActivityCallOperation = "call_operation"
	ActivityDelegate      = "delegate"
	ActivityInline        = "inline"
)

// Activity is a single workflow activity. For call_operation the
// value has the form <interface>.<operation>, for delegate and
// inline it is the workflow name.
type Activity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (a Activity) String() string {
	return a.Type + ":" + a.Value
}

type Step struct {
	Name               string     `json:"name"`
	Target             string     `json:"target,omitempty"`
	TargetRelationship string     `json:"targetRelationship,omitempty"`
	OperationHost      string     `json:"operationHost,omitempty"`
	Activities         []Activity `json:"activities,omitempty"`
	OnSuccess          []string   `json:"onSuccess,omitempty"`
	OnFailure          []string   `json:"onFailure,omitempty"`
	Precedings         []string   `json:"precedings,omitempty"`
}

// Activity returns the first activity of the step.
func (s *Step) Activity() Activity {
	if len(s.Activities) == 0 {
		return Activity{}
	}
	return s.Activities[0]
}

type Workflow struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Standard    bool               `json:"standard"`
	Steps       *OrderedMap[*Step] `json:"steps,omitempty"`
}

func NewWorkflow(name string, standard bool) *Workflow {
	return &Workflow{Name: name, Standard: standard, Steps: NewOrderedMap[*Step]()}
}

// UpdatePrecedings recomputes the preceding steps from the
// on_success edges.
func (w *Workflow) UpdatePrecedings() {
	for _, st := range w.Steps.List() {
		st.Precedings = nil
	}
	for _, st := range w.Steps.List() {
		for _, next := range st.OnSuccess {
			if n := w.Steps.Get(next); n != nil && !slices.Contains(n.Precedings, st.Name) {
				n.Precedings = append(n.Precedings, st.Name)
			}
		}
	}
}
