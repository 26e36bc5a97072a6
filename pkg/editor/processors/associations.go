package processors

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

func init() {
	Register(DefaultRegistry, SetNodePropertyAsInput)
	Register(DefaultRegistry, UnsetNodePropertyAsInput)
	Register(DefaultRegistry, SetCapabilityPropertyAsInput)
	Register(DefaultRegistry, UnsetCapabilityPropertyAsInput)

	Register(DefaultRegistry, SetNodePropertyAsSecret)
	Register(DefaultRegistry, UnsetNodePropertyAsSecret)
	Register(DefaultRegistry, SetCapabilityPropertyAsSecret)
	Register(DefaultRegistry, UnsetCapabilityPropertyAsSecret)

	Register(DefaultRegistry, SetNodeAttributeAsOutput)
	Register(DefaultRegistry, UnsetNodeAttributeAsOutput)
	Register(DefaultRegistry, SetNodePropertyAsOutput)
	Register(DefaultRegistry, UnsetNodePropertyAsOutput)
	Register(DefaultRegistry, SetCapabilityPropertyAsOutput)
	Register(DefaultRegistry, UnsetCapabilityPropertyAsOutput)

	Register(DefaultRegistry, SetNodeArtifactAsInput)
	Register(DefaultRegistry, UnsetNodeArtifactAsInput)
	Register(DefaultRegistry, UpdateDeploymentArtifact)
}

// nodeProperty resolves a node property slot.
func (e *Edition) nodeProperty(ref operations.PropertyRef) (slot, error) {
	n, err := e.Topology.GetNode(ref.NodeName)
	if err != nil {
		return slot{}, err
	}
	nt, err := e.nodeType(n)
	if err != nil {
		return slot{}, err
	}
	def := nt.Properties[ref.PropertyName]
	if def == nil {
		return slot{}, errkind.ErrNotFound("property", n.Name+"."+ref.PropertyName)
	}
	if n.Properties == nil {
		n.Properties = map[string]model.PropertyValue{}
	}
	return slot{props: n.Properties, name: ref.PropertyName, def: def}, nil
}

// capabilityProperty resolves a capability property slot.
func (e *Edition) capabilityProperty(ref operations.CapabilityPropertyRef) (slot, error) {
	n, err := e.Topology.GetNode(ref.NodeName)
	if err != nil {
		return slot{}, err
	}
	c, ct, err := e.capability(n, ref.CapabilityName)
	if err != nil {
		return slot{}, err
	}
	def := ct.Properties[ref.PropertyName]
	if def == nil {
		return slot{}, errkind.ErrNotFound("property", n.Name+"."+ref.CapabilityName+"."+ref.PropertyName)
	}
	return slot{props: c.Properties, name: ref.PropertyName, def: def}, nil
}

// bindInput binds a property to a compatible input.
func (e *Edition) bindInput(s slot, input string) error {
	in := e.Topology.Inputs[input]
	if in == nil {
		return errkind.ErrNotFound("input", input)
	}
	if !in.IsCompatible(s.def) {
		return errkind.Newf(errkind.TypeMismatch, "input %q of type %s cannot be used for property %q of type %s", input, in.Type, s.name, s.def.Type)
	}
	s.props[s.name] = model.NewFunctionValue(model.FunctionGetInput, input)
	return nil
}

// unbind restores the default of a property bound with the
// given function.
func (e *Edition) unbind(s slot, function string) error {
	if !model.IsFunctionOf(s.value(), function) {
		return errkind.ErrNotFound(function+" binding", s.name)
	}
	s.reset(e.Types())
	return nil
}

func bindSecret(s slot, path string) error {
	if path == "" {
		return errkind.ErrInvalidArgument("secret path for property %q must not be empty", s.name)
	}
	s.props[s.name] = model.NewFunctionValue(model.FunctionGetSecret, path)
	return nil
}

func SetNodePropertyAsInput(e *Edition, op *operations.SetNodePropertyAsInput) error {
	s, err := e.nodeProperty(op.PropertyRef)
	if err != nil {
		return err
	}
	return e.bindInput(s, op.InputName)
}

func UnsetNodePropertyAsInput(e *Edition, op *operations.UnsetNodePropertyAsInput) error {
	s, err := e.nodeProperty(op.PropertyRef)
	if err != nil {
		return err
	}
	return e.unbind(s, model.FunctionGetInput)
}

func SetCapabilityPropertyAsInput(e *Edition, op *operations.SetCapabilityPropertyAsInput) error {
	s, err := e.capabilityProperty(op.CapabilityPropertyRef)
	if err != nil {
		return err
	}
	return e.bindInput(s, op.InputName)
}

func UnsetCapabilityPropertyAsInput(e *Edition, op *operations.UnsetCapabilityPropertyAsInput) error {
	s, err := e.capabilityProperty(op.CapabilityPropertyRef)
	if err != nil {
		return err
	}
	return e.unbind(s, model.FunctionGetInput)
}

func SetNodePropertyAsSecret(e *Edition, op *operations.SetNodePropertyAsSecret) error {
	s, err := e.nodeProperty(op.PropertyRef)
	if err != nil {
		return err
	}
	return bindSecret(s, op.SecretPath)
}

func UnsetNodePropertyAsSecret(e *Edition, op *operations.UnsetNodePropertyAsSecret) error {
	s, err := e.nodeProperty(op.PropertyRef)
	if err != nil {
		return err
	}
	return e.unbind(s, model.FunctionGetSecret)
}

func SetCapabilityPropertyAsSecret(e *Edition, op *operations.SetCapabilityPropertyAsSecret) error {
	s, err := e.capabilityProperty(op.CapabilityPropertyRef)
	if err != nil {
		return err
	}
	return bindSecret(s, op.SecretPath)
}

func UnsetCapabilityPropertyAsSecret(e *Edition, op *operations.UnsetCapabilityPropertyAsSecret) error {
	s, err := e.capabilityProperty(op.CapabilityPropertyRef)
	if err != nil {
		return err
	}
	return e.unbind(s, model.FunctionGetSecret)
}

////////////////////////////////////////////////////////////////////////////////
// outputs

func outputSet(m map[string]sets.Set[string], key string) sets.Set[string] {
	s := m[key]
	if s == nil {
		s = sets.New[string]()
		m[key] = s
	}
	return s
}

func SetNodeAttributeAsOutput(e *Edition, op *operations.SetNodeAttributeAsOutput) error {
	n, err := e.Topology.GetNode(op.NodeName)
	if err != nil {
		return err
	}
	if _, ok := n.Attributes[op.AttributeName]; !ok {
		nt := typectx.Lookup[*model.NodeType](e.Context, n.Type)
		if nt == nil || nt.Attributes[op.AttributeName] == nil {
			return errkind.ErrNotFound("attribute", n.Name+"."+op.AttributeName)
		}
	}
	outputSet(e.Topology.OutputAttributes, n.Name).Insert(op.AttributeName)
	return nil
}

func UnsetNodeAttributeAsOutput(e *Edition, op *operations.UnsetNodeAttributeAsOutput) error {
	if _, err := e.Topology.GetNode(op.NodeName); err != nil {
		return err
	}
	if s := e.Topology.OutputAttributes[op.NodeName]; s != nil {
		s.Delete(op.AttributeName)
	}
	e.Topology.PruneOutputs()
	return nil
}

func SetNodePropertyAsOutput(e *Edition, op *operations.SetNodePropertyAsOutput) error {
	if _, err := e.nodeProperty(op.PropertyRef); err != nil {
		return err
	}
	outputSet(e.Topology.OutputProperties, op.NodeName).Insert(op.PropertyName)
	return nil
}

func UnsetNodePropertyAsOutput(e *Edition, op *operations.UnsetNodePropertyAsOutput) error {
	if _, err := e.Topology.GetNode(op.NodeName); err != nil {
		return err
	}
	if s := e.Topology.OutputProperties[op.NodeName]; s != nil {
		s.Delete(op.PropertyName)
	}
	e.Topology.PruneOutputs()
	return nil
}

func SetCapabilityPropertyAsOutput(e *Edition, op *operations.SetCapabilityPropertyAsOutput) error {
	if _, err := e.capabilityProperty(op.CapabilityPropertyRef); err != nil {
		return err
	}
	caps := e.Topology.OutputCapabilityProperties[op.NodeName]
	if caps == nil {
		caps = map[string]sets.Set[string]{}
		e.Topology.OutputCapabilityProperties[op.NodeName] = caps
	}
	outputSet(caps, op.CapabilityName).Insert(op.PropertyName)
	return nil
}

func UnsetCapabilityPropertyAsOutput(e *Edition, op *operations.UnsetCapabilityPropertyAsOutput) error {
	if _, err := e.Topology.GetNode(op.NodeName); err != nil {
		return err
	}
	if s := e.Topology.OutputCapabilityProperties[op.NodeName][op.CapabilityName]; s != nil {
		s.Delete(op.PropertyName)
	}
	e.Topology.PruneOutputs()
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// artifacts

func (e *Edition) artifact(nodeName, name string) (*model.NodeTemplate, *model.DeploymentArtifact, error) {
	n, err := e.Topology.GetNode(nodeName)
	if err != nil {
		return nil, nil, err
	}
	a := n.Artifacts[name]
	if a == nil {
		return nil, nil, errkind.ErrNotFound("artifact", n.Name+"."+name)
	}
	return n, a, nil
}

// SetNodeArtifactAsInput binds a node artifact to an input artifact.
func SetNodeArtifactAsInput(e *Edition, op *operations.SetNodeArtifactAsInput) error {
	_, a, err := e.artifact(op.NodeName, op.ArtifactName)
	if err != nil {
		return err
	}
	if op.NewInput {
		if !model.GroupNamePattern.MatchString(op.InputName) {
			return errkind.ErrInvalidName("input artifact", op.InputName)
		}
		if e.Topology.InputArtifacts[op.InputName] != nil {
			return errkind.ErrAlreadyExists("input artifact", op.InputName)
		}
		in := *a
		e.Topology.InputArtifacts[op.InputName] = &in
	} else if e.Topology.InputArtifacts[op.InputName] == nil {
		return errkind.ErrNotFound("input artifact", op.InputName)
	}
	a.ArtifactRef = model.InputArtifactRef(op.InputName)
	a.ArtifactRepository = ""
	a.RepositoryURL = ""
	a.RepositoryName = ""
	a.ArchiveName = ""
	a.ArchiveVersion = ""
	return nil
}

// UnsetNodeArtifactAsInput restores the artifact defined by the node type.
func UnsetNodeArtifactAsInput(e *Edition, op *operations.UnsetNodeArtifactAsInput) error {
	n, a, err := e.artifact(op.NodeName, op.ArtifactName)
	if err != nil {
		return err
	}
	if in, ok := model.InputArtifactOf(a.ArtifactRef); !ok || in != op.InputName {
		return errkind.ErrNotFound("input artifact binding", n.Name+"."+op.ArtifactName)
	}
	restored := &model.DeploymentArtifact{ArtifactType: a.ArtifactType}
	if nt := typectx.Lookup[*model.NodeType](e.Context, n.Type); nt != nil && nt.Artifacts[op.ArtifactName] != nil {
		c := *nt.Artifacts[op.ArtifactName]
		restored = &c
	}
	n.Artifacts[op.ArtifactName] = restored
	return nil
}

// UpdateDeploymentArtifact sets the artifact reference. Without
// repository the reference is a file of the topology archive.
func UpdateDeploymentArtifact(e *Edition, op *operations.UpdateDeploymentArtifact) error {
	_, a, err := e.artifact(op.NodeName, op.ArtifactName)
	if err != nil {
		return err
	}
	if op.ArtifactReference == "" {
		return errkind.ErrInvalidArgument("artifact reference must not be empty")
	}
	a.ArtifactRef = op.ArtifactReference
	if op.ArtifactRepository == "" {
		if e.Files != nil && !e.Files.Exists(op.ArtifactReference) {
			return errkind.ErrNotFound("archive file", op.ArtifactReference)
		}
		a.ArtifactRepository = ""
		a.RepositoryURL = ""
		a.RepositoryName = ""
		a.ArchiveName = e.Topology.ArchiveName
		a.ArchiveVersion = e.Topology.ArchiveVersion
		return nil
	}
	a.ArtifactRepository = op.ArtifactRepository
	a.RepositoryURL = op.RepositoryUrl
	a.RepositoryName = op.RepositoryName
	a.ArchiveName = op.ArchiveName
	a.ArchiveVersion = op.ArchiveVersion
	return nil
}
