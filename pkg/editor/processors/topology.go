package processors

import (
	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
)

func init() {
	Register(DefaultRegistry, UpdateFile)
	Register(DefaultRegistry, DeleteFile)
	Register(DefaultRegistry, MoveFile)
	Register(DefaultRegistry, ResetTopology)
}

func (e *Edition) files() (Files, error) {
	if e.Files == nil {
		return nil, errkind.ErrInvalidArgument("no archive files for topology %s", e.Topology.Id())
	}
	return e.Files, nil
}

func UpdateFile(e *Edition, op *operations.UpdateFile) error {
	f, err := e.files()
	if err != nil {
		return err
	}
	return f.Write(op.Path, []byte(op.Content))
}

func DeleteFile(e *Edition, op *operations.DeleteFile) error {
	f, err := e.files()
	if err != nil {
		return err
	}
	return f.Delete(op.Path)
}

func MoveFile(e *Edition, op *operations.MoveFile) error {
	f, err := e.files()
	if err != nil {
		return err
	}
	return f.Move(op.Path, op.NewPath)
}

// ResetTopology drops all templates, inputs and workflows of the
// topology. The archive identity and its dependencies are kept.
func ResetTopology(e *Edition, op *operations.ResetTopology) error {
	old := *e.Topology
	*e.Topology = *model.NewTopology(old.ArchiveName, old.ArchiveVersion, old.Workspace)
	e.Topology.Description = old.Description
	e.Topology.Dependencies = old.Dependencies
	log.Info("reset topology {{topology}}", "topology", e.Topology.Id())
	return e.Workflows.InitWorkflows(e.Context, e.Topology)
}
