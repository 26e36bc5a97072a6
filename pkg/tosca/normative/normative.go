// Package normative provides the TOSCA normative types archive used
// as base for all topologies.
package normative

import (
	"context"
	_ "embed"

	"github.com/mandelsoft/goutils/errors"
	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/parser"
)

var REALM = logging.DefineRealm("toscaeditor/normative", "TOSCA normative types")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

const (
	Name    = "tosca-normative-types"
	Version = "1.0.0-ALIEN20"

	fileName = "normative-types.yml"
)

//go:embed normative-types.yml
var definitions []byte

// Definitions returns the YAML source of the archive.
func Definitions() []byte {
	return append([]byte(nil), definitions...)
}

func Dependency() model.CSARDependency {
	return model.CSARDependency{Name: Name, Version: Version}
}

// Parse parses the embedded archive.
func Parse(ctx context.Context) (*model.ArchiveRoot, error) {
	fs := memoryfs.New()
	if err := vfs.WriteFile(fs, "/"+fileName, definitions, 0o644); err != nil {
		return nil, err
	}
	r, err := parser.New(nil).Parse(ctx, fs, "/"+fileName, true)
	if err != nil {
		return nil, err
	}
	if err := r.Error(); err != nil {
		return nil, errors.Wrapf(err, "normative types")
	}
	return r.Root, nil
}

// Import adds the normative types to a catalog, if not already present.
func Import(ctx context.Context, cat *catalog.Catalog) error {
	if a, err := cat.Archive(Name, Version); err == nil && a != nil {
		return nil
	}
	root, err := Parse(ctx)
	if err != nil {
		return err
	}
	log.Info("importing {{archive}} into type catalog", "archive", Dependency())
	return cat.Import(root)
}
