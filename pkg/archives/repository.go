// Package archives stores topology archives in git working copies,
// one working copy per archive version.
package archives

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/projectionfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/git"
	"github.com/mandelsoft/toscaeditor/pkg/topology"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/parser"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/serializer"
	"github.com/mandelsoft/toscaeditor/pkg/utils"
)

var REALM = logging.DefineRealm("toscaeditor/archives", "topology archive store")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

// Types resolves the types used by stored topologies.
type Types interface {
	catalog.Finder
	topology.Repository
}

// Archive is a loaded topology archive.
type Archive struct {
	Csar     *model.Csar
	Topology *model.Topology
	Files    *Files
	// Dir is the working copy.
	Dir string
	// Hash is the commit the archive has been loaded from.
	Hash string
}

// Definitions serializes the entry definitions of the archive.
func (a *Archive) Definitions() ([]byte, error) {
	csar := *a.Csar
	csar.Dependencies = a.Topology.Dependencies
	return serializer.Marshal(&csar, a.Topology)
}

// Digest is the content digest of the entry definitions.
func (a *Archive) Digest() (string, error) {
	data, err := a.Definitions()
	if err != nil {
		return "", err
	}
	return utils.HashData(data), nil
}

type Repository struct {
	root  string
	types Types
	git   *git.Manager
}

func NewRepository(root string, types Types, g *git.Manager) *Repository {
	return &Repository{root: root, types: types, git: g}
}

func (r *Repository) Git() *git.Manager {
	return r.git
}

func (r *Repository) Types() Types {
	return r.types
}

// WorkDir is the working copy of an archive version.
func (r *Repository) WorkDir(name, version string) string {
	return filepath.Join(r.root, name, version)
}

func (r *Repository) Exists(name, version string) bool {
	ok, _ := vfs.FileExists(osfs.OsFs, filepath.Join(r.WorkDir(name, version), EntryFile))
	return ok
}

// Create initializes a working copy for a new topology and commits
// its entry definitions.
func (r *Repository) Create(csar *model.Csar, topo *model.Topology, user, email string) (*Archive, error) {
	if csar.Name == "" || csar.Version == "" {
		return nil, errkind.ErrInvalidArgument("archive name and version required")
	}
	if r.Exists(csar.Name, csar.Version) {
		return nil, errkind.ErrAlreadyExists("topology", csar.Id())
	}
	dir := r.WorkDir(csar.Name, csar.Version)
	readme := fmt.Sprintf("Topology %s.\n", csar.Id())
	if _, err := r.git.Init(dir, readme); err != nil {
		return nil, err
	}
	a, err := r.archive(dir, csar, topo)
	if err != nil {
		return nil, err
	}
	if _, err := r.Save(a, user, email, "create topology "+csar.Id()); err != nil {
		return nil, err
	}
	log.Info("created topology {{topology}} in {{path}}", "topology", csar.Id(), "path", dir)
	return a, nil
}

func (r *Repository) archive(dir string, csar *model.Csar, topo *model.Topology) (*Archive, error) {
	fs, err := projectionfs.New(osfs.OsFs, dir)
	if err != nil {
		return nil, err
	}
	return &Archive{
		Csar:     csar,
		Topology: topo,
		Files:    NewFiles(fs),
		Dir:      dir,
	}, nil
}

// Load parses the entry definitions of the working copy.
func (r *Repository) Load(ctx context.Context, name, version string) (*Archive, error) {
	if !r.Exists(name, version) {
		return nil, errkind.ErrNotFound("topology", name+":"+version)
	}
	dir := r.WorkDir(name, version)
	result, err := parser.New(r.types).Parse(ctx, osfs.OsFs, filepath.Join(dir, EntryFile), true)
	if err != nil {
		return nil, err
	}
	if err := result.Error(); err != nil {
		return nil, err
	}
	root := result.Root
	topo := root.Topology
	if topo == nil {
		topo = model.NewTopology(root.Archive.Name, root.Archive.Version, "")
		topo.Dependencies = root.Archive.Dependencies
	}
	topo.Init()
	csar := root.Archive
	a, err := r.archive(dir, &csar, topo)
	if err != nil {
		return nil, err
	}
	a.Hash, err = r.git.Head(dir)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded topology {{topology}} at {{hash}}", "topology", csar.Id(), "hash", a.Hash)
	return a, nil
}

// Save writes the entry definitions and the pending archive files
// and commits them. It returns the new head commit.
func (r *Repository) Save(a *Archive, user, email, message string) (string, error) {
	a.Csar.Dependencies = a.Topology.Dependencies
	data, err := a.Definitions()
	if err != nil {
		return "", err
	}
	if err := vfs.WriteFile(osfs.OsFs, filepath.Join(a.Dir, EntryFile), data, 0o644); err != nil {
		return "", err
	}
	if err := a.Files.Flush(); err != nil {
		return "", err
	}
	hash, err := r.git.CommitAll(a.Dir, user, email, message)
	if err != nil {
		return "", err
	}
	a.Hash = hash
	log.Info("saved topology {{topology}} as {{hash}}", "topology", a.Csar.Id(), "hash", hash)
	return hash, nil
}

// Reset discards uncommitted changes of the working copy.
func (r *Repository) Reset(name, version string) error {
	return r.git.Reset(r.WorkDir(name, version))
}

func (r *Repository) Head(name, version string) (string, error) {
	return r.git.Head(r.WorkDir(name, version))
}

func (r *Repository) History(name, version string, from, count int) ([]git.Commit, error) {
	if !r.Exists(name, version) {
		return nil, errkind.ErrNotFound("topology", name+":"+version)
	}
	return r.git.History(r.WorkDir(name, version), from, count)
}

// Delete removes the working copy.
func (r *Repository) Delete(name, version string) error {
	if !r.Exists(name, version) {
		return errkind.ErrNotFound("topology", name+":"+version)
	}
	return r.git.Clean(r.WorkDir(name, version))
}
