// Package catalog provides a filesystem based store for parsed
// TOSCA types. Types are stored per archive version under
// <kind>/<archive>/<version>/<type>.yaml, archive descriptions under
// archives/<archive>/<version>.yaml.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mandelsoft/goutils/general"
	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/yaml"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/version"
)

var REALM = logging.DefineRealm("toscaeditor/catalog", "TOSCA type catalog")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

const archivesDir = "archives"

// Finder resolves types by kind and name in the scope of a set
// of archive dependencies.
type Finder interface {
	Find(kind model.Kind, name string, deps ...model.CSARDependency) (model.Type, error)
}

type Catalog struct {
	lock sync.Mutex
	path string
	fs   vfs.FileSystem
}

var _ Finder = (*Catalog)(nil)

func New(path string, fss ...vfs.FileSystem) (*Catalog, error) {
	fs := general.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), fss...)

	err := fs.MkdirAll(path, 0o0700)
	if err != nil && !errors.Is(err, vfs.ErrExist) {
		return nil, err
	}
	return &Catalog{path: path, fs: fs}, nil
}

func (c *Catalog) FileSystem() vfs.FileSystem {
	return c.fs
}

// Import stores the archive description and all types of
// a parsed archive. Types already present for the archive version
// are overwritten.
func (c *Catalog) Import(root *model.ArchiveRoot) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	a := root.Archive
	if a.Name == "" || a.Version == "" {
		return errkind.ErrInvalidArgument("archive name and version required")
	}
	if err := c.write(c.APath(a.Name, a.Version), &a); err != nil {
		return err
	}
	n := 0
	for _, k := range model.Kinds {
		for _, t := range root.Types(k) {
			b := t.Base()
			b.ArchiveName = a.Name
			b.ArchiveVersion = a.Version
			if err := c.write(c.TPath(k, a.Name, a.Version, b.ElementId), t); err != nil {
				return err
			}
			n++
		}
	}
	log.Info("imported archive {{archive}} with {{count}} types", "archive", a.Id(), "count", n)
	return nil
}

func (c *Catalog) write(path string, o interface{}) error {
	data, err := yaml.Marshal(o)
	if err != nil {
		return err
	}
	err = c.fs.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return err
	}
	return vfs.WriteFile(c.fs, path, data, 0o600)
}

// Archive returns the description of an archive version.
func (c *Catalog) Archive(name, version string) (*model.Csar, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.archive(name, version)
}

func (c *Catalog) archive(name, version string) (*model.Csar, error) {
	data, err := vfs.ReadFile(c.fs, c.APath(name, version))
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
			return nil, errkind.ErrNotFound("archive", name+":"+version)
		}
		return nil, err
	}
	var a model.Csar
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("corrupted catalog: archive %s:%s: %w", name, version, err)
	}
	return &a, nil
}

// Archives lists all archive versions.
func (c *Catalog) Archives() ([]model.Csar, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var result []model.Csar
	names, err := c.readDir(c.Path(archivesDir))
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		versions, err := c.readDir(c.Path(archivesDir, n))
		if err != nil {
			return nil, err
		}
		for _, v := range versions {
			if !strings.HasSuffix(v, ".yaml") {
				continue
			}
			a, err := c.archive(n, strings.TrimSuffix(v, ".yaml"))
			if err != nil {
				return nil, err
			}
			result = append(result, *a)
		}
	}
	return result, nil
}

// Versions lists the versions of an archive.
func (c *Catalog) Versions(name string) ([]string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	list, err := c.readDir(c.Path(archivesDir, name))
	if err != nil {
		return nil, err
	}
	var result []string
	for _, v := range list {
		if strings.HasSuffix(v, ".yaml") {
			result = append(result, strings.TrimSuffix(v, ".yaml"))
		}
	}
	return result, nil
}

// Delete removes an archive version and its types.
func (c *Catalog) Delete(name, version string) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, err := c.archive(name, version); err != nil {
		return err
	}
	for _, k := range model.Kinds {
		if err := c.fs.RemoveAll(c.Path(string(k), name, version)); err != nil {
			return err
		}
	}
	log.Info("deleted archive {{archive}}", "archive", name+":"+version)
	return c.fs.Remove(c.APath(name, version))
}

// Find looks up a type in the given archives and their
// transitive dependencies. It returns nil if no archive provides
// the type.
func (c *Catalog) Find(kind model.Kind, name string, deps ...model.CSARDependency) (model.Type, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	visited := sets.New[string]()
	queue := append([]model.CSARDependency{}, deps...)
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		if visited.Has(d.String()) {
			continue
		}
		visited.Insert(d.String())

		t, err := c.get(kind, name, d.Name, d.Version)
		if err != nil || t != nil {
			return t, err
		}
		a, err := c.archive(d.Name, d.Version)
		if err != nil {
			if errkind.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		queue = append(queue, a.Dependencies...)
	}
	return nil, nil
}

// Lookup looks up a type in any archive. If the version is empty,
// the latest archive version providing the type is used.
func (c *Catalog) Lookup(kind model.Kind, name string, vers string) (model.Type, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	archives, err := c.readDir(c.Path(string(kind)))
	if err != nil {
		return nil, err
	}
	var found []model.Type
	for _, a := range archives {
		versions, err := c.readDir(c.Path(string(kind), a))
		if err != nil {
			return nil, err
		}
		for _, v := range versions {
			if vers != "" && v != vers {
				continue
			}
			t, err := c.get(kind, name, a, v)
			if err != nil {
				return nil, err
			}
			if t != nil {
				found = append(found, t)
			}
		}
	}
	if len(found) == 0 {
		return nil, errkind.ErrNotFound(string(kind)+" type", name)
	}
	latest := found[0]
	for _, t := range found[1:] {
		if version.Compare(t.Base().ArchiveVersion, latest.Base().ArchiveVersion) > 0 {
			latest = t
		}
	}
	return latest, nil
}

func (c *Catalog) get(kind model.Kind, name, archive, version string) (model.Type, error) {
	path := c.TPath(kind, archive, version, name)
	data, err := vfs.ReadFile(c.fs, path)
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	t := model.NewType(kind)
	if t == nil {
		return nil, fmt.Errorf("unknown type kind %q", kind)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, err
	}
	if t.Base().ElementId != name {
		return nil, fmt.Errorf("corrupted catalog: %s does not contain type %s", path, name)
	}
	return t, nil
}

func (c *Catalog) readDir(path string) ([]string, error) {
	list, err := vfs.ReadDir(c.fs, path)
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range list {
		names = append(names, e.Name())
	}
	return names, nil
}

func (c *Catalog) Path(elems ...string) string {
	return filepath.Join(append([]string{c.path}, elems...)...)
}

func (c *Catalog) TPath(kind model.Kind, archive, version, name string) string {
	return c.Path(string(kind), archive, version, name+".yaml")
}

func (c *Catalog) APath(archive, version string) string {
	return c.Path(archivesDir, archive, version+".yaml")
}
