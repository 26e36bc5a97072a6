package archives

import (
	"errors"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
)

const (
	// EntryFile is the entry definition of a topology archive.
	EntryFile = "topology.yml"
	// InputsFile holds the preconfigured input values.
	InputsFile = "inputs/inputs.yml"
	ReadmeFile = "readme.txt"
)

// Files is the file layer of an archive working copy. Changes are kept
// pending until they are flushed to the working copy. The entry
// definition is maintained by the editor and cannot be changed.
type Files struct {
	lock    sync.Mutex
	fs      vfs.FileSystem
	pending vfs.FileSystem
	written sets.Set[string]
	deleted sets.Set[string]
}

func NewFiles(fs vfs.FileSystem) *Files {
	f := &Files{fs: fs}
	f.reset()
	return f
}

func (f *Files) reset() {
	f.pending = memoryfs.New()
	f.written = sets.New[string]()
	f.deleted = sets.New[string]()
}

func normalize(p string) (string, error) {
	n := strings.TrimPrefix(path.Clean("/"+p), "/")
	if n == "" || n == ".git" || strings.HasPrefix(n, ".git/") {
		return "", errkind.ErrInvalidArgument("invalid archive file path %q", p)
	}
	return n, nil
}

func writable(p string) (string, error) {
	n, err := normalize(p)
	if err != nil {
		return "", err
	}
	if n == EntryFile {
		return "", errkind.ErrInvalidArgument("%s is maintained by the editor", EntryFile)
	}
	return n, nil
}

func (f *Files) exists(p string) bool {
	if f.deleted.Has(p) {
		return false
	}
	if f.written.Has(p) {
		return true
	}
	ok, _ := vfs.FileExists(f.fs, p)
	return ok
}

func (f *Files) Exists(p string) bool {
	n, err := normalize(p)
	if err != nil {
		return false
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.exists(n)
}

func (f *Files) Read(p string) ([]byte, error) {
	n, err := normalize(p)
	if err != nil {
		return nil, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.read(n)
}

func (f *Files) read(n string) ([]byte, error) {
	if !f.exists(n) {
		return nil, errkind.ErrNotFound("file", n)
	}
	if f.written.Has(n) {
		return vfs.ReadFile(f.pending, n)
	}
	return vfs.ReadFile(f.fs, n)
}

func (f *Files) Write(p string, data []byte) error {
	n, err := writable(p)
	if err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.write(n, data)
}

func (f *Files) write(n string, data []byte) error {
	if dir := path.Dir(n); dir != "." {
		if err := f.pending.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := vfs.WriteFile(f.pending, n, data, 0o644); err != nil {
		return err
	}
	f.written.Insert(n)
	f.deleted.Delete(n)
	return nil
}

func (f *Files) Delete(p string) error {
	n, err := writable(p)
	if err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.delete(n)
}

func (f *Files) delete(n string) error {
	if !f.exists(n) {
		return errkind.ErrNotFound("file", n)
	}
	if f.written.Has(n) {
		f.written.Delete(n)
		f.pending.Remove(n)
	}
	if ok, _ := vfs.FileExists(f.fs, n); ok {
		f.deleted.Insert(n)
	}
	return nil
}

func (f *Files) Move(p, newPath string) error {
	n, err := writable(p)
	if err != nil {
		return err
	}
	nn, err := writable(newPath)
	if err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	if n == nn {
		return nil
	}
	data, err := f.read(n)
	if err != nil {
		return err
	}
	if f.exists(nn) {
		return errkind.ErrAlreadyExists("file", nn)
	}
	if err := f.write(nn, data); err != nil {
		return err
	}
	return f.delete(n)
}

// Pending lists the paths with unflushed changes.
func (f *Files) Pending() []string {
	f.lock.Lock()
	defer f.lock.Unlock()
	list := append(sets.List(f.written), sets.List(f.deleted)...)
	slices.Sort(list)
	return list
}

// Flush applies the pending changes to the working copy.
func (f *Files) Flush() error {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, n := range sets.List(f.deleted) {
		if err := f.fs.Remove(n); err != nil && !errors.Is(err, vfs.ErrNotExist) {
			return err
		}
	}
	for _, n := range sets.List(f.written) {
		data, err := vfs.ReadFile(f.pending, n)
		if err != nil {
			return err
		}
		if dir := path.Dir(n); dir != "." {
			if err := f.fs.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := vfs.WriteFile(f.fs, n, data, 0o644); err != nil {
			return err
		}
	}
	log.Debug("flushed {{written}} written and {{deleted}} deleted files", "written", f.written.Len(), "deleted", f.deleted.Len())
	f.reset()
	return nil
}

// Reset discards all pending changes.
func (f *Files) Reset() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.reset()
}

// FilesState is a copy of the pending changes of a file layer.
type FilesState struct {
	written map[string][]byte
	deleted sets.Set[string]
}

// State captures the pending changes.
func (f *Files) State() (*FilesState, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	st := &FilesState{written: map[string][]byte{}, deleted: f.deleted.Clone()}
	for n := range f.written {
		data, err := vfs.ReadFile(f.pending, n)
		if err != nil {
			return nil, err
		}
		st.written[n] = data
	}
	return st, nil
}

// Restore replaces the pending changes by a captured state.
func (f *Files) Restore(st *FilesState) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.reset()
	for n, data := range st.written {
		if err := f.write(n, data); err != nil {
			return err
		}
	}
	f.deleted = st.deleted.Clone()
	return nil
}
