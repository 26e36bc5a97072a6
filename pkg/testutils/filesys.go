package testutils

import (
	"github.com/mandelsoft/vfs/pkg/composefs"
	"github.com/mandelsoft/vfs/pkg/layerfs"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/projectionfs"
	"github.com/mandelsoft/vfs/pkg/readonlyfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
)

// TestFileSystem provides a memory file system with the OS directory
// path mounted under the same path. Unless readonly, changes are kept
// in a memory layer and never reach the original files.
func TestFileSystem(path string, readonly bool) (vfs.FileSystem, error) {
	base, err := projectionfs.New(osfs.OsFs, path)
	if err != nil {
		return nil, err
	}
	var mounted vfs.FileSystem
	if readonly {
		mounted = readonlyfs.New(base)
	} else {
		mounted = layerfs.New(memoryfs.New(), base)
	}

	root := memoryfs.New()
	for _, dir := range []string{path, "/tmp"} {
		if err := root.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	fs := composefs.New(root, "/tmp")
	if err := fs.Mount(path, mounted); err != nil {
		return nil, err
	}
	return fs, nil
}
