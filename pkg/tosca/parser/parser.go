// Package parser reads TOSCA archives into an ArchiveRoot.
//
// An archive is a zip file or a directory with either a
// TOSCA-Metadata/TOSCA.meta manifest naming the entry definitions or
// exactly one YAML file in its root. Problems found in the archive
// content are collected as ParsingError values carrying the source
// positions; only unreadable archives fail with a ParsingException.
package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/mandelsoft/goutils/general"
	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"gopkg.in/yaml.v3"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

var REALM = logging.DefineRealm("toscaeditor/parser", "TOSCA archive parser")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

const (
	MetaFile             = "TOSCA-Metadata/TOSCA.meta"
	MetaEntryDefinitions = "Entry-Definitions"
	MetaName             = "Name"
	MetaVersion          = "Version"
	MetaCreatedBy        = "Created-By"
	zipMagic             = "PK\x03\x04"
)

// ParsingResult is the parsed archive and the problems found.
type ParsingResult struct {
	Root   *model.ArchiveRoot
	Errors []ParsingError
}

// HasErrors reports whether there are problems of the given levels,
// or of level Error, if no level is given.
func (r *ParsingResult) HasErrors(levels ...Level) bool {
	if len(levels) == 0 {
		levels = []Level{Error}
	}
	for _, e := range r.Errors {
		for _, l := range levels {
			if e.Level == l {
				return true
			}
		}
	}
	return false
}

// Error returns a ParsingException if the result has errors.
func (r *ParsingResult) Error() error {
	if !r.HasErrors() {
		return nil
	}
	return &ParsingException{Path: r.Root.Archive.Id(), Errors: r.Errors}
}

// Filter returns the problems with the given code.
func (r *ParsingResult) Filter(code Code) []ParsingError {
	var list []ParsingError
	for _, e := range r.Errors {
		if e.Code == code {
			list = append(list, e)
		}
	}
	return list
}

type Parser struct {
	finder catalog.Finder
}

// New creates a parser resolving imported archives with the finder.
func New(finder catalog.Finder) *Parser {
	return &Parser{finder: finder}
}

// Parse parses the archive at the given path: a directory, a zip file
// or, if allowYAML is set, a plain YAML definitions file. The parsing
// runs with its own type context.
func (p *Parser) Parse(ctx context.Context, fss vfs.FileSystem, path string, allowYAML bool) (*ParsingResult, error) {
	fs := general.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), fss)

	fi, err := fs.Stat(path)
	if err != nil {
		return nil, exception(path, FailedToReadFile, "cannot access archive: %s", err)
	}
	if fi.IsDir() {
		return p.ParseDir(ctx, fs, path)
	}
	data, err := vfs.ReadFile(fs, path)
	if err != nil {
		return nil, exception(path, FailedToReadFile, "cannot read archive: %s", err)
	}
	if bytes.HasPrefix(data, []byte(zipMagic)) {
		mfs, err := unzip(data)
		if err != nil {
			return nil, exception(path, ErroneousArchiveFile, "invalid zip archive: %s", err)
		}
		return p.ParseDir(ctx, mfs, "/")
	}
	if !allowYAML {
		return nil, exception(path, ErroneousArchiveFile, "file is not a zip archive")
	}
	return p.parse(ctx, fs, filepath.Dir(path), filepath.Base(path), nil)
}

// ParseDir parses an archive stored in a directory.
func (p *Parser) ParseDir(ctx context.Context, fs vfs.FileSystem, dir string) (*ParsingResult, error) {
	meta := filepath.Join(dir, MetaFile)
	if ok, _ := vfs.FileExists(fs, meta); ok {
		m, err := readMeta(fs, meta)
		if err != nil {
			return nil, exception(meta, FailedToReadFile, "cannot read meta file: %s", err)
		}
		entry := m[MetaEntryDefinitions]
		if entry == "" {
			return nil, exception(meta, EntryDefinitionNotFound, "no %s found in meta file", MetaEntryDefinitions)
		}
		if ok, _ := vfs.FileExists(fs, filepath.Join(dir, entry)); !ok {
			return nil, exception(meta, EntryDefinitionNotFound, "entry definitions %q not found", entry)
		}
		return p.parse(ctx, fs, dir, entry, m)
	}

	list, err := vfs.ReadDir(fs, dir)
	if err != nil {
		return nil, exception(dir, FailedToReadFile, "cannot read archive: %s", err)
	}
	var defs []string
	for _, e := range list {
		if !e.IsDir() && IsDefinitionsFile(e.Name()) {
			defs = append(defs, e.Name())
		}
	}
	if len(defs) != 1 {
		return nil, exception(dir, SingleDefinitionSupported, "archive must contain exactly one definitions file in its root, found %d", len(defs))
	}
	return p.parse(ctx, fs, dir, defs[0], nil)
}

// IsDefinitionsFile reports whether the file name denotes a YAML file.
func IsDefinitionsFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yml" || ext == ".yaml"
}

func (p *Parser) parse(ctx context.Context, fs vfs.FileSystem, dir, entry string, meta map[string]string) (*ParsingResult, error) {
	var result *ParsingResult
	err := typectx.Run(ctx, p.finder, nil, true, func(ctx context.Context) error {
		s := newState(ctx, fs, dir, p.finder)
		if meta != nil {
			s.root.Archive.Name = meta[MetaName]
			s.root.Archive.Version = meta[MetaVersion]
			s.root.Archive.Author = meta[MetaCreatedBy]
		}
		s.parseFile(entry, true)
		s.file = entry
		s.postProcess()
		result = &ParsingResult{Root: s.root, Errors: s.errors}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug("parsed archive {{archive}} with {{count}} problems", "archive", result.Root.Archive.Id(), "count", len(result.Errors))
	return result, nil
}

func readMeta(fs vfs.FileSystem, path string) (map[string]string, error) {
	data, err := vfs.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	// scalars are kept in their literal form, 1.0 stays 1.0
	m := map[string]string{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func unzip(data []byte) (vfs.FileSystem, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	fs := memoryfs.New()
	for _, f := range r.File {
		name := filepath.Join("/", filepath.FromSlash(f.Name))
		if f.FileInfo().IsDir() {
			if err := fs.MkdirAll(name, 0o700); err != nil {
				return nil, err
			}
			continue
		}
		if err := fs.MkdirAll(filepath.Dir(name), 0o700); err != nil {
			return nil, err
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		if err := vfs.WriteFile(fs, name, content, 0o600); err != nil {
			return nil, err
		}
	}
	return fs, nil
}
