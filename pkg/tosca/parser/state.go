package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/primitives"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
)

// entry is a key of a YAML mapping with its value node.
type entry struct {
	key  string
	node *yaml.Node
}

type location struct {
	file string
	node *yaml.Node
}

type definition struct {
	name string
	def  *model.PropertyDefinition
	loc  location
}

type state struct {
	ctx    context.Context
	types  *typectx.Context
	finder catalog.Finder
	fs     vfs.FileSystem
	dir    string

	root   *model.ArchiveRoot
	errors []ParsingError

	file     string
	reported sets.Set[string]
	imported sets.Set[string]

	typeLocs     map[model.Type]location
	definitions  []definition
	nodes        []*rawNode
	policies     []*rawPolicy
	groups       []*rawGroup
	outputs      []*rawOutput
	substitution *rawSubstitution
	workflowLocs map[string]location
}

func newState(ctx context.Context, fs vfs.FileSystem, dir string, finder catalog.Finder) *state {
	return &state{
		ctx:          ctx,
		types:        typectx.From(ctx),
		finder:       finder,
		fs:           fs,
		dir:          dir,
		root:         model.NewArchiveRoot(),
		reported:     sets.New[string](),
		imported:     sets.New[string](),
		typeLocs:     map[model.Type]location{},
		workflowLocs: map[string]location{},
	}
}

func (s *state) loc(n *yaml.Node) location {
	return location{s.file, n}
}

func (s *state) report(level Level, code Code, loc location, context, problem string, args ...interface{}) {
	e := ParsingError{
		Level:     level,
		Code:      code,
		File:      loc.file,
		StartMark: startMark(loc.node),
		EndMark:   endMark(loc.node),
		Problem:   fmt.Sprintf(problem, args...),
		Context:   context,
	}
	log.Debug("{{problem}}", "problem", e.String())
	s.errors = append(s.errors, e)
}

func (s *state) error(code Code, n *yaml.Node, context, problem string, args ...interface{}) {
	s.report(Error, code, s.loc(n), context, problem, args...)
}

func (s *state) warning(code Code, n *yaml.Node, context, problem string, args ...interface{}) {
	s.report(Warning, code, s.loc(n), context, problem, args...)
}

// typeNotFound reports a missing type once per kind and name.
func (s *state) typeNotFound(loc location, kind model.Kind, name string) {
	key := string(kind) + ":" + name
	if s.reported.Has(key) {
		return
	}
	s.reported.Insert(key)
	s.report(Error, TypeNotFound, loc, name, "%s type %q not found", kind, name)
}

////////////////////////////////////////////////////////////////////////////////
// YAML access

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.AliasNode:
			n = n.Alias
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		default:
			return n
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	n = resolve(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// entries returns the entries of a mapping in document order.
func (s *state) entries(n *yaml.Node, context string) []entry {
	n = resolve(n)
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		s.error(YamlMappingExpected, n, context, "mapping expected for %s", context)
		return nil
	}
	list := make([]entry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolve(n.Content[i])
		if k.Kind == yaml.ScalarNode && k.Tag == "!!merge" {
			list = append(list, s.entries(n.Content[i+1], context)...)
			continue
		}
		list = append(list, entry{key: k.Value, node: n.Content[i+1]})
	}
	return list
}

// sequence returns the elements of a sequence.
func (s *state) sequence(n *yaml.Node, context string) []*yaml.Node {
	n = resolve(n)
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		s.error(YamlSequenceExpected, n, context, "sequence expected for %s", context)
		return nil
	}
	return n.Content
}

// single returns the only entry of a single key mapping,
// the notation used for requirements and activities.
func (s *state) single(n *yaml.Node, context string) (entry, bool) {
	list := s.entries(n, context)
	if len(list) != 1 {
		if len(list) > 1 {
			s.error(SyntaxError, n, context, "single key mapping expected for %s", context)
		}
		return entry{}, false
	}
	return list[0], true
}

func (s *state) scalar(n *yaml.Node, context string) string {
	n = resolve(n)
	if isNull(n) {
		return ""
	}
	if n.Kind != yaml.ScalarNode {
		s.error(YamlScalarExpected, n, context, "scalar expected for %s", context)
		return ""
	}
	return n.Value
}

func (s *state) boolean(n *yaml.Node, context string) bool {
	v := s.scalar(n, context)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.error(SyntaxError, n, context, "boolean expected for %s", context)
	}
	return b
}

// stringList accepts a sequence of scalars or a single scalar.
func (s *state) stringList(n *yaml.Node, context string) []string {
	r := resolve(n)
	if r != nil && r.Kind == yaml.ScalarNode && !isNull(r) {
		return []string{r.Value}
	}
	var list []string
	for _, e := range s.sequence(n, context) {
		if v := s.scalar(e, context); v != "" {
			list = append(list, v)
		}
	}
	return list
}

func (s *state) stringMap(n *yaml.Node, context string) map[string]string {
	var m map[string]string
	for _, e := range s.entries(n, context) {
		if m == nil {
			m = map[string]string{}
		}
		m[e.key] = s.scalar(e.node, context+"."+e.key)
	}
	return m
}

// raw decodes a node into its canonical raw value.
func (s *state) raw(n *yaml.Node, context string) interface{} {
	if isNull(n) {
		return nil
	}
	var v interface{}
	if err := resolve(n).Decode(&v); err != nil {
		s.error(SyntaxError, n, context, "invalid value for %s: %s", context, err)
		return nil
	}
	return primitives.Canonical(v)
}

func (s *state) unrecognized(e entry, context string) {
	s.warning(UnrecognizedProperty, e.node, context, "unrecognized key %q in %s", e.key, context)
}

func (s *state) path(file string) string {
	return filepath.Join(s.dir, file)
}
