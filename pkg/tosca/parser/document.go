package parser

import (
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"gopkg.in/yaml.v3"

	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
)

var definitionsVersions = []string{"tosca_simple_yaml_", "alien_dsl_"}

// archiveChecker is implemented by finders able to check archives.
type archiveChecker interface {
	Archive(name, version string) (*model.Csar, error)
}

// parseFile parses a definitions file of the archive. Only the entry
// definitions may contribute the archive identity and the topology.
func (s *state) parseFile(file string, entryDefinitions bool) {
	path := s.path(file)
	if s.imported.Has(path) {
		return
	}
	s.imported.Insert(path)

	outer := s.file
	s.file = file
	defer func() { s.file = outer }()

	data, err := vfs.ReadFile(s.fs, path)
	if err != nil {
		s.report(Error, FailedToReadFile, location{file: file}, file, "cannot read %s: %s", file, err)
		return
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		s.report(Error, SyntaxError, location{file: file}, file, "invalid YAML: %s", err)
		return
	}
	s.document(&doc, entryDefinitions)
}

func (s *state) document(doc *yaml.Node, entryDefinitions bool) {
	n := resolve(doc)
	if n == nil {
		s.error(SyntaxError, doc, s.file, "empty definitions file")
		return
	}
	found := false
	for _, e := range s.entries(n, "definitions") {
		switch e.key {
		case "tosca_definitions_version":
			found = true
			v := s.scalar(e.node, e.key)
			if !knownDefinitionsVersion(v) {
				s.error(UnknownToscaVersion, e.node, e.key, "unknown definitions version %q", v)
			}
			if entryDefinitions {
				s.root.ToscaDefinitionsVersion = v
			}
		case "metadata":
			if entryDefinitions {
				s.metadata(e.node)
			}
		case "template_name", "template_version", "template_author":
			if entryDefinitions {
				s.metadataEntry(e)
			}
		case "description":
			if entryDefinitions {
				s.root.Archive.Description = s.scalar(e.node, e.key)
			}
		case "imports":
			s.imports(e.node)
		case "dsl_definitions", "repositories", "interface_types", "group_types":
		case "node_types":
			s.typeSection(e.node, model.NodeKind)
		case "relationship_types":
			s.typeSection(e.node, model.RelationshipKind)
		case "capability_types":
			s.typeSection(e.node, model.CapabilityKind)
		case "data_types":
			s.typeSection(e.node, model.DataKind)
		case "policy_types":
			s.typeSection(e.node, model.PolicyKind)
		case "artifact_types":
			s.typeSection(e.node, model.ArtifactKind)
		case "topology_template":
			if entryDefinitions {
				s.topologyTemplate(e.node)
			} else {
				s.warning(UnrecognizedProperty, e.node, e.key, "topology template of imported file %s ignored", s.file)
			}
		default:
			s.unrecognized(e, "definitions")
		}
	}
	if !found {
		s.error(MissingToscaVersion, n, "tosca_definitions_version", "tosca_definitions_version is missing")
	}
}

func knownDefinitionsVersion(v string) bool {
	for _, p := range definitionsVersions {
		if strings.HasPrefix(v, p) {
			return true
		}
	}
	return false
}

func (s *state) metadata(n *yaml.Node) {
	for _, e := range s.entries(n, "metadata") {
		s.metadataEntry(e)
	}
}

func (s *state) metadataEntry(e entry) {
	switch e.key {
	case "template_name":
		s.root.Archive.Name = s.scalar(e.node, e.key)
	case "template_version":
		s.root.Archive.Version = s.scalar(e.node, e.key)
	case "template_author":
		s.root.Archive.Author = s.scalar(e.node, e.key)
	}
}

// imports handles local file imports and archive dependencies
// given as <name>:<version>.
func (s *state) imports(n *yaml.Node) {
	for _, i := range s.sequence(n, "imports") {
		ref := ""
		if r := resolve(i); r != nil && r.Kind == yaml.MappingNode {
			e, ok := s.single(i, "import")
			if !ok {
				continue
			}
			ref = s.scalar(e.node, "import")
			if e.key == "file" || IsDefinitionsFile(ref) {
				s.importFile(i, ref)
				continue
			}
		} else {
			ref = s.scalar(i, "import")
		}
		if ref == "" {
			continue
		}
		if IsDefinitionsFile(ref) {
			s.importFile(i, ref)
			continue
		}
		d, err := model.ParseDependency(ref)
		if err != nil {
			s.error(UnknownImport, i, "import", "unknown import %q", ref)
			continue
		}
		if c, ok := s.finder.(archiveChecker); ok {
			if _, err := c.Archive(d.Name, d.Version); err != nil {
				s.error(MissingDependency, i, "import", "archive %s not found", d)
				continue
			}
		}
		s.addDependency(d)
	}
}

func (s *state) importFile(n *yaml.Node, file string) {
	if ok, _ := vfs.FileExists(s.fs, s.path(file)); !ok {
		s.error(MissingFile, n, "import", "imported file %q not found", file)
		return
	}
	s.parseFile(file, false)
}

func (s *state) addDependency(d model.CSARDependency) {
	a := &s.root.Archive
	for i, e := range a.Dependencies {
		if e.Name == d.Name {
			a.Dependencies[i] = d
			s.types.AddDependency(d)
			return
		}
	}
	a.Dependencies = append(a.Dependencies, d)
	s.types.AddDependency(d)
}
