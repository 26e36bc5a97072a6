// Package processors applies editor operations to the topology of an
// edition. Each operation type is handled by exactly one processor
// registered for its Go type.
package processors

import (
	"context"
	"reflect"
	"sync"

	"github.com/mandelsoft/goutils/generics"
	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/topology"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/typectx"
	"github.com/mandelsoft/toscaeditor/pkg/workflow"
)

var REALM = logging.DefineRealm("toscaeditor/processors", "topology edit processors")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

// Files is the file layer of the archive under edition.
type Files interface {
	Exists(path string) bool
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Delete(path string) error
	Move(path, newPath string) error
}

// Edition is the state an operation is applied to. The context must
// carry the type context of the topology.
type Edition struct {
	Context    context.Context
	Csar       *model.Csar
	Topology   *model.Topology
	Repository topology.Repository
	Workflows  *workflow.Builder
	Files      Files
}

func (e *Edition) Types() *typectx.Context {
	return typectx.From(e.Context)
}

type processor func(e *Edition, op operations.Operation) error

type Registry struct {
	lock       sync.RWMutex
	processors map[reflect.Type]processor
}

func NewRegistry() *Registry {
	return &Registry{processors: map[reflect.Type]processor{}}
}

// Register sets the processor for the operation type O.
func Register[O operations.Operation](r *Registry, f func(e *Edition, op O) error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.processors[generics.TypeOf[O]()] = func(e *Edition, op operations.Operation) error {
		return f(e, op.(O))
	}
}

func (r *Registry) Has(op operations.Operation) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.processors[reflect.TypeOf(op)] != nil
}

// Process applies an operation to the edition.
func (r *Registry) Process(e *Edition, op operations.Operation) error {
	r.lock.RLock()
	p := r.processors[reflect.TypeOf(op)]
	r.lock.RUnlock()

	if p == nil {
		return errkind.ErrInvalidArgument("no processor for operation %q", op.GetType())
	}
	if e.Types() == nil {
		return errkind.ErrInvalidArgument("no type context for topology %s", e.Topology.Id())
	}
	log.Debug("processing {{operation}} for {{topology}}", "operation", op.GetType(), "topology", e.Topology.Id())
	return p(e, op)
}

// DefaultRegistry handles all topology level operations.
var DefaultRegistry = NewRegistry()

func Process(e *Edition, op operations.Operation) error {
	return DefaultRegistry.Process(e, op)
}
