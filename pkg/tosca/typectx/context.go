// Package typectx provides the type context used to resolve TOSCA
// types while parsing archives or processing editor operations.
//
// A type context is bound to a unit of work via a context.Context.
// Run creates the binding and releases the type context on every exit
// path; the binding of an outer unit of work is left untouched.
package typectx

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/mandelsoft/logging"
	"github.com/modern-go/reflect2"

	"github.com/mandelsoft/toscaeditor/pkg/ctxutil"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/catalog"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/model"
)

var REALM = logging.DefineRealm("toscaeditor/typectx", "TOSCA type context")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

var key = ctxutil.NewValueKey[*Context]("tosca type context")

var active atomic.Int64

// Active returns the number of type contexts not yet released.
func Active() int64 {
	return active.Load()
}

type Context struct {
	lock     sync.Mutex
	finder   catalog.Finder
	deps     []model.CSARDependency
	local    map[model.Kind]map[string]model.Type
	cache    map[model.Kind]map[string]model.Type
	released bool
}

// New creates a type context resolving types from the given
// archive dependencies. It must be released after use.
func New(finder catalog.Finder, deps ...model.CSARDependency) *Context {
	active.Add(1)
	c := &Context{
		finder: finder,
		local:  map[model.Kind]map[string]model.Type{},
	}
	for _, d := range deps {
		c.addDependency(d)
	}
	c.reset()
	return c
}

func (c *Context) reset() {
	c.cache = map[model.Kind]map[string]model.Type{}
}

// Release invalidates the context.
func (c *Context) Release() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.released {
		c.released = true
		c.cache = nil
		active.Add(-1)
	}
}

func (c *Context) IsReleased() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.released
}

func (c *Context) Dependencies() []model.CSARDependency {
	c.lock.Lock()
	defer c.lock.Unlock()
	return slices.Clone(c.deps)
}

// AddDependency adds an archive. An archive with the same name but
// another version is replaced.
func (c *Context) AddDependency(d model.CSARDependency) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.addDependency(d) {
		c.reset()
	}
}

func (c *Context) addDependency(d model.CSARDependency) bool {
	for i, e := range c.deps {
		if e.Name == d.Name {
			if e.Version == d.Version {
				return false
			}
			log.Debug("replacing dependency {{old}} by {{new}}", "old", e, "new", d)
			c.deps[i] = d
			return true
		}
	}
	c.deps = append(c.deps, d)
	return true
}

func (c *Context) RemoveDependency(d model.CSARDependency) {
	c.lock.Lock()
	defer c.lock.Unlock()
	l := len(c.deps)
	c.deps = slices.DeleteFunc(c.deps, func(e model.CSARDependency) bool { return e == d })
	if l != len(c.deps) {
		c.reset()
	}
}

// Register adds the types of an archive under construction.
// They take precedence over the types of the dependencies.
func (c *Context) Register(root *model.ArchiveRoot) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, k := range model.Kinds {
		for _, t := range root.Types(k) {
			c.register(t)
		}
	}
}

// RegisterType adds a single local type.
func (c *Context) RegisterType(t model.Type) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.register(t)
}

func (c *Context) register(t model.Type) {
	m := c.local[t.Kind()]
	if m == nil {
		m = map[string]model.Type{}
		c.local[t.Kind()] = m
	}
	m[t.Base().ElementId] = t
}

// Get returns the type of the given kind or nil if it cannot be resolved.
func (c *Context) Get(kind model.Kind, name string) model.Type {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.released {
		log.Error("access to released type context for {{kind}} type {{name}}", "kind", kind, "name", name)
		return nil
	}
	if t := c.local[kind][name]; t != nil {
		return t
	}
	if t := c.cache[kind][name]; t != nil {
		return t
	}
	if c.finder == nil {
		return nil
	}
	t, err := c.finder.Find(kind, name, c.deps...)
	if err != nil {
		log.Error("cannot resolve {{kind}} type {{name}}", "kind", kind, "name", name, "error", err)
		return nil
	}
	if t == nil {
		log.Debug("{{kind}} type {{name}} not found", "kind", kind, "name", name)
		return nil
	}
	m := c.cache[kind]
	if m == nil {
		m = map[string]model.Type{}
		c.cache[kind] = m
	}
	m[name] = t
	return t
}

////////////////////////////////////////////////////////////////////////////////

// With binds a type context to a context.
func With(ctx context.Context, c *Context) context.Context {
	return key.WithValue(ctx, c)
}

// From returns the type context bound to the context, or nil.
func From(ctx context.Context) *Context {
	c, _ := key.Lookup(ctx)
	return c
}

// Run executes a unit of work with a type context. If the context
// already carries one and requiresNew is false, it is reused.
// Otherwise a new type context is created for the given
// dependencies and released when f returns.
func Run(ctx context.Context, finder catalog.Finder, deps []model.CSARDependency, requiresNew bool, f func(ctx context.Context) error) error {
	if !requiresNew {
		if c := From(ctx); c != nil && !c.IsReleased() {
			for _, d := range deps {
				c.AddDependency(d)
			}
			return f(ctx)
		}
	}
	c := New(finder, deps...)
	defer c.Release()
	return f(With(ctx, c))
}

////////////////////////////////////////////////////////////////////////////////

// Lookup resolves a type of a concrete type kind, for example
// Lookup[*model.NodeType](ctx, name). It returns nil if the type
// is not found or there is no type context.
func Lookup[T model.Type](ctx context.Context, name string) T {
	var _nil T
	c := From(ctx)
	if c == nil {
		return _nil
	}
	t, ok := c.Get(_nil.Kind(), name).(T)
	if !ok {
		return _nil
	}
	return t
}

// Require is like Lookup, but returns a NotFound error for missing types.
func Require[T model.Type](ctx context.Context, name string) (T, error) {
	t := Lookup[T](ctx, name)
	if reflect2.IsNil(t) {
		return t, errkind.ErrNotFound(string(t.Kind())+" type", name)
	}
	return t, nil
}
