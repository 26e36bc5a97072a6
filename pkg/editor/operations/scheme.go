package operations

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/mandelsoft/goutils/errors"
	"github.com/mandelsoft/goutils/generics"
	"sigs.k8s.io/yaml"
)

// TypeExtractor determines the operation tag of a serialized operation.
type TypeExtractor func(data []byte) (string, error)

func extractType(data []byte) (string, error) {
	var meta OperationBase

	err := yaml.Unmarshal(data, &meta)
	if err != nil {
		return "", err
	}
	return meta.GetType(), nil
}

// Scheme maps operation tags to their Go types.
type Scheme struct {
	lock          sync.RWMutex
	types         map[string]reflect.Type
	tags          map[reflect.Type]string
	typeExtractor TypeExtractor
}

func NewScheme() *Scheme {
	return &Scheme{
		types:         map[string]reflect.Type{},
		tags:          map[reflect.Type]string{},
		typeExtractor: extractType,
	}
}

func (s *Scheme) Register(name string, proto Operation) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	t := reflect.TypeOf(proto)
	if t.Kind() != reflect.Pointer {
		return fmt.Errorf("proto type for %s must be pointer", name)
	}
	t = t.Elem()
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("proto type for %s must be pointer to struct", name)
	}
	if old := s.tags[t]; old != "" && old != name {
		return fmt.Errorf("type %s already registered as %q", t, old)
	}
	s.types[name] = t
	s.tags[t] = name
	return nil
}

func (s *Scheme) HasType(t string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.types[t] != nil
}

func (s *Scheme) TypeNames() []string {
	var names []string

	s.lock.RLock()
	defer s.lock.RUnlock()

	for n := range s.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TagOf returns the tag registered for the Go type of the operation.
func (s *Scheme) TagOf(o Operation) string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	t := reflect.TypeOf(o)
	if t == nil || t.Kind() != reflect.Pointer {
		return ""
	}
	return s.tags[t.Elem()]
}

// CreateOperation creates an empty operation for a tag.
func (s *Scheme) CreateOperation(typ string) (Operation, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	t := s.types[typ]
	if t == nil {
		return nil, fmt.Errorf("unknown operation type %q", typ)
	}

	o := reflect.New(t).Interface().(Operation)
	o.SetType(typ)
	return o, nil
}

// Decode creates an operation from its YAML or JSON form
// selected by the type field. Unknown fields are rejected.
func (s *Scheme) Decode(data []byte) (Operation, error) {
	ty, err := s.typeExtractor(data)
	if err != nil {
		return nil, err
	}
	if ty == "" {
		return nil, fmt.Errorf("operation type missing")
	}

	o, err := s.CreateOperation(ty)
	if err != nil {
		return nil, err
	}

	err = yaml.UnmarshalStrict(data, o)
	if err != nil {
		return nil, errors.Wrapf(err, "operation %q", ty)
	}
	o.SetType(ty)
	return o, nil
}

// DecodeList decodes a sequence of operations.
func (s *Scheme) DecodeList(data []byte) ([]Operation, error) {
	var list []interface{}

	err := yaml.Unmarshal(data, &list)
	if err != nil {
		return nil, err
	}
	result := make([]Operation, 0, len(list))
	for i, e := range list {
		d, err := yaml.Marshal(e)
		if err != nil {
			return nil, errors.Wrapf(err, "operation %d", i+1)
		}
		o, err := s.Decode(d)
		if err != nil {
			return nil, errors.Wrapf(err, "operation %d", i+1)
		}
		result = append(result, o)
	}
	return result, nil
}

// Encode serializes an operation. The type field is set from the
// registration if missing.
func (s *Scheme) Encode(o Operation) ([]byte, error) {
	if o.GetType() == "" {
		tag := s.TagOf(o)
		if tag == "" {
			return nil, fmt.Errorf("unregistered operation type %T", o)
		}
		o.SetType(tag)
	}
	return yaml.Marshal(o)
}

type ElementType[P any] interface {
	Operation
	*P
}

func Register[T any, P ElementType[T]](s *Scheme, name string) error {
	var proto T

	p, ok := (any(&proto)).(Operation)
	if !ok {
		return fmt.Errorf("*%s does not implement operation interface", generics.TypeOf[T]())
	}
	return s.Register(name, p)
}

func MustRegister[T any, P ElementType[T]](s *Scheme, name string) {
	err := Register[T, P](s, name)
	if err != nil {
		panic(err)
	}
}

////////////////////////////////////////////////////////////////////////////////

// DefaultScheme holds all editor operations.
var DefaultScheme = NewScheme()

func Decode(data []byte) (Operation, error) {
	return DefaultScheme.Decode(data)
}

func DecodeList(data []byte) ([]Operation, error) {
	return DefaultScheme.DecodeList(data)
}

func Encode(o Operation) ([]byte, error) {
	return DefaultScheme.Encode(o)
}

// New creates an operation of the given Go type with its tag set.
func New[T any, P ElementType[T]]() P {
	var o T
	p := P(&o)
	p.SetType(DefaultScheme.TagOf(p))
	return p
}
