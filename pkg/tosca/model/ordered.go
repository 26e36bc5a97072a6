package model

import (
	"slices"
)

// OrderedMap is a string keyed map keeping the insertion order.
// The fields are exported to keep the structure copyable and
// serializable, they should only be modified by the methods.
type OrderedMap[V any] struct {
	Keys   []string     `json:"keys,omitempty"`
	Values map[string]V `json:"values,omitempty"`
}

func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{Values: map[string]V{}}
}

func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Keys)
}

func (m *OrderedMap[V]) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Values[key]
	return ok
}

func (m *OrderedMap[V]) Get(key string) V {
	var _nil V
	if m == nil {
		return _nil
	}
	return m.Values[key]
}

func (m *OrderedMap[V]) Lookup(key string) (V, bool) {
	var _nil V
	if m == nil {
		return _nil, false
	}
	v, ok := m.Values[key]
	return v, ok
}

// Set adds or replaces an entry. New keys are appended.
func (m *OrderedMap[V]) Set(key string, v V) {
	if m.Values == nil {
		m.Values = map[string]V{}
	}
	if _, ok := m.Values[key]; !ok {
		m.Keys = append(m.Keys, key)
	}
	m.Values[key] = v
}

func (m *OrderedMap[V]) Delete(key string) bool {
	if m == nil {
		return false
	}
	if _, ok := m.Values[key]; !ok {
		return false
	}
	delete(m.Values, key)
	m.Keys = slices.DeleteFunc(m.Keys, func(k string) bool { return k == key })
	return true
}

// Rename changes the key of an entry keeping its position.
func (m *OrderedMap[V]) Rename(old, new string) bool {
	if m == nil || old == new {
		return m.Has(old)
	}
	v, ok := m.Values[old]
	if !ok {
		return false
	}
	delete(m.Values, old)
	m.Values[new] = v
	i := slices.Index(m.Keys, old)
	m.Keys[i] = new
	return true
}

// Swap exchanges the positions of two keys.
func (m *OrderedMap[V]) Swap(a, b string) bool {
	i := slices.Index(m.Keys, a)
	j := slices.Index(m.Keys, b)
	if i < 0 || j < 0 {
		return false
	}
	m.Keys[i], m.Keys[j] = m.Keys[j], m.Keys[i]
	return true
}

// List returns the values in key order.
func (m *OrderedMap[V]) List() []V {
	if m == nil {
		return nil
	}
	r := make([]V, 0, len(m.Keys))
	for _, k := range m.Keys {
		r = append(r, m.Values[k])
	}
	return r
}

func (m *OrderedMap[V]) Names() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.Keys)
}
