/*
 * SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package ctxutil

import (
	"context"
)

// ValueKey is a typed context key.
type ValueKey[T any] interface {
	Name() string
	WithValue(ctx context.Context, value T) context.Context
	// Get returns the zero value if the context has no value.
	Get(ctx context.Context) T
	Lookup(ctx context.Context) (T, bool)
}

type valueKey[T any] struct {
	key Key
}

func NewValueKey[T any](name string) ValueKey[T] {
	return &valueKey[T]{key: SimpleKey(name)}
}

func (k *valueKey[T]) Name() string {
	return k.key.String()
}

func (k *valueKey[T]) WithValue(ctx context.Context, value T) context.Context {
	return context.WithValue(ctx, k.key, value)
}

func (k *valueKey[T]) Get(ctx context.Context) T {
	v, _ := k.Lookup(ctx)
	return v
}

func (k *valueKey[T]) Lookup(ctx context.Context) (T, bool) {
	v, ok := ctx.Value(k.key).(T)
	return v, ok
}
