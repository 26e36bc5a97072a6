/*
 * SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package ctxutil

// Key is a context key with a name.
type Key interface {
	String() string
}

type simpleKey struct {
	name string
}

// SimpleKey creates a new unique key. Keys with the same name are
// different keys.
func SimpleKey(name string) Key {
	return &simpleKey{name}
}

func (k *simpleKey) String() string {
	return k.name
}
