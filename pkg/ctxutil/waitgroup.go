/*
 * SPDX-FileCopyrightText: 2019 SAP SE or an SAP affiliate company and Gardener contributors
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package ctxutil

import (
	"context"
	"sync"
)

var wgkey = NewValueKey[*waitGroup]("waitgroup")

type waitGroup struct {
	sync.WaitGroup
	name string
}

// WaitGroupContext provides a context with a new wait group, which
// can be used to wait for go routines started with WaitGroupRun....
func WaitGroupContext(ctx context.Context, name ...string) context.Context {
	wg := &waitGroup{}
	if len(name) > 0 {
		wg.name = name[0]
	}
	return wgkey.WithValue(ctx, wg)
}

func getWaitGroup(ctx context.Context) *waitGroup {
	wg, _ := wgkey.Lookup(ctx)
	return wg
}

func WaitGroupGet(ctx context.Context) *sync.WaitGroup {
	wg := getWaitGroup(ctx)
	if wg == nil {
		return nil
	}
	return &wg.WaitGroup
}

func WaitGroupAdd(ctx context.Context) {
	getWaitGroup(ctx).Add(1)
}

func WaitGroupDone(ctx context.Context) {
	getWaitGroup(ctx).Done()
}

// WaitGroupRun runs the function as go routine registered in the
// wait group of the context.
func WaitGroupRun(ctx context.Context, f func()) {
	WaitGroupAdd(ctx)
	go func() {
		defer WaitGroupDone(ctx)
		f()
	}()
}
