/*
 * SPDX-FileCopyrightText: 2019 SAP SE or an SAP affiliate company and Gardener contributors
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package ctxutil

import (
	"context"
	"time"
)

var cancelKey = NewValueKey[context.CancelFunc]("cancel")

// CancelContext returns a context which can be canceled with Cancel.
func CancelContext(ctx context.Context) context.Context {
	return withCancel(context.WithCancel(ctx))
}

// TimeoutContext is a CancelContext expiring after the given duration.
func TimeoutContext(ctx context.Context, d time.Duration) context.Context {
	return withCancel(context.WithTimeout(ctx, d))
}

func withCancel(ctx context.Context, cancel context.CancelFunc) context.Context {
	return cancelKey.WithValue(ctx, cancel)
}

// Cancel cancels a context created by CancelContext or
// TimeoutContext. Other contexts are left untouched.
func Cancel(ctx context.Context) {
	if cancel, ok := cancelKey.Lookup(ctx); ok {
		cancel()
	}
}
