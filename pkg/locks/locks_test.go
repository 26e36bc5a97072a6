package locks_test

import (
	"context"
	"runtime"
	"time"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mandelsoft/toscaeditor/pkg/ctxutil"
	"github.com/mandelsoft/toscaeditor/pkg/future"

	me "github.com/mandelsoft/toscaeditor/pkg/locks"
)

var _ = Describe("topology locks", func() {
	var locks *me.ElementLocks[string]
	var ctx context.Context

	BeforeEach(func() {
		ctx = ctxutil.CancelContext(ctxutil.TimeoutContext(context.Background(), 10*time.Second))
		locks = me.NewElementLocks[string]()
	})

	AfterEach(func() {
		ctxutil.Cancel(ctx)
	})

	It("locks and unlocks", func() {
		MustBeSuccessful(locks.Lock(ctx, "app:1.0"))
		MustBeSuccessful(locks.Lock(ctx, "db:1.0"))

		Expect(locks.TryLock("app:1.0")).To(BeFalse())
		Expect(locks.TryLock("web:1.0")).To(BeTrue())
		Expect(locks.IsLocked("web:1.0")).To(BeTrue())

		locks.Unlock("app:1.0")
		Expect(locks.IsLocked("app:1.0")).To(BeFalse())
		Expect(locks.TryLock("app:1.0")).To(BeTrue())
		Expect(locks.TryLock("db:1.0")).To(BeFalse())
	})

	It("passes the lock to waiters", func() {
		MustBeSuccessful(locks.Lock(ctx, "app:1.0"))

		fA := future.NewFuture(false)
		fB := future.NewFuture(false)

		go func() {
			defer GinkgoRecover()
			MustBeSuccessful(locks.Lock(ctx, "app:1.0"))
			fA.Trigger()
			locks.Unlock("app:1.0")
		}()
		go func() {
			defer GinkgoRecover()
			MustBeSuccessful(locks.Lock(ctx, "app:1.0"))
			fB.Trigger()
			locks.Unlock("app:1.0")
		}()

		for i := 0; i < 1000 && !locks.HasWaiting("app:1.0"); i++ {
			runtime.Gosched()
			time.Sleep(time.Millisecond)
		}
		locks.Unlock("app:1.0")
		Expect(fA.Wait(ctx)).To(BeTrue())
		Expect(fB.Wait(ctx)).To(BeTrue())
		Eventually(func() bool { return locks.IsLocked("app:1.0") }).Should(BeFalse())
	})

	It("gives up waiting on cancellation", func() {
		MustBeSuccessful(locks.Lock(ctx, "app:1.0"))
		short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		Expect(locks.Lock(short, "app:1.0")).To(MatchError(context.DeadlineExceeded))
		Expect(locks.HasWaiting("app:1.0")).To(BeFalse())
		locks.Unlock("app:1.0")
		Expect(locks.IsLocked("app:1.0")).To(BeFalse())
	})

	It("runs functions under the lock", func() {
		err := locks.Run(ctx, "app:1.0", func() error {
			Expect(locks.IsLocked("app:1.0")).To(BeTrue())
			return nil
		})
		MustBeSuccessful(err)
		Expect(locks.IsLocked("app:1.0")).To(BeFalse())
	})
})
