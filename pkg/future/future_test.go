package future_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mandelsoft/logging"

	me "github.com/mandelsoft/toscaeditor/pkg/future"
)

var _ = Describe("future", func() {
	var ctx context.Context

	BeforeEach(func() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(cancel)
	})

	It("remembers early triggers", func() {
		f := me.NewFuture()
		f.Trigger()
		Expect(f.Wait(ctx)).To(BeTrue())
	})

	It("releases waiters", func() {
		f := me.NewFuture()
		go func() {
			time.Sleep(10 * time.Millisecond)
			f.Trigger()
		}()
		Expect(f.Wait(ctx)).To(BeTrue())
	})

	It("stops waiting on cancellation", func() {
		short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		Expect(me.NewFuture().Wait(short)).To(BeFalse())
	})

	It("triggers event futures", func() {
		m := me.NewEventManager[string, string]()
		f := m.Future("evicted", "app:1.0")
		other := m.Future("evicted", "db:1.0")
		m.Trigger(logging.DefaultContext().Logger(), "evicted", "app:1.0")
		Expect(f.Wait(ctx)).To(BeTrue())

		short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		Expect(other.Wait(short)).To(BeFalse())
	})
})

var _ = Describe("repeatable future", func() {
	It("counts triggers", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		f := me.NewFuture(true)
		Expect(f.Trigger()).To(BeTrue())
		Expect(f.Trigger()).To(BeTrue())
		Expect(f.Wait(ctx)).To(BeTrue())
		Expect(f.Wait(ctx)).To(BeTrue())

		short, scancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer scancel()
		Expect(f.Wait(short)).To(BeFalse())
	})

	It("keeps one shot futures released", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		f := me.NewFuture()
		Expect(f.Trigger()).To(BeFalse())
		Expect(f.Wait(ctx)).To(BeTrue())
		Expect(f.Wait(ctx)).To(BeTrue())
	})
})
