package pool_test

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/toscaeditor/pkg/ctxutil"

	me "github.com/mandelsoft/toscaeditor/pkg/pool"
)

const CMD_COUNT = me.Command("count")

type action struct {
	lock     sync.Mutex
	commands []me.Command
	keys     []me.ObjectKey
	redo     bool
	mctx     me.MessageContext
}

var _ me.Action = (*action)(nil)

func (a *action) Reconcile(p me.Pool, mctx me.MessageContext, key me.ObjectKey) me.Status {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.mctx = mctx

	first := !slices.Contains(a.keys, key)
	a.keys = append(a.keys, key)
	if first && a.redo {
		return me.StatusCompleted().RescheduleAfter(100 * time.Millisecond)
	}
	return me.StatusCompleted().Stop()
}

func (a *action) Command(p me.Pool, _ me.MessageContext, cmd me.Command) me.Status {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.commands = append(a.commands, cmd)
	if _, n, ok := strings.Cut(string(cmd), ":"); ok {
		if i, err := strconv.Atoi(n); err == nil && i > 0 {
			p.EnqueueCommand(me.Command(fmt.Sprintf("count:%d", i-1)))
		}
	}
	return me.StatusCompleted()
}

func (a *action) Commands() []me.Command {
	a.lock.Lock()
	defer a.lock.Unlock()
	return slices.Clone(a.commands)
}

func (a *action) MessageContext() me.MessageContext {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.mctx
}

func (a *action) Keys() []me.ObjectKey {
	a.lock.Lock()
	defer a.lock.Unlock()
	return slices.Clone(a.keys)
}

var _ = Describe("pool", func() {
	var pool me.Pool
	var ctx context.Context

	BeforeEach(func() {
		ctx = ctxutil.CancelContext(context.Background())
		pool = me.NewPool(logging.DefaultContext(), "test", 1, 0)
	})

	AfterEach(func() {
		ctxutil.Cancel(ctx)
		MustBeSuccessful(pool.Wait())
	})

	start := func() {
		ready, _ := Must2(pool.Start(ctx))
		MustBeSuccessful(ready.Wait())
	}

	It("executes commands", func() {
		a := &action{}
		for i := 0; i <= 2; i++ {
			pool.AddAction(me.Command(fmt.Sprintf("count:%d", i)), a)
		}
		start()
		pool.EnqueueCommand("count:2")
		Eventually(a.Commands).Should(Equal([]me.Command{"count:2", "count:1", "count:0"}))
		Expect(a.Keys()).To(BeNil())
	})

	It("reconciles object keys", func() {
		a := &action{}
		pool.AddAction(me.ObjectType("session"), a)
		start()

		key := me.NewObjectKey("session", "app:1.0")
		pool.EnqueueKey(key)
		Eventually(a.Keys).Should(Equal([]me.ObjectKey{key}))
		Expect(a.Commands()).To(BeNil())
	})

	It("passes a logging context to actions", func() {
		a := &action{}
		pool.AddAction(me.ObjectType("session"), a)
		start()

		pool.EnqueueKey(me.NewObjectKey("session", "app:1.0"))
		Eventually(a.MessageContext).ShouldNot(BeNil())
		a.MessageContext().Logger().Debug("reconciled")
	})

	It("reschedules object keys", func() {
		a := &action{redo: true}
		pool.AddAction(me.ObjectType("session"), a)
		start()

		key := me.NewObjectKey("session", "app:1.0")
		pool.EnqueueKeyAfter(key, 10*time.Millisecond)
		Eventually(a.Keys).Should(Equal([]me.ObjectKey{key, key}))
		Consistently(a.Keys, 300*time.Millisecond).Should(HaveLen(2))
	})

	It("decodes keys", func() {
		cmd, key := Must2(me.DecodeKey(me.EncodeObjectKey(me.NewObjectKey("session", "app:1.0"))))
		Expect(cmd).To(BeEmpty())
		Expect(*key).To(Equal(me.NewObjectKey("session", "app:1.0")))

		cmd, key = Must2(me.DecodeKey(me.EncodeCommandKey(CMD_COUNT)))
		Expect(cmd).To(Equal(CMD_COUNT))
		Expect(key).To(BeNil())
	})
})
