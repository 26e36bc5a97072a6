package editor_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	gogit "github.com/go-git/go-git/v5"

	"github.com/mandelsoft/toscaeditor/pkg/archives"
	"github.com/mandelsoft/toscaeditor/pkg/ctxutil"
	"github.com/mandelsoft/toscaeditor/pkg/editor/operations"
	"github.com/mandelsoft/toscaeditor/pkg/editor/processors"
	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/events"
	"github.com/mandelsoft/toscaeditor/pkg/git"
	"github.com/mandelsoft/toscaeditor/pkg/testutils"

	me "github.com/mandelsoft/toscaeditor/pkg/editor"
)

const ID = "app:1.0"

func addNode(name, typ string) *operations.AddNode {
	return &operations.AddNode{NodeName: name, NodeType: typ}
}

var _ = Describe("edition sessions", func() {
	var ctx context.Context
	var fixture *testutils.TopologyFixture
	var repo *archives.Repository
	var m *me.Manager

	setup := func(idle time.Duration) {
		m = me.New(repo, me.Options{User: "alice", IdleTimeout: idle})
	}

	BeforeEach(func() {
		ctx = ctxutil.CancelContext(context.Background())
		fixture = Must(testutils.NewTopologyFixture("app", "1.0"))
		DeferCleanup(fixture.Release)

		root := Must(os.MkdirTemp("", "editor-"))
		DeferCleanup(os.RemoveAll, root)
		repo = archives.NewRepository(root, fixture.Catalog, git.New(git.Options{}))
		setup(0)
	})

	AfterEach(func() {
		ctxutil.Cancel(ctx)
		MustBeSuccessful(m.Wait())
	})

	It("creates topologies", func() {
		r := Must(m.Create(ctx, "app", "1.0", "bob", "demo"))
		Expect(r.Topology.Id()).To(Equal(ID))
		Expect(r.Topology.Workflows.Has("install")).To(BeTrue())
		Expect(r.Csar.Author).To(Equal("bob"))
		Expect(r.LastOperationId).To(BeEmpty())
		Expect(r.Modified).To(BeFalse())
		Expect(m.Sessions()).To(Equal([]string{ID}))

		_, err := m.Create(ctx, "app", "1.0", "", "")
		Expect(errkind.IsAlreadyExists(err)).To(BeTrue())
	})

	It("rejects invalid ids", func() {
		_, err := m.Get(ctx, "app")
		Expect(errkind.KindOf(err)).To(Equal(errkind.InvalidArgument))
		_, err = m.Get(ctx, "other:1.0")
		Expect(errkind.IsNotFound(err)).To(BeTrue())
	})

	Context("operations", func() {
		BeforeEach(func() {
			Must(m.Create(ctx, "app", "1.0", "", ""))
		})

		It("executes operations in order", func() {
			r := Must(m.Execute(ctx, ID, "", addNode("compute", "tosca.nodes.Compute")))
			Expect(r.LastOperationId).NotTo(BeEmpty())
			Expect(r.Pending).To(HaveLen(1))
			Expect(r.Pending[0].GetAuthor()).To(Equal("alice"))
			Expect(r.Topology.NodeTemplates.Names()).To(Equal([]string{"compute"}))
			Expect(r.Modified).To(BeTrue())

			_, err := m.Execute(ctx, ID, "", addNode("web", "tosca.nodes.WebServer"))
			Expect(errkind.KindOf(err)).To(Equal(errkind.EditionConcurrency))

			n := Must(m.Execute(ctx, ID, r.LastOperationId, addNode("web", "tosca.nodes.WebServer")))
			Expect(n.Pending).To(HaveLen(2))
			Expect(n.Pending[1].GetPreviousOperationId()).To(Equal(r.LastOperationId))
		})

		It("hands out copies", func() {
			r := Must(m.Execute(ctx, ID, "", addNode("compute", "tosca.nodes.Compute")))
			r.Topology.NodeTemplates.Delete("compute")
			Expect(Must(m.Get(ctx, ID)).Topology.NodeTemplates.Names()).To(Equal([]string{"compute"}))
		})

		It("keeps the session on failing operations", func() {
			r := Must(m.Execute(ctx, ID, "", addNode("compute", "tosca.nodes.Compute")))
			_, err := m.Execute(ctx, ID, r.LastOperationId, addNode("compute", "tosca.nodes.WebServer"))
			Expect(errkind.IsAlreadyExists(err)).To(BeTrue())
			_, err = m.Execute(ctx, ID, r.LastOperationId, addNode("other", "acme.nodes.Unknown"))
			Expect(err).To(HaveOccurred())

			n := Must(m.Get(ctx, ID))
			Expect(n.LastOperationId).To(Equal(r.LastOperationId))
			Expect(n.Pending).To(HaveLen(1))
			Expect(n.Topology.NodeTemplates.Names()).To(Equal([]string{"compute"}))
		})

		It("discards file changes of failing operations", func() {
			r := processors.NewRegistry()
			processors.Register(r, func(e *processors.Edition, op *operations.AddNode) error {
				return processors.Process(e, op)
			})
			processors.Register(r, func(e *processors.Edition, op *operations.UpdateFile) error {
				if err := e.Files.Write(op.Path, []byte(op.Content)); err != nil {
					return err
				}
				return errkind.ErrInvalidArgument("rejected %s", op.Path)
			})
			m = me.New(repo, me.Options{User: "alice", Registry: r})

			n := Must(m.Execute(ctx, ID, "", addNode("compute", "tosca.nodes.Compute")))
			_, err := m.Execute(ctx, ID, n.LastOperationId, &operations.UpdateFile{FileRef: operations.FileRef{Path: "scripts/create.sh"}, Content: "echo"})
			Expect(errkind.KindOf(err)).To(Equal(errkind.InvalidArgument))

			Must(m.Save(ctx, ID, n.LastOperationId))
			_, err = os.Stat(filepath.Join(repo.WorkDir("app", "1.0"), "scripts", "create.sh"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("saves pending operations", func() {
			r := Must(m.Execute(ctx, ID, "", addNode("compute", "tosca.nodes.Compute")))
			_, err := m.Save(ctx, ID, "")
			Expect(errkind.KindOf(err)).To(Equal(errkind.EditionConcurrency))

			s := Must(m.Save(ctx, ID, r.LastOperationId))
			Expect(s.Pending).To(BeEmpty())
			Expect(s.Modified).To(BeFalse())
			Expect(s.Hash).To(Equal(Must(repo.Head("app", "1.0"))))

			list := Must(m.History(ID, 0, -1))
			Expect(list).To(HaveLen(3))
			Expect(list[0].Message).To(Equal("add node compute of type tosca.nodes.Compute"))
			Expect(list[0].Author).To(Equal("alice"))

			MustBeSuccessful(m.Close(ctx, ID))
			Expect(m.Sessions()).To(BeEmpty())
			Expect(Must(m.Get(ctx, ID)).Topology.NodeTemplates.Names()).To(Equal([]string{"compute"}))
		})

		It("commits with a session operation", func() {
			r := Must(m.Execute(ctx, ID, "", addNode("compute", "tosca.nodes.Compute")))
			Must(m.Execute(ctx, ID, r.LastOperationId, &operations.GitCommit{Message: "initial nodes"}))
			list := Must(m.History(ID, 0, 1))
			Expect(list[0].Message).To(Equal("initial nodes\n\nadd node compute of type tosca.nodes.Compute"))
		})

		It("resets pending operations", func() {
			Must(m.Execute(ctx, ID, "", addNode("compute", "tosca.nodes.Compute")))
			r := Must(m.Reset(ctx, ID))
			Expect(r.Pending).To(BeEmpty())
			Expect(r.LastOperationId).To(BeEmpty())
			Expect(r.Topology.NodeTemplates.Names()).To(BeEmpty())
		})

		It("recovers external commits", func() {
			Must(m.Execute(ctx, ID, "", addNode("compute", "tosca.nodes.Compute")))
			dir := repo.WorkDir("app", "1.0")
			MustBeSuccessful(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("notes\n"), 0o644))
			h := Must(repo.Git().CommitAll(dir, "bob", "", "add notes"))

			r := Must(m.Recover(ctx, ID))
			Expect(r.Pending).To(BeEmpty())
			Expect(r.Hash).To(Equal(h))
			Expect(r.Commits).To(HaveLen(1))
			Expect(r.Commits[0].Message).To(Equal("add notes"))
		})

		It("requires saved sessions for push", func() {
			remote := filepath.Join(Must(os.MkdirTemp("", "remote-")), "remote.git")
			DeferCleanup(os.RemoveAll, filepath.Dir(remote))
			Must(gogit.PlainInit(remote, true))
			MustBeSuccessful(repo.Git().SetRemote(repo.WorkDir("app", "1.0"), git.DefaultRemote, remote))

			r := Must(m.Execute(ctx, ID, "", addNode("compute", "tosca.nodes.Compute")))
			_, err := m.Push(ctx, ID, nil, "")
			Expect(errkind.KindOf(err)).To(Equal(errkind.InvalidArgument))

			Must(m.Save(ctx, ID, r.LastOperationId))
			Must(m.Push(ctx, ID, nil, ""))
			bare := Must(gogit.PlainOpen(remote))
			ref := Must(bare.Head())
			Expect(ref.Hash().String()).To(Equal(Must(repo.Head("app", "1.0"))))
		})

		It("deletes topologies", func() {
			var seen []string
			h := events.HandlerFunc[events.TopologyEvent](func(e events.TopologyEvent) {
				seen = append(seen, e.Topology)
			})
			m.Events().RegisterHandler(&h, events.TopologyDeleted)

			MustBeSuccessful(m.Delete(ctx, ID))
			Expect(seen).To(Equal([]string{ID}))
			Expect(repo.Exists("app", "1.0")).To(BeFalse())
			Expect(m.Sessions()).To(BeEmpty())
			Expect(errkind.IsNotFound(m.Delete(ctx, ID))).To(BeTrue())
		})
	})

	It("evicts idle sessions", func() {
		setup(100 * time.Millisecond)
		evicted := m.Future(events.SessionEvicted, ID)
		Must(m.Create(ctx, "app", "1.0", "", ""))
		ready, _ := Must2(m.Start(ctx))
		MustBeSuccessful(ready.Wait())

		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		Expect(evicted.Wait(wctx)).To(BeTrue())
		Expect(m.Sessions()).To(BeEmpty())
	})

	It("combines commit messages", func() {
		ops := []operations.Operation{addNode("a", "tosca.nodes.Compute"), &operations.GitCommit{}, addNode("b", "tosca.nodes.Compute")}
		Expect(me.CommitMessage(ID, "", nil)).To(Equal("update topology app:1.0"))
		Expect(me.CommitMessage(ID, "", ops[:1])).To(Equal("add node a of type tosca.nodes.Compute"))
		Expect(me.CommitMessage(ID, "", ops)).To(Equal("update topology app:1.0\n\nadd node a of type tosca.nodes.Compute\nadd node b of type tosca.nodes.Compute"))
		Expect(me.CommitMessage(ID, "mine", nil)).To(Equal("mine"))
	})
})
