package git_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	me "github.com/mandelsoft/toscaeditor/pkg/git"
)

func tempDir() string {
	dir := Must(os.MkdirTemp("", "git-"))
	DeferCleanup(os.RemoveAll, dir)
	return dir
}

func write(dir, name, content string) {
	MustBeSuccessful(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func needsGit() {
	if _, err := exec.LookPath("git"); err != nil {
		Skip("git command not available")
	}
}

var _ = Describe("git", func() {
	var ctx context.Context
	var m *me.Manager
	var dir string

	BeforeEach(func() {
		ctx = context.Background()
		m = me.New(me.Options{})
		dir = filepath.Join(tempDir(), "work")
		Must(m.Init(dir, "topology\n"))
	})

	Context("local", func() {
		It("creates the initial commit", func() {
			list := Must(m.History(dir, 0, -1))
			Expect(len(list)).To(Equal(1))
			Expect(list[0].Message).To(Equal(me.InitialCommitMessage))
			Expect(list[0].Author).To(Equal(me.BotUser))
			Expect(Must(m.CurrentBranch(dir))).To(Equal(me.DefaultBranch))
		})

		It("commits all changes", func() {
			first := Must(m.Head(dir))
			write(dir, "topology.yml", "tosca_definitions_version: tosca_simple_yaml_1_0\n")
			h := Must(m.CommitAll(dir, "alice", "", "add topology"))
			Expect(h).NotTo(Equal(first))

			list := Must(m.History(dir, 0, -1))
			Expect(len(list)).To(Equal(2))
			Expect(list[0].Message).To(Equal("add topology"))
			Expect(list[0].Email).To(Equal("alice@undefined.org"))

			since := Must(m.Since(dir, first))
			Expect(len(since)).To(Equal(1))
			Expect(since[0].Hash).To(Equal(h))

			Expect(Must(m.History(dir, 1, 1))[0].Hash).To(Equal(first))
		})

		It("skips commits without changes", func() {
			first := Must(m.Head(dir))
			Expect(Must(m.CommitAll(dir, "alice", "", "nothing"))).To(Equal(first))
		})

		It("commits deletions", func() {
			MustBeSuccessful(os.Remove(filepath.Join(dir, me.ReadmeFile)))
			Must(m.CommitAll(dir, "", "", "remove readme"))
			MustBeSuccessful(m.Reset(dir))
			_, err := os.Stat(filepath.Join(dir, me.ReadmeFile))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("resets uncommitted changes", func() {
			write(dir, me.ReadmeFile, "changed\n")
			write(dir, "new.txt", "new\n")
			MustBeSuccessful(m.Reset(dir))
			Expect(string(Must(os.ReadFile(filepath.Join(dir, me.ReadmeFile))))).To(Equal("topology\n"))
			_, err := os.Stat(filepath.Join(dir, "new.txt"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("opens only existing repositories", func() {
			Expect(Must(m.Open(dir))).NotTo(BeNil())
			Expect(Must(m.Open(tempDir()))).To(BeNil())
		})

		It("creates orphan branches", func() {
			MustBeSuccessful(m.CheckoutExistingBranchOrCreateOrphan(dir, "dev"))
			Expect(Must(m.CurrentBranch(dir))).To(Equal("dev"))
			list := Must(m.History(dir, 0, -1))
			Expect(len(list)).To(Equal(1))
			Expect(list[0].Message).To(Equal(me.InitialCommitMessage))

			MustBeSuccessful(m.CheckoutExistingBranchOrCreateOrphan(dir, me.DefaultBranch))
			Expect(Must(m.CurrentBranch(dir))).To(Equal(me.DefaultBranch))
			Expect(Must(m.IsBranch(dir, "dev"))).To(BeTrue())
			Expect(Must(m.IsTag(dir, "dev"))).To(BeFalse())
		})

		It("deletes the current branch", func() {
			MustBeSuccessful(m.CheckoutExistingBranchOrCreateOrphan(dir, "dev"))
			MustBeSuccessful(m.DeleteBranch(ctx, dir, "dev", false, nil))
			Expect(Must(m.IsBranch(dir, "dev"))).To(BeFalse())
			Expect(Must(m.CurrentBranch(dir))).To(HavePrefix(me.SwitchBranchPrefix + "-"))
		})

		It("rejects unsafe states", func() {
			write(filepath.Join(dir, ".git"), "MERGE_HEAD", "0000000000000000000000000000000000000000\n")
			Expect(Must(me.RepositoryState(dir))).To(Equal(me.StateMerging))
			err := m.Push(ctx, dir, nil, "")
			Expect(me.IsMergingStateError(err)).To(BeTrue())
			err = m.Pull(ctx, dir, nil, "")
			Expect(me.IsMergingStateError(err)).To(BeTrue())
		})

		It("reports rebasing", func() {
			MustBeSuccessful(os.Mkdir(filepath.Join(dir, ".git", "rebase-merge"), 0o755))
			err := m.Push(ctx, dir, nil, "")
			Expect(me.IsStateError(err)).To(BeTrue())
			Expect(me.IsMergingStateError(err)).To(BeFalse())
		})
	})

	Context("remote", func() {
		var remote string

		BeforeEach(func() {
			remote = filepath.Join(tempDir(), "remote.git")
			Must(gogit.PlainInit(remote, true))
			MustBeSuccessful(m.SetRemote(dir, me.DefaultRemote, remote))
			MustBeSuccessful(m.Push(ctx, dir, nil, ""))
		})

		It("clones and checks out", func() {
			other := Must(m.CloneOrCheckout(ctx, tempDir(), remote, nil, me.DefaultBranch, "clone"))
			Expect(Must(m.Head(other))).To(Equal(Must(m.Head(dir))))
			Expect(Must(m.CurrentBranch(other))).To(Equal(me.DefaultBranch))
		})

		It("pushes to other branches", func() {
			MustBeSuccessful(m.Push(ctx, dir, nil, "published"))
			bare := Must(gogit.PlainOpen(remote))
			ref := Must(bare.Reference(plumbing.NewBranchReferenceName("published"), true))
			Expect(ref.Hash().String()).To(Equal(Must(m.Head(dir))))
		})

		It("saves rejected changes in a conflict branch", func() {
			other := Must(m.CloneOrCheckout(ctx, tempDir(), remote, nil, me.DefaultBranch, "clone"))
			write(other, "a.txt", "a\n")
			Must(m.CommitAll(other, "bob", "", "other change"))
			MustBeSuccessful(m.Push(ctx, other, nil, ""))
			published := Must(m.Head(other))

			write(dir, "b.txt", "b\n")
			local := Must(m.CommitAll(dir, "alice", "", "local change"))
			err := m.Push(ctx, dir, nil, "")
			c := me.ConflictOf(err)
			Expect(c).NotTo(BeNil())
			Expect(c.LocalBranch).To(Equal(me.DefaultBranch))
			Expect(c.ConflictBranch).To(MatchRegexp(`^alien-conflicts-[0-9]+-[0-9]+$`))

			bare := Must(gogit.PlainOpen(remote))
			ref := Must(bare.Reference(plumbing.NewBranchReferenceName(c.ConflictBranch), true))
			Expect(ref.Hash().String()).To(Equal(local))
			Expect(Must(m.Head(dir))).To(Equal(published))
		})

		It("pulls remote changes", func() {
			needsGit()
			other := Must(m.CloneOrCheckout(ctx, tempDir(), remote, nil, me.DefaultBranch, "clone"))
			write(other, "a.txt", "a\n")
			h := Must(m.CommitAll(other, "bob", "", "other change"))
			MustBeSuccessful(m.Push(ctx, other, nil, ""))

			MustBeSuccessful(m.Pull(ctx, dir, nil, ""))
			Expect(Must(m.Head(dir))).To(Equal(h))
		})

		It("reports merge conflicts on pull", func() {
			needsGit()
			other := Must(m.CloneOrCheckout(ctx, tempDir(), remote, nil, me.DefaultBranch, "clone"))
			write(other, me.ReadmeFile, "remote\n")
			Must(m.CommitAll(other, "bob", "", "remote change"))
			MustBeSuccessful(m.Push(ctx, other, nil, ""))

			write(dir, me.ReadmeFile, "local\n")
			local := Must(m.CommitAll(dir, "alice", "", "local change"))

			err := m.Pull(ctx, dir, nil, "")
			c := me.ConflictOf(err)
			Expect(c).NotTo(BeNil())
			Expect(c.LocalBranch).To(Equal(me.DefaultBranch))
			Expect(c.Remote).To(Equal(me.DefaultBranch))
			Expect(c.ConflictBranch).To(BeEmpty())
			Expect(Must(me.RepositoryState(dir))).To(Equal(me.StateMerging))

			Expect(me.IsMergingStateError(m.Pull(ctx, dir, nil, ""))).To(BeTrue())
			Expect(me.IsMergingStateError(m.Push(ctx, dir, nil, ""))).To(BeTrue())

			MustBeSuccessful(m.AbortMerge(ctx, dir))
			Expect(Must(me.RepositoryState(dir))).To(Equal(me.StateSafe))
			Expect(Must(m.Head(dir))).To(Equal(local))
			Expect(string(Must(os.ReadFile(filepath.Join(dir, me.ReadmeFile))))).To(Equal("local\n"))
		})

		It("ignores missing remote branches on pull", func() {
			MustBeSuccessful(m.Pull(ctx, dir, nil, "unknown"))
		})
	})

	Context("stash", func() {
		BeforeEach(func() {
			needsGit()
		})

		It("stashes and reapplies changes", func() {
			write(dir, me.ReadmeFile, "changed\n")
			write(dir, "new.txt", "new\n")
			MustBeSuccessful(m.Stash(ctx, dir, "session"))
			Expect(string(Must(os.ReadFile(filepath.Join(dir, me.ReadmeFile))))).To(Equal("topology\n"))

			Expect(Must(m.ApplyStashThenDrop(ctx, dir, "session"))).To(BeTrue())
			Expect(string(Must(os.ReadFile(filepath.Join(dir, "new.txt"))))).To(Equal("new\n"))
			Expect(Must(m.ApplyStashThenDrop(ctx, dir, "session"))).To(BeFalse())
		})
	})
})
