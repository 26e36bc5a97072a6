package archives_test

import (
	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"

	me "github.com/mandelsoft/toscaeditor/pkg/archives"
)

var _ = Describe("files", func() {
	var fs vfs.FileSystem
	var files *me.Files

	BeforeEach(func() {
		fs = memoryfs.New()
		MustBeSuccessful(vfs.WriteFile(fs, me.EntryFile, []byte("entry"), 0o644))
		MustBeSuccessful(vfs.WriteFile(fs, "old.txt", []byte("old"), 0o644))
		files = me.NewFiles(fs)
	})

	It("keeps writes pending until flushed", func() {
		MustBeSuccessful(files.Write("/scripts/create.sh", []byte("echo")))
		Expect(files.Exists("scripts/create.sh")).To(BeTrue())
		Expect(string(Must(files.Read("scripts/create.sh")))).To(Equal("echo"))
		Expect(Must(vfs.FileExists(fs, "scripts/create.sh"))).To(BeFalse())
		Expect(files.Pending()).To(Equal([]string{"scripts/create.sh"}))

		MustBeSuccessful(files.Flush())
		Expect(string(Must(vfs.ReadFile(fs, "scripts/create.sh")))).To(Equal("echo"))
		Expect(files.Pending()).To(BeEmpty())
	})

	It("deletes files", func() {
		MustBeSuccessful(files.Delete("old.txt"))
		Expect(files.Exists("old.txt")).To(BeFalse())
		Expect(Must(vfs.FileExists(fs, "old.txt"))).To(BeTrue())
		MustBeSuccessful(files.Flush())
		Expect(Must(vfs.FileExists(fs, "old.txt"))).To(BeFalse())

		Expect(errkind.IsNotFound(files.Delete("old.txt"))).To(BeTrue())
	})

	It("moves files", func() {
		MustBeSuccessful(files.Move("old.txt", "dir/new.txt"))
		Expect(files.Exists("old.txt")).To(BeFalse())
		Expect(string(Must(files.Read("dir/new.txt")))).To(Equal("old"))
		Expect(files.Pending()).To(Equal([]string{"dir/new.txt", "old.txt"}))

		MustBeSuccessful(files.Write("other.txt", nil))
		Expect(errkind.IsAlreadyExists(files.Move("dir/new.txt", "other.txt"))).To(BeTrue())
	})

	It("protects the entry definitions", func() {
		Expect(errkind.Is(files.Write(me.EntryFile, nil), errkind.InvalidArgument)).To(BeTrue())
		Expect(errkind.Is(files.Delete("/"+me.EntryFile), errkind.InvalidArgument)).To(BeTrue())
		Expect(errkind.Is(files.Write(".git/config", nil), errkind.InvalidArgument)).To(BeTrue())
		Expect(string(Must(files.Read(me.EntryFile)))).To(Equal("entry"))
	})

	It("resets pending changes", func() {
		MustBeSuccessful(files.Write("new.txt", []byte("new")))
		MustBeSuccessful(files.Delete("old.txt"))
		files.Reset()
		Expect(files.Exists("new.txt")).To(BeFalse())
		Expect(files.Exists("old.txt")).To(BeTrue())
	})

	It("restores captured pending changes", func() {
		MustBeSuccessful(files.Write("kept.txt", []byte("kept")))
		st := Must(files.State())

		MustBeSuccessful(files.Write("kept.txt", []byte("changed")))
		MustBeSuccessful(files.Write("new.txt", []byte("new")))
		MustBeSuccessful(files.Delete("old.txt"))

		MustBeSuccessful(files.Restore(st))
		Expect(files.Pending()).To(Equal([]string{"kept.txt"}))
		Expect(string(Must(files.Read("kept.txt")))).To(Equal("kept"))
		Expect(files.Exists("new.txt")).To(BeFalse())
		Expect(files.Exists("old.txt")).To(BeTrue())
	})
})
