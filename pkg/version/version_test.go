package version_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	me "github.com/mandelsoft/toscaeditor/pkg/version"
)

func older(left, right string) {
	ExpectWithOffset(1, me.Compare(left, right)).To(BeNumerically("<", 0), "%s should be older than %s", left, right)
	ExpectWithOffset(1, me.Compare(right, left)).To(BeNumerically(">", 0), "%s should be newer than %s", right, left)
}

func equal(left, right string) {
	ExpectWithOffset(1, me.Compare(left, right)).To(Equal(0), "%s should be equal to %s", left, right)
	ExpectWithOffset(1, me.Compare(right, left)).To(Equal(0), "%s should be equal to %s", right, left)
}

var _ = Describe("versions", func() {
	DescribeTable("parsing",
		func(v string, major, minor, incremental, build int, qualifier string) {
			p := me.Parse(v)
			Expect([]int{p.Major, p.Minor, p.Incremental, p.Build}).To(Equal([]int{major, minor, incremental, build}))
			Expect(p.Qualifier).To(Equal(qualifier))
			Expect(p.String()).To(Equal(v))
		},
		Entry(nil, "1", 1, 0, 0, 0, ""),
		Entry(nil, "1.2", 1, 2, 0, 0, ""),
		Entry(nil, "1.2.3", 1, 2, 3, 0, ""),
		Entry(nil, "1.2.3-1", 1, 2, 3, 1, ""),
		Entry(nil, "1.2.3-alpha-1", 1, 2, 3, 0, "alpha-1"),
		Entry(nil, "1.2-alpha-1", 1, 2, 0, 0, "alpha-1"),
		Entry(nil, "1.2-alpha-1-20050205.060708-1", 1, 2, 0, 0, "alpha-1-20050205.060708-1"),
		Entry(nil, "RELEASE", 0, 0, 0, 0, "RELEASE"),
		Entry(nil, "2.0-1", 2, 0, 0, 1, ""),
		Entry("leading zero", "02", 0, 0, 0, 0, "02"),
		Entry("leading zero minor", "0.09", 0, 0, 0, 0, "0.09"),
		Entry("leading zero incremental", "0.2.09", 0, 0, 0, 0, "0.2.09"),
		Entry("leading zero build", "2.0-01", 2, 0, 0, 0, "01"),
		Entry(nil, "1.0.1b", 0, 0, 0, 0, "1.0.1b"),
		Entry(nil, "1.0M2", 0, 0, 0, 0, "1.0M2"),
		Entry(nil, "1.0RC2", 0, 0, 0, 0, "1.0RC2"),
		Entry(nil, "1.1.2.beta1", 1, 1, 2, 0, "beta1"),
		Entry(nil, "1.7.3.beta1", 1, 7, 3, 0, "beta1"),
		Entry(nil, "1.7.3.0", 0, 0, 0, 0, "1.7.3.0"),
		Entry(nil, "1.7.3.0-1", 0, 0, 0, 0, "1.7.3.0-1"),
		Entry(nil, "PATCH-1193602", 0, 0, 0, 0, "PATCH-1193602"),
		Entry(nil, "5.0.0alpha-2006020117", 0, 0, 0, 0, "5.0.0alpha-2006020117"),
		Entry(nil, "1.0.0.-SNAPSHOT", 0, 0, 0, 0, "1.0.0.-SNAPSHOT"),
		Entry(nil, "1..0-SNAPSHOT", 0, 0, 0, 0, "1..0-SNAPSHOT"),
		Entry(nil, "1.0.-SNAPSHOT", 0, 0, 0, 0, "1.0.-SNAPSHOT"),
		Entry(nil, ".1.0-SNAPSHOT", 0, 0, 0, 0, ".1.0-SNAPSHOT"),
		Entry(nil, "1.2.3.200705301630", 0, 0, 0, 0, "1.2.3.200705301630"),
		Entry("build number overflow", "1.2.3-200705301630", 1, 2, 3, 0, "200705301630"),
	)

	It("orders editor versions", func() {
		older("1.0-alpha-1", "1.0-SNAPSHOT")
		older("1.0-SNAPSHOT", "1.0")
		older("1.0", "1.0-1")
		equal("2.0-0", "2.0")
	})

	It("compares releases", func() {
		equal("1", "1")
		older("1", "2")
		older("1.5", "2")
		older("1", "2.5")
		equal("1", "1.0")
		equal("1", "1.0.0")
		older("1.0", "1.1")
		older("1.1", "1.2")
		older("1.0.0", "1.1")
		older("1.7.3.0", "1.7.3.1")
		older("1.1", "1.2.0")
		older("1.1.2.alpha1", "1.1.2")
		older("1.1.2.alpha1", "1.1.2.beta1")
		older("1.1.2.beta1", "1.2")
		older("1.0-alpha-1", "1.0")
		older("1.0-alpha-1", "1.0-alpha-2")
		older("1.0-alpha-2", "1.0-alpha-15")
		older("1.0-alpha-1", "1.0-beta-1")
		older("1.0-beta-1", "1.0-SNAPSHOT")
		older("1.0-alpha-1-SNAPSHOT", "1.0-alpha-1")
		older("1.0-1", "1.0-2")
		older("2.0", "2.0-1")
		older("2.0.0", "2.0-1")
		older("2.0-1", "2.0.1")
		older("2.0.1-klm", "2.0.1-lmn")
		older("2.0.1", "2.0.1-xyz")
		older("2.0.1-xyz-1", "2.0.1-1-xyz")
		older("2.0.1", "2.0.1-123")
		older("2.0.1-xyz", "2.0.1-123")
		older("1.2.3-10000000000", "1.2.3-10000000001")
		older("1.2.3-1", "1.2.3-10000000001")
		older("2.3.0-v200706262000", "2.3.0-v200706262130")
		older("2.0.0.v200706041905-7C78EK9E_EkMNfNOd2d8qq", "2.0.0.v200706041906-7C78EK9E_EkMNfNOd2d8qq")
	})

	It("compares snapshots", func() {
		equal("1-SNAPSHOT", "1-SNAPSHOT")
		older("1-SNAPSHOT", "2-SNAPSHOT")
		older("1.5-SNAPSHOT", "2-SNAPSHOT")
		older("1-SNAPSHOT", "2.5-SNAPSHOT")
		equal("1-SNAPSHOT", "1.0-SNAPSHOT")
		equal("1-SNAPSHOT", "1.0.0-SNAPSHOT")
		older("1.0-SNAPSHOT", "1.1-SNAPSHOT")
		older("1.1-SNAPSHOT", "1.2-SNAPSHOT")
		older("1.0.0-SNAPSHOT", "1.1-SNAPSHOT")
		older("1.1-SNAPSHOT", "1.2.0-SNAPSHOT")
		older("1.0-alpha-1-SNAPSHOT", "1.0-alpha-2-SNAPSHOT")
		older("1.0-alpha-1-SNAPSHOT", "1.0-beta-1-SNAPSHOT")
		older("1.0-beta-1-SNAPSHOT", "1.0-SNAPSHOT-SNAPSHOT")
		older("1.0-SNAPSHOT-SNAPSHOT", "1.0-SNAPSHOT")
		older("1.0-alpha-1-SNAPSHOT-SNAPSHOT", "1.0-alpha-1-SNAPSHOT")
		older("1.0-SNAPSHOT", "1.0-1-SNAPSHOT")
		older("1.0-1-SNAPSHOT", "1.0-2-SNAPSHOT")
		older("2.0-SNAPSHOT", "2.0-1-SNAPSHOT")
		older("2.0.0-SNAPSHOT", "2.0-1-SNAPSHOT")
		older("2.0-1-SNAPSHOT", "2.0.1-SNAPSHOT")
		older("2.0.1-klm-SNAPSHOT", "2.0.1-lmn-SNAPSHOT")
		older("2.0.1-SNAPSHOT", "2.0.1-123-SNAPSHOT")
		older("2.0.1-xyz-SNAPSHOT", "2.0.1-123-SNAPSHOT")
	})

	It("orders release candidates before snapshots", func() {
		older("1.0-RC1", "1.0-SNAPSHOT")
		older("1.0-rc1", "1.0-SNAPSHOT")
		older("1.0-rc-1", "1.0-SNAPSHOT")
		older("1.0-CR1", "1.0-SNAPSHOT")
	})

	It("hashes equal versions equally", func() {
		v1 := me.Parse("1")
		v2 := me.Parse("1.0")
		Expect(v1.Equal(v2)).To(BeTrue())
		Expect(v1.Hash()).To(Equal(v2.Hash()))
		Expect(v1.Canonical()).To(Equal(v2.Canonical()))
		Expect(v1.Equal(nil)).To(BeFalse())
	})

	It("selects the latest version", func() {
		Expect(me.Latest("1.0", "1.0-SNAPSHOT", "0.9", "1.0-alpha-1")).To(Equal("1.0"))
		Expect(me.IsSnapshot("2.0.0-SNAPSHOT")).To(BeTrue())
		Expect(me.IsValid("2.0.0-SNAPSHOT")).To(BeTrue())
		Expect(me.IsValid("x.y")).To(BeFalse())
	})
})
