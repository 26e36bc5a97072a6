package constraints_test

import (
	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mandelsoft/toscaeditor/pkg/errkind"
	"github.com/mandelsoft/toscaeditor/pkg/tosca/primitives"

	me "github.com/mandelsoft/toscaeditor/pkg/tosca/constraints"
)

var _ = Describe("constraints", func() {
	It("checks ranges", func() {
		c := Must(me.Parse(me.InRange, []interface{}{1, 65535}))
		MustBeSuccessful(c.Initialize(primitives.Integer))

		err := c.Validate(primitives.Integer, "70000")
		Expect(errkind.KindOf(err)).To(Equal(errkind.ConstraintViolation))
		MustBeSuccessful(c.Validate(primitives.Integer, "80"))
		Expect(errkind.KindOf(c.Validate(primitives.Integer, "eighty"))).To(Equal(errkind.TypeMismatch))
	})

	It("rejects inverted ranges", func() {
		c := Must(me.Parse(me.InRange, []interface{}{"10", "1"}))
		Expect(c.Initialize(primitives.Integer)).To(HaveOccurred())
	})

	It("compares scalar units", func() {
		c := Must(me.Parse(me.GreaterOrEqual, "1 GB"))
		MustBeSuccessful(c.Initialize(primitives.ScalarSize))
		MustBeSuccessful(c.Validate(primitives.ScalarSize, "2000 MB"))
		Expect(c.Validate(primitives.ScalarSize, "500 MB")).To(HaveOccurred())
	})

	It("compares versions", func() {
		c := Must(me.Parse(me.LessThan, "1.0"))
		MustBeSuccessful(c.Initialize(primitives.Version))
		MustBeSuccessful(c.Validate(primitives.Version, "1.0-SNAPSHOT"))
		Expect(c.Validate(primitives.Version, "1.0.1")).To(HaveOccurred())
	})

	It("checks lengths and patterns", func() {
		l := Must(me.ParseList([]interface{}{
			map[string]interface{}{me.MinLength: 2},
			map[string]interface{}{me.MaxLength: "4"},
			map[string]interface{}{me.Pattern: "[a-z]+"},
		}))
		MustBeSuccessful(l.Check(primitives.String))
		MustBeSuccessful(l.Validate(primitives.String, "abc"))
		Expect(l.Validate(primitives.String, "a")).To(HaveOccurred())
		Expect(l.Validate(primitives.String, "abcde")).To(HaveOccurred())
		Expect(l.Validate(primitives.String, "ab1")).To(HaveOccurred())
	})

	It("checks valid values", func() {
		c := Must(me.Parse(me.ValidValues, []interface{}{"small", "large"}))
		MustBeSuccessful(c.Validate(primitives.String, "large"))
		Expect(errkind.KindOf(c.Validate(primitives.String, "medium"))).To(Equal(errkind.ConstraintViolation))
	})

	It("detects duplicate constraint kinds", func() {
		l := Must(me.ParseList([]interface{}{
			map[string]interface{}{me.GreaterThan: 1},
			map[string]interface{}{me.GreaterThan: 2},
		}))
		Expect(l.Check(primitives.Integer)).To(HaveOccurred())
	})

	It("rejects operands not matching the type", func() {
		c := Must(me.Parse(me.Equal, "abc"))
		Expect(c.Initialize(primitives.Integer)).To(HaveOccurred())
		Expect(me.Parse("unknown", "x")).Error().To(HaveOccurred())
	})
})
