package version

import (
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"
)

// item is an element of the comparable representation
// of a version string.
type item interface {
	// compareTo compares the item with another one. The other item
	// may be nil, which represents a missing item.
	compareTo(o item) int
	isNull() bool
	String() string
}

////////////////////////////////////////////////////////////////////////////////

type intItem struct {
	value *big.Int
}

var zeroItem = &intItem{big.NewInt(0)}

func newIntItem(s string) item {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return newStringItem(s, false)
	}
	return &intItem{v}
}

func (i *intItem) isNull() bool {
	return i.value.Sign() == 0
}

func (i *intItem) compareTo(o item) int {
	switch t := o.(type) {
	case nil:
		if i.value.Sign() == 0 {
			return 0
		}
		return 1
	case *intItem:
		return i.value.Cmp(t.value)
	default:
		// numbers are newer than qualifiers and sub lists
		return 1
	}
}

func (i *intItem) String() string {
	return i.value.String()
}

////////////////////////////////////////////////////////////////////////////////

var qualifiers = []string{"alpha", "beta", "milestone", "rc", "snapshot", "", "sp"}

var aliases = map[string]string{
	"ga":    "",
	"final": "",
	"cr":    "rc",
}

var releaseIndex = strconv.Itoa(slices.Index(qualifiers, ""))

type stringItem struct {
	value string
}

func newStringItem(s string, followedByDigit bool) *stringItem {
	if followedByDigit && len(s) == 1 {
		switch s {
		case "a":
			s = "alpha"
		case "b":
			s = "beta"
		case "m":
			s = "milestone"
		}
	}
	if a, ok := aliases[s]; ok {
		s = a
	}
	return &stringItem{s}
}

// comparableQualifier maps well-known qualifiers to their rank.
// Unknown qualifiers are ranked after all known ones and
// ordered lexically among each other.
func comparableQualifier(q string) string {
	i := slices.Index(qualifiers, q)
	if i < 0 {
		return fmt.Sprintf("%d-%s", len(qualifiers), q)
	}
	return strconv.Itoa(i)
}

func (s *stringItem) isNull() bool {
	return comparableQualifier(s.value) == releaseIndex
}

func (s *stringItem) compareTo(o item) int {
	switch t := o.(type) {
	case nil:
		return strings.Compare(comparableQualifier(s.value), releaseIndex)
	case *intItem:
		return -1
	case *stringItem:
		return strings.Compare(comparableQualifier(s.value), comparableQualifier(t.value))
	default:
		return -1
	}
}

func (s *stringItem) String() string {
	return s.value
}

////////////////////////////////////////////////////////////////////////////////

type listItem struct {
	items []item
}

func (l *listItem) add(i item) {
	l.items = append(l.items, i)
}

// normalize removes trailing null items (0, "", empty lists).
func (l *listItem) normalize() {
	for len(l.items) > 0 && l.items[len(l.items)-1].isNull() {
		l.items = l.items[:len(l.items)-1]
	}
}

func (l *listItem) isNull() bool {
	return len(l.items) == 0
}

func (l *listItem) compareTo(o item) int {
	switch t := o.(type) {
	case nil:
		if len(l.items) == 0 {
			return 0
		}
		return l.items[0].compareTo(nil)
	case *intItem:
		return -1
	case *stringItem:
		return 1
	case *listItem:
		for i := 0; i < len(l.items) || i < len(t.items); i++ {
			var left, right item
			if i < len(l.items) {
				left = l.items[i]
			}
			if i < len(t.items) {
				right = t.items[i]
			}
			var r int
			if left == nil {
				if right != nil {
					r = -right.compareTo(nil)
				}
			} else {
				r = left.compareTo(right)
			}
			if r != 0 {
				return r
			}
		}
		return 0
	}
	return 0
}

func (l *listItem) String() string {
	var buf strings.Builder
	for _, i := range l.items {
		if buf.Len() > 0 {
			if _, ok := i.(*listItem); ok {
				buf.WriteString("-")
			} else {
				buf.WriteString(".")
			}
		}
		buf.WriteString(i.String())
	}
	return buf.String()
}

////////////////////////////////////////////////////////////////////////////////

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func parseItem(digit bool, s string) item {
	if digit {
		return newIntItem(s)
	}
	return newStringItem(s, false)
}

// parseItems builds the comparable item list for a version string.
// A dash following a number opens a sub list only if the next
// character is a digit again, to differentiate 1.1 from 1-1.
func parseItems(version string) *listItem {
	version = strings.ToLower(version)

	root := &listItem{}
	list := root
	stack := []*listItem{root}

	digit := false
	start := 0
	for i := 0; i < len(version); i++ {
		c := version[i]
		switch {
		case c == '.':
			if i == start {
				list.add(zeroItem)
			} else {
				list.add(parseItem(digit, version[start:i]))
			}
			start = i + 1
		case c == '-':
			if i == start {
				list.add(zeroItem)
			} else {
				list.add(parseItem(digit, version[start:i]))
			}
			start = i + 1
			if digit {
				list.normalize()
				if i+1 < len(version) && isDigit(version[i+1]) {
					sub := &listItem{}
					list.add(sub)
					list = sub
					stack = append(stack, sub)
				}
			}
		case isDigit(c):
			if !digit && i > start {
				list.add(newStringItem(version[start:i], true))
				start = i
			}
			digit = true
		default:
			if digit && i > start {
				list.add(parseItem(true, version[start:i]))
				start = i
			}
			digit = false
		}
	}
	if len(version) > start {
		list.add(parseItem(digit, version[start:]))
	}

	for i := len(stack) - 1; i >= 0; i-- {
		stack[i].normalize()
	}
	return root
}
