package version

import (
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed archive or artifact version of the form
// major[.minor[.incremental]][-build|-qualifier].
// Forms not matching this scheme are kept completely as qualifier.
// Ordering is defined on the comparable item representation, so that
// alpha < beta < milestone < rc < snapshot < release < other < build number.
type Version struct {
	Major       int
	Minor       int
	Incremental int
	Build       int
	Qualifier   string

	raw   string
	items *listItem
}

const SnapshotQualifier = "SNAPSHOT"

var digits = regexp.MustCompile(`^\d+$`)

var validVersion = regexp.MustCompile(`^\d+(?:\.\d+)*(?:[.-][A-Za-z0-9]+)*$`)

// IsValid checks whether the given string is a regular version
// as accepted for archives.
func IsValid(s string) bool {
	return validVersion.MatchString(s)
}

// IsSnapshot checks whether the version denotes a snapshot.
func IsSnapshot(s string) bool {
	return strings.Contains(strings.ToUpper(s), SnapshotQualifier)
}

func Parse(s string) *Version {
	v := &Version{raw: s, items: parseItems(s)}
	v.parseFields()
	return v
}

func (v *Version) parseFields() {
	part1 := v.raw
	part2 := ""
	hasPart2 := false
	if i := strings.Index(v.raw, "-"); i >= 0 {
		part1 = v.raw[:i]
		part2 = v.raw[i+1:]
		hasPart2 = true
	}

	if hasPart2 {
		if len(part2) == 1 || !strings.HasPrefix(part2, "0") {
			if b, err := parseInt(part2); err == nil {
				v.Build = b
			} else {
				v.Qualifier = part2
			}
		} else {
			v.Qualifier = part2
		}
	}

	if !strings.Contains(part1, ".") && !strings.HasPrefix(part1, "0") {
		if m, err := parseInt(part1); err == nil {
			v.Major = m
		} else {
			v.Qualifier = v.raw
			v.Build = 0
		}
		return
	}

	fallback := false
	tokens := tokenize(part1)
	var err error
	if len(tokens) > 0 {
		v.Major, err = nextInt(tokens[0])
	}
	if err == nil && len(tokens) > 1 {
		v.Minor, err = nextInt(tokens[1])
	}
	if err == nil && len(tokens) > 2 {
		v.Incremental, err = nextInt(tokens[2])
	}
	if err == nil && len(tokens) > 3 {
		v.Qualifier = tokens[3]
		fallback = digits.MatchString(tokens[3])
	}
	if err != nil || len(tokens) == 0 {
		fallback = true
	}
	if strings.Contains(part1, "..") || strings.HasPrefix(part1, ".") || strings.HasSuffix(part1, ".") {
		fallback = true
	}
	if fallback {
		v.Major, v.Minor, v.Incremental, v.Build = 0, 0, 0, 0
		v.Qualifier = v.raw
	}
}

// tokenize splits at dots, skipping empty tokens.
func tokenize(s string) []string {
	var r []string
	for _, t := range strings.Split(s, ".") {
		if t != "" {
			r = append(r, t)
		}
	}
	return r
}

func parseInt(s string) (int, error) {
	i, err := strconv.ParseInt(s, 10, 32)
	return int(i), err
}

// nextInt parses a version number segment. Segments with
// leading zeros are not numbers.
func nextInt(s string) (int, error) {
	if len(s) > 1 && strings.HasPrefix(s, "0") {
		return 0, strconv.ErrSyntax
	}
	return parseInt(s)
}

func (v *Version) String() string {
	return v.raw
}

// Canonical returns the normalized form used for comparison.
// Equal versions have the same canonical form.
func (v *Version) Canonical() string {
	return v.items.String()
}

func (v *Version) Compare(o *Version) int {
	r := v.items.compareTo(o.items)
	switch {
	case r < 0:
		return -1
	case r > 0:
		return 1
	}
	return 0
}

func (v *Version) Equal(o *Version) bool {
	return o != nil && v.Compare(o) == 0
}

func (v *Version) Hash() uint32 {
	h := fnv.New32a()
	h.Write([]byte(v.Canonical()))
	return h.Sum32()
}

func (v *Version) IsSnapshot() bool {
	return IsSnapshot(v.raw)
}

// Compare compares two version strings.
func Compare(a, b string) int {
	return Parse(a).Compare(Parse(b))
}

// Latest returns the greatest of the given versions.
func Latest(versions ...string) string {
	latest := ""
	for _, v := range versions {
		if latest == "" || Compare(v, latest) > 0 {
			latest = v
		}
	}
	return latest
}
