// Package primitives implements the TOSCA primitive types:
// parsing of their string representation and ordering of values.
package primitives

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mandelsoft/toscaeditor/pkg/version"
)

const (
	String          = "string"
	Integer         = "integer"
	Float           = "float"
	Boolean         = "boolean"
	Timestamp       = "timestamp"
	Version         = "version"
	Range           = "range"
	List            = "list"
	Map             = "map"
	ScalarSize      = "scalar-unit.size"
	ScalarTime      = "scalar-unit.time"
	ScalarFrequency = "scalar-unit.frequency"

	Unbounded = "UNBOUNDED"
)

var simple = map[string]bool{
	String:          true,
	Integer:         true,
	Float:           true,
	Boolean:         true,
	Timestamp:       true,
	Version:         true,
	ScalarSize:      true,
	ScalarTime:      true,
	ScalarFrequency: true,
}

// IsSimple reports whether the type is a primitive type
// represented by a single scalar.
func IsSimple(typ string) bool {
	return simple[typ]
}

// IsPrimitive reports whether the type is any built-in type,
// including the collection types and range.
func IsPrimitive(typ string) bool {
	return simple[typ] || typ == List || typ == Map || typ == Range
}

// IsCollection reports whether the type requires an entry schema.
func IsCollection(typ string) bool {
	return typ == List || typ == Map
}

// IsComparable reports whether values of the type can be ordered.
func IsComparable(typ string) bool {
	switch typ {
	case String, Integer, Float, Timestamp, Version, ScalarSize, ScalarTime, ScalarFrequency:
		return true
	}
	return false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-1-2t15:4:5.999999999Z07:00",
	"2006-1-2 15:4:5.999999999 -7",
	"2006-1-2 15:4:5.999999999 Z07:00",
	"2006-1-2 15:4:5.999999999",
	"2006-1-2",
}

var scalarPattern = regexp.MustCompile(`^\s*([-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?)\s*([a-zA-Z]+)\s*$`)

var units = map[string]map[string]float64{
	ScalarSize: {
		"b":   1,
		"kb":  1000,
		"kib": 1024,
		"mb":  1000 * 1000,
		"mib": 1024 * 1024,
		"gb":  1000 * 1000 * 1000,
		"gib": 1024 * 1024 * 1024,
		"tb":  1000 * 1000 * 1000 * 1000,
		"tib": 1024 * 1024 * 1024 * 1024,
	},
	ScalarTime: {
		"d":  24 * 3600,
		"h":  3600,
		"m":  60,
		"s":  1,
		"ms": 1e-3,
		"us": 1e-6,
		"ns": 1e-9,
	},
	ScalarFrequency: {
		"hz":  1,
		"khz": 1e3,
		"mhz": 1e6,
		"ghz": 1e9,
	},
}

// Parse parses the string representation of a simple type value.
// The result is an int64, float64, bool, time.Time, *version.Version,
// string, or, for scalar units, the float64 value in the base unit.
func Parse(typ string, s string) (interface{}, error) {
	switch typ {
	case String:
		return s, nil
	case Integer:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid %s", s, typ)
		}
		return i, nil
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) {
			return nil, fmt.Errorf("%q is not a valid %s", s, typ)
		}
		return f, nil
	case Boolean:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a valid %s", s, typ)
	case Timestamp:
		for _, l := range timestampLayouts {
			if t, err := time.Parse(l, strings.TrimSpace(s)); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%q is not a valid %s", s, typ)
	case Version:
		if !version.IsValid(s) {
			return nil, fmt.Errorf("%q is not a valid %s", s, typ)
		}
		return version.Parse(s), nil
	case ScalarSize, ScalarTime, ScalarFrequency:
		m := scalarPattern.FindStringSubmatch(s)
		if m == nil {
			return nil, fmt.Errorf("%q is not a valid %s", s, typ)
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid %s", s, typ)
		}
		factor, ok := units[typ][strings.ToLower(m[2])]
		if !ok {
			return nil, fmt.Errorf("unknown unit %q for %s", m[2], typ)
		}
		return f * factor, nil
	}
	return nil, fmt.Errorf("%q is not a simple type", typ)
}

// Validate checks a string representation against a simple type.
func Validate(typ string, s string) error {
	_, err := Parse(typ, s)
	return err
}

// Compare compares two string representations of a comparable type.
func Compare(typ string, a, b string) (int, error) {
	va, err := Parse(typ, a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(typ, b)
	if err != nil {
		return 0, err
	}
	return CompareValues(va, vb)
}

// CompareValues compares two parsed values of the same type.
func CompareValues(a, b interface{}) (int, error) {
	switch va := a.(type) {
	case int64:
		vb, ok := b.(int64)
		if ok {
			return cmp(va < vb, va > vb), nil
		}
	case float64:
		vb, ok := b.(float64)
		if ok {
			return cmp(va < vb, va > vb), nil
		}
	case string:
		vb, ok := b.(string)
		if ok {
			return strings.Compare(va, vb), nil
		}
	case time.Time:
		vb, ok := b.(time.Time)
		if ok {
			return va.Compare(vb), nil
		}
	case *version.Version:
		vb, ok := b.(*version.Version)
		if ok {
			return va.Compare(vb), nil
		}
	default:
		return 0, fmt.Errorf("values of type %T are not comparable", a)
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

func cmp(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// ValidateRange checks the bounds of a range value. Each bound is
// an integer, the upper one may be UNBOUNDED.
func ValidateRange(bounds []string) error {
	if len(bounds) != 2 {
		return fmt.Errorf("range requires exactly two bounds, found %d", len(bounds))
	}
	min, err := strconv.ParseInt(bounds[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid lower bound %q", bounds[0])
	}
	if bounds[1] == Unbounded {
		return nil
	}
	max, err := strconv.ParseInt(bounds[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid upper bound %q", bounds[1])
	}
	if min > max {
		return fmt.Errorf("lower bound %d greater than upper bound %d", min, max)
	}
	return nil
}
