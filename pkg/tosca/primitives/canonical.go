package primitives

import (
	"fmt"
	"math"
	"strconv"
)

// Canonical converts a decoded YAML or JSON value into the raw form
// stored in the model: scalars become strings, nil stays nil, lists
// and maps are converted element-wise.
func Canonical(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return formatFloat(float64(t))
	case float64:
		return formatFloat(t)
	case []interface{}:
		r := make([]interface{}, len(t))
		for i, e := range t {
			r[i] = Canonical(e)
		}
		return r
	case []string:
		r := make([]interface{}, len(t))
		for i, e := range t {
			r[i] = e
		}
		return r
	case map[string]interface{}:
		r := make(map[string]interface{}, len(t))
		for k, e := range t {
			r[k] = Canonical(e)
		}
		return r
	case map[interface{}]interface{}:
		r := make(map[string]interface{}, len(t))
		for k, e := range t {
			r[fmt.Sprint(k)] = Canonical(e)
		}
		return r
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ScalarString returns the string form of a canonical scalar.
func ScalarString(v interface{}) (string, bool) {
	switch t := Canonical(v).(type) {
	case string:
		return t, true
	}
	return "", false
}
