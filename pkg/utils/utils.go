// Package utils provides small helpers shared by the editor packages.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/gowebpki/jcs"
	"github.com/modern-go/reflect2"
)

func Pointer[T any](v T) *T {
	return &v
}

// HashData returns the SHA256 digest of raw data. Other values are
// hashed by their canonical JSON form (RFC 8785), so equal content
// has the same digest regardless of the field order.
func HashData(d interface{}) string {
	if reflect2.IsNil(d) {
		return ""
	}
	var data []byte
	switch b := d.(type) {
	case []byte:
		data = b
	case string:
		data = []byte(b)
	default:
		raw, err := json.Marshal(d)
		if err == nil {
			data, err = jcs.Transform(raw)
		}
		if err != nil {
			// not hashable
			return ""
		}
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Cycle returns the cycle closed by id, if id is already on the
// stack, or nil.
func Cycle[T comparable](id T, stack ...T) []T {
	i := slices.Index(stack, id)
	if i < 0 {
		return nil
	}
	return append(slices.Clone(stack[i:]), id)
}
