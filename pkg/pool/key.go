package pool

import (
	"fmt"
	"strings"
)

// ObjectKey identifies an element handled by the reconcile actions
// registered for its type.
type ObjectKey struct {
	Type string
	Name string
}

func NewObjectKey(typ, name string) ObjectKey {
	return ObjectKey{Type: typ, Name: name}
}

func (k ObjectKey) String() string {
	return k.Type + "/" + k.Name
}

// DecodeKey decodes a workqueue key into a command or an object key.
func DecodeKey(key string) (Command, *ObjectKey, error) {
	main, rest, ok := strings.Cut(key, ":")
	if !ok {
		return Command(key), nil, nil
	}
	switch main {
	case "cmd":
		return Command(rest), nil, nil
	case "obj":
		typ, name, ok := strings.Cut(rest, ":")
		if !ok || typ == "" {
			return "", nil, fmt.Errorf("unexpected key format: %q", key)
		}
		return "", &ObjectKey{Type: typ, Name: name}, nil
	default:
		return "", nil, fmt.Errorf("unexpected key format: %q", key)
	}
}

func EncodeCommandKey(cmd Command) string {
	return fmt.Sprintf("cmd:%s", cmd)
}

// EncodeObjectKey encodes an object key. Names may contain colons.
func EncodeObjectKey(k ObjectKey) string {
	return fmt.Sprintf("obj:%s:%s", k.Type, k.Name)
}
