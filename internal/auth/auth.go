// Package auth implements the function access level: prompt routes accept a
// request only when it presents one of the configured function keys.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
)

const defaultKeyName = "default"

// Identity names the function key a request authenticated with.
type Identity struct {
	KeyName string
}

type KeyValidator interface {
	Validate(ctx context.Context, key string) (Identity, bool)
}

type StaticKeyValidator struct {
	keys map[string]Identity
}

// NewStaticKeyValidator parses a comma separated list of keys. An entry is
// either a bare key, registered under the name "default", or name:key.
func NewStaticKeyValidator(spec string) (*StaticKeyValidator, error) {
	validator := &StaticKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			return nil, fmt.Errorf("invalid function key list %q: empty entry", spec)
		}
		name, key := defaultKeyName, entry
		if before, after, found := strings.Cut(entry, ":"); found {
			name, key = strings.TrimSpace(before), strings.TrimSpace(after)
		}
		if name == "" || key == "" {
			return nil, fmt.Errorf("invalid function key entry %q: expected key or name:key", entry)
		}
		if _, exists := validator.keys[key]; exists {
			return nil, fmt.Errorf("duplicate function key for %q", name)
		}
		validator.keys[key] = Identity{KeyName: name}
	}
	return validator, nil
}

func (v *StaticKeyValidator) Len() int {
	return len(v.keys)
}

// Validate compares key against every configured key in constant time.
func (v *StaticKeyValidator) Validate(_ context.Context, key string) (Identity, bool) {
	var (
		matched  Identity
		found    bool
		provided = []byte(key)
	)
	for candidate, identity := range v.keys {
		if subtle.ConstantTimeCompare(provided, []byte(candidate)) == 1 {
			matched, found = identity, true
		}
	}
	return matched, found
}
