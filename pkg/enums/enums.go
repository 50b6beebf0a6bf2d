// Package enums holds the string-backed value sets shared by models, the API
// layer and the outbox.
package enums

import (
	"fmt"
	"slices"
)

// parse matches raw exactly against allowed; kind names the set in errors.
func parse[T ~string](kind, raw string, allowed []T) (T, error) {
	if v := T(raw); slices.Contains(allowed, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
