// Package pick resolves one candidate out of several by an explicit key the
// user types, such as a patient id.
package pick

import (
	"errors"
	"strings"
)

var (
	ErrNoMatch   = errors.New("no candidate matches that key")
	ErrAmbiguous = errors.New("more than one candidate matches that key")
)

// One returns the single candidate whose key equals choice, ignoring case and
// surrounding spaces.
func One[T any](candidates []T, key func(T) string, choice string) (T, error) {
	var zero T
	want := normalize(choice)
	if want == "" {
		return zero, ErrNoMatch
	}

	found := -1
	for i, c := range candidates {
		if normalize(key(c)) != want {
			continue
		}
		if found >= 0 {
			return zero, ErrAmbiguous
		}
		found = i
	}
	if found < 0 {
		return zero, ErrNoMatch
	}
	return candidates[found], nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
