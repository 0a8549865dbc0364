package normalize

import (
	"strings"

	"github.com/tidwall/gjson"
)

// NonEmpty reports whether r holds a usable value: a non-blank string, a
// non-empty object or array, a number, or true.
func NonEmpty(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str) != ""
	case gjson.Number:
		return true
	case gjson.True:
		return true
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		empty := true
		r.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return !empty
	default:
		return false
	}
}

// First returns the value of the first path that resolves to a non-empty value.
func First(obj gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := obj.Get(p); NonEmpty(v) {
			return v
		}
	}
	return gjson.Result{}
}

// FirstString is First restricted to string values.
func FirstString(obj gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := obj.Get(p)
		if v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return v.Str
		}
	}
	return ""
}

// FirstList returns the first path that resolves to a non-empty array.
func FirstList(obj gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := obj.Get(p); v.IsArray() && len(v.Array()) > 0 {
			return v
		}
	}
	return gjson.Result{}
}

// Unwrap descends into the first listed envelope key holding an object,
// or returns obj itself when none does.
func Unwrap(obj gjson.Result, envelopes ...string) gjson.Result {
	for _, e := range envelopes {
		if v := obj.Get(e); v.IsObject() && NonEmpty(v) {
			return v
		}
	}
	return obj
}
