// Package normalize projects loosely-typed platform payloads into media.Result.
//
// Payloads are kept as gjson trees so that candidate keys and paths can live in
// plain tables. Every search over a payload is bounded by depth and list length.
package normalize

import "github.com/tidwall/gjson"

// Bounds limit how far a structural search may descend.
type Bounds struct {
	// MaxDepth is the deepest level inspected; the root sits at depth 0.
	MaxDepth int
	// MaxItems caps how many elements of any one list are inspected.
	MaxItems int
}

var (
	// DefaultBounds is used for note/photo lookups by identifier.
	DefaultBounds = Bounds{MaxDepth: 8, MaxItems: 50}
	// ShallowBounds is used for key lookups inside rendered browser state.
	ShallowBounds = Bounds{MaxDepth: 4, MaxItems: 30}
)

type frame struct {
	node  gjson.Result
	depth int
}

// Walk visits every object and array reachable from root in depth-first,
// document order, never going past b. fn returns false to stop the walk.
func Walk(root gjson.Result, b Bounds, fn func(node gjson.Result, depth int) bool) {
	if !isContainer(root) {
		return
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(f.node, f.depth) {
			return
		}
		if f.depth >= b.MaxDepth {
			continue
		}

		children := containerChildren(f.node, b.MaxItems)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], depth: f.depth + 1})
		}
	}
}

func containerChildren(node gjson.Result, maxItems int) []gjson.Result {
	var out []gjson.Result
	if node.IsArray() {
		seen := 0
		node.ForEach(func(_, v gjson.Result) bool {
			if seen >= maxItems {
				return false
			}
			seen++
			if isContainer(v) {
				out = append(out, v)
			}
			return true
		})
		return out
	}
	node.ForEach(func(_, v gjson.Result) bool {
		if isContainer(v) {
			out = append(out, v)
		}
		return true
	})
	return out
}

func isContainer(r gjson.Result) bool {
	return r.IsObject() || r.IsArray()
}

// FindObjectFunc returns the first object for which match is true.
func FindObjectFunc(root gjson.Result, b Bounds, match func(obj gjson.Result) bool) (gjson.Result, bool) {
	var found gjson.Result
	ok := false
	Walk(root, b, func(node gjson.Result, _ int) bool {
		if node.IsObject() && match(node) {
			found, ok = node, true
			return false
		}
		return true
	})
	return found, ok
}

// FindObject returns the first object that has key as a direct member.
func FindObject(root gjson.Result, key string, b Bounds) (gjson.Result, bool) {
	return FindObjectFunc(root, b, func(obj gjson.Result) bool {
		return HasKey(obj, key)
	})
}

// HasKey reports whether obj has a member literally named key.
// Names are compared as-is, so keys holding path syntax need no escaping.
func HasKey(obj gjson.Result, key string) bool {
	return Member(obj, key).Exists()
}

// Member returns the direct member of obj named key.
func Member(obj gjson.Result, key string) gjson.Result {
	var out gjson.Result
	if !obj.IsObject() {
		return out
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out = v
			return false
		}
		return true
	})
	return out
}
