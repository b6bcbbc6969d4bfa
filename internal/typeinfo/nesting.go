package typeinfo

import "strings"

// containers are the generic types holding a sequence of one element type.
// Only containers of the same name nest homogeneously, so Vec<VecDeque<T>>
// has a nesting of 1.
var containers = map[string]bool{
	"Vec":        true,
	"VecDeque":   true,
	"LinkedList": true,
	"HashSet":    true,
	"BTreeSet":   true,
	"BinaryHeap": true,
}

// containerOf returns the container kind of t and its element type. The kind
// is the container's name, or "bracket" for slices and arrays, and is empty
// when t is not a container.
func containerOf(t *Type) (kind string, elem *Type) {
	t = ungroup(t)
	switch {
	case t == nil:
		return "", nil
	case t.Bracket != nil:
		return "bracket", t.Bracket.Elem
	case t.Path != nil:
		seg := t.Path.Last()
		if !containers[seg.Name] {
			return "", nil
		}
		args := seg.TypeArgs()
		if len(args) != 1 {
			return "", nil
		}
		return seg.Name, args[0]
	}
	return "", nil
}

// ungroup strips redundant parentheses.
func ungroup(t *Type) *Type {
	for t != nil && t.Paren != nil && t.Paren.IsGroup() {
		t = t.Paren.Elems[0]
	}
	return t
}

// ContainerNesting returns how many containers of the same kind are nested at
// the root of t. Vec<Vec<i32>> is 2, Vec<HashSet<i32>> is 1 and a scalar is 0.
func ContainerNesting(t *Type) int {
	kind, elem := containerOf(t)
	if kind == "" {
		return 0
	}
	depth := 1
	for {
		next, inner := containerOf(elem)
		if next != kind {
			return depth
		}
		depth++
		elem = inner
	}
}

// NestedVec wraps name in depth levels of Vec, e.g. NestedVec("T", 2) is
// Vec<Vec<T>>.
func NestedVec(name string, depth int) string {
	if depth <= 0 {
		return name
	}
	return strings.Repeat("Vec<", depth) + name + strings.Repeat(">", depth)
}
