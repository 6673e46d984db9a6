package schema

// invertParents turns "each node declares its parents" into "each parent
// knows its direct children". Parents that are never declared as nodes are
// retained as keys; after construction removes the declared keys, the
// leftovers are exactly the undeclared parent references.
func invertParents[K comparable](parents map[K][]K) map[K]map[K]struct{} {
	children := make(map[K]map[K]struct{})
	for node, ps := range parents {
		for _, parent := range ps {
			set, ok := children[parent]
			if !ok {
				set = make(map[K]struct{})
				children[parent] = set
			}
			set[node] = struct{}{}
		}
	}
	return children
}

// closeDescendants computes, in place, the transitive closure of a direct
// descendants relation: after it returns, descendants[n] holds every node
// reachable from n by repeatedly following child edges. The computation is a
// fixed point, so closing an already-closed relation changes nothing, and it
// is insensitive to map iteration order.
func closeDescendants[K comparable](descendants map[K]map[K]struct{}) {
	for changed := true; changed; {
		changed = false
		for _, direct := range descendants {
			for child := range direct {
				for grandchild := range descendants[child] {
					if _, ok := direct[grandchild]; !ok {
						direct[grandchild] = struct{}{}
						changed = true
					}
				}
			}
		}
	}
}

// findCycle reports whether the closed descendants relation contains a
// cycle, which shows up as a node reachable from itself.
func findCycle[K comparable](descendants map[K]map[K]struct{}) bool {
	for node, desc := range descendants {
		if _, ok := desc[node]; ok {
			return true
		}
	}
	return false
}
