// Package orgtree builds nested organization trees (staff under managers,
// departments under parent departments) out of flat row sets carrying
// parent-pointer fields.
package orgtree

// Node is one entry of a built tree. DescendantCount is the number of nodes
// strictly below this one, so a leaf reports 0.
type Node[T any] struct {
	ID              int64      `json:"id"`
	Item            T          `json:"item"`
	Children        []*Node[T] `json:"children"`
	DescendantCount int        `json:"descendant_count"`
}

// Build assembles a forest from items. A node is a root when its parent key
// is nil or refers to an id absent from items. The adjacency index is built
// once up front, so construction is linear in len(items).
func Build[T any](items []T, id func(T) int64, parentID func(T) *int64) []*Node[T] {
	present := make(map[int64]bool, len(items))
	for _, item := range items {
		present[id(item)] = true
	}

	childrenOf := make(map[int64][]T, len(items))
	var rootItems []T
	for _, item := range items {
		pid := parentID(item)
		if pid == nil || !present[*pid] {
			rootItems = append(rootItems, item)
			continue
		}
		childrenOf[*pid] = append(childrenOf[*pid], item)
	}

	roots := make([]*Node[T], 0, len(rootItems))
	for _, item := range rootItems {
		roots = append(roots, buildNode(item, id, childrenOf))
	}
	return roots
}

func buildNode[T any](item T, id func(T) int64, childrenOf map[int64][]T) *Node[T] {
	node := &Node[T]{
		ID:       id(item),
		Item:     item,
		Children: []*Node[T]{},
	}
	for _, child := range childrenOf[node.ID] {
		childNode := buildNode(child, id, childrenOf)
		node.Children = append(node.Children, childNode)
		node.DescendantCount += childNode.DescendantCount + 1
	}
	return node
}

// DescendantIDs walks the parent-pointer set and returns every key reachable
// below root. Used for manager-cycle checks and cascade deactivation, where
// the flat row set is already in memory. Keys are visited once, so the walk
// terminates even when the input itself contains a cycle (unvalidated rows).
func DescendantIDs[T any, K comparable](items []T, id func(T) K, parentID func(T) *K, root K) []K {
	childrenOf := make(map[K][]K, len(items))
	for _, item := range items {
		if pid := parentID(item); pid != nil {
			childrenOf[*pid] = append(childrenOf[*pid], id(item))
		}
	}

	var result []K
	seen := map[K]bool{root: true}
	stack := []K{root}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, childID := range childrenOf[current] {
			if seen[childID] {
				continue
			}
			seen[childID] = true
			result = append(result, childID)
			stack = append(stack, childID)
		}
	}
	return result
}
