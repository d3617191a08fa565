package content

// TreeNode wraps a ContentNode with its ordered children.
type TreeNode struct {
	ContentNode
	Children []*TreeNode `json:"children"`
}

// AssembleTree turns flat rows into an ordered forest. Rows must already be
// sorted by (level, order): parents precede children because levels are
// strictly increasing down the tree, and sibling order is inherited from the
// sort. A row whose parent is not among the input is promoted to a root
// rather than dropped, so stale parent references never hide content.
func AssembleTree(rows []ContentNode) []*TreeNode {
	lookup := make(map[string]*TreeNode, len(rows))
	for i := range rows {
		lookup[rows[i].ID] = &TreeNode{ContentNode: rows[i], Children: []*TreeNode{}}
	}

	roots := make([]*TreeNode, 0, len(rows))
	for i := range rows {
		wrapper := lookup[rows[i].ID]
		if rows[i].ParentID != nil {
			if parent, ok := lookup[*rows[i].ParentID]; ok {
				parent.Children = append(parent.Children, wrapper)
				continue
			}
		}
		roots = append(roots, wrapper)
	}
	return roots
}

// CountTreeNodes returns the total node count across a forest.
func CountTreeNodes(forest []*TreeNode) int {
	total := 0
	for _, node := range forest {
		total += 1 + CountTreeNodes(node.Children)
	}
	return total
}
