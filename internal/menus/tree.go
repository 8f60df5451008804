package menus

import "github.com/panelkit/panel/internal/rbac"

// BuildTree nests flat nodes under their parents, keeping input order among siblings. Nodes
// whose parent is absent from the input become roots.
func BuildTree(flat []rbac.Menu) []*rbac.Menu {
	nodes := make(map[int64]*rbac.Menu, len(flat))
	for i := range flat {
		m := flat[i]
		m.Children = nil
		nodes[m.ID] = &m
	}
	roots := []*rbac.Menu{}
	for i := range flat {
		node := nodes[flat[i].ID]
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
