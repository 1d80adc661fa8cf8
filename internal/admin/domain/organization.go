package domain

import "time"

type Department struct {
	ID        int64
	Name      string
	ParentID  *int64
	Sort      int
	CreatedAt time.Time
	UpdatedAt time.Time

	Children []*Department // populated by BuildDepartmentTree only
}

type Position struct {
	ID             int64
	Name           string
	DepartmentID   *int64
	DepartmentName string // read-only, joined
	Sort           int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PositionFilter narrows position listings.
type PositionFilter struct {
	Name         string
	DepartmentID *int64
}

// BuildDepartmentTree arranges a flat, sorted department list into a forest.
// Departments whose parent is missing from the list become roots.
func BuildDepartmentTree(flat []Department) []*Department {
	nodes := make(map[int64]*Department, len(flat))
	for i := range flat {
		d := flat[i]
		d.Children = nil
		nodes[d.ID] = &d
	}

	roots := make([]*Department, 0)
	for i := range flat {
		node := nodes[flat[i].ID]
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
