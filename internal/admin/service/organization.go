package service

import (
	"context"
	"strings"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
)

type DepartmentService struct {
	Store store.Store
}

func (s *DepartmentService) GetDepartment(ctx context.Context, id int64) (domain.Department, error) {
	d, err := s.Store.Departments().GetDepartmentByID(ctx, id)
	if err != nil {
		return domain.Department{}, mapStoreErr(err, "department")
	}
	return d, nil
}

// ListDepartments returns departments ordered by sort, optionally filtered by
// a case-insensitive name substring.
func (s *DepartmentService) ListDepartments(ctx context.Context, name string) ([]domain.Department, error) {
	all, err := s.Store.Departments().ListDepartments(ctx)
	if err != nil {
		return nil, mapStoreErr(err, "departments")
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return all, nil
	}

	matched := make([]domain.Department, 0, len(all))
	for _, d := range all {
		if strings.Contains(strings.ToLower(d.Name), name) {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

// DepartmentTree returns the department forest.
func (s *DepartmentService) DepartmentTree(ctx context.Context, name string) ([]*domain.Department, error) {
	flat, err := s.ListDepartments(ctx, name)
	if err != nil {
		return nil, err
	}
	return domain.BuildDepartmentTree(flat), nil
}

func (s *DepartmentService) CreateDepartment(ctx context.Context, d domain.Department) (domain.Department, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return domain.Department{}, invalidf("name is required")
	}
	id, err := s.Store.Departments().CreateDepartment(ctx, d)
	if err != nil {
		return domain.Department{}, mapStoreErr(err, "department")
	}
	return s.GetDepartment(ctx, id)
}

// UpdateDepartment rejects parents that would put the department inside its
// own subtree.
func (s *DepartmentService) UpdateDepartment(ctx context.Context, d domain.Department) (domain.Department, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return domain.Department{}, invalidf("name is required")
	}
	if d.ParentID != nil {
		if *d.ParentID == d.ID {
			return domain.Department{}, invalidf("a department cannot be its own parent")
		}
		all, err := s.Store.Departments().ListDepartments(ctx)
		if err != nil {
			return domain.Department{}, mapStoreErr(err, "departments")
		}
		if isDescendant(all, *d.ParentID, d.ID) {
			return domain.Department{}, invalidf("a department cannot move under its own descendant")
		}
	}

	if err := s.Store.Departments().UpdateDepartment(ctx, d); err != nil {
		return domain.Department{}, mapStoreErr(err, "department")
	}
	return s.GetDepartment(ctx, d.ID)
}

func (s *DepartmentService) DeleteDepartment(ctx context.Context, id int64) error {
	return mapStoreErr(s.Store.Departments().DeleteDepartment(ctx, id), "department")
}

// isDescendant reports whether node sits somewhere below ancestor.
func isDescendant(all []domain.Department, node, ancestor int64) bool {
	parents := make(map[int64]*int64, len(all))
	for _, d := range all {
		parents[d.ID] = d.ParentID
	}
	for steps := 0; steps <= len(all); steps++ {
		parent, ok := parents[node]
		if !ok || parent == nil {
			return false
		}
		if *parent == ancestor {
			return true
		}
		node = *parent
	}
	return true
}

type PositionService struct {
	Store store.Store
}

func (s *PositionService) GetPosition(ctx context.Context, id int64) (domain.Position, error) {
	p, err := s.Store.Positions().GetPositionByID(ctx, id)
	if err != nil {
		return domain.Position{}, mapStoreErr(err, "position")
	}
	return p, nil
}

func (s *PositionService) ListPositions(ctx context.Context, f domain.PositionFilter, p domain.Page) (domain.PageResult[domain.Position], error) {
	p = p.Normalize()
	f.Name = strings.TrimSpace(f.Name)
	list, total, err := s.Store.Positions().ListPositions(ctx, f, p)
	if err != nil {
		return domain.PageResult[domain.Position]{}, mapStoreErr(err, "positions")
	}
	return domain.NewPageResult(list, total, p), nil
}

// PositionOptions returns every position, optionally within one department.
func (s *PositionService) PositionOptions(ctx context.Context, departmentID *int64) ([]domain.Position, error) {
	list, _, err := s.Store.Positions().ListPositions(ctx, domain.PositionFilter{DepartmentID: departmentID}, domain.Page{})
	if err != nil {
		return nil, mapStoreErr(err, "positions")
	}
	if list == nil {
		list = []domain.Position{}
	}
	return list, nil
}

func (s *PositionService) CreatePosition(ctx context.Context, p domain.Position) (domain.Position, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.Position{}, invalidf("name is required")
	}
	id, err := s.Store.Positions().CreatePosition(ctx, p)
	if err != nil {
		return domain.Position{}, mapStoreErr(err, "position")
	}
	return s.GetPosition(ctx, id)
}

func (s *PositionService) UpdatePosition(ctx context.Context, p domain.Position) (domain.Position, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.Position{}, invalidf("name is required")
	}
	if err := s.Store.Positions().UpdatePosition(ctx, p); err != nil {
		return domain.Position{}, mapStoreErr(err, "position")
	}
	return s.GetPosition(ctx, p.ID)
}

func (s *PositionService) DeletePosition(ctx context.Context, id int64) error {
	return mapStoreErr(s.Store.Positions().DeletePosition(ctx, id), "position")
}
