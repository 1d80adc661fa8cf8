package service

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/max950509/web-admin-fullstack-template/internal/admin/domain"
	"github.com/max950509/web-admin-fullstack-template/internal/admin/store"
	"github.com/max950509/web-admin-fullstack-template/pkg/cryptox"
	"github.com/max950509/web-admin-fullstack-template/pkg/slogx"
	"gopkg.in/yaml.v3"
)

const DefaultSeedPassword = "password123"

var ErrAlreadySeeded = errors.New("database already contains users")

//go:embed seed.yaml
var defaultSeed []byte

type seedPermission struct {
	Name     string           `yaml:"name"`
	Type     string           `yaml:"type"`
	Action   string           `yaml:"action"`
	Resource string           `yaml:"resource"`
	Children []seedPermission `yaml:"children"`
}

type seedDepartment struct {
	Name     string           `yaml:"name"`
	Children []seedDepartment `yaml:"children"`
}

type seedData struct {
	Permissions []seedPermission `yaml:"permissions"`
	Roles       []struct {
		Name        string   `yaml:"name"`
		Permissions []string `yaml:"permissions"` // "action:resource", or "*" for all
	} `yaml:"roles"`
	Departments []seedDepartment `yaml:"departments"`
	Positions   []struct {
		Name       string `yaml:"name"`
		Department string `yaml:"department"`
	} `yaml:"positions"`
	Users []struct {
		Username   string   `yaml:"username"`
		Department string   `yaml:"department"`
		Position   string   `yaml:"position"`
		Roles      []string `yaml:"roles"`
	} `yaml:"users"`
}

// SeedService loads the initial permission tree, roles, organisation and
// accounts.
type SeedService struct {
	Store    store.Store
	Password string // assigned to every seeded account

	// Data overrides the embedded seed document.
	Data []byte
}

// Seed populates an empty database in one transaction. It refuses to run
// once any user exists.
func (s *SeedService) Seed(ctx context.Context) error {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for users: %w", err)
	}
	if !empty {
		return ErrAlreadySeeded
	}

	raw := s.Data
	if raw == nil {
		raw = defaultSeed
	}
	var data seedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse seed data: %w", err)
	}

	password := s.Password
	if password == "" {
		password = DefaultSeedPassword
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		perms := map[string]int64{}
		var allPerms []int64
		for i, p := range data.Permissions {
			if err := seedPermissions(ctx, tx, p, nil, i+1, perms, &allPerms); err != nil {
				return err
			}
		}

		roles := map[string]int64{}
		for _, r := range data.Roles {
			id, err := tx.Roles().CreateRole(ctx, domain.Role{Name: r.Name, IsSuperAdmin: domain.IsSuperAdminName(r.Name)})
			if err != nil {
				return fmt.Errorf("failed to create role %q: %w", r.Name, err)
			}
			var ids []int64
			for _, key := range r.Permissions {
				if key == "*" {
					ids = allPerms
					break
				}
				id, ok := perms[key]
				if !ok {
					return fmt.Errorf("role %q references unknown permission %q", r.Name, key)
				}
				ids = append(ids, id)
			}
			if err := tx.Roles().SetRolePermissions(ctx, id, ids); err != nil {
				return fmt.Errorf("failed to assign permissions to %q: %w", r.Name, err)
			}
			roles[r.Name] = id
		}

		depts := map[string]int64{}
		for i, d := range data.Departments {
			if err := seedDepartments(ctx, tx, d, nil, i+1, depts); err != nil {
				return err
			}
		}

		positions := map[string]int64{}
		for i, p := range data.Positions {
			id, err := tx.Positions().CreatePosition(ctx, domain.Position{
				Name:         p.Name,
				DepartmentID: lookupRef(depts, p.Department),
				Sort:         i + 1,
			})
			if err != nil {
				return fmt.Errorf("failed to create position %q: %w", p.Name, err)
			}
			positions[p.Name] = id
		}

		for _, u := range data.Users {
			id, err := tx.Users().CreateUser(ctx, domain.User{
				Username:     u.Username,
				PasswordHash: hash,
				DepartmentID: lookupRef(depts, u.Department),
				PositionID:   lookupRef(positions, u.Position),
			})
			if err != nil {
				return fmt.Errorf("failed to create user %q: %w", u.Username, err)
			}
			roleIDs := make([]int64, 0, len(u.Roles))
			for _, name := range u.Roles {
				rid, ok := roles[name]
				if !ok {
					return fmt.Errorf("user %q references unknown role %q", u.Username, name)
				}
				roleIDs = append(roleIDs, rid)
			}
			if err := tx.Users().SetUserRoles(ctx, id, roleIDs); err != nil {
				return fmt.Errorf("failed to assign roles to %q: %w", u.Username, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("database seeded",
		"roles", len(data.Roles),
		"users", len(data.Users),
	)
	return nil
}

func seedPermissions(ctx context.Context, tx store.Tx, p seedPermission, parent *int64, sort int, byKey map[string]int64, all *[]int64) error {
	id, err := tx.Permissions().CreatePermission(ctx, domain.Permission{
		Name:     p.Name,
		Type:     domain.PermissionType(p.Type),
		Action:   p.Action,
		Resource: p.Resource,
		ParentID: parent,
		Sort:     sort,
	})
	if err != nil {
		return fmt.Errorf("failed to create permission %q: %w", p.Name, err)
	}
	byKey[domain.Requirement{Action: p.Action, Resource: p.Resource}.String()] = id
	*all = append(*all, id)

	for i, child := range p.Children {
		if err := seedPermissions(ctx, tx, child, &id, i+1, byKey, all); err != nil {
			return err
		}
	}
	return nil
}

func seedDepartments(ctx context.Context, tx store.Tx, d seedDepartment, parent *int64, sort int, byName map[string]int64) error {
	id, err := tx.Departments().CreateDepartment(ctx, domain.Department{Name: d.Name, ParentID: parent, Sort: sort})
	if err != nil {
		return fmt.Errorf("failed to create department %q: %w", d.Name, err)
	}
	byName[d.Name] = id

	for i, child := range d.Children {
		if err := seedDepartments(ctx, tx, child, &id, i+1, byName); err != nil {
			return err
		}
	}
	return nil
}

func lookupRef(ids map[string]int64, name string) *int64 {
	if id, ok := ids[name]; ok {
		return &id
	}
	return nil
}
