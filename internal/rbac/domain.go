package rbac

import (
	"context"
	"strings"
	"time"
)

const (
	// RootRoleID is the built-in administrator role. Holding it grants every permission.
	RootRoleID int64 = 1
	// RootRoleValue is the role value carried in token claims for the root role.
	RootRoleValue = "admin"
)

// Status values shared by roles and menus.
const (
	StatusDisabled = 0
	StatusEnabled  = 1
)

// MenuType classifies a node of the menu tree.
type MenuType int

const (
	MenuTypeGroup MenuType = iota
	MenuTypeMenu
	MenuTypePermission
)

// Valid reports whether t is a known menu type.
func (t MenuType) Valid() bool {
	return t >= MenuTypeGroup && t <= MenuTypePermission
}

// Role represents a named bundle of menu grants.
type Role struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	Status    int       `json:"status"`
	Remark    string    `json:"remark"`
	MenuIDs   []int64   `json:"menuIds,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsRoot reports whether r is the built-in administrator role.
func (r Role) IsRoot() bool {
	return r.ID == RootRoleID
}

// Menu is a node of the menu tree. Permission holds a comma-joined list of permission strings.
type Menu struct {
	ID         int64     `json:"id"`
	ParentID   *int64    `json:"parentId"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Permission *string   `json:"permission"`
	Type       MenuType  `json:"type"`
	Icon       string    `json:"icon"`
	OrderNo    int       `json:"orderNo"`
	Component  string    `json:"component"`
	Status     int       `json:"status"`
	Children   []*Menu   `json:"children,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// GrantsPermissions reports whether the node can contribute permission strings.
func (m Menu) GrantsPermissions() bool {
	return (m.Type == MenuTypeMenu || m.Type == MenuTypePermission) && m.Permission != nil && strings.TrimSpace(*m.Permission) != ""
}

// IsAdmin reports whether roleIDs contains the root role.
func IsAdmin(roleIDs []int64) bool {
	for _, id := range roleIDs {
		if id == RootRoleID {
			return true
		}
	}
	return false
}

// HasAdminRole reports whether token role values include the root role value.
func HasAdminRole(roles []string) bool {
	for _, r := range roles {
		if r == RootRoleValue {
			return true
		}
	}
	return false
}

// Refresher recomputes cached permission sets after the role/menu graph changes.
type Refresher interface {
	RefreshOne(ctx context.Context, accountID int64) error
	RefreshAll(ctx context.Context) error
}
