package shared

// Core platform permissions.
const (
	PermUserList     = "system:user:list"
	PermUserRead     = "system:user:read"
	PermUserCreate   = "system:user:create"
	PermUserUpdate   = "system:user:update"
	PermUserDelete   = "system:user:delete"
	PermUserPassword = "system:user:password"

	PermRoleList   = "system:role:list"
	PermRoleRead   = "system:role:read"
	PermRoleCreate = "system:role:create"
	PermRoleUpdate = "system:role:update"
	PermRoleDelete = "system:role:delete"

	PermMenuList   = "system:menu:list"
	PermMenuRead   = "system:menu:read"
	PermMenuCreate = "system:menu:create"
	PermMenuUpdate = "system:menu:update"
	PermMenuDelete = "system:menu:delete"

	PermPermissionRefresh = "system:permission:refresh"
	PermTaskList          = "system:task:list"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUserList,
		PermUserRead,
		PermUserCreate,
		PermUserUpdate,
		PermUserDelete,
		PermUserPassword,
		PermRoleList,
		PermRoleRead,
		PermRoleCreate,
		PermRoleUpdate,
		PermRoleDelete,
		PermMenuList,
		PermMenuRead,
		PermMenuCreate,
		PermMenuUpdate,
		PermMenuDelete,
		PermPermissionRefresh,
		PermTaskList,
	}
}
