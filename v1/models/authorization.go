package models

// AuthorizationMode defines how the system behaves when no explicit permission is defined for an endpoint
type AuthorizationMode string

const (
	// AuthorizationModeFailClosed - Deny all access to undefined endpoints (most secure)
	AuthorizationModeFailClosed AuthorizationMode = "fail_closed"

	// AuthorizationModeFailOpenAdminSystem - Allow admin and system users, deny others
	AuthorizationModeFailOpenAdminSystem AuthorizationMode = "fail_open_admin_system"

	// AuthorizationModeFailOpenAdmin - Allow only admin users, deny others
	AuthorizationModeFailOpenAdmin AuthorizationMode = "fail_open_admin"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin  Role = "Brigade_Admin"  // Full access to member administration and reporting
	RoleMember Role = "Brigade_Member" // Access to own attendance submissions
	RoleSystem Role = "Brigade_System" // System-level access for internal services
)

// Permission represents specific permissions
type Permission string

const (
	// Member directory permissions
	PermissionCreateMember   Permission = "member:create"
	PermissionReadMember     Permission = "member:read"
	PermissionUpdateMember   Permission = "member:update"
	PermissionDeleteMember   Permission = "member:delete"
	PermissionReadAllMembers Permission = "member:read:all"

	// Attendance permissions
	PermissionSubmitAttendance  Permission = "attendance:submit"
	PermissionReadAttendance    Permission = "attendance:read"
	PermissionReadAllAttendance Permission = "attendance:read:all"

	// Report permissions
	PermissionRunReport    Permission = "report:run"
	PermissionExportReport Permission = "report:export"
)

// RolePermissions defines what permissions each role has
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		// Admin has all permissions
		PermissionCreateMember, PermissionReadMember, PermissionUpdateMember,
		PermissionDeleteMember, PermissionReadAllMembers,
		PermissionSubmitAttendance, PermissionReadAttendance, PermissionReadAllAttendance,
		PermissionRunReport, PermissionExportReport,
	},
	RoleMember: {
		// Members can submit their own attendance and read their own record
		PermissionSubmitAttendance, PermissionReadAttendance, PermissionReadMember,
	},
	RoleSystem: {
		// System role has broad read access for internal services
		PermissionReadMember, PermissionReadAllMembers,
		PermissionReadAttendance, PermissionReadAllAttendance,
		PermissionRunReport,
	},
}

// EndpointPermission defines the required permission for each endpoint
type EndpointPermission struct {
	Method              string
	Path                string
	Permission          Permission
	IsOwnershipRequired bool // Whether the user must own the resource
}

// EndpointPermissions maps HTTP endpoints to required permissions. The public
// attendance routes are absent on purpose: they are session-gated, not
// token-gated, and never pass through the authorization middleware.
var EndpointPermissions = []EndpointPermission{
	// Member directory endpoints
	{"GET", "/api/v1/members", PermissionReadAllMembers, false},
	{"POST", "/api/v1/members", PermissionCreateMember, false},
	{"PUT", "/api/v1/members/*", PermissionUpdateMember, false},
	{"POST", "/api/v1/members/delete", PermissionDeleteMember, false},

	// Report endpoints
	{"POST", "/api/v1/reports/run", PermissionRunReport, false},
	{"POST", "/api/v1/reports/export", PermissionExportReport, false},
}

// HasPermission checks if a role has a specific permission
func (r Role) HasPermission(permission Permission) bool {
	permissions, exists := RolePermissions[r]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	_, exists := RolePermissions[r]
	return exists
}
