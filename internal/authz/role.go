// ABOUTME: Account and project role catalogs with the project-role precedence order.
// ABOUTME: Parse helpers map stored strings to typed roles, defaulting to least privilege.
package authz

// AccountRole is the global role attached to a user identity, independent of
// any project.
type AccountRole string

// Account role values. Only PRO and ADMIN accounts may create projects.
const (
	AccountUser  AccountRole = "USER"
	AccountPro   AccountRole = "PRO"
	AccountAdmin AccountRole = "ADMIN"
)

// ParseAccountRole converts a stored role string to an AccountRole.
// Unknown or empty values map to AccountUser (least privilege).
func ParseAccountRole(s string) AccountRole {
	switch s {
	case "ADMIN":
		return AccountAdmin
	case "PRO":
		return AccountPro
	default:
		return AccountUser
	}
}

// ProjectRole is the per-project role carried by a membership row.
type ProjectRole string

// Project role values, with precedence LEAD > MANAGER > MEMBER.
const (
	RoleLead    ProjectRole = "LEAD"
	RoleManager ProjectRole = "MANAGER"
	RoleMember  ProjectRole = "MEMBER"
)

// ParseProjectRole converts a stored role string to a ProjectRole.
// Unknown or empty values map to RoleMember (least privilege).
func ParseProjectRole(s string) ProjectRole {
	switch s {
	case "LEAD":
		return RoleLead
	case "MANAGER":
		return RoleManager
	default:
		return RoleMember
	}
}

// Rank returns the precedence of a project role: LEAD=3, MANAGER=2, MEMBER=1.
// Roles outside the catalog rank 0 so they never outrank a real member.
func Rank(r ProjectRole) int {
	switch r {
	case RoleLead:
		return 3
	case RoleManager:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// CanActOn reports whether an actor may remove or demote a target member.
// Strictly higher precedence is required — a MANAGER cannot act on a LEAD
// or on another MANAGER.
func CanActOn(actor, target ProjectRole) bool {
	return Rank(actor) > Rank(target)
}
