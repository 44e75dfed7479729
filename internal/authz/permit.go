// ABOUTME: Static permission table and the pure allow/deny evaluator.
// ABOUTME: Built once at package init; rules are unconditional grants or predicates over a closed context.
package authz

import "github.com/google/uuid"

// ResourceType enumerates the resources the permission table covers.
type ResourceType string

// Resource types.
const (
	ResourceProject ResourceType = "Project"
	ResourceNote    ResourceType = "Note"
	ResourceTask    ResourceType = "Task"
	ResourceSubTask ResourceType = "SubTask"
)

// Action enumerates the operations the permission table covers. Each resource
// type uses its own subset; triples absent from the table deny by default.
type Action string

// Actions.
const (
	ActionCreate       Action = "create"
	ActionView         Action = "view"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionMemberUpdate Action = "memberUpdate"
	ActionUpdateStatus Action = "updateStatus"
	ActionComplete     Action = "complete"
)

// User is the acting identity as carried by the verified session token.
type User struct {
	ID          uuid.UUID
	AccountRole AccountRole
}

// Membership is a user's role within one project, unique on (project, user).
type Membership struct {
	ProjectID uuid.UUID
	UserID    uuid.UUID
	Role      ProjectRole
}

// Resource is the closed snapshot a predicate rule evaluates against. It
// carries exactly the fields the predicates need; zero UUIDs mean "unknown"
// and make every predicate fail closed.
type Resource struct {
	// TaskID is the parent task recorded on a subtask row.
	TaskID uuid.UUID
	// TaskInScope is the task id named by the request route. Subtask ownership
	// checks require it to match TaskID, defending against cross-task id
	// confusion.
	TaskInScope uuid.UUID
	// CreatedBy is the creator recorded on the resource row.
	CreatedBy uuid.UUID
	// AssignedTo is the assignee recorded on a task row.
	AssignedTo uuid.UUID
}

// Context is the input to a predicate rule.
type Context struct {
	User     User
	Member   *Membership
	Resource Resource
}

// Predicate is a condition evaluated against a Context. Predicates are total:
// any missing attribute denies.
type Predicate func(Context) bool

// GrantRule is a tagged variant: either an unconditional grant or a
// predicate-gated one. The zero value denies.
type GrantRule struct {
	allow bool
	check Predicate
}

func allow() GrantRule           { return GrantRule{allow: true} }
func when(p Predicate) GrantRule { return GrantRule{check: p} }

// Decision is the outcome of an Evaluate call.
type Decision struct {
	Allowed bool
	Reason  string
}

// Evaluator reasons surfaced to HTTP callers on denial.
const (
	ReasonGranted                 = "permission granted"
	ReasonInsufficientAccountRole = "insufficient account role"
	ReasonInsufficientPermissions = "insufficient permissions"
	ReasonResourceNotFound        = "resource not found"
	ReasonTaskNotAssigned         = "task is not assigned to you"
	ReasonSubTaskNotOwned         = "subtask was not created by you under this task"
)

func allowed() Decision             { return Decision{Allowed: true, Reason: ReasonGranted} }
func denied(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// taskAssignedToActor grants a member the updateStatus action only on tasks
// assigned to them.
func taskAssignedToActor(ctx Context) bool {
	return ctx.Resource.AssignedTo != uuid.Nil && ctx.Resource.AssignedTo == ctx.User.ID
}

// subTaskOwnedInScope implements the ownership guard for member subtask
// actions: the subtask's parent task must equal the task named by the route,
// and the subtask's creator must be the acting user.
func subTaskOwnedInScope(ctx Context) bool {
	if ctx.Resource.TaskID == uuid.Nil || ctx.Resource.TaskInScope == uuid.Nil {
		return false
	}
	return ctx.Resource.TaskID == ctx.Resource.TaskInScope &&
		ctx.Resource.CreatedBy == ctx.User.ID
}

// permissions is the static grant table, keyed role → resource → action.
// Read-only after init; any change ships as a redeploy. Project create is not
// here — it is decided by account role in Evaluate before the table is
// consulted.
var permissions = map[ProjectRole]map[ResourceType]map[Action]GrantRule{
	RoleLead: {
		ResourceProject: {
			ActionView:         allow(),
			ActionUpdate:       allow(),
			ActionDelete:       allow(),
			ActionMemberUpdate: allow(),
		},
		ResourceNote: {
			ActionCreate: allow(),
			ActionView:   allow(),
			ActionUpdate: allow(),
			ActionDelete: allow(),
		},
		ResourceTask: {
			ActionCreate:       allow(),
			ActionView:         allow(),
			ActionUpdate:       allow(),
			ActionDelete:       allow(),
			ActionUpdateStatus: allow(),
		},
		ResourceSubTask: {
			ActionCreate:   allow(),
			ActionView:     allow(),
			ActionUpdate:   allow(),
			ActionDelete:   allow(),
			ActionComplete: allow(),
		},
	},
	RoleManager: {
		ResourceProject: {
			ActionView:         allow(),
			ActionMemberUpdate: allow(),
		},
		ResourceNote: {
			ActionCreate: allow(),
			ActionView:   allow(),
			ActionUpdate: allow(),
			ActionDelete: allow(),
		},
		ResourceTask: {
			ActionCreate:       allow(),
			ActionView:         allow(),
			ActionUpdate:       allow(),
			ActionDelete:       allow(),
			ActionUpdateStatus: allow(),
		},
		ResourceSubTask: {
			ActionCreate:   allow(),
			ActionView:     allow(),
			ActionUpdate:   allow(),
			ActionDelete:   allow(),
			ActionComplete: allow(),
		},
	},
	RoleMember: {
		ResourceProject: {
			ActionView: allow(),
		},
		ResourceNote: {
			ActionView: allow(),
		},
		ResourceTask: {
			ActionView:         allow(),
			ActionUpdateStatus: when(taskAssignedToActor),
		},
		ResourceSubTask: {
			ActionCreate:   allow(),
			ActionView:     when(subTaskOwnedInScope),
			ActionUpdate:   when(subTaskOwnedInScope),
			ActionDelete:   when(subTaskOwnedInScope),
			ActionComplete: when(subTaskOwnedInScope),
		},
	},
}

// predicateDenyReason maps a failed predicate to its action-specific reason.
func predicateDenyReason(rt ResourceType) string {
	switch rt {
	case ResourceTask:
		return ReasonTaskNotAssigned
	case ResourceSubTask:
		return ReasonSubTaskNotOwned
	default:
		return ReasonInsufficientPermissions
	}
}

// Evaluate decides whether user may perform action on the given resource
// type. member may be nil: the caller is then treated as MEMBER for table
// lookups (least-privilege default; see DESIGN.md). res supplies the resource
// snapshot for predicate rules and may be nil for table-only checks — a
// predicate rule with no snapshot denies with ReasonResourceNotFound.
//
// Evaluate is pure and side-effect free: identical inputs yield identical
// decisions, and malformed role/resource/action values deny rather than
// panic. Safe for concurrent use.
func Evaluate(user User, member *Membership, rt ResourceType, action Action, res *Resource) Decision {
	// Project creation is an account-level capability, not a project-role one.
	if rt == ResourceProject && action == ActionCreate {
		if user.AccountRole == AccountPro || user.AccountRole == AccountAdmin {
			return allowed()
		}
		return denied(ReasonInsufficientAccountRole)
	}

	role := RoleMember
	if member != nil {
		role = member.Role
	}

	byResource, ok := permissions[role]
	if !ok {
		return denied(ReasonInsufficientPermissions)
	}
	byAction, ok := byResource[rt]
	if !ok {
		return denied(ReasonInsufficientPermissions)
	}
	rule, ok := byAction[action]
	if !ok {
		return denied(ReasonInsufficientPermissions)
	}

	if rule.allow {
		return allowed()
	}
	if rule.check == nil {
		return denied(ReasonInsufficientPermissions)
	}
	if res == nil {
		return denied(ReasonResourceNotFound)
	}
	if rule.check(Context{User: user, Member: member, Resource: *res}) {
		return allowed()
	}
	return denied(predicateDenyReason(rt))
}
