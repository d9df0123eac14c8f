package access

import (
	"errors"
	"fmt"
)

var (
	// ErrGuardConfiguration reports a malformed guard definition.
	ErrGuardConfiguration = errors.New("access: malformed guard configuration")
	// ErrGuardExpected reports a controller/action pair with no guard at all.
	ErrGuardExpected = errors.New("access: no guard configured")
	// ErrUserRequired reports an operation that needs a persisted user.
	ErrUserRequired = errors.New("access: user required")
	// ErrInvalidRole reports an unknown role name.
	ErrInvalidRole = errors.New("access: invalid role")
	// ErrPrivilegeEscalation reports an attempt to grant the super-admin role.
	ErrPrivilegeEscalation = errors.New("access: super-admin role cannot be granted")
	// ErrUnknownResourceType reports a resource that is neither a Resource nor a string.
	ErrUnknownResourceType = errors.New("access: unknown resource type")
	// ErrExistingAccess is matched by every *ExistingAccessError.
	ErrExistingAccess = errors.New("access: access already granted")
	// ErrRoleNotFound is returned by RoleProvider lookups that find nothing.
	ErrRoleNotFound = errors.New("access: role not found")
)

// ExistingAccessError reports that Role, or one of its ancestors, already
// grants Action on the resource.
type ExistingAccessError struct {
	Role          string
	ResourceClass string
	ResourceID    string
	Action        string
}

func (e *ExistingAccessError) Error() string {
	return fmt.Sprintf("access: role %q already grants %q on %s/%s", e.Role, e.Action, e.ResourceClass, e.ResourceID)
}

// Is makes errors.Is(err, ErrExistingAccess) true.
func (e *ExistingAccessError) Is(target error) bool {
	return target == ErrExistingAccess
}
