package access

import (
	"context"
	"slices"
)

// StringResourceClass is the resource class used for plain string resources.
const StringResourceClass = "string"

// Role is a named role. ParentID is 0 for a root role; otherwise the role
// inherits every permission of its parent.
type Role struct {
	ID       int64
	Name     string
	ParentID int64
}

// User is the authorization view of an account.
type User interface {
	GetID() int64
	GetRoles() []*Role
	AddRole(role *Role)
}

// Resource is a structured resource identified by class and id.
type Resource interface {
	ResourceClass() string
	ResourceID() string
}

// ResourceRef is a plain Resource value.
type ResourceRef struct {
	Class string
	ID    string
}

func (r ResourceRef) ResourceClass() string { return r.Class }
func (r ResourceRef) ResourceID() string    { return r.ID }

// resourceKey accepts a Resource or a string and returns its class and id.
func resourceKey(resource any) (string, string, error) {
	switch r := resource.(type) {
	case Resource:
		return r.ResourceClass(), r.ResourceID(), nil
	case string:
		return StringResourceClass, r, nil
	default:
		return "", "", ErrUnknownResourceType
	}
}

// Grant is a deduplicated set of actions on one resource.
type Grant struct {
	ResourceClass string
	ResourceID    string
	Actions       []string
}

// Can reports whether the grant covers action.
func (g *Grant) Can(action string) bool {
	return slices.Contains(g.Actions, action)
}

// AddAction adds action unless already present.
func (g *Grant) AddAction(action string) {
	if !g.Can(action) {
		g.Actions = append(g.Actions, action)
	}
}

// RemoveAction removes action if present.
func (g *Grant) RemoveAction(action string) {
	g.Actions = slices.DeleteFunc(g.Actions, func(a string) bool { return a == action })
}

// GroupPermission grants actions on a resource to a role.
type GroupPermission struct {
	ID     int64
	RoleID int64
	Grant
}

// UserPermission grants actions on a resource to a single user, in
// addition to whatever the user's roles grant.
type UserPermission struct {
	ID     int64
	UserID int64
	Grant
}

// RoleProvider looks roles up. Lookups that find nothing return
// ErrRoleNotFound.
type RoleProvider interface {
	GetAllRoles(ctx context.Context) ([]*Role, error)
	GetRoleWithID(ctx context.Context, id int64) (*Role, error)
	GetRoleWithName(ctx context.Context, name string) (*Role, error)
}

// GroupPermissionProvider stores role permissions.
type GroupPermissionProvider interface {
	GetPermissions(ctx context.Context, class, id string) ([]*GroupPermission, error)
	GetPermissionsByClass(ctx context.Context, class string) ([]*GroupPermission, error)
	Create(ctx context.Context, p *GroupPermission) error
	Save(ctx context.Context, p *GroupPermission) error
}

// UserPermissionProvider stores per-user permissions. GetUserPermission
// returns nil, nil when the user has none for the resource.
type UserPermissionProvider interface {
	GetUserPermission(ctx context.Context, userID int64, class, id string) (*UserPermission, error)
	Create(ctx context.Context, p *UserPermission) error
	Save(ctx context.Context, p *UserPermission) error
}

// UserProvider persists a user's role set after AddRoleByName.
type UserProvider interface {
	Update(ctx context.Context, user User) error
}

// Providers bundles the collaborators an Engine uses.
type Providers struct {
	Roles            RoleProvider
	GroupPermissions GroupPermissionProvider
	UserPermissions  UserPermissionProvider
	Users            UserProvider
}
