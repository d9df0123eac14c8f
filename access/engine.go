package access

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Config is the access configuration shared by every request.
type Config struct {
	// SuperAdminRole bypasses every guard and permission check. Empty
	// disables the override.
	SuperAdminRole string `yaml:"super_admin_role"`
}

// DenyReason classifies a failed guard check.
type DenyReason string

const (
	// DenyNone means the check passed.
	DenyNone DenyReason = ""
	// AccessDenied means the user is known but lacks the required role
	// or permission (HTTP 403).
	AccessDenied DenyReason = "ACCESS_DENIED"
	// AccessUnauthorized means the check needs a logged-in user (HTTP 401).
	AccessUnauthorized DenyReason = "ACCESS_UNAUTHORIZED"
)

// Engine answers authorization questions for one request. It caches the
// compiled role set of its user and must not be shared between requests.
type Engine struct {
	guards    *Guards
	config    Config
	providers Providers

	user User

	compiled  bool
	roleNames []string
	roleIDs   map[int64]struct{}
}

// New returns an Engine with no user set.
func New(guards *Guards, cfg Config, providers Providers) *Engine {
	if guards == nil {
		guards = &Guards{}
	}
	return &Engine{guards: guards, config: cfg, providers: providers}
}

// SetUser sets the current user and drops any compiled roles.
func (e *Engine) SetUser(user User) error {
	if user == nil || user.GetID() <= 0 {
		return ErrUserRequired
	}
	e.user = user
	e.resetRoles()
	return nil
}

// User returns the current user, or nil.
func (e *Engine) User() User {
	return e.user
}

// HasUser reports whether a user is set.
func (e *Engine) HasUser() bool {
	return e.user != nil
}

func (e *Engine) resetRoles() {
	e.compiled = false
	e.roleNames = nil
	e.roleIDs = nil
}

// compileRoles collects the user's roles and all their ancestors. A role
// seen twice ends its walk, so a cyclic hierarchy terminates.
func (e *Engine) compileRoles(ctx context.Context) error {
	if e.compiled {
		return nil
	}
	names := []string{}
	ids := map[int64]struct{}{}
	if e.user != nil {
		for _, role := range e.user.GetRoles() {
			err := e.walkRole(ctx, role, func(r *Role) bool {
				if _, seen := ids[r.ID]; seen {
					return false
				}
				ids[r.ID] = struct{}{}
				if !slices.Contains(names, r.Name) {
					names = append(names, r.Name)
				}
				return true
			})
			if err != nil {
				return err
			}
		}
	}
	e.roleNames = names
	e.roleIDs = ids
	e.compiled = true
	return nil
}

// walkRole calls visit for role and each ancestor until visit returns
// false or the root is reached.
func (e *Engine) walkRole(ctx context.Context, role *Role, visit func(*Role) bool) error {
	for role != nil {
		if !visit(role) {
			return nil
		}
		if role.ParentID == 0 {
			return nil
		}
		parent, err := e.providers.Roles.GetRoleWithID(ctx, role.ParentID)
		if err != nil {
			return fmt.Errorf("load parent of role %q: %w", role.Name, err)
		}
		role = parent
	}
	return nil
}

// Roles returns the names of the user's roles and all their ancestors,
// each once. It is empty without a user.
func (e *Engine) Roles(ctx context.Context) ([]string, error) {
	if err := e.compileRoles(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(e.roleNames), nil
}

// HasRoleWithName reports whether the user holds name directly or by
// inheritance.
func (e *Engine) HasRoleWithName(ctx context.Context, name string) (bool, error) {
	if err := e.compileRoles(ctx); err != nil {
		return false, err
	}
	return slices.Contains(e.roleNames, name), nil
}

// HasRole reports whether the user holds role directly or by inheritance.
func (e *Engine) HasRole(ctx context.Context, role *Role) (bool, error) {
	if role == nil {
		return false, nil
	}
	if err := e.compileRoles(ctx); err != nil {
		return false, err
	}
	_, ok := e.roleIDs[role.ID]
	return ok, nil
}

func (e *Engine) hasRoleID(ctx context.Context, id int64) (bool, error) {
	if err := e.compileRoles(ctx); err != nil {
		return false, err
	}
	_, ok := e.roleIDs[id]
	return ok, nil
}

func (e *Engine) hasAnyRole(ctx context.Context, names []string) (bool, error) {
	for _, name := range names {
		ok, err := e.HasRoleWithName(ctx, name)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// IsSuperAdmin reports whether a super-admin role is configured and held.
func (e *Engine) IsSuperAdmin(ctx context.Context) (bool, error) {
	if e.config.SuperAdminRole == "" || e.user == nil {
		return false, nil
	}
	return e.HasRoleWithName(ctx, e.config.SuperAdminRole)
}

// AllRoles lists every known role.
func (e *Engine) AllRoles(ctx context.Context) ([]*Role, error) {
	return e.providers.Roles.GetAllRoles(ctx)
}

// AddRoleByName gives the user the named role and persists the user. The
// super-admin role cannot be granted this way.
func (e *Engine) AddRoleByName(ctx context.Context, name string) error {
	if e.user == nil {
		return ErrUserRequired
	}
	role, err := e.providers.Roles.GetRoleWithName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return fmt.Errorf("%w: %s", ErrInvalidRole, name)
		}
		return err
	}
	if e.config.SuperAdminRole != "" && role.Name == e.config.SuperAdminRole {
		return ErrPrivilegeEscalation
	}

	e.user.AddRole(role)
	e.resetRoles()
	if err := e.providers.Users.Update(ctx, e.user); err != nil {
		return fmt.Errorf("update user roles: %w", err)
	}
	return nil
}

/*
====================================
GUARDS
====================================
*/

// CanAccessController checks the controller's default roles. A controller
// without defaults is denied; an empty default list is public.
func (e *Engine) CanAccessController(ctx context.Context, controller string) (bool, error) {
	roles, ok := e.guards.ControllerDefault(controller)
	if !ok {
		return false, nil
	}
	if len(roles) == 0 {
		return true, nil
	}
	if admin, err := e.IsSuperAdmin(ctx); err != nil || admin {
		return admin, err
	}
	return e.hasAnyRole(ctx, roles)
}

// CanAccessAction checks the action guard, falling back to the controller
// default when the action has none.
func (e *Engine) CanAccessAction(ctx context.Context, controller, action string) (bool, error) {
	if admin, err := e.IsSuperAdmin(ctx); err != nil || admin {
		return admin, err
	}

	guard, ok := e.guards.Action(controller, action)
	if !ok {
		return e.CanAccessController(ctx, controller)
	}

	if guard.isPermission() {
		if len(guard.Roles) > 0 {
			held, err := e.hasAnyRole(ctx, guard.Roles)
			if err != nil || !held {
				return false, err
			}
		}
		return e.IsAllowed(ctx, guard.Resource, guard.Action)
	}

	if len(guard.Roles) == 0 {
		return true, nil
	}
	return e.hasAnyRole(ctx, guard.Roles)
}

// RequiresAuthentication reports whether the action needs a logged-in user.
func (e *Engine) RequiresAuthentication(controller, action string) (bool, error) {
	return e.guards.RequiresAuthentication(controller, action)
}

// Check runs the before-dispatch guard for one action and classifies a
// failure. Without a user, any failure is AccessUnauthorized.
func (e *Engine) Check(ctx context.Context, controller, action string) (DenyReason, error) {
	required, err := e.RequiresAuthentication(controller, action)
	if err != nil {
		return DenyNone, err
	}
	if required && e.user == nil {
		return AccessUnauthorized, nil
	}

	ok, err := e.CanAccessAction(ctx, controller, action)
	if err != nil {
		return DenyNone, err
	}
	switch {
	case ok:
		return DenyNone, nil
	case e.user == nil:
		return AccessUnauthorized, nil
	default:
		return AccessDenied, nil
	}
}

/*
====================================
PERMISSIONS
====================================
*/

// GroupPermissions returns the role permissions on resource, which is a
// Resource or a string.
func (e *Engine) GroupPermissions(ctx context.Context, resource any) ([]*GroupPermission, error) {
	class, id, err := resourceKey(resource)
	if err != nil {
		return nil, err
	}
	return e.providers.GroupPermissions.GetPermissions(ctx, class, id)
}

// UserPermission returns the user's own permission on resource, or nil.
func (e *Engine) UserPermission(ctx context.Context, resource any) (*UserPermission, error) {
	class, id, err := resourceKey(resource)
	if err != nil {
		return nil, err
	}
	if e.user == nil {
		return nil, ErrUserRequired
	}
	return e.providers.UserPermissions.GetUserPermission(ctx, e.user.GetID(), class, id)
}

// IsAllowed reports whether the user may perform action on resource.
// Role permissions are checked first; the user's own permission can only
// add access.
func (e *Engine) IsAllowed(ctx context.Context, resource any, action string) (bool, error) {
	if _, _, err := resourceKey(resource); err != nil {
		return false, err
	}
	if admin, err := e.IsSuperAdmin(ctx); err != nil || admin {
		return admin, err
	}

	perms, err := e.GroupPermissions(ctx, resource)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if !p.Can(action) {
			continue
		}
		held, err := e.hasRoleID(ctx, p.RoleID)
		if err != nil {
			return false, err
		}
		if held {
			return true, nil
		}
	}
	return e.IsAllowedUser(ctx, resource, action)
}

// IsAllowedUser checks only the user's own permission on resource.
func (e *Engine) IsAllowedUser(ctx context.Context, resource any, action string) (bool, error) {
	if e.user == nil {
		return false, nil
	}
	if admin, err := e.IsSuperAdmin(ctx); err != nil || admin {
		return admin, err
	}
	p, err := e.UserPermission(ctx, resource)
	if err != nil || p == nil {
		return false, err
	}
	return p.Can(action), nil
}

// IsAllowedByResourceClass reports whether any role permission in class
// lets the user perform action.
func (e *Engine) IsAllowedByResourceClass(ctx context.Context, class, action string) (bool, error) {
	ids, err := e.ListAllowedByClass(ctx, class, action)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// ListAllowedByClass returns the ids of resources in class on which the
// user's roles grant action, in provider order. An empty action matches
// any grant.
func (e *Engine) ListAllowedByClass(ctx context.Context, class, action string) ([]string, error) {
	admin, err := e.IsSuperAdmin(ctx)
	if err != nil {
		return nil, err
	}
	perms, err := e.providers.GroupPermissions.GetPermissionsByClass(ctx, class)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, p := range perms {
		if action != "" && !p.Can(action) {
			continue
		}
		if !admin {
			held, err := e.hasRoleID(ctx, p.RoleID)
			if err != nil {
				return nil, err
			}
			if !held {
				continue
			}
		}
		if !slices.Contains(ids, p.ResourceID) {
			ids = append(ids, p.ResourceID)
		}
	}
	return ids, nil
}

// GrantRoleAccess grants action on resource to role. If role or one of its
// ancestors already holds the grant, it fails with *ExistingAccessError.
func (e *Engine) GrantRoleAccess(ctx context.Context, role *Role, resource any, action string) error {
	class, id, err := resourceKey(resource)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrInvalidRole
	}

	chain := map[int64]string{}
	err = e.walkRole(ctx, role, func(r *Role) bool {
		if _, seen := chain[r.ID]; seen {
			return false
		}
		chain[r.ID] = r.Name
		return true
	})
	if err != nil {
		return err
	}

	perms, err := e.providers.GroupPermissions.GetPermissions(ctx, class, id)
	if err != nil {
		return err
	}
	var own *GroupPermission
	for _, p := range perms {
		name, inChain := chain[p.RoleID]
		if !inChain {
			continue
		}
		if p.Can(action) {
			return &ExistingAccessError{Role: name, ResourceClass: class, ResourceID: id, Action: action}
		}
		if p.RoleID == role.ID && own == nil {
			own = p
		}
	}

	if own != nil {
		own.AddAction(action)
		return e.providers.GroupPermissions.Save(ctx, own)
	}
	return e.providers.GroupPermissions.Create(ctx, &GroupPermission{
		RoleID: role.ID,
		Grant:  Grant{ResourceClass: class, ResourceID: id, Actions: []string{action}},
	})
}

// GrantUserAccess gives the user action on resource unless they already
// have it.
func (e *Engine) GrantUserAccess(ctx context.Context, resource any, action string) error {
	allowed, err := e.IsAllowed(ctx, resource, action)
	if err != nil || allowed {
		return err
	}
	if e.user == nil {
		return ErrUserRequired
	}

	p, err := e.UserPermission(ctx, resource)
	if err != nil {
		return err
	}
	if p != nil {
		p.AddAction(action)
		return e.providers.UserPermissions.Save(ctx, p)
	}

	class, id, _ := resourceKey(resource)
	return e.providers.UserPermissions.Create(ctx, &UserPermission{
		UserID: e.user.GetID(),
		Grant:  Grant{ResourceClass: class, ResourceID: id, Actions: []string{action}},
	})
}

// RevokeUserAccess removes action from the user's own permission on
// resource. Access granted through roles is unaffected.
func (e *Engine) RevokeUserAccess(ctx context.Context, resource any, action string) error {
	p, err := e.UserPermission(ctx, resource)
	if err != nil {
		return err
	}
	if p == nil || !p.Can(action) {
		return nil
	}
	p.RemoveAction(action)
	return e.providers.UserPermissions.Save(ctx, p)
}

type engineContextKey struct{}

// WithEngine stores e in ctx.
func WithEngine(ctx context.Context, e *Engine) context.Context {
	return context.WithValue(ctx, engineContextKey{}, e)
}

// FromContext returns the Engine stored by WithEngine, or nil.
func FromContext(ctx context.Context) *Engine {
	e, _ := ctx.Value(engineContextKey{}).(*Engine)
	return e
}
