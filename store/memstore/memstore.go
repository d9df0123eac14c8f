// Package memstore keeps access-control data in process memory. It backs
// demos and tests; every store is safe for concurrent use and hands out
// copies, so callers must Save to persist changes.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/MrEthical07/goGate/access"
)

// Roles implements access.RoleProvider.
type Roles struct {
	mu    sync.RWMutex
	byID  map[int64]access.Role
	order []int64
}

// NewRoles returns a store holding roles.
func NewRoles(roles ...access.Role) *Roles {
	s := &Roles{byID: map[int64]access.Role{}}
	for _, r := range roles {
		s.Put(r)
	}
	return s
}

// Put adds or replaces a role.
func (s *Roles) Put(r access.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.byID[r.ID] = r
}

// GetAllRoles returns every role in the order it was first added.
func (s *Roles) GetAllRoles(_ context.Context) ([]*access.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*access.Role, 0, len(s.order))
	for _, id := range s.order {
		r := s.byID[id]
		out = append(out, &r)
	}
	return out, nil
}

// GetRoleWithID returns the role with id.
func (s *Roles) GetRoleWithID(_ context.Context, id int64) (*access.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, access.ErrRoleNotFound
	}
	return &r, nil
}

// GetRoleWithName returns the role named name.
func (s *Roles) GetRoleWithName(_ context.Context, name string) (*access.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if r := s.byID[id]; r.Name == name {
			return &r, nil
		}
	}
	return nil, access.ErrRoleNotFound
}

// GroupPermissions implements access.GroupPermissionProvider.
type GroupPermissions struct {
	mu     sync.Mutex
	nextID int64
	perms  map[int64]access.GroupPermission
}

// NewGroupPermissions returns an empty GroupPermissions.
func NewGroupPermissions() *GroupPermissions {
	return &GroupPermissions{perms: map[int64]access.GroupPermission{}}
}

// GetPermissions returns every role grant on one resource.
func (s *GroupPermissions) GetPermissions(_ context.Context, class, id string) ([]*access.GroupPermission, error) {
	return s.filter(func(p access.GroupPermission) bool {
		return p.ResourceClass == class && p.ResourceID == id
	}), nil
}

// GetPermissionsByClass returns every role grant on resources of class.
func (s *GroupPermissions) GetPermissionsByClass(_ context.Context, class string) ([]*access.GroupPermission, error) {
	return s.filter(func(p access.GroupPermission) bool {
		return p.ResourceClass == class
	}), nil
}

func (s *GroupPermissions) filter(keep func(access.GroupPermission) bool) []*access.GroupPermission {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*access.GroupPermission
	for _, p := range s.perms {
		if keep(p) {
			p.Actions = slices.Clone(p.Actions)
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Create stores p under a fresh id.
func (s *GroupPermissions) Create(_ context.Context, p *access.GroupPermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	c := *p
	c.Actions = slices.Clone(p.Actions)
	s.perms[p.ID] = c
	return nil
}

// Save replaces the stored grant with p.
func (s *GroupPermissions) Save(_ context.Context, p *access.GroupPermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	c.Actions = slices.Clone(p.Actions)
	s.perms[p.ID] = c
	return nil
}

// UserPermissions implements access.UserPermissionProvider.
type UserPermissions struct {
	mu     sync.Mutex
	nextID int64
	perms  map[int64]access.UserPermission
}

// NewUserPermissions returns an empty UserPermissions.
func NewUserPermissions() *UserPermissions {
	return &UserPermissions{perms: map[int64]access.UserPermission{}}
}

// GetUserPermission returns the user's grant on one resource, or nil if none exists.
func (s *UserPermissions) GetUserPermission(_ context.Context, userID int64, class, id string) (*access.UserPermission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.perms {
		if p.UserID == userID && p.ResourceClass == class && p.ResourceID == id {
			p.Actions = slices.Clone(p.Actions)
			return &p, nil
		}
	}
	return nil, nil
}

// Create stores p under a fresh id.
func (s *UserPermissions) Create(_ context.Context, p *access.UserPermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p.ID = s.nextID
	c := *p
	c.Actions = slices.Clone(p.Actions)
	s.perms[p.ID] = c
	return nil
}

// Save replaces the stored user grant with p.
func (s *UserPermissions) Save(_ context.Context, p *access.UserPermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	c.Actions = slices.Clone(p.Actions)
	s.perms[p.ID] = c
	return nil
}

// UserRoles implements access.UserProvider by remembering each user's
// role ids.
type UserRoles struct {
	mu    sync.RWMutex
	roles map[int64][]int64
}

// NewUserRoles returns an empty UserRoles.
func NewUserRoles() *UserRoles {
	return &UserRoles{roles: map[int64][]int64{}}
}

// Update stores the user's current direct role ids.
func (s *UserRoles) Update(_ context.Context, user access.User) error {
	ids := make([]int64, 0, len(user.GetRoles()))
	for _, r := range user.GetRoles() {
		ids = append(ids, r.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[user.GetID()] = ids
	return nil
}

// RoleIDs returns the role ids last saved for userID.
func (s *UserRoles) RoleIDs(userID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roles[userID])
}
