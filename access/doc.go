// Package access implements hierarchical role-based authorization.
//
// # Roles
//
// A [Role] may name a parent. A user's effective roles are their direct
// roles plus every ancestor, compiled once per [Engine] and dropped by
// [Engine.SetUser].
//
// # Guards
//
// [Guards] map controllers and actions to the roles allowed to reach them.
// An action guard may instead name a string resource and verb, in which
// case it is checked with [Engine.IsAllowed]. Guards are parsed once and
// shared; an unguarded controller/action pair is a configuration error
// ([ErrGuardExpected]).
//
// # Permissions
//
// A [GroupPermission] grants actions on a resource to a role, a
// [UserPermission] grants them to one user. Role grants are checked first
// and user grants can only add access. A configured super-admin role
// passes every check.
//
// # What this package must NOT do
//
//   - Authenticate users or read cookies; callers pass in the identity.
//   - Cache anything beyond the lifetime of one Engine.
package access
