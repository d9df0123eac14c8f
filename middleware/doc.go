// Package middleware adapts the authentication and access engines to
// net/http.
//
// A [Guard] resolves the cookie identity once per request, builds a
// request-scoped access.Engine and stores both in the request context.
// [Guard.Protect] then runs the controller/action guard and hands denials
// to a [DenyHandler] with access.AccessUnauthorized (401) or
// access.AccessDenied (403).
//
// # Architecture boundaries
//
// This package translates HTTP semantics into engine calls. It does NOT
// decide who may do what; every decision comes from access.Engine.Check.
package middleware
