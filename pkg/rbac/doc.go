// Package rbac evaluates what a user may do inside an organization.
//
// Permissions derive entirely from the member's role (owner > admin >
// member); there are no per-user grants. Each named action maps to a
// minimum role, and management actions on a specific member add a
// relative check: touching an admin or the owner takes an owner, and
// nobody manages themselves.
package rbac
