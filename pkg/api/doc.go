// Package api assembles the HTTP surface: routing, middleware order,
// and the handler groups for organizations, members, invitations,
// permission validation, tokens, and audit logs. Handlers translate
// domain errors into the HTTP error taxonomy; all business rules live
// in the domain packages.
package api
