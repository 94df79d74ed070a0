// Package middleware provides HTTP middleware for authentication and
// rate limiting.
//
// Authentication resolves "Authorization: Bearer <token>" headers to a
// user via the auth package and stores the result in the request
// context under contextkeys.AuthKey.
//
// Rate limiting comes in two flavors: an in-memory token bucket for
// single-instance deployments and a Redis-backed counter shared across
// instances. The Redis limiter fails open when Redis is unreachable.
package middleware
