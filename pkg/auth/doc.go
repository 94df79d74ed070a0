// Package auth provides user identity, the organization role hierarchy,
// and API token generation and validation.
//
// Roles form a total order (owner > admin > member) with a single
// ordinal function, Role.Level. All permission decisions in the
// application compare role levels through this package rather than
// comparing role strings.
//
// Tokens are random 256-bit values prefixed with "bup_". Only a SHA256
// hash is stored; the plaintext is returned once at creation.
package auth
