// Package storage handles PostgreSQL connection setup and schema migrations.
package storage
