// Package observability provides logging, metrics, health checks, tracing,
// and graceful shutdown for the BudgetUp services.
package observability
