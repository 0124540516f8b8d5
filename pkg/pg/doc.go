// Package pg provides PostgreSQL connectivity for the analytics engine:
// a pgx connection pool with startup retries, goose migration execution,
// error classification helpers, a healthcheck closure for liveness probes,
// and per-tenant advisory locks used by the batch runner to avoid duplicate
// recomputation of the same tenant.
package pg
