// Package sqlstore implements the access collaborators over database/sql
// with Postgres placeholders and text-array columns (github.com/lib/pq).
// Call Migrate once before use.
package sqlstore
