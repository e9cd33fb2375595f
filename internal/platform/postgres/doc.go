// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package.
//
// Queries are built with goqu's postgres dialect in prepared mode and scanned
// with sqlx. A book's ratings live in a JSONB column encoded with jsoniter; the
// average is stored alongside so best-rated listings can be served from an
// index. The schema is managed by the goose migrations embedded in this package.
package postgres
