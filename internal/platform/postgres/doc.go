// Package postgres provides the PostgreSQL implementation of the generation
// history store defined in internal/store, plus the embedded schema
// migrations it depends on. Connections use the pgx stdlib driver through
// database/sql.
package postgres
