// Package testdb provides utilities for tests that need a real PostgreSQL
// database. Tests using it are skipped when no database URL is configured,
// and each test runs inside a transaction that is rolled back afterwards.
package testdb
