// Package ciutil reads the environment variables that decide how
// integration tests find their database.
package ciutil
