package ciutil

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/phrazzld/imagegen-api/internal/redact"
)

// Environment variable names read by test helpers.
const (
	// EnvTestDatabaseURL is the preferred test database variable.
	EnvTestDatabaseURL = "IMAGEGEN_TEST_DATABASE_URL"
	// EnvDatabaseURL is the generic fallback most CI services export.
	EnvDatabaseURL = "DATABASE_URL"
	// EnvRequireTestDB turns a missing test database into a failure.
	EnvRequireTestDB = "IMAGEGEN_REQUIRE_TEST_DB"
)

// GetEnvWithFallbacks returns the value of the first non-empty environment variable
// from the provided list. If no environment variables are set, it returns the defaultValue.
// Using anything but the first name is logged, with the value redacted.
func GetEnvWithFallbacks(envVars []string, defaultValue string, logger *slog.Logger) string {
	for i, envVar := range envVars {
		val := strings.TrimSpace(os.Getenv(envVar))
		if val == "" {
			continue
		}
		if i > 0 && logger != nil {
			logger.Debug("using fallback environment variable",
				"used_var", envVar,
				"preferred_var", envVars[0],
				"value", redact.String(val))
		}
		return val
	}
	return defaultValue
}

// TestDatabaseURL returns the database URL integration tests should use, or
// "" when none is configured.
func TestDatabaseURL(logger *slog.Logger) string {
	return GetEnvWithFallbacks([]string{EnvTestDatabaseURL, EnvDatabaseURL}, "", logger)
}

// RequireTestDatabase reports whether integration tests must fail, rather
// than skip, when no database is configured.
func RequireTestDatabase() bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvRequireTestDB)))
	return err == nil && v
}
