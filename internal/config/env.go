package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// EnvDocsURL supplies the documentation URL prefix.
	EnvDocsURL = "DOCS_URL"
	// EnvLogLevel selects the log level when -v is not given.
	EnvLogLevel = "DOCFLEET_LOG_LEVEL"
)

// loadEnvFiles loads .env and .env.local when present. Existing process
// environment variables are not overwritten.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", "path", name, "error", err)
			continue
		}
		slog.Debug("Loaded environment variables", "path", name)
	}
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvDocsURL); ok {
		cfg.DocsURL = v
	}
}

// URLPrefix is the documentation URL prefix without trailing slashes.
func (c *Config) URLPrefix() string {
	return strings.TrimRight(c.DocsURL, "/")
}
