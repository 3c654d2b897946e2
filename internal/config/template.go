package config

import (
	"fmt"
	"os"
)

// DefaultContent is written by `envinject init-config`
const DefaultContent = `# .envinject.yaml
# Configuration file for envinject

# Files to inject, relative to the working directory.
# Literal paths and globs (*, **, ?) are both accepted.
files:
  # - config/app.properties
  # - deploy/**/*.yaml

# Placeholder regex. The single capturing group is the variable name.
pattern: '\$\{([A-Za-z0-9_.]+)\}'

# Match placeholder and variable names case-insensitively
ignore_case: false

# Leave placeholders with unknown variables untouched instead of failing
ignore_missing: false

# Match glob entries case-sensitively (globs are case-insensitive by default)
case_sensitive_paths: false

# Extra env files to read variables from (.env and .env.local are always tried)
env_files:
  # - build.env

ignores:
  # Variables that may be missing; their placeholders are left as-is
  missing:
    # - OPTIONAL_FEATURE_FLAG

  # Folders never descended into while expanding globs
  folders:
    # - node_modules
    # - dist
`

// WriteDefault creates a default config file at path, refusing to overwrite one
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := os.WriteFile(path, []byte(DefaultContent), 0644); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}
