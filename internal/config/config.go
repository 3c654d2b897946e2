// Package config loads run settings from flags, ENVINJECT_* environment
// variables, an optional .envinject.yaml project file and an optional user
// config file, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jenian/envinject/internal/errors"
	"github.com/jenian/envinject/internal/pattern"
	"github.com/jenian/envinject/internal/variables"
)

// FileName is the config file looked up in the working directory
const FileName = ".envinject.yaml"

// EnvPrefix is the prefix of environment variables that override config keys
const EnvPrefix = "ENVINJECT"

// EnvConfigDir overrides the directory holding the user config file
const EnvConfigDir = "ENVINJECT_CONFIG_DIR"

// Config holds everything an injection run needs from its host
type Config struct {
	WorkDir            string
	ConfigFile         string // Project or explicit config file that was read, empty when none
	GlobalConfigFile   string // User config file that was read, empty when none
	Files              []string
	Pattern            string
	IgnoreCase         bool
	IgnoreMissing      bool
	CaseSensitivePaths bool
	EnvFiles           []string
	NoEnvFiles         bool
	NoExportedEnv      bool
	Vars               []variables.Pair // From --var, in flag order
	DryRun             bool
	JSON               bool
	Silent             bool
	Ignores            IgnoresConfig
}

// IgnoresConfig contains ignore rules for path expansion and variable resolution
type IgnoresConfig struct {
	Missing []string // Variables allowed to be missing; their placeholders stay as-is
	Folders []string // Directory names skipped while expanding globs
}

// FileList joins the path entries into the newline-separated form the scanner expects
func (c *Config) FileList() string {
	return strings.Join(c.Files, "\n")
}

// keys maps config keys to the flag that overrides them
var keys = map[string]string{
	"files":                "files",
	"pattern":              "pattern",
	"ignore_case":          "ignore-case",
	"ignore_missing":       "ignore-missing",
	"case_sensitive_paths": "case-sensitive-paths",
	"env_files":            "env-file",
	"no_env_files":         "no-env-files",
	"no_exported_env":      "no-exported-env",
	"dry_run":              "dry-run",
	"json":                 "json",
	"silent":               "silent",
	"ignores.folders":      "exclude-dir",
	"ignores.missing":      "ignore-var",
}

// RegisterFlags registers the run flags on a flag set
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("dir", "C", ".", "Working directory that path entries are relative to")
	flags.String("config", "", "Path to config file (default: <dir>/"+FileName+")")

	flags.StringArrayP("files", "f", nil, "File path or glob to inject (repeatable, or newline-separated)")
	flags.String("pattern", pattern.Default, "Placeholder regex with exactly one capturing group")
	flags.Bool("ignore-case", false, "Match placeholders and variable names case-insensitively")
	flags.Bool("ignore-missing", false, "Leave placeholders with unknown variables untouched instead of failing")
	flags.StringSlice("ignore-var", nil, "Variable allowed to be missing even without --ignore-missing")
	flags.Bool("case-sensitive-paths", false, "Match glob entries case-sensitively")
	flags.StringSlice("exclude-dir", nil, "Directory names skipped while expanding globs")

	flags.StringArray("env-file", nil, "Additional env file to load variables from")
	flags.Bool("no-env-files", false, "Do not auto-load .env files from the working directory")
	flags.Bool("no-exported-env", false, "Do not include the process environment")
	flags.StringArray("var", nil, "Variable in KEY=VALUE form (repeatable, highest precedence)")

	flags.Bool("dry-run", false, "Resolve and report without writing files")
	flags.Bool("json", false, "Output the report in JSON format")
	flags.Bool("silent", false, "Silent mode (exit code only)")
}

// Load builds a Config from parsed flags, the environment and the config file
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("pattern", pattern.Default)
	for key, flag := range keys {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}
	if err := v.BindPFlag("dir", flags.Lookup("dir")); err != nil {
		return nil, fmt.Errorf("bind flag dir: %w", err)
	}

	workDir, err := filepath.Abs(v.GetString("dir"))
	if err != nil {
		return nil, fmt.Errorf("invalid working directory: %w", err)
	}

	explicit, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	globalPath, configFile, err := readConfigFiles(v, workDir, explicit)
	if err != nil {
		return nil, err
	}
	source := configFile
	if source == "" {
		source = globalPath
	}

	files, err := stringList(v.Get("files"))
	if err != nil {
		return nil, &errors.ConfigError{Source: sourceName(source), Wrapped: fmt.Errorf("files: %w", err)}
	}
	envFiles, err := stringList(v.Get("env_files"))
	if err != nil {
		return nil, &errors.ConfigError{Source: sourceName(source), Wrapped: fmt.Errorf("env_files: %w", err)}
	}
	folders, err := stringList(v.Get("ignores.folders"))
	if err != nil {
		return nil, &errors.ConfigError{Source: sourceName(source), Wrapped: fmt.Errorf("ignores.folders: %w", err)}
	}

	missing, err := stringList(v.Get("ignores.missing"))
	if err != nil {
		return nil, &errors.ConfigError{Source: sourceName(source), Wrapped: fmt.Errorf("ignores.missing: %w", err)}
	}

	rawVars, err := flags.GetStringArray("var")
	if err != nil {
		return nil, err
	}
	vars, err := ParseVars(rawVars)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		WorkDir:            workDir,
		ConfigFile:         configFile,
		GlobalConfigFile:   globalPath,
		Files:              files,
		Pattern:            v.GetString("pattern"),
		IgnoreCase:         v.GetBool("ignore_case"),
		IgnoreMissing:      v.GetBool("ignore_missing"),
		CaseSensitivePaths: v.GetBool("case_sensitive_paths"),
		EnvFiles:           envFiles,
		NoEnvFiles:         v.GetBool("no_env_files"),
		NoExportedEnv:      v.GetBool("no_exported_env"),
		Vars:               vars,
		DryRun:             v.GetBool("dry_run"),
		JSON:               v.GetBool("json"),
		Silent:             v.GetBool("silent"),
		Ignores:            IgnoresConfig{Missing: missing, Folders: folders},
	}
	return cfg, nil
}

// Validate checks settings that the injector cannot recover from
func (c *Config) Validate() error {
	if len(c.Files) == 0 {
		return fmt.Errorf("no files to inject: pass --files or set 'files' in %s", FileName)
	}
	if c.Pattern == "" {
		return fmt.Errorf("pattern must not be empty")
	}
	return nil
}

// GlobalConfigPath returns the user config file. It lives in the XDG config
// directory unless ENVINJECT_CONFIG_DIR points elsewhere.
func GlobalConfigPath() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return filepath.Join(xdg.ConfigHome, "envinject", "config.yaml")
}

// readConfigFiles reads the config files of a run and returns the paths that
// were read. An explicit file is the only one read. Otherwise the user config
// is read first and FileName from workDir is merged over it; both are optional.
func readConfigFiles(v *viper.Viper, workDir, explicit string) (global, project string, err error) {
	if explicit != "" {
		if err := mergeConfigFile(v, explicit); err != nil {
			return "", "", err
		}
		return "", explicit, nil
	}

	if path := GlobalConfigPath(); fileExists(path) {
		if err := mergeConfigFile(v, path); err != nil {
			return "", "", err
		}
		global = path
	}
	if path := filepath.Join(workDir, FileName); fileExists(path) {
		if err := mergeConfigFile(v, path); err != nil {
			return "", "", err
		}
		project = path
	}
	return global, project, nil
}

func mergeConfigFile(v *viper.Viper, path string) error {
	configType := strings.TrimPrefix(filepath.Ext(path), ".")
	if configType == "" {
		configType = "yaml"
	}
	v.SetConfigFile(path)
	v.SetConfigType(configType)
	if err := v.MergeInConfig(); err != nil {
		return &errors.ConfigError{Source: path, Wrapped: err}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ParseVars parses KEY=VALUE entries. The value may contain further '=' signs.
func ParseVars(raw []string) ([]variables.Pair, error) {
	pairs := make([]variables.Pair, 0, len(raw))
	for _, entry := range raw {
		key, value, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q: expected KEY=VALUE", entry)
		}
		pairs = append(pairs, variables.Pair{Key: key, Value: value})
	}
	return pairs, nil
}

// stringList accepts a YAML list, a single (possibly multi-line) string or a
// flag-provided slice. Multi-line strings are kept whole; the scanner splits them.
func stringList(raw interface{}) ([]string, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return []string{val}, nil
	case []string:
		return val, nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string list entry, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", raw)
	}
}

func sourceName(configPath string) string {
	if configPath == "" {
		return "flags"
	}
	return configPath
}
