// Package envfile materializes the variable map of a run from env files and
// the exported process environment.
package envfile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jenian/envinject/internal/logging"
	"github.com/jenian/envinject/internal/variables"
)

// ExportedSource names the process environment in Source.Path
const ExportedSource = "<environment>"

// Source is the set of variables read from one place
type Source struct {
	Path string
	Vars []variables.Pair
}

// Loader handles loading and parsing environment files
type Loader struct {
	defaultFiles []string // Tried in the root, silently skipped when absent
	extraFiles   []string // Requested explicitly, warned about when absent
	autoDetect   bool
	exported     bool
	environ      func() []string
	logger       zerolog.Logger
}

// NewLoader creates a new env file loader that reads .env, .env.local,
// auto-detected .env.* and .envrc files, and the exported environment
func NewLoader() *Loader {
	return &Loader{
		defaultFiles: []string{".env", ".env.local"},
		autoDetect:   true,
		exported:     true,
		environ:      os.Environ,
		logger:       zerolog.Nop(),
	}
}

// SetAutoDetect enables or disables automatic detection of env files
func (l *Loader) SetAutoDetect(enabled bool) {
	l.autoDetect = enabled
}

// SetDefaultFiles replaces the env files tried in the root directory
func (l *Loader) SetDefaultFiles(files []string) {
	l.defaultFiles = files
}

// AddEnvFile adds a custom env file to load. Its format is detected from its name.
func (l *Loader) AddEnvFile(path string) {
	l.extraFiles = append(l.extraFiles, path)
}

// SetIncludeExported toggles reading the process environment
func (l *Loader) SetIncludeExported(enabled bool) {
	l.exported = enabled
}

// SetLogger sets the logger used for per-source diagnostics
func (l *Loader) SetLogger(logger zerolog.Logger) {
	l.logger = logging.Component(logger, "envfile")
}

// Load reads every configured source under rootPath. Sources are returned
// in precedence order: default files, auto-detected files, explicitly added
// files, then the exported environment. Later sources override earlier ones.
// Unreadable or malformed files are logged and skipped.
func (l *Loader) Load(rootPath string) []Source {
	var sources []Source

	for _, path := range l.findEnvFiles(rootPath) {
		vars, err := parseEnvFile(path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to parse env file, skipping")
			continue
		}
		l.logger.Debug().Str("path", path).Int("count", len(vars)).Msg("Loaded env file")
		sources = append(sources, Source{Path: path, Vars: vars})
	}

	if l.exported {
		vars := parseEnviron(l.environ())
		l.logger.Debug().Int("count", len(vars)).Msg("Loaded exported environment")
		sources = append(sources, Source{Path: ExportedSource, Vars: vars})
	}

	return sources
}

// Pairs flattens sources into one ordered list suitable for variables.NewMap
func Pairs(sources []Source) []variables.Pair {
	var pairs []variables.Pair
	for _, s := range sources {
		pairs = append(pairs, s.Vars...)
	}
	return pairs
}

// findEnvFiles finds all environment variable files for rootPath
func (l *Loader) findEnvFiles(rootPath string) []string {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, name := range l.defaultFiles {
		path := resolvePath(rootPath, name)
		if isFile(path) {
			add(path)
		}
	}

	if l.autoDetect {
		for _, path := range l.detectEnvFiles(rootPath) {
			add(path)
		}
	}

	for _, name := range l.extraFiles {
		path := resolvePath(rootPath, name)
		if !isFile(path) {
			l.logger.Warn().Str("path", path).Msg("Env file does not exist, skipping")
			continue
		}
		// Explicit files keep their requested precedence even if auto-detected.
		if seen[path] {
			files = removePath(files, path)
			delete(seen, path)
		}
		add(path)
	}

	return files
}

// detectEnvFiles lists .env.* and .envrc files in rootPath in lexical order
func (l *Loader) detectEnvFiles(rootPath string) []string {
	entries, err := os.ReadDir(rootPath)
	if err != nil {
		// Can't read directory, nothing to detect
		return nil
	}

	var found []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch detectFileType(name) {
		case fileTypeEnvrc:
			found = append(found, filepath.Join(rootPath, name))
		case fileTypeEnv:
			if isDotEnvName(name) && !isExampleFile(name) {
				found = append(found, filepath.Join(rootPath, name))
			}
		}
	}
	return found
}

// isExampleFile reports template env files that hold example values, not real ones
func isExampleFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range []string{".example", ".sample", ".template", ".dist"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// parseEnviron splits KEY=VALUE entries of an environ slice
func parseEnviron(environ []string) []variables.Pair {
	pairs := make([]variables.Pair, 0, len(environ))
	for _, e := range environ {
		key, value, ok := strings.Cut(e, "=")
		if ok && key != "" {
			pairs = append(pairs, variables.Pair{Key: key, Value: value})
		}
	}
	return pairs
}

// sortedPairs converts a parsed map into pairs ordered by key
func sortedPairs(m map[string]string) []variables.Pair {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]variables.Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, variables.Pair{Key: k, Value: m[k]})
	}
	return pairs
}

func resolvePath(rootPath, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(rootPath, name)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func removePath(paths []string, target string) []string {
	out := paths[:0]
	for _, p := range paths {
		if p != target {
			out = append(out, p)
		}
	}
	return out
}
