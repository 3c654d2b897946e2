// Package scanner expands a newline-separated list of literal paths and glob
// patterns into the concrete set of files an injection run will process.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/jenian/envinject/internal/errors"
	"github.com/jenian/envinject/internal/logging"
)

var lineSplit = regexp.MustCompile(`\r?\n`)

// Scanner handles file discovery and filtering
type Scanner struct {
	fs            afero.Fs
	excludeDirs   map[string]bool // Directory names skipped while expanding globs
	caseSensitive bool            // Match globs case-sensitively
	logger        zerolog.Logger
}

// NewScanner creates a new scanner with default exclusions.
// Glob entries match case-insensitively unless SetCaseSensitive(true) is called.
func NewScanner() *Scanner {
	return &Scanner{
		fs:          afero.NewOsFs(),
		excludeDirs: map[string]bool{
			".git": true,
			".hg":  true,
			".svn": true,
		},
		logger: zerolog.Nop(),
	}
}

// SetFS sets the filesystem that entries are resolved against
func (s *Scanner) SetFS(fsys afero.Fs) {
	s.fs = fsys
}

// SetCaseSensitive toggles case-sensitive glob matching
func (s *Scanner) SetCaseSensitive(enabled bool) {
	s.caseSensitive = enabled
}

// SetLogger sets the logger used for skip notices
func (s *Scanner) SetLogger(logger zerolog.Logger) {
	s.logger = logging.Component(logger, "scanner")
}

// AddExcludeDirs adds directory names that glob expansion never descends into
func (s *Scanner) AddExcludeDirs(dirs []string) {
	for _, dir := range dirs {
		dir = strings.TrimSpace(strings.Trim(dir, `/\`))
		if dir != "" {
			s.excludeDirs[dir] = true
		}
	}
}

// SplitEntries splits a raw path list on line breaks, trims every entry and
// drops blank ones
func SplitEntries(raw string) []string {
	var entries []string
	for _, line := range lineSplit.Split(raw, -1) {
		line = strings.TrimSpace(line)
		if line != "" {
			entries = append(entries, line)
		}
	}
	return entries
}

// isGlob reports whether an entry contains wildcard syntax
func isGlob(entry string) bool {
	return strings.ContainsAny(entry, "*?[{")
}

// isBinaryFile checks if a file is likely binary
func isBinaryFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	binaryExts := map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".pdf": true, ".zip": true, ".tar": true, ".gz": true,
		".exe": true, ".dll": true, ".so": true, ".dylib": true,
		".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
		".ico": true, ".mp4": true, ".mp3": true, ".jar": true,
		".class": true, ".war": true,
	}
	return binaryExts[ext]
}

// Resolve returns the absolute paths of existing files under workDir that
// match at least one entry of rawList. Results are deduplicated and keep
// entry order; files matched by one glob appear in lexical walk order.
// An entry naming an existing file is taken literally even when it contains
// glob characters, e.g. app[1].txt. Entries that match nothing are skipped,
// not reported as errors.
func (s *Scanner) Resolve(workDir string, rawList string) ([]string, error) {
	root, err := s.checkWorkingDirectory(workDir)
	if err != nil {
		return nil, err
	}
	realRoot := s.realPath(root)

	var files []string
	seen := make(map[string]bool)
	// The tree is walked at most once, on the first glob entry.
	var tree []string
	walked := false

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, entry := range SplitEntries(rawList) {
		if !isGlob(entry) || s.isLiteralFile(root, realRoot, entry) {
			if path, ok := s.resolveLiteral(root, realRoot, entry); ok {
				add(path)
			}
			continue
		}

		glob, ok := s.normalizeGlob(root, entry)
		if !ok {
			continue
		}
		if !doublestar.ValidatePattern(glob) {
			return nil, &errors.InvalidPatternError{Pattern: entry, Reason: "malformed glob"}
		}

		if !walked {
			tree = s.walk(root, realRoot)
			walked = true
		}

		matched := 0
		for _, rel := range tree {
			if s.match(glob, rel) {
				add(filepath.Join(root, filepath.FromSlash(rel)))
				matched++
			}
		}
		if matched == 0 {
			s.logger.Info().Str("entry", entry).Msg("No files match path entry")
		}
	}

	return files, nil
}

// checkWorkingDirectory makes workDir absolute and verifies it is a directory
func (s *Scanner) checkWorkingDirectory(workDir string) (string, error) {
	root, err := filepath.Abs(workDir)
	if err != nil {
		return "", &errors.InvalidWorkingDirectoryError{Path: workDir, Wrapped: err}
	}
	info, err := s.fs.Stat(root)
	if err != nil {
		return "", &errors.InvalidWorkingDirectoryError{Path: root, Wrapped: err}
	}
	if !info.IsDir() {
		return "", &errors.InvalidWorkingDirectoryError{Path: root}
	}
	return root, nil
}

// isLiteralFile reports whether entry names an existing regular file as written
func (s *Scanner) isLiteralFile(root, realRoot, entry string) bool {
	path := filepath.Join(root, entry)
	if !within(root, path) {
		return false
	}
	info, err := s.fs.Stat(path)
	return err == nil && info.Mode().IsRegular() && s.insideRoot(realRoot, path)
}

// resolveLiteral joins entry to root and checks that it names a regular file
// inside root. Absolute entries are joined too, so they stay under root.
func (s *Scanner) resolveLiteral(root, realRoot, entry string) (string, bool) {
	path := filepath.Join(root, entry)
	if !within(root, path) {
		s.logger.Warn().Str("entry", entry).Msg("Path entry is outside the working directory, skipping")
		return "", false
	}

	info, err := s.fs.Stat(path)
	if err != nil {
		s.logger.Info().Str("path", path).Msg("File does not exist, skipping")
		return "", false
	}
	if !info.Mode().IsRegular() {
		s.logger.Info().Str("path", path).Msg("Not a regular file, skipping")
		return "", false
	}
	if !s.insideRoot(realRoot, path) {
		s.logger.Warn().Str("path", path).Msg("Symlink points outside the working directory, skipping")
		return "", false
	}
	return path, true
}

// normalizeGlob turns an entry into a slash-separated pattern relative to root
func (s *Scanner) normalizeGlob(root, entry string) (string, bool) {
	glob := entry
	if filepath.IsAbs(glob) {
		rel, err := filepath.Rel(root, glob)
		if err != nil || !within(root, glob) {
			s.logger.Warn().Str("entry", entry).Msg("Path entry is outside the working directory, skipping")
			return "", false
		}
		glob = rel
	}

	glob = filepath.ToSlash(glob)
	for strings.HasPrefix(glob, "./") {
		glob = strings.TrimPrefix(glob, "./")
	}
	if strings.HasPrefix(glob, "../") {
		s.logger.Warn().Str("entry", entry).Msg("Path entry is outside the working directory, skipping")
		return "", false
	}
	return glob, true
}

func (s *Scanner) match(glob, rel string) bool {
	if !s.caseSensitive {
		glob = strings.ToLower(glob)
		rel = strings.ToLower(rel)
	}
	// Pattern was validated before matching, so the error is always nil.
	ok, _ := doublestar.Match(glob, rel)
	return ok
}

// walk lists every candidate file under root as a slash-separated relative path
func (s *Scanner) walk(root, realRoot string) []string {
	var rels []string

	_ = afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Cannot read path, skipping")
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if path != root && s.excludeDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !s.isRegular(path, info) || isBinaryFile(path) {
			return nil
		}
		if info.Mode()&fs.ModeSymlink != 0 && !s.insideRoot(realRoot, path) {
			s.logger.Warn().Str("path", path).Msg("Symlink points outside the working directory, skipping")
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})

	return rels
}

// isRegular accepts regular files and symlinks that point at one
func (s *Scanner) isRegular(path string, info os.FileInfo) bool {
	if info.Mode().IsRegular() {
		return true
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return false
	}
	target, err := s.fs.Stat(path)
	return err == nil && target.Mode().IsRegular()
}

// realPath resolves symlinks on the OS filesystem. Other filesystems have
// no links to follow, so paths are returned unchanged.
func (s *Scanner) realPath(path string) string {
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return path
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

// insideRoot reports whether path, with symlinks resolved, stays under realRoot
func (s *Scanner) insideRoot(realRoot, path string) bool {
	return within(realRoot, s.realPath(path))
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
