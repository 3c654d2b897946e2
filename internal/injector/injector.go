// Package injector runs a variable injection: it resolves the target files,
// stages every file's substitutions, then rewrites the files in place.
//
// Staging completes for all files before the first write, so a missing
// variable in any file stops the run with nothing written. Write failures
// stop the run as well, but files written before the failure stay written.
package injector

import (
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/jenian/envinject/internal/errors"
	"github.com/jenian/envinject/internal/logging"
	"github.com/jenian/envinject/internal/pattern"
	"github.com/jenian/envinject/internal/scanner"
	"github.com/jenian/envinject/internal/substitute"
	"github.com/jenian/envinject/internal/variables"
)

// Options are the plain inputs of one run
type Options struct {
	WorkDir            string           // Absolute working directory
	Files              string           // Newline-separated path entries, literal or glob
	Pattern            string           // Placeholder regex; pattern.Default when empty
	CaseInsensitive    bool             // Fold placeholder names and variable keys
	IgnoreMissing      bool             // Leave unresolved placeholders untouched
	IgnoreNames        []string         // Variables that may be missing regardless of IgnoreMissing
	CaseSensitivePaths bool             // Match glob entries case-sensitively
	ExcludeDirs        []string         // Directory names skipped by glob expansion
	Variables          []variables.Pair // Ordered variable source; later pairs win
	DryRun             bool             // Compute everything, write nothing
	Logger             *zerolog.Logger  // Run log; nil discards
	FS                 FS               // Target file access; nil uses the OS
}

// FileResult describes what happened to one resolved file
type FileResult struct {
	Path         string   `json:"path"`
	Placeholders int      `json:"placeholders"`      // Occurrences found, duplicates included
	Replaced     int      `json:"replaced"`          // Occurrences rewritten
	Skipped      []string `json:"skipped,omitempty"` // Unresolved names left verbatim
	Changed      bool     `json:"changed"`
}

// Result is the outcome of a run. On failure it holds whatever was done
// before the error, which matters for write failures.
type Result struct {
	Files   []FileResult `json:"files"`
	Written []string     `json:"written"`
	DryRun  bool         `json:"dry_run"`
}

// fileTask is a staged file: its content and resolved substitutions
type fileTask struct {
	path     string
	original string
	perm     fs.FileMode
	subs     *variables.Substitutions
	result   FileResult
}

// Injector executes runs configured by Options
type Injector struct {
	opts   Options
	fs     FS
	base   zerolog.Logger // Untagged, handed to the scanner
	logger zerolog.Logger
}

// New creates an injector, applying defaults for empty options
func New(opts Options) *Injector {
	if opts.Pattern == "" {
		opts.Pattern = pattern.Default
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = NewOS()
	}

	return &Injector{
		opts:   opts,
		fs:     fsys,
		base:   logger,
		logger: logging.Component(logger, "injector"),
	}
}

// Run performs the injection. The returned Result is never nil.
func (inj *Injector) Run() (*Result, error) {
	opts := inj.opts
	log := inj.logger
	result := &Result{DryRun: opts.DryRun}

	p, err := pattern.Compile(opts.Pattern, opts.CaseInsensitive)
	if err != nil {
		return result, err
	}
	vm := variables.NewMap(opts.Variables, opts.CaseInsensitive)

	log.Info().
		Str("pattern", p.String()).
		Bool("ignoreCase", opts.CaseInsensitive).
		Bool("ignoreMissing", opts.IgnoreMissing).
		Int("variables", vm.Len()).
		Bool("dryRun", opts.DryRun).
		Msg("Starting injection")
	log.Debug().Strs("keys", vm.Keys()).Msg("Available variables")

	paths, err := inj.resolveFiles()
	if err != nil {
		return result, err
	}
	log.Info().Int("count", len(paths)).Msg("Resolved files")

	tasks, err := inj.stage(paths, p, vm)
	if err != nil {
		return result, err
	}

	for i := range tasks {
		task := &tasks[i]
		written, err := inj.write(task)
		result.Files = append(result.Files, task.result)
		if written {
			result.Written = append(result.Written, task.path)
		}
		if err != nil {
			return result, err
		}
	}

	log.Info().
		Int("files", len(tasks)).
		Int("written", len(result.Written)).
		Msg("Injection completed")
	return result, nil
}

func (inj *Injector) resolveFiles() ([]string, error) {
	s := scanner.NewScanner()
	s.SetCaseSensitive(inj.opts.CaseSensitivePaths)
	s.AddExcludeDirs(inj.opts.ExcludeDirs)
	s.SetLogger(inj.base)
	s.SetFS(inj.fs.Fs())
	return s.Resolve(inj.opts.WorkDir, inj.opts.Files)
}

// stage reads every file and resolves its placeholders. It fails fast on
// the first read error or missing variable.
func (inj *Injector) stage(paths []string, p *pattern.Pattern, vm *variables.Map) ([]fileTask, error) {
	log := inj.logger
	policy := variables.Policy{
		IgnoreMissing: inj.opts.IgnoreMissing,
		IgnoreNames:   inj.opts.IgnoreNames,
	}

	tasks := make([]fileTask, 0, len(paths))
	for _, path := range paths {
		log.Info().Str("path", path).Msg("File to be injected variables")

		info, err := inj.fs.Stat(path)
		if err != nil {
			return nil, &errors.FileReadError{Path: path, Wrapped: err}
		}
		data, err := inj.fs.ReadFile(path)
		if err != nil {
			return nil, &errors.FileReadError{Path: path, Wrapped: err}
		}
		text := string(data)

		occurrences := p.Extract(text)
		log.Info().Str("path", path).Int("count", len(occurrences)).Msg("Found placeholders")
		for _, occ := range occurrences {
			log.Debug().
				Str("token", occ.RawToken).
				Str("variable", occ.VariableName).
				Int("offset", occ.Offset).
				Msg("Placeholder")
		}

		subs, skipped, err := variables.Resolve(path, occurrences, vm, policy)
		if err != nil {
			return nil, err
		}
		for _, name := range skipped {
			log.Warn().Str("path", path).Str("variable", name).Msg("Variable not found, leaving placeholder untouched")
		}

		tasks = append(tasks, fileTask{
			path:     path,
			original: text,
			perm:     info.Mode().Perm(),
			subs:     subs,
			result: FileResult{
				Path:         path,
				Placeholders: len(occurrences),
				Skipped:      skipped,
			},
		})
	}
	return tasks, nil
}

// write substitutes a staged file and writes it back when its content changed.
// It reports whether the file was written.
func (inj *Injector) write(task *fileTask) (bool, error) {
	log := inj.logger.With().Str("path", task.path).Logger()

	content, replaced := substitute.Apply(task.original, task.subs, inj.opts.CaseInsensitive)
	task.result.Replaced = replaced
	task.result.Changed = content != task.original

	if !task.result.Changed {
		log.Debug().Msg("No changes, not rewriting")
		return false, nil
	}
	if inj.opts.DryRun {
		log.Info().Int("replaced", replaced).Msg("Dry run, not writing")
		return false, nil
	}

	if err := inj.fs.WriteFile(task.path, []byte(content), task.perm); err != nil {
		return false, &errors.FileWriteError{Path: task.path, Wrapped: err}
	}
	log.Info().Int("replaced", replaced).Msg("Wrote file")
	return true, nil
}
