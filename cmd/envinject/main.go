package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/jenian/envinject/internal/config"
	"github.com/jenian/envinject/internal/envfile"
	"github.com/jenian/envinject/internal/injector"
	"github.com/jenian/envinject/internal/logging"
	"github.com/jenian/envinject/internal/output"
)

// Version is set at build time via -ldflags
var Version = "dev"

// reportedError is a failure that was already shown to the user
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:           "envinject",
		Short:         "Inject variables into placeholder tokens of text files",
		Long:          "A CLI tool that replaces ${NAME} style placeholders in files with values from env files, the environment and flags.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Inject variables into the configured files",
		Long:  "Resolve the configured files, replace every placeholder with its variable value and write the files back.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInject(cmd, verbosity)
		},
	}
	config.RegisterFlags(runCmd.Flags())

	initConfigCmd := &cobra.Command{
		Use:   "init-config",
		Short: "Create a " + config.FileName + " file",
		Long:  "Creates a " + config.FileName + " file with default configuration in the working directory.",
		Args:  cobra.NoArgs,
		RunE:  runInitConfig,
	}
	initConfigCmd.Flags().StringP("dir", "C", ".", "Directory to create the config file in")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "Print the version number of envinject",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(versionCmd)
	return rootCmd
}

func runInject(cmd *cobra.Command, verbosity int) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	logger := logging.Setup(stderr, verbosity).With().Str("run_id", ulid.Make().String()).Logger()
	done := logging.LogOperationStart(logger, "run")
	defer done()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, path := range []string{cfg.GlobalConfigFile, cfg.ConfigFile} {
		if path != "" {
			logger.Info().Str("path", path).Msg("Loaded config file")
		}
	}

	loader := envfile.NewLoader()
	loader.SetLogger(logger)
	if cfg.NoEnvFiles {
		loader.SetAutoDetect(false)
		loader.SetDefaultFiles(nil)
	}
	for _, path := range cfg.EnvFiles {
		loader.AddEnvFile(path)
	}
	loader.SetIncludeExported(!cfg.NoExportedEnv)

	sources := loader.Load(cfg.WorkDir)
	for _, src := range sources {
		logger.Info().Str("source", src.Path).Int("count", len(src.Vars)).Msg("Variable source")
	}
	// --var flags have the highest precedence
	vars := append(envfile.Pairs(sources), cfg.Vars...)

	result, runErr := injector.New(injector.Options{
		WorkDir:            cfg.WorkDir,
		Files:              cfg.FileList(),
		Pattern:            cfg.Pattern,
		CaseInsensitive:    cfg.IgnoreCase,
		IgnoreMissing:      cfg.IgnoreMissing,
		IgnoreNames:        cfg.Ignores.Missing,
		CaseSensitivePaths: cfg.CaseSensitivePaths,
		ExcludeDirs:        cfg.Ignores.Folders,
		Variables:          vars,
		DryRun:             cfg.DryRun,
		Logger:             &logger,
	}).Run()

	formatter := output.NewFormatter(stdout)
	formatter.SetWorkDir(cfg.WorkDir)
	if err := formatter.Format(result, runErr, cfg.JSON, cfg.Silent); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if runErr != nil {
		if !cfg.Silent {
			fmt.Fprint(stderr, output.FormatError(runErr))
		}
		return &reportedError{err: runErr}
	}
	return nil
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}

	path := filepath.Join(dir, config.FileName)
	if err := config.WriteDefault(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	return nil
}

// execute runs the CLI and returns the process exit code
func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if !stderrors.As(err, &reported) {
			fmt.Fprint(stderr, output.FormatError(err))
		}
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
