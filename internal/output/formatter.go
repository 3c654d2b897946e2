package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/jenian/envinject/internal/errors"
	"github.com/jenian/envinject/internal/injector"
)

var (
	// Color support detection
	colorEnabled = initColorSupport()
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// initColorSupport initializes color support for the terminal
func initColorSupport() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}

	// On Windows, enable ANSI escape sequences (handled in formatter_windows.go)
	return enableANSI()
}

// JSONOutput represents the JSON report
type JSONOutput struct {
	Files   []injector.FileResult  `json:"files"`
	Written []string               `json:"written"`
	DryRun  bool                   `json:"dry_run"`
	Error   string                 `json:"error,omitempty"`
	Code    errors.ErrorCode       `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Formatter writes run reports
type Formatter struct {
	w       io.Writer
	color   bool
	workDir string
}

// NewFormatter creates a formatter writing to w. Colors are used only when w
// is stdout and stdout is a color-capable terminal.
func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{
		w:     w,
		color: w == os.Stdout && colorEnabled,
	}
}

// SetColor forces colors on or off
func (f *Formatter) SetColor(enabled bool) {
	f.color = enabled
}

// SetWorkDir makes human-readable paths relative to dir
func (f *Formatter) SetWorkDir(dir string) {
	f.workDir = dir
}

// getColor returns the color code if colors are enabled, empty string otherwise
func (f *Formatter) getColor(code string) string {
	if f.color {
		return code
	}
	return ""
}

// Format writes the outcome of a run. runErr is the error returned by the
// run, if any; it is reported as part of the outcome.
func (f *Formatter) Format(result *injector.Result, runErr error, jsonOutput bool, silent bool) error {
	if silent {
		// In silent mode, only return exit code (handled by caller)
		return nil
	}
	if result == nil {
		result = &injector.Result{}
	}

	if jsonOutput {
		return f.formatJSON(result, runErr)
	}
	return f.formatHumanReadable(result, runErr)
}

func (f *Formatter) formatJSON(result *injector.Result, runErr error) error {
	output := JSONOutput{
		Files:   result.Files,
		Written: result.Written,
		DryRun:  result.DryRun,
	}
	if output.Files == nil {
		output.Files = []injector.FileResult{}
	}
	if output.Written == nil {
		output.Written = []string{}
	}
	if runErr != nil {
		output.Error = runErr.Error()
		output.Code = errors.GetErrorCode(runErr)
		output.Details = errors.GetErrorDetails(runErr)
	}

	encoder := json.NewEncoder(f.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (f *Formatter) formatHumanReadable(result *injector.Result, runErr error) error {
	var b strings.Builder

	if len(result.Files) > 0 {
		fmt.Fprintf(&b, "%s%sFiles:%s\n\n", f.getColor(colorBold), f.getColor(colorCyan), f.getColor(colorReset))
		for _, file := range result.Files {
			f.writeFile(&b, file, result.DryRun)
		}
		b.WriteString("\n")
	}

	if runErr != nil {
		fmt.Fprintf(&b, "%s%s✗ Injection failed:%s %s\n", f.getColor(colorBold), f.getColor(colorRed), f.getColor(colorReset), runErr)
		if len(result.Written) > 0 {
			fmt.Fprintf(&b, "%s%d file(s) were written before the failure%s\n", f.getColor(colorGray), len(result.Written), f.getColor(colorReset))
		}
	} else {
		switch {
		case result.DryRun:
			changed := 0
			for _, file := range result.Files {
				if file.Changed {
					changed++
				}
			}
			fmt.Fprintf(&b, "%s%s✓ Dry run: %d of %d file(s) would change.%s\n", f.getColor(colorGreen), f.getColor(colorBold), changed, len(result.Files), f.getColor(colorReset))
		case len(result.Files) == 0:
			fmt.Fprintf(&b, "%s%s✓ No files matched, nothing to inject.%s\n", f.getColor(colorYellow), f.getColor(colorBold), f.getColor(colorReset))
		default:
			fmt.Fprintf(&b, "%s%s✓ Injected variables into %d of %d file(s).%s\n", f.getColor(colorGreen), f.getColor(colorBold), len(result.Written), len(result.Files), f.getColor(colorReset))
		}
	}

	_, err := io.WriteString(f.w, b.String())
	return err
}

func (f *Formatter) writeFile(b *strings.Builder, file injector.FileResult, dryRun bool) {
	status := "unchanged"
	statusColor := colorGray
	if file.Changed {
		status = "written"
		if dryRun {
			status = "would change"
		}
		statusColor = colorGreen
	}

	fmt.Fprintf(b, "  %s%s%s %s%s%s %s(%d/%d placeholders replaced)%s\n",
		f.getColor(colorCyan), f.displayPath(file.Path), f.getColor(colorReset),
		f.getColor(statusColor), status, f.getColor(colorReset),
		f.getColor(colorGray), file.Replaced, file.Placeholders, f.getColor(colorReset))
	for _, name := range file.Skipped {
		fmt.Fprintf(b, "    %sleft untouched:%s %s%s%s\n", f.getColor(colorGray), f.getColor(colorReset), f.getColor(colorYellow), name, f.getColor(colorReset))
	}
}

func (f *Formatter) displayPath(path string) string {
	if f.workDir == "" {
		return path
	}
	rel, err := filepath.Rel(f.workDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

// FormatError formats an error message
func FormatError(err error) string {
	return fmt.Sprintf("Error: %s\n", err)
}
