// Package errors defines the failure taxonomy of an injection run. Every
// error carries a stable ErrorCode so hosts and tests can classify failures
// without matching on message text.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

const (
	ErrUnknown                 ErrorCode = "UNKNOWN"
	ErrInvalidPattern          ErrorCode = "INVALID_PATTERN"
	ErrInvalidWorkingDirectory ErrorCode = "INVALID_WORKING_DIRECTORY"
	ErrFileRead                ErrorCode = "FILE_READ"
	ErrMissingVariable         ErrorCode = "MISSING_VARIABLE"
	ErrFileWrite               ErrorCode = "FILE_WRITE"
	ErrConfigLoad              ErrorCode = "CONFIG_LOAD"
)

// coded is implemented by every error type in this package
type coded interface {
	error
	Code() ErrorCode
	Details() map[string]interface{}
}

// InvalidPatternError reports a placeholder regex or path glob that cannot be used
type InvalidPatternError struct {
	Pattern string
	Reason  string
	Wrapped error
}

func (e *InvalidPatternError) Error() string {
	msg := fmt.Sprintf("invalid pattern %q", e.Pattern)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

func (e *InvalidPatternError) Unwrap() error   { return e.Wrapped }
func (e *InvalidPatternError) Code() ErrorCode { return ErrInvalidPattern }

func (e *InvalidPatternError) Details() map[string]interface{} {
	return map[string]interface{}{"pattern": e.Pattern}
}

// InvalidWorkingDirectoryError reports a working directory that is missing or not a directory
type InvalidWorkingDirectoryError struct {
	Path    string
	Wrapped error
}

func (e *InvalidWorkingDirectoryError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("invalid working directory %s: %v", e.Path, e.Wrapped)
	}
	return fmt.Sprintf("invalid working directory %s: not a directory", e.Path)
}

func (e *InvalidWorkingDirectoryError) Unwrap() error   { return e.Wrapped }
func (e *InvalidWorkingDirectoryError) Code() ErrorCode { return ErrInvalidWorkingDirectory }

func (e *InvalidWorkingDirectoryError) Details() map[string]interface{} {
	return map[string]interface{}{"path": e.Path}
}

// FileReadError reports a target file whose content could not be read
type FileReadError struct {
	Path    string
	Wrapped error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("cannot get file content from %s: %v", e.Path, e.Wrapped)
}

func (e *FileReadError) Unwrap() error   { return e.Wrapped }
func (e *FileReadError) Code() ErrorCode { return ErrFileRead }

func (e *FileReadError) Details() map[string]interface{} {
	return map[string]interface{}{"path": e.Path}
}

// MissingVariableError reports a placeholder whose variable is not in the variable map
type MissingVariableError struct {
	File            string
	Variable        string
	CaseInsensitive bool
}

func (e *MissingVariableError) Error() string {
	mode := "case sensitive"
	if e.CaseInsensitive {
		mode = "case-insensitive"
	}
	return fmt.Sprintf("file '%s' requires a variable named '%s' (%s), but that one cannot be found in the variable map",
		e.File, e.Variable, mode)
}

func (e *MissingVariableError) Unwrap() error   { return nil }
func (e *MissingVariableError) Code() ErrorCode { return ErrMissingVariable }

func (e *MissingVariableError) Details() map[string]interface{} {
	return map[string]interface{}{
		"path":             e.File,
		"variable":         e.Variable,
		"case_insensitive": e.CaseInsensitive,
	}
}

// FileWriteError reports a target file that could not be written back
type FileWriteError struct {
	Path    string
	Wrapped error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("write back file content to %s: %v", e.Path, e.Wrapped)
}

func (e *FileWriteError) Unwrap() error   { return e.Wrapped }
func (e *FileWriteError) Code() ErrorCode { return ErrFileWrite }

func (e *FileWriteError) Details() map[string]interface{} {
	return map[string]interface{}{"path": e.Path}
}

// ConfigError reports a configuration source that could not be loaded or decoded
type ConfigError struct {
	Source  string
	Wrapped error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("failed to load configuration from %s: %v", e.Source, e.Wrapped)
}

func (e *ConfigError) Unwrap() error   { return e.Wrapped }
func (e *ConfigError) Code() ErrorCode { return ErrConfigLoad }

func (e *ConfigError) Details() map[string]interface{} {
	return map[string]interface{}{"source": e.Source}
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// GetErrorCode returns the error code from an error, or ErrUnknown if it is not one of ours
func GetErrorCode(err error) ErrorCode {
	var c coded
	if stderrors.As(err, &c) {
		return c.Code()
	}
	return ErrUnknown
}

// GetErrorDetails returns the structured details of an error, or nil if it is not one of ours
func GetErrorDetails(err error) map[string]interface{} {
	var c coded
	if stderrors.As(err, &c) {
		return c.Details()
	}
	return nil
}
