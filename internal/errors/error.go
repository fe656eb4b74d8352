package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"strings"
)

// Code identifies an error kind.
type Code string

const (
	CodeUnknown                 Code = "UnknownError"
	CodeInvalidPagefile         Code = "InvalidPagefile"
	CodeUnableToExtractMeta     Code = "UnableToExtractMeta"
	CodeMissingLayout           Code = "MissingLayout"
	CodeDuplicateLayoutAtPath   Code = "DuplicateLayoutAtPath"
	CodeDuplicateLayoutWithName Code = "DuplicateLayoutWithName"
	CodeLayoutCycle             Code = "LayoutCycle"
	CodeInvalidConfig           Code = "InvalidConfig"
)

// Category represents the stage an error belongs to.
type Category string

const (
	CategoryInternal   Category = "internal"
	CategoryExtraction Category = "extraction"
	CategoryValidation Category = "validation"
	CategoryResolution Category = "resolution"
	CategoryConfig     Category = "config"
)

// Location represents a source code location.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Error is a coded pagefiles error.
type Error struct {
	// Code is the error kind.
	Code Code

	// Category is the stage that produced the error.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// File is the pagefile the error is attributed to, if any.
	File string

	// Cause names the file that made bundling fail when it is not File
	// itself (an import of the pagefile, for example).
	Cause string

	// Reasons are the validation failures of an InvalidPagefile error.
	Reasons []string

	// Location is the source position reported by the bundler, if any.
	Location *Location

	// Context contains surrounding source code lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// ErrorCode returns the error code as a string.
func (e *Error) ErrorCode() string {
	return string(e.Code)
}

// SourceFile returns the file the error is attributed to.
func (e *Error) SourceFile() string {
	return e.File
}

// WithFile attributes the error to a source file.
func (e *Error) WithFile(file string) *Error {
	e.File = file
	return e
}

// WithLocation adds a source location to the error.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates an Error from a registered code.
func New(code Code) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:     code,
			Category: CategoryInternal,
			Message:  "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Unknown wraps an unexpected failure. The original message is kept.
func Unknown(err error) *Error {
	e := New(CodeUnknown)
	if err != nil {
		e.Message = "Unknown error: " + err.Error()
		e.Wrapped = err
	}
	return e
}

// InvalidPagefile reports a pagefile that failed validation.
func InvalidPagefile(file string, reasons []string) *Error {
	e := New(CodeInvalidPagefile).WithFile(file)
	e.Reasons = append([]string(nil), reasons...)
	e.Message = fmt.Sprintf("Invalid pagefile: %q", strings.Join(reasons, ", "))
	return e
}

// UnableToExtractMeta reports a sandbox failure for file. cause names the
// file responsible for a cascading bundling failure and may be empty.
func UnableToExtractMeta(file, cause string, err error) *Error {
	e := New(CodeUnableToExtractMeta).WithFile(file).Wrap(err)
	if cause != "" && cause != file {
		e.Cause = cause
		e.Message = fmt.Sprintf("Unable to extract meta from file (caused by %s)", cause)
	}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// MissingLayout reports an explicit layout reference that resolves to nothing.
func MissingLayout(name, file string) *Error {
	e := New(CodeMissingLayout).WithFile(file)
	e.Message = fmt.Sprintf("Layout %q not found", name)
	return e
}

// DuplicateLayoutAtPath reports two layouts claiming the same path.
func DuplicateLayoutAtPath(path, file string) *Error {
	e := New(CodeDuplicateLayoutAtPath).WithFile(file)
	e.Message = fmt.Sprintf("Duplicate layout at path %q", path)
	return e
}

// DuplicateLayoutWithName reports two layouts resolving to the same name.
func DuplicateLayoutWithName(name, file string) *Error {
	e := New(CodeDuplicateLayoutWithName).WithFile(file)
	e.Message = fmt.Sprintf("Duplicate layout with name %q", name)
	return e
}

// LayoutCycle reports explicit layout references that form a loop.
// chain lists the resolved names along the loop.
func LayoutCycle(file string, chain []string) *Error {
	e := New(CodeLayoutCycle).WithFile(file)
	e.Message = fmt.Sprintf("Layout cycle: %s", strings.Join(chain, " -> "))
	return e
}

// Newf creates an Error with a formatted message and no registered template.
func Newf(code Code, category Category, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError returns err as an *Error, wrapping foreign errors in UnknownError.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if stderrors.As(err, &pe) {
		return pe
	}
	return Unknown(err)
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code Code) bool {
	var pe *Error
	return stderrors.As(err, &pe) && pe.Code == code
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Structural reports whether err is a resolution-level error that cannot be
// attributed to a single file's subtree.
func Structural(err error) bool {
	var pe *Error
	if !stderrors.As(err, &pe) {
		return false
	}
	switch pe.Code {
	case CodeMissingLayout, CodeDuplicateLayoutAtPath, CodeDuplicateLayoutWithName, CodeLayoutCycle:
		return true
	}
	return false
}
