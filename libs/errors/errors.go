// Package errors provides error tracing and annotation.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

type aerr struct {
	err         error
	trace       []string
	annotations []string
}

func (e aerr) Error() string {
	if len(e.annotations) == 0 {
		return e.err.Error()
	}
	return e.err.Error() + " (" + strings.Join(e.annotations, ", ") + ")"
}

func (e aerr) Unwrap() error {
	return e.err
}

// New returns an error that formats as the given text.
func New(msg string) error {
	return errors.New(msg)
}

// Errorf formats a new traced error.
func Errorf(format string, args ...interface{}) error {
	return aerr{
		err:   fmt.Errorf(format, args...),
		trace: []string{callerString(1)},
	}
}

// Trace adds the caller's location to the error's trace. A nil error
// stays nil so it is safe to wrap returns unconditionally.
func Trace(err error) error {
	if err == nil {
		return nil
	}
	e := wrap(err)
	e.trace = append(e.trace, callerString(1))
	return e
}

// Annotate adds context to an error. It can be used to attach more information that is useful for debugging.
func Annotate(err error, msg string) error {
	if err == nil {
		return nil
	}
	e := wrap(err)
	e.annotations = append(e.annotations, msg)
	return e
}

// Annotatef adds context to an error. It can be used to attach more information that is useful for debugging.
func Annotatef(err error, f string, v ...interface{}) error {
	if err == nil {
		return nil
	}
	e := wrap(err)
	e.annotations = append(e.annotations, fmt.Sprintf(f, v...))
	return e
}

// Annotations returns all annotations attached to an error.
func Annotations(err error) []string {
	var e aerr
	if errors.As(err, &e) {
		return e.annotations
	}
	return nil
}

// StackTrace returns the locations recorded by Trace, innermost first.
func StackTrace(err error) []string {
	var e aerr
	if errors.As(err, &e) {
		return e.trace
	}
	return nil
}

// Cause returns the underlying error if err was traced or annotated.
func Cause(err error) error {
	var e aerr
	if errors.As(err, &e) {
		return e.err
	}
	return err
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func wrap(err error) aerr {
	if e, ok := err.(aerr); ok {
		return e
	}
	return aerr{err: err}
}

func callerString(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	depth := 0
	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			depth++
			if depth == 2 {
				file = file[i+1:]
				break
			}
		}
	}
	return fmt.Sprintf("%s:%d", file, line)
}
