// Package errors provides standardized error types and helpers for the specmark codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a biblio entry or resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicateID indicates an id was defined more than once
	ErrDuplicateID = errors.New("duplicate id")
	// ErrAmbiguous indicates a lookup matched more than one candidate
	ErrAmbiguous = errors.New("ambiguous")
	// ErrMalformed indicates structurally invalid markup that cannot be recovered
	ErrMalformed = errors.New("malformed")
	// ErrCancelled indicates the compilation was cancelled
	ErrCancelled = errors.New("cancelled")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")
)

// DuplicateIDError reports a second definition of an already-defined id.
type DuplicateIDError struct {
	ID   string // the colliding id
	Kind string // entry kind of the second definition
	Err  error  // underlying error, if any
}

func (e *DuplicateIDError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("duplicate id %q (second definition is a %s)", e.ID, e.Kind)
	}
	return fmt.Sprintf("duplicate id %q", e.ID)
}

func (e *DuplicateIDError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrDuplicateID
}

// LookupError reports a failed or ambiguous bibliography lookup.
type LookupError struct {
	Namespace string // namespace the lookup started in
	Key       string // lookup key or explicit id
	Matches   int    // number of candidates found
	Err       error  // underlying error, if any
}

func (e *LookupError) Error() string {
	if e.Matches > 1 {
		return fmt.Sprintf("ambiguous reference %q in namespace %q: %d candidates", e.Key, e.Namespace, e.Matches)
	}
	return fmt.Sprintf("could not find a match for %q in namespace %q", e.Key, e.Namespace)
}

func (e *LookupError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Matches > 1 {
		return ErrAmbiguous
	}
	return ErrNotFound
}

// MalformedNodeError reports markup that violates a structural invariant.
// These abort compilation (authoring/programmer error).
type MalformedNodeError struct {
	Kind    string // element kind of the offending node
	File    string // source file, if known
	Message string // what is wrong
}

func (e *MalformedNodeError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("malformed <%s> in %s: %s", e.Kind, e.File, e.Message)
	}
	return fmt.Sprintf("malformed <%s>: %s", e.Kind, e.Message)
}

func (e *MalformedNodeError) Unwrap() error { return ErrMalformed }

// LoadError reports a failure loading an external resource (import fragment,
// external biblio table).
type LoadError struct {
	Path string // path or location of the resource
	Op   string // operation being performed ("read", "parse", "open")
	Err  error  // underlying error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is reports whether err matches target, following wrapped chains.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain matching target.
func As(err error, target any) bool { return errors.As(err, target) }

// New returns an error with the given text.
func New(text string) error { return errors.New(text) }

// Errorf formats an error, supporting %w wrapping.
func Errorf(format string, args ...any) error { return fmt.Errorf(format, args...) }
