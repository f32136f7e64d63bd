// Package ports defines interfaces (contracts) for external dependencies.
// These enable dependency injection and testability via mock implementations.
package ports

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
)

// Error kinds returned by Destination implementations.
// Match them with errors.Is; the concrete error is a *PathError.
var (
	ErrNotFound   = errors.New("not found")
	ErrDecode     = errors.New("content is not valid UTF-8")
	ErrFormat     = errors.New("not a valid zip archive")
	ErrPermission = errors.New("permission denied")
)

// PathsPair identifies one logical file inside a root.
// Root is a directory or an archive file; Internal is slash-separated and
// relative to Root.
type PathsPair struct {
	Root     string
	Internal string
}

// String returns "root!internal", the notation used in CLI output.
func (p PathsPair) String() string {
	return p.Root + "!" + p.Internal
}

// Kind tells which representation backs a root.
type Kind int

const (
	KindDirectory Kind = iota
	KindArchive
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindArchive:
		return "archive"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Destination abstracts a collection of named text files.
// Production code uses the dirdest and zipdest adapters; tests use MockDestination.
type Destination interface {
	// IterPaths lazily yields the relative paths found under root.
	// Ordering is whatever the representation yields natively.
	// A failure is yielded once as the error and ends the sequence.
	IterPaths(root string) iter.Seq2[string, error]

	// GetFileText returns the full text of the identified file.
	GetFileText(pp PathsPair) (string, error)

	// WriteBack replaces the content of the identified file, creating it
	// if it does not exist yet.
	WriteBack(pp PathsPair, text string) error
}

// PathError records a failed Destination operation.
// It unwraps to both its Kind and the underlying cause.
type PathError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewPathError builds a *PathError with an explicit kind.
func NewPathError(op, path string, kind, err error) *PathError {
	return &PathError{Op: op, Path: path, Kind: kind, Err: err}
}

// WrapFSError classifies a filesystem error into one of the error kinds.
// Errors that are neither "not exist" nor "permission" are returned wrapped
// with op and path but without a kind. nil stays nil.
func WrapFSError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NewPathError(op, path, ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return NewPathError(op, path, ErrPermission, err)
	default:
		return fmt.Errorf("%s %s: %w", op, path, err)
	}
}
