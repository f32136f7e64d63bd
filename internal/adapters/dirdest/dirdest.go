// Package dirdest provides a Destination adapter for extracted directory trees.
package dirdest

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/jmcdonald/unpin/internal/ports"
	"github.com/spf13/afero"
)

// DirDestination implements ports.Destination over a directory tree.
type DirDestination struct {
	fs afero.Fs
}

// New creates a new DirDestination adapter backed by fsys.
func New(fsys afero.Fs) *DirDestination {
	return &DirDestination{fs: fsys}
}

// IterPaths walks root depth-first and yields every leaf relative to root.
// Directories themselves are never yielded. Symlinked directories are
// walked as if they were real ones.
func (d *DirDestination) IterPaths(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		d.walk(root, root, yield)
	}
}

// walk reports whether iteration should continue.
func (d *DirDestination) walk(root, dir string, yield func(string, error) bool) bool {
	infos, err := afero.ReadDir(d.fs, dir)
	if err != nil {
		yield("", ports.WrapFSError("list", dir, err))
		return false
	}
	for _, info := range infos {
		full := filepath.Join(dir, info.Name())
		if info.Mode()&os.ModeSymlink != 0 {
			// Follow links; a dangling one is yielded as a leaf.
			if target, err := d.fs.Stat(full); err == nil {
				info = target
			}
		}
		if info.IsDir() {
			if !d.walk(root, full, yield) {
				return false
			}
			continue
		}
		rel, err := filepath.Rel(root, full)
		if err != nil {
			yield("", err)
			return false
		}
		if !yield(filepath.ToSlash(rel), nil) {
			return false
		}
	}
	return true
}

// GetFileText reads root/internal as UTF-8 text.
func (d *DirDestination) GetFileText(pp ports.PathsPair) (string, error) {
	path := resolve(pp)
	data, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return "", ports.WrapFSError("read", path, err)
	}
	if !utf8.Valid(data) {
		return "", ports.NewPathError("read", path, ports.ErrDecode, nil)
	}
	return string(data), nil
}

// WriteBack overwrites root/internal with text.
// Missing parent directories are an error; they are never created.
func (d *DirDestination) WriteBack(pp ports.PathsPair, text string) error {
	path := resolve(pp)
	parent := filepath.Dir(path)
	info, err := d.fs.Stat(parent)
	if err != nil {
		return ports.WrapFSError("write", path, err)
	}
	if !info.IsDir() {
		return ports.NewPathError("write", path, ports.ErrNotFound, fmt.Errorf("parent %s is not a directory", parent))
	}
	if err := afero.WriteFile(d.fs, path, []byte(text), os.FileMode(0o644)); err != nil {
		return ports.WrapFSError("write", path, err)
	}
	return nil
}

func resolve(pp ports.PathsPair) string {
	return filepath.Join(pp.Root, filepath.FromSlash(pp.Internal))
}

// Compile-time check that DirDestination implements ports.Destination.
var _ ports.Destination = (*DirDestination)(nil)
