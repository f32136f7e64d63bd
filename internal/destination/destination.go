// Package destination selects the Destination adapter for a target path.
package destination

import (
	"github.com/jmcdonald/unpin/internal/adapters/dirdest"
	"github.com/jmcdonald/unpin/internal/adapters/zipdest"
	"github.com/jmcdonald/unpin/internal/ports"
	"github.com/spf13/afero"
)

// KindOf reports whether target is backed by a directory or an archive.
// Anything that is not an existing directory, including a missing path,
// is treated as an archive; its validity is checked on first use.
func KindOf(fsys afero.Fs, target string) ports.Kind {
	if isDir, err := afero.IsDir(fsys, target); err == nil && isDir {
		return ports.KindDirectory
	}
	return ports.KindArchive
}

// Make returns the Destination for target. Options only affect archives.
func Make(fsys afero.Fs, target string, opts ...zipdest.Option) ports.Destination {
	if KindOf(fsys, target) == ports.KindDirectory {
		return dirdest.New(fsys)
	}
	return zipdest.New(fsys, opts...)
}

// NewDefault returns the Destination for target on the OS filesystem.
func NewDefault(target string, opts ...zipdest.Option) ports.Destination {
	return Make(afero.NewOsFs(), target, opts...)
}
