// Package zipdest provides a Destination adapter for zip archives.
package zipdest

import (
	"archive/zip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmcdonald/unpin/internal/ports"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// DefaultPatchSuffix names the rebuilt archive next to the original.
const DefaultPatchSuffix = ".patched"

// MaxEntrySize is the largest entry GetFileText will decompress (512MB).
const MaxEntrySize = 512 * 1024 * 1024

// ZipDestination implements ports.Destination over a zip archive.
// Writes rebuild the whole archive next to the original and swap it in.
type ZipDestination struct {
	fs         afero.Fs
	log        *zap.Logger
	suffix     string
	atomicSwap bool
}

// Option configures a ZipDestination.
type Option func(*ZipDestination)

// WithLogger sets the logger used for rebuild progress.
func WithLogger(log *zap.Logger) Option {
	return func(z *ZipDestination) {
		if log != nil {
			z.log = log
		}
	}
}

// WithPatchSuffix overrides DefaultPatchSuffix.
func WithPatchSuffix(suffix string) Option {
	return func(z *ZipDestination) {
		if suffix != "" {
			z.suffix = suffix
		}
	}
}

// WithAtomicSwap selects how the rebuilt archive replaces the original.
// When true (the default) a single rename is used. When false the original
// is deleted first and the rebuilt archive renamed afterwards, which can
// leave the root missing if the process dies in between.
func WithAtomicSwap(atomic bool) Option {
	return func(z *ZipDestination) {
		z.atomicSwap = atomic
	}
}

// New creates a new ZipDestination adapter backed by fsys.
func New(fsys afero.Fs, opts ...Option) *ZipDestination {
	z := &ZipDestination{
		fs:         fsys,
		log:        zap.NewNop(),
		suffix:     DefaultPatchSuffix,
		atomicSwap: true,
	}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// PatchPath returns the location of the rebuilt archive for root.
func (z *ZipDestination) PatchPath(root string) string {
	return root + z.suffix
}

// archive is an open read-only archive and the file backing it.
type archive struct {
	*zip.Reader
	file afero.File
}

func (a *archive) Close() error {
	return a.file.Close()
}

func (z *ZipDestination) open(op, root string) (*archive, error) {
	f, err := z.fs.Open(root)
	if err != nil {
		return nil, ports.WrapFSError(op, root, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ports.WrapFSError(op, root, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, ports.NewPathError(op, root, ports.ErrFormat, errors.New("is a directory"))
	}
	r, err := zip.NewReader(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, ports.NewPathError(op, root, ports.ErrFormat, err)
	}
	return &archive{Reader: r, file: f}, nil
}

// IterPaths yields every entry name, directory markers included, in the
// order of the archive's central directory.
func (z *ZipDestination) IterPaths(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		a, err := z.open("list", root)
		if err != nil {
			yield("", err)
			return
		}
		defer func() { _ = a.Close() }()

		for _, f := range a.File {
			if !yield(f.Name, nil) {
				return
			}
		}
	}
}

// GetFileText extracts the entry named exactly pp.Internal as UTF-8 text.
func (z *ZipDestination) GetFileText(pp ports.PathsPair) (string, error) {
	a, err := z.open("read", pp.Root)
	if err != nil {
		return "", err
	}
	defer func() { _ = a.Close() }()

	for _, f := range a.File {
		if f.Name != pp.Internal {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return "", ports.NewPathError("read", pp.String(), ports.ErrFormat, err)
		}
		if !utf8.Valid(data) {
			return "", ports.NewPathError("read", pp.String(), ports.ErrDecode, nil)
		}
		return string(data), nil
	}
	return "", ports.NewPathError("read", pp.String(), ports.ErrNotFound, nil)
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxEntrySize {
		return nil, fmt.Errorf("entry too large: %d bytes exceeds limit of %d bytes", f.UncompressedSize64, MaxEntrySize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	// One extra byte detects entries larger than declared.
	data, err := io.ReadAll(io.LimitReader(rc, int64(f.UncompressedSize64)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > f.UncompressedSize64 {
		return nil, errors.New("decompressed size exceeds declared size")
	}
	return data, nil
}

// WriteBack rebuilds the archive with pp.Internal replaced by text and
// swaps the rebuilt archive in place of the original.
//
// If the swap fails the rebuilt archive is left at PatchPath(pp.Root).
func (z *ZipDestination) WriteBack(pp ports.PathsPair, text string) error {
	if strings.HasSuffix(pp.Internal, "/") {
		return ports.NewPathError("write", pp.String(), ports.ErrFormat, errors.New("directory entries hold no text"))
	}
	tmp := z.PatchPath(pp.Root)
	if err := z.rebuild(pp, tmp, text); err != nil {
		return err
	}
	if err := z.swap(tmp, pp.Root); err != nil {
		return err
	}
	z.log.Info("archive rebuilt",
		zap.String("root", pp.Root),
		zap.String("entry", pp.Internal),
		zap.Bool("atomic", z.atomicSwap))
	return nil
}

func (z *ZipDestination) rebuild(pp ports.PathsPair, tmp, text string) error {
	src, err := z.open("write", pp.Root)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	out, err := z.fs.Create(tmp)
	if err != nil {
		return ports.WrapFSError("write", tmp, err)
	}
	w := zip.NewWriter(out)

	if err := z.copyEntries(src, w, pp, text); err != nil {
		_ = w.Close()
		_ = out.Close()
		return err
	}

	// Close zip writer first to flush the central directory
	if err := w.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("closing zip writer: %w", err)
	}
	if err := out.Close(); err != nil {
		return ports.WrapFSError("write", tmp, err)
	}
	return nil
}

func (z *ZipDestination) copyEntries(src *archive, w *zip.Writer, pp ports.PathsPair, text string) error {
	var target *zip.FileHeader
	for _, f := range src.File {
		switch {
		case f.FileInfo().IsDir():
			// No data follows a directory marker, so its header must not
			// claim any, even when the source writer compressed it.
			hdr := f.FileHeader
			hdr.Flags &^= flagDataDescriptor
			hdr.Method = zip.Store
			hdr.CRC32 = 0
			hdr.CompressedSize64 = 0
			hdr.UncompressedSize64 = 0
			hdr.Extra = stripExtra(hdr.Extra, extraZip64)
			if _, err := w.CreateRaw(&hdr); err != nil {
				return fmt.Errorf("copying directory %s: %w", f.Name, err)
			}
		case f.Name == pp.Internal:
			z.log.Debug("replacing entry", zap.String("root", pp.Root), zap.String("entry", f.Name))
			hdr := f.FileHeader
			target = &hdr
		default:
			if err := w.Copy(f); err != nil {
				return ports.NewPathError("write", pp.Root, ports.ErrFormat, fmt.Errorf("copying %s: %w", f.Name, err))
			}
		}
	}

	var hdr *zip.FileHeader
	if target != nil {
		// Sizes and CRC are recomputed; CreateHeader re-adds the timestamp.
		target.Extra = stripExtra(target.Extra, extraZip64, extraExtTime)
		hdr = target
	} else {
		z.log.Debug("appending entry", zap.String("root", pp.Root), zap.String("entry", pp.Internal))
		hdr = &zip.FileHeader{Name: pp.Internal, Method: zip.Deflate, Modified: time.Now()}
		hdr.SetMode(0o644)
	}
	ew, err := w.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", pp.Internal, err)
	}
	if _, err := io.WriteString(ew, text); err != nil {
		return fmt.Errorf("writing entry %s: %w", pp.Internal, err)
	}
	return nil
}

const (
	flagDataDescriptor = 0x8

	extraZip64   = 0x0001
	extraExtTime = 0x5455
)

// stripExtra drops the extra-field blocks with the given ids.
// A malformed trailing block is kept as-is.
func stripExtra(extra []byte, ids ...uint16) []byte {
	if len(extra) == 0 {
		return extra
	}
	out := make([]byte, 0, len(extra))
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra[0:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		if 4+size > len(extra) {
			break
		}
		if !slices.Contains(ids, id) {
			out = append(out, extra[:4+size]...)
		}
		extra = extra[4+size:]
	}
	return append(out, extra...)
}

func (z *ZipDestination) swap(tmp, root string) error {
	if !z.atomicSwap {
		if err := z.fs.Remove(root); err != nil {
			return ports.WrapFSError("remove", root, err)
		}
	}
	if err := z.fs.Rename(tmp, root); err != nil {
		return ports.WrapFSError("rename", tmp, err)
	}
	return nil
}

// Compile-time check that ZipDestination implements ports.Destination.
var _ ports.Destination = (*ZipDestination)(nil)
