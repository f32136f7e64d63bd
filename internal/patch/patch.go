// Package patch reads and rewrites single files inside a destination and
// journals every write-back.
package patch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmcdonald/unpin/internal/adapters/zipdest"
	"github.com/jmcdonald/unpin/internal/config"
	"github.com/jmcdonald/unpin/internal/destination"
	"github.com/jmcdonald/unpin/internal/journal"
	"github.com/jmcdonald/unpin/internal/ports"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrNoMatch is returned by Replace when the old text does not occur.
var ErrNoMatch = errors.New("text to replace not found")

// Opener returns the Destination for a target.
type Opener func(target string) ports.Destination

// Result describes a write, performed or planned.
type Result struct {
	Pair    ports.PathsPair
	Kind    ports.Kind
	Created bool // the file did not exist before
	Changed bool // the new text differs from the old one
	Written bool // the destination was actually rewritten
	Before  string
	After   string
	Diff    []DiffLine
}

// Service provides patch operations with injected dependencies.
type Service struct {
	fs   afero.Fs
	cfg  *config.Config
	log  *zap.Logger
	open Opener
	now  func() time.Time
}

// NewService creates a patch service. A nil open uses destination.Make
// over fsys with the archive options from cfg.
func NewService(fsys afero.Fs, cfg *config.Config, log *zap.Logger, open Opener) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		fs:   fsys,
		cfg:  cfg,
		log:  log,
		open: open,
		now:  time.Now,
	}
	if s.open == nil {
		opts := append(cfg.ArchiveOptions(), zipdest.WithLogger(log))
		s.open = func(target string) ports.Destination {
			return destination.Make(fsys, target, opts...)
		}
	}
	return s
}

// NewDefaultService creates a patch service on the OS filesystem.
func NewDefaultService(cfg *config.Config, log *zap.Logger) *Service {
	return NewService(afero.NewOsFs(), cfg, log, nil)
}

// Kind reports which representation backs target.
func (s *Service) Kind(target string) ports.Kind {
	return destination.KindOf(s.fs, target)
}

// List returns every path under target in native order.
func (s *Service) List(target string) ([]string, error) {
	var paths []string
	for p, err := range s.open(target).IterPaths(target) {
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Cat returns the text of path inside target.
func (s *Service) Cat(target, path string) (string, error) {
	return s.open(target).GetFileText(ports.PathsPair{Root: target, Internal: path})
}

// Write replaces the text of path inside target. With dryRun the result is
// computed but nothing is written.
func (s *Service) Write(target, path, text string, dryRun bool) (*Result, error) {
	d := s.open(target)
	pp := ports.PathsPair{Root: target, Internal: path}

	before, err := d.GetFileText(pp)
	created := false
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			return nil, err
		}
		created = true
	}
	return s.apply(d, pp, before, text, created, dryRun)
}

// Replace substitutes old with repl in path inside target. count <= 0
// replaces every occurrence.
func (s *Service) Replace(target, path, old, repl string, count int, dryRun bool) (*Result, error) {
	if old == "" {
		return nil, errors.New("text to replace must not be empty")
	}
	d := s.open(target)
	pp := ports.PathsPair{Root: target, Internal: path}

	before, err := d.GetFileText(pp)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(before, old) {
		return nil, fmt.Errorf("%s: %w", pp, ErrNoMatch)
	}
	if count <= 0 {
		count = -1
	}
	return s.apply(d, pp, before, strings.Replace(before, old, repl, count), false, dryRun)
}

func (s *Service) apply(d ports.Destination, pp ports.PathsPair, before, after string, created, dryRun bool) (*Result, error) {
	res := &Result{
		Pair:    pp,
		Kind:    s.Kind(pp.Root),
		Created: created,
		Changed: created || before != after,
		Before:  before,
		After:   after,
		Diff:    LineDiff(before, after),
	}
	if dryRun || !res.Changed {
		return res, nil
	}

	if err := d.WriteBack(pp, after); err != nil {
		return nil, err
	}
	res.Written = true
	s.log.Info("wrote file",
		zap.String("root", pp.Root),
		zap.String("path", pp.Internal),
		zap.Stringer("kind", res.Kind),
		zap.Bool("created", created))

	if err := s.record(res); err != nil {
		return res, fmt.Errorf("updating journal: %w", err)
	}
	return res, nil
}

func (s *Service) record(res *Result) error {
	if !s.cfg.Journal.Enabled {
		return nil
	}
	path, err := s.cfg.JournalPath()
	if err != nil {
		return err
	}
	j, err := journal.Load(s.fs, path)
	if err != nil {
		return err
	}

	entry := journal.Entry{
		Root:        res.Pair.Root,
		Path:        res.Pair.Internal,
		Kind:        res.Kind.String(),
		AfterSHA256: journal.HashText(res.After),
		BeforeBytes: len(res.Before),
		AfterBytes:  len(res.After),
		Created:     res.Created,
		At:          s.now(),
	}
	if !res.Created {
		entry.BeforeSHA256 = journal.HashText(res.Before)
	}
	j.Add(entry)

	if pruned := j.Prune(s.cfg.Journal.KeepLast); pruned > 0 {
		s.log.Debug("pruned journal", zap.Int("removed", pruned))
	}
	return j.Save(s.fs, path)
}

// Last returns the newest journal entry for target, or across all targets
// when target is empty. It returns nil when nothing was recorded.
func (s *Service) Last(target string) (*journal.Entry, error) {
	path, err := s.cfg.JournalPath()
	if err != nil {
		return nil, err
	}
	j, err := journal.Load(s.fs, path)
	if err != nil {
		return nil, err
	}
	if target != "" {
		j = &journal.Journal{Entries: j.ForRoot(target)}
	}
	return j.Latest(), nil
}

// History returns journal entries for target, or all entries when target
// is empty.
func (s *Service) History(target string) ([]journal.Entry, error) {
	path, err := s.cfg.JournalPath()
	if err != nil {
		return nil, err
	}
	j, err := journal.Load(s.fs, path)
	if err != nil {
		return nil, err
	}
	if target == "" {
		return j.Entries, nil
	}
	return j.ForRoot(target), nil
}
