// Package tuisvc provides the real implementation of ports.BrowseService.
package tuisvc

import (
	"github.com/jmcdonald/unpin/internal/ports"
)

// Patcher is the subset of patch.Service the browser needs.
type Patcher interface {
	Kind(target string) ports.Kind
	List(target string) ([]string, error)
	Cat(target, path string) (string, error)
}

// Service implements ports.BrowseService on top of a patch service.
type Service struct {
	patcher Patcher
}

// New creates a new TUI service.
func New(p Patcher) *Service {
	return &Service{patcher: p}
}

// Kind reports which representation backs the target.
func (s *Service) Kind(target string) ports.Kind {
	return s.patcher.Kind(target)
}

// ListPaths returns every path under the target, directory markers of
// archives excluded.
func (s *Service) ListPaths(target string) ([]string, error) {
	paths, err := s.patcher.List(target)
	if err != nil {
		return nil, err
	}
	var result []string
	for _, p := range paths {
		if len(p) > 0 && p[len(p)-1] == '/' {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

// ReadText returns the text of one path inside the target.
func (s *Service) ReadText(target, path string) (string, error) {
	return s.patcher.Cat(target, path)
}

// Compile-time check that Service implements ports.BrowseService.
var _ ports.BrowseService = (*Service)(nil)
