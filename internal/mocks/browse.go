package mocks

import (
	"github.com/jmcdonald/unpin/internal/ports"
)

// MockBrowseService implements ports.BrowseService for testing.
type MockBrowseService struct {
	// KindResult is returned from Kind
	KindResult ports.Kind

	// Paths is the list of paths to return
	Paths []string
	// PathsError is the error to return from ListPaths
	PathsError error

	// Texts maps paths to their content
	Texts map[string]string
	// TextErrors maps paths to read errors
	TextErrors map[string]error

	// Call tracking
	ListPathsCalls []string
	ReadTextCalls  []string
}

// NewMockBrowseService creates a new mock browse service.
func NewMockBrowseService() *MockBrowseService {
	return &MockBrowseService{
		Texts:      make(map[string]string),
		TextErrors: make(map[string]error),
	}
}

// Kind reports which representation backs the target.
func (m *MockBrowseService) Kind(target string) ports.Kind {
	return m.KindResult
}

// ListPaths returns the configured paths.
func (m *MockBrowseService) ListPaths(target string) ([]string, error) {
	m.ListPathsCalls = append(m.ListPathsCalls, target)
	if m.PathsError != nil {
		return nil, m.PathsError
	}
	return m.Paths, nil
}

// ReadText returns the configured text for path.
func (m *MockBrowseService) ReadText(target, path string) (string, error) {
	m.ReadTextCalls = append(m.ReadTextCalls, path)
	if err, ok := m.TextErrors[path]; ok {
		return "", err
	}
	if text, ok := m.Texts[path]; ok {
		return text, nil
	}
	return "", ports.NewPathError("read", path, ports.ErrNotFound, nil)
}

// Compile-time check that MockBrowseService implements ports.BrowseService.
var _ ports.BrowseService = (*MockBrowseService)(nil)
