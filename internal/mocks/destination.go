// Package mocks provides mock implementations for testing.
package mocks

import (
	"iter"

	"github.com/jmcdonald/unpin/internal/ports"
)

// MockDestination implements ports.Destination for testing.
// Files keeps insertion order in Order so IterPaths is deterministic.
type MockDestination struct {
	// Files maps relative paths to their text
	Files map[string]string
	// Order lists paths in the order IterPaths yields them
	Order []string
	// Errors maps method names ("IterPaths", "GetFileText", "WriteBack") to errors
	Errors map[string]error

	// Call tracking
	WriteCalls []WriteCall
	ReadCalls  []ports.PathsPair
}

// WriteCall records parameters of a WriteBack call.
type WriteCall struct {
	Pair ports.PathsPair
	Text string
}

// NewMockDestination creates a new mock destination.
func NewMockDestination() *MockDestination {
	return &MockDestination{
		Files:  make(map[string]string),
		Errors: make(map[string]error),
	}
}

// Put adds or replaces a file, keeping first-insertion order.
func (m *MockDestination) Put(path, text string) {
	if _, ok := m.Files[path]; !ok {
		m.Order = append(m.Order, path)
	}
	m.Files[path] = text
}

// IterPaths yields the paths in Order.
func (m *MockDestination) IterPaths(root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err, ok := m.Errors["IterPaths"]; ok {
			yield("", err)
			return
		}
		for _, p := range m.Order {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// GetFileText returns the stored text or ports.ErrNotFound.
func (m *MockDestination) GetFileText(pp ports.PathsPair) (string, error) {
	m.ReadCalls = append(m.ReadCalls, pp)
	if err, ok := m.Errors["GetFileText"]; ok {
		return "", err
	}
	text, ok := m.Files[pp.Internal]
	if !ok {
		return "", ports.NewPathError("read", pp.String(), ports.ErrNotFound, nil)
	}
	return text, nil
}

// WriteBack stores text for the path.
func (m *MockDestination) WriteBack(pp ports.PathsPair, text string) error {
	m.WriteCalls = append(m.WriteCalls, WriteCall{Pair: pp, Text: text})
	if err, ok := m.Errors["WriteBack"]; ok {
		return err
	}
	m.Put(pp.Internal, text)
	return nil
}

// Compile-time check that MockDestination implements ports.Destination.
var _ ports.Destination = (*MockDestination)(nil)
