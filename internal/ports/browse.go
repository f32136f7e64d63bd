package ports

// BrowseService provides operations needed by the TUI.
// This abstraction allows the TUI to be tested without real files or archives.
type BrowseService interface {
	// Kind reports which representation backs the target.
	Kind(target string) Kind

	// ListPaths returns the paths under the target in native order.
	ListPaths(target string) ([]string, error)

	// ReadText returns the text of one path inside the target.
	ReadText(target, path string) (string, error)
}
