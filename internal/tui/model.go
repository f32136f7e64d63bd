package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jmcdonald/unpin/internal/ports"
)

// View represents the current view state
type View int

const (
	PathsView View = iota
	FileView
)

// Model is the main TUI model
type Model struct {
	svc      ports.BrowseService
	target   string
	kind     ports.Kind
	view     View
	width    int
	height   int
	quitting bool

	// Paths view
	paths      []string
	pathCursor int

	// File view
	openPath   string
	fileLines  []string
	fileScroll int

	// Status message
	statusMsg string
	statusErr bool
}

// Key bindings
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Enter    key.Binding
	Back     key.Binding
	Reload   key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "b"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "f"),
		key.WithHelp("pgdn", "page down"),
	),
	Top: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("G", "bottom"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// NewModel creates a browser for target and loads its paths.
func NewModel(target string, svc ports.BrowseService) (*Model, error) {
	m := &Model{
		svc:    svc,
		target: target,
		kind:   svc.Kind(target),
		view:   PathsView,
	}
	if err := m.loadPaths(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) loadPaths() error {
	paths, err := m.svc.ListPaths(m.target)
	if err != nil {
		return err
	}
	m.paths = paths
	if m.pathCursor >= len(m.paths) {
		m.pathCursor = max(len(m.paths)-1, 0)
	}
	return nil
}

type textMsg struct {
	path string
	text string
	err  error
}

type pathsMsg struct {
	paths []string
	err   error
}

func (m *Model) readText(path string) tea.Cmd {
	return func() tea.Msg {
		text, err := m.svc.ReadText(m.target, path)
		return textMsg{path: path, text: text, err: err}
	}
}

func (m *Model) reload() tea.Cmd {
	return func() tea.Msg {
		paths, err := m.svc.ListPaths(m.target)
		return pathsMsg{paths: paths, err: err}
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case textMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Cannot open %s: %v", msg.path, msg.err)
			m.statusErr = true
			return m, nil
		}
		m.openPath = msg.path
		m.fileLines = strings.Split(strings.TrimSuffix(msg.text, "\n"), "\n")
		m.fileScroll = 0
		m.view = FileView
		m.statusMsg = ""
		return m, nil

	case pathsMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Reload failed: %v", msg.err)
			m.statusErr = true
			return m, nil
		}
		m.paths = msg.paths
		if m.pathCursor >= len(m.paths) {
			m.pathCursor = max(len(m.paths)-1, 0)
		}
		m.statusMsg = fmt.Sprintf("%d paths", len(m.paths))
		m.statusErr = false
		return m, nil

	case tea.KeyMsg:
		// Clear status on any key
		m.statusMsg = ""
		m.statusErr = false

		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)

		case key.Matches(msg, keys.Down):
			m.moveCursor(1)

		case key.Matches(msg, keys.PageUp):
			m.moveCursor(-m.visibleHeight())

		case key.Matches(msg, keys.PageDown):
			m.moveCursor(m.visibleHeight())

		case key.Matches(msg, keys.Top):
			m.moveCursor(-m.itemCount())

		case key.Matches(msg, keys.Bottom):
			m.moveCursor(m.itemCount())

		case key.Matches(msg, keys.Enter):
			if m.view == PathsView && len(m.paths) > 0 {
				return m, m.readText(m.paths[m.pathCursor])
			}

		case key.Matches(msg, keys.Back):
			if m.view == FileView {
				m.view = PathsView
				m.openPath = ""
				m.fileLines = nil
				m.fileScroll = 0
			}

		case key.Matches(msg, keys.Reload):
			if m.view == PathsView {
				return m, m.reload()
			}
			return m, m.readText(m.openPath)
		}
	}

	return m, nil
}

func (m *Model) itemCount() int {
	if m.view == FileView {
		return len(m.fileLines)
	}
	return len(m.paths)
}

func (m *Model) visibleHeight() int {
	h := m.height - 10
	if h < 5 {
		h = 5
	}
	return h
}

func (m *Model) moveCursor(delta int) {
	switch m.view {
	case PathsView:
		m.pathCursor += delta
		if m.pathCursor >= len(m.paths) {
			m.pathCursor = len(m.paths) - 1
		}
		if m.pathCursor < 0 {
			m.pathCursor = 0
		}
	case FileView:
		m.fileScroll += delta
		maxScroll := len(m.fileLines) - m.visibleHeight()
		if maxScroll < 0 {
			maxScroll = 0
		}
		if m.fileScroll > maxScroll {
			m.fileScroll = maxScroll
		}
		if m.fileScroll < 0 {
			m.fileScroll = 0
		}
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.view {
	case PathsView:
		content = m.renderPathsView()
	case FileView:
		content = m.renderFileView()
	}

	return appStyle.Render(content)
}

func (m *Model) renderPathsView() string {
	var b strings.Builder

	title := titleStyle.Render(fmt.Sprintf(" unpin %s ", truncate(m.target, 60)))
	b.WriteString(title)
	b.WriteString(" ")
	b.WriteString(kindBadge.Render(m.kind.String()))
	b.WriteString("\n\n")

	header := fmt.Sprintf("  %-60s", "PATH")
	b.WriteString(dimStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 70)))
	b.WriteString("\n")

	visibleHeight := m.visibleHeight()
	if len(m.paths) == 0 {
		b.WriteString(dimStyle.Render("  No files found"))
		b.WriteString("\n")
	}

	start := 0
	if m.pathCursor >= visibleHeight {
		start = m.pathCursor - visibleHeight + 1
	}

	for i := start; i < len(m.paths) && i < start+visibleHeight; i++ {
		cursor := "  "
		style := normalStyle
		if i == m.pathCursor {
			cursor = "▸ "
			style = selectedStyle
		}
		b.WriteString(style.Render(cursor + truncate(m.paths[i], 66)))
		b.WriteString("\n")
	}

	// Pad to fixed height
	for i := len(m.paths); i < visibleHeight; i++ {
		b.WriteString("\n")
	}

	m.renderStatus(&b)

	help := "[↑/↓] navigate  [enter] open  [r] reload  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) renderFileView() string {
	var b strings.Builder

	title := titleStyle.Render(fmt.Sprintf(" %s ", truncate(m.openPath, 60)))
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 75)))
	b.WriteString("\n")

	visibleHeight := m.visibleHeight()
	endIdx := m.fileScroll + visibleHeight
	if endIdx > len(m.fileLines) {
		endIdx = len(m.fileLines)
	}

	for i := m.fileScroll; i < endIdx; i++ {
		content := m.fileLines[i]
		maxWidth := 70
		if len(content) > maxWidth {
			content = content[:maxWidth-3] + "..."
		}
		b.WriteString(lineNumStyle.Render(fmt.Sprintf("%4d ", i+1)))
		b.WriteString(normalStyle.Render(content))
		b.WriteString("\n")
	}

	// Scroll indicator
	if len(m.fileLines) > visibleHeight {
		scrollInfo := fmt.Sprintf("  Lines %d-%d of %d",
			m.fileScroll+1, endIdx, len(m.fileLines))
		b.WriteString(dimStyle.Render(scrollInfo))
		b.WriteString("\n")
	}

	m.renderStatus(&b)

	help := "[↑/↓] scroll  [r] reload  [esc] back  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) renderStatus(b *strings.Builder) {
	b.WriteString("\n")
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorBadge.Render(m.statusMsg))
		} else {
			b.WriteString(successBadge.Render(m.statusMsg))
		}
	}
	b.WriteString("\n")
}

// Run starts the browser for target.
func Run(target string, svc ports.BrowseService) error {
	m, err := NewModel(target, svc)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// truncate keeps the tail of s, where paths differ most.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n+1:]
}
