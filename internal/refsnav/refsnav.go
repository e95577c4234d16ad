// Package refsnav implements an interactive bubbletea navigator over a
// resolved ReFS Catalog: the analyst moves through directories the way the
// teacher's recover-tui walks its State machine, built instead around a
// single Listing state plus Exited, since a catalog walk has no multi-step
// wizard flow to drive.
package refsnav

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yongjin04/diskforensics/internal/filetime"
	"github.com/yongjin04/diskforensics/internal/refs"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	dirStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	unresolvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Italic(true)
)

// State names one screen of the navigator.
type State int

const (
	StateListing State = iota
	StateExited
)

// entryItem adapts a refs.DirEntry to bubbles/list.Item.
type entryItem struct {
	entry         refs.DirEntry
	displayOffset filetime.DisplayOffset
}

func (i entryItem) Title() string {
	if i.entry.Origin == refs.AdjacencyOnly {
		return unresolvedStyle.Render(i.entry.Name)
	}
	if i.entry.IsDirectory {
		return dirStyle.Render(i.entry.Name + "/")
	}
	return i.entry.Name
}

// Description renders last_write_time and, for files, the 4-byte signature
// at the first extent's VCN. A row known only through the Parent-Child
// Table (no page entry) has no metadata to show beyond its origin.
func (i entryItem) Description() string {
	if i.entry.Origin == refs.AdjacencyOnly {
		return "not listed in parent page; known only via parent-child table"
	}
	modified := filetime.Render(i.entry.ModifiedUTC, i.displayOffset)
	if i.entry.IsDirectory {
		return fmt.Sprintf("directory, %s", modified)
	}
	sig := i.entry.Signature
	if sig == "" {
		sig = "unknown"
	}
	return fmt.Sprintf("%d bytes, %s, %s@%d", i.entry.Size, modified, sig, i.entry.FirstExtentLCN)
}

func (i entryItem) FilterValue() string { return i.entry.Name }

// Model is the navigator's bubbletea model. Path tracks the stack of
// object ids from the volume root down to the current directory, so Up can
// pop back without re-walking the catalog from scratch.
type Model struct {
	catalog       *refs.Catalog
	state         State
	err           error
	displayOffset filetime.DisplayOffset

	path    []uint64 // object id stack, path[0] == refs.RootObjectID
	names   []string // display names paired with path, names[0] == "/"
	entries list.Model

	width, height int
}

// New builds a navigator rooted at the catalog's volume root directory,
// rendering timestamps shifted by displayOffset minutes from UTC.
func New(catalog *refs.Catalog, displayOffset filetime.DisplayOffset) (*Model, error) {
	m := &Model{
		catalog:       catalog,
		displayOffset: displayOffset,
		path:          []uint64{refs.RootObjectID},
		names:         []string{"/"},
	}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) current() uint64 { return m.path[len(m.path)-1] }

// CurrentPath reports the breadcrumb names from the volume root down to
// the current directory, e.g. []string{"/", "docs/"}.
func (m *Model) CurrentPath() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Entries reports the catalog rows listed in the current directory.
func (m *Model) Entries() []refs.DirEntry {
	items := m.entries.Items()
	out := make([]refs.DirEntry, 0, len(items))
	for _, it := range items {
		if e, ok := it.(entryItem); ok {
			out = append(out, e.entry)
		}
	}
	return out
}

// reload re-lists the current directory's entries into the list.Model.
func (m *Model) reload() error {
	dirEntries, err := m.catalog.List(m.current())
	if err != nil {
		m.err = err
		return err
	}
	m.err = nil

	items := make([]list.Item, len(dirEntries))
	for i, e := range dirEntries {
		items[i] = entryItem{entry: e, displayOffset: m.displayOffset}
	}

	l := list.New(items, list.NewDefaultDelegate(), m.width, m.height)
	l.Title = strings.Join(m.names, "")
	l.SetShowStatusBar(false)
	m.entries = l
	return nil
}

// Navigate descends into the selected entry if it is a directory. It is a
// pure transition over Model state (no I/O beyond the catalog walk),
// exercised directly by tests without spinning up a tea.Program.
func (m *Model) Navigate(selected refs.DirEntry) error {
	if !selected.IsDirectory {
		return nil
	}
	m.path = append(m.path, selected.ChildObjectID)
	m.names = append(m.names, selected.Name+"/")
	return m.reload()
}

// Up pops back to the parent directory. A no-op at the volume root.
func (m *Model) Up() error {
	if len(m.path) <= 1 {
		return nil
	}
	m.path = m.path[:len(m.path)-1]
	m.names = m.names[:len(m.names)-1]
	return m.reload()
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height-4
		m.entries.SetSize(m.width, m.height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.state = StateExited
			return m, tea.Quit
		case "backspace", "left":
			if err := m.Up(); err != nil {
				m.err = err
			}
			return m, nil
		case "enter", "right":
			if item, ok := m.entries.SelectedItem().(entryItem); ok {
				if err := m.Navigate(item.entry); err != nil {
					m.err = err
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.entries, cmd = m.entries.Update(msg)
	return m, cmd
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" ReFS Navigator "))
	b.WriteString("\n\n")

	if m.state == StateExited {
		return b.String()
	}

	b.WriteString(m.entries.View())

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter/→ open • backspace/← up • q quit"))
	return b.String()
}

// Run starts the navigator as a full-screen bubbletea program.
func Run(catalog *refs.Catalog, displayOffset filetime.DisplayOffset) error {
	m, err := New(catalog, displayOffset)
	if err != nil {
		return fmt.Errorf("refsnav: %w", err)
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
