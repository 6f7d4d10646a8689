package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/pathminer/pkg/search"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// resultTableRows is how many results the non-interactive table shows.
const resultTableRows = 10

// maxVertexColumn caps the width of the vertex column.
const maxVertexColumn = 60

// headerRow is the row index lipgloss tables pass for the header.
const headerRow = -1

// =============================================================================
// ResultListModel - Interactive result selection
// =============================================================================

// ResultListModel is the bubbletea model for picking one search result.
type ResultListModel struct {
	Results  []search.Result
	Cursor   int
	Selected *search.Result
	Height   int
	Offset   int
}

// NewResultListModel creates a new result list model.
func NewResultListModel(results []search.Result) ResultListModel {
	return ResultListModel{
		Results: results,
		Height:  15,
	}
}

func (m ResultListModel) Init() tea.Cmd {
	return nil
}

func (m ResultListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Results)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Results) == 0 {
				return m, tea.Quit
			}
			r := m.Results[m.Cursor]
			m.Selected = &r
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m ResultListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Subnetwork"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Results))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, append([]string{cursor}, resultRow(i, m.Results[i])...))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "#", "Fitness", "Exceptions", "Info", "Vertices").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return listHeaderStyle
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			if col == 5 {
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Results))))

	return b.String()
}

// =============================================================================
// Static output
// =============================================================================

// printResultTable prints the first limit results as a table.
func printResultTable(results []search.Result, limit int) {
	n := min(limit, len(results))
	rows := make([][]string, n)
	for i := range n {
		rows[i] = resultRow(i, results[i])
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Fitness", "Exceptions", "Info", "Vertices").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return listHeaderStyle
			case col == 1:
				return StyleNumber
			case col == 4:
				return lipgloss.NewStyle().Foreground(colorGray)
			}
			return lipgloss.NewStyle()
		})
	fmt.Println(t.Render())
	if len(results) > n {
		printDetail("%d more not shown; use --output to get all", len(results)-n)
	}
}

// printResultDetail prints every vertex of one result.
func printResultDetail(r search.Result) {
	printKeyValue("Fitness", StyleNumber.Render(strconv.Itoa(r.Fitness)))
	printKeyValue("Info", fmt.Sprintf("%.3f", r.InfoContent))
	if r.Seed != "" {
		printKeyValue("Seed", r.Seed)
	}
	printKeyValue("Exceptions", orDash(strings.Join(r.Exceptions, ", ")))
	printKeyValue("Vertices", strings.Join(r.Vertices, ", "))
}

// =============================================================================
// Helpers
// =============================================================================

func resultRow(i int, r search.Result) []string {
	return []string{
		strconv.Itoa(i + 1),
		strconv.Itoa(r.Fitness),
		orDash(strings.Join(r.Exceptions, ", ")),
		fmt.Sprintf("%.3f", r.InfoContent),
		truncate(strings.Join(r.Vertices, ", "), maxVertexColumn),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
