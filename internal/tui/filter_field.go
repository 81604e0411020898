package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/herd/pkg/models"
)

// FilterField is the text box that narrows the task list.
type FilterField struct {
	input textinput.Model
	width int
}

// NewFilterField creates an unfocused filter box.
func NewFilterField() *FilterField {
	ti := textinput.New()
	ti.Placeholder = "filter by title, status, assignee or id"
	ti.CharLimit = 200
	ti.Width = 60

	return &FilterField{
		input: ti,
		width: 80,
	}
}

// SetWidth sets the width of the filter box.
func (f *FilterField) SetWidth(width int) {
	f.width = width
	f.input.Width = width - 4 // Account for prompt and padding
}

// Value returns the current query.
func (f *FilterField) Value() string {
	return f.input.Value()
}

// Focused reports whether the box receives keys.
func (f *FilterField) Focused() bool {
	return f.input.Focused()
}

// Focus sets focus on the filter box.
func (f *FilterField) Focus() tea.Cmd {
	return f.input.Focus()
}

// Blur removes focus from the filter box.
func (f *FilterField) Blur() {
	f.input.Blur()
}

// Reset clears the query.
func (f *FilterField) Reset() {
	f.input.Reset()
}

// Update forwards keys to the text input.
func (f *FilterField) Update(msg tea.Msg) (*FilterField, tea.Cmd) {
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the filter box.
func (f *FilterField) View() string {
	promptStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(f.width - 2)

	return boxStyle.Render(promptStyle.Render("/ ") + f.input.View())
}

// filterTasks keeps tasks whose title, status, assignee or id contains query,
// case-insensitively. An empty query keeps everything.
func filterTasks(tasks []models.Task, query string) []models.Task {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return tasks
	}
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		for _, field := range []string{t.Title, string(t.Status), t.AssignedTo, t.TaskID} {
			if strings.Contains(strings.ToLower(field), query) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
