package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/herd/pkg/models"
)

// statusStyles colors task statuses the same way the CLI badges do.
var statusStyles = map[models.TaskStatus]lipgloss.Style{
	models.TaskStatusTodo:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	models.TaskStatusDoing:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),  // Blue
	models.TaskStatusPending: lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // Orange
	models.TaskStatusBlocked: lipgloss.NewStyle().Foreground(lipgloss.Color("196")), // Red
	models.TaskStatusDone:    lipgloss.NewStyle().Foreground(lipgloss.Color("34")),  // Green
}

// TasksPanel displays a scrollable list of tasks with status indicators.
type TasksPanel struct {
	tasks        []models.Task
	selected     int
	scrollOffset int
	width        int
	height       int

	titleStyle    lipgloss.Style
	selectedStyle lipgloss.Style
	normalStyle   lipgloss.Style
	sectionStyle  lipgloss.Style
	assigneeStyle lipgloss.Style
}

// NewTasksPanel creates an empty panel.
func NewTasksPanel() *TasksPanel {
	return &TasksPanel{
		width:  80,
		height: 20,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		selectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Bold(true),

		normalStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		sectionStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),

		assigneeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
	}
}

// SetTasks replaces the listed tasks, keeping the selection on the same task
// id when it is still present.
func (p *TasksPanel) SetTasks(tasks []models.Task) {
	prev := ""
	if t := p.SelectedTask(); t != nil {
		prev = t.TaskID
	}

	p.tasks = tasks
	p.selected = 0
	for i, t := range tasks {
		if t.TaskID == prev {
			p.selected = i
			break
		}
	}
	p.ensureVisible()
}

// SetSize updates the panel dimensions.
func (p *TasksPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.ensureVisible()
}

// SelectedTask returns the highlighted task, or nil when the panel is empty.
func (p *TasksPanel) SelectedTask() *models.Task {
	if p.selected < 0 || p.selected >= len(p.tasks) {
		return nil
	}
	return &p.tasks[p.selected]
}

// Update handles navigation keys.
func (p *TasksPanel) Update(msg tea.Msg) (*TasksPanel, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "up", "k":
		if p.selected > 0 {
			p.selected--
		}
	case "down", "j":
		if p.selected < len(p.tasks)-1 {
			p.selected++
		}
	case "home", "g":
		p.selected = 0
	case "end", "G":
		if len(p.tasks) > 0 {
			p.selected = len(p.tasks) - 1
		}
	}
	p.ensureVisible()
	return p, nil
}

// visibleRows is the number of task lines that fit inside the border.
func (p *TasksPanel) visibleRows() int {
	// title, section header and two border lines
	rows := p.height - 4
	if rows < 1 {
		rows = 1
	}
	return rows
}

// ensureVisible adjusts scroll offset to keep selected item visible.
func (p *TasksPanel) ensureVisible() {
	rows := p.visibleRows()
	if p.selected < p.scrollOffset {
		p.scrollOffset = p.selected
	} else if p.selected >= p.scrollOffset+rows {
		p.scrollOffset = p.selected - rows + 1
	}
	if p.scrollOffset < 0 {
		p.scrollOffset = 0
	}
}

// View renders the task list.
func (p *TasksPanel) View() string {
	var b strings.Builder

	b.WriteString(p.titleStyle.Render("Tasks"))
	b.WriteString("\n")

	if len(p.tasks) == 0 {
		b.WriteString(p.normalStyle.Render("  No tasks"))
	} else {
		open := 0
		for _, t := range p.tasks {
			if t.Status != models.TaskStatusDone {
				open++
			}
		}
		b.WriteString(p.sectionStyle.Render(fmt.Sprintf(" %d open, %d done", open, len(p.tasks)-open)))

		end := p.scrollOffset + p.visibleRows()
		if end > len(p.tasks) {
			end = len(p.tasks)
		}
		for i := p.scrollOffset; i < end; i++ {
			b.WriteString("\n")
			b.WriteString(p.renderTaskLine(p.tasks[i], i == p.selected))
		}
	}

	width := p.width - 2
	if width < 10 {
		width = 10
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(width).
		Render(b.String())
}

func (p *TasksPanel) renderTaskLine(t models.Task, selected bool) string {
	status := fmt.Sprintf("%-7s", t.Status)
	if style, ok := statusStyles[t.Status]; ok {
		status = style.Render(status)
	}
	line := fmt.Sprintf(" %s %s %s", status, t.Title, p.assigneeStyle.Render("@"+t.AssignedTo))
	if selected {
		return p.selectedStyle.Render(line)
	}
	return line
}
