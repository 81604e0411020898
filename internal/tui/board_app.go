package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/herd/pkg/models"
)

// Loader fetches the board and its tasks.
type Loader func(ctx context.Context) (models.Board, []models.Task, error)

// BoardLoadedMsg carries the result of a Loader call.
type BoardLoadedMsg struct {
	Board models.Board
	Tasks []models.Task
	Err   error
}

// BoardChangedMsg is sent when the store reports a write.
type BoardChangedMsg struct{}

// BoardApp is the bubbletea model for a live board view.
type BoardApp struct {
	ctx     context.Context
	load    Loader
	changes <-chan struct{}

	board    models.Board
	tasks    []models.Task
	loaded   bool
	err      error
	loadedAt time.Time

	panel  *TasksPanel
	filter *FilterField

	width  int
	height int

	headerStyle lipgloss.Style
	mutedStyle  lipgloss.Style
	errorStyle  lipgloss.Style
	reasonStyle lipgloss.Style
}

// NewBoardApp creates a board view. changes may be nil, in which case the
// view only reloads on 'r'.
func NewBoardApp(ctx context.Context, load Loader, changes <-chan struct{}) *BoardApp {
	return &BoardApp{
		ctx:     ctx,
		load:    load,
		changes: changes,
		panel:   NewTasksPanel(),
		filter:  NewFilterField(),
		width:   80,
		height:  24,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("63")).
			Padding(0, 1),
		mutedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		errorStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		reasonStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true),
	}
}

// Init loads the board and starts listening for changes.
func (a *BoardApp) Init() tea.Cmd {
	return tea.Batch(a.reload(), a.waitForChange())
}

func (a *BoardApp) reload() tea.Cmd {
	return func() tea.Msg {
		b, tasks, err := a.load(a.ctx)
		return BoardLoadedMsg{Board: b, Tasks: tasks, Err: err}
	}
}

func (a *BoardApp) waitForChange() tea.Cmd {
	if a.changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-a.changes; !ok {
			return nil
		}
		return BoardChangedMsg{}
	}
}

// Update handles messages.
func (a *BoardApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, nil

	case BoardLoadedMsg:
		a.err = msg.Err
		if msg.Err == nil {
			a.board = msg.Board
			a.tasks = msg.Tasks
			a.loaded = true
			a.loadedAt = time.Now()
			a.applyFilter()
		}
		return a, nil

	case BoardChangedMsg:
		return a, tea.Batch(a.reload(), a.waitForChange())

	case tea.KeyMsg:
		if a.filter.Focused() {
			return a.updateFilter(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "/":
			return a, a.filter.Focus()
		case "esc":
			a.filter.Reset()
			a.applyFilter()
			return a, nil
		case "r":
			return a, a.reload()
		}
		var cmd tea.Cmd
		a.panel, cmd = a.panel.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *BoardApp) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "esc":
		a.filter.Reset()
		a.filter.Blur()
		a.applyFilter()
		return a, nil
	case "enter":
		a.filter.Blur()
		return a, nil
	}
	var cmd tea.Cmd
	a.filter, cmd = a.filter.Update(msg)
	a.applyFilter()
	return a, cmd
}

func (a *BoardApp) applyFilter() {
	a.panel.SetTasks(filterTasks(a.tasks, a.filter.Value()))
}

func (a *BoardApp) layout() {
	// header, detail block, filter box and help line
	reserved := 1 + 6 + 3 + 1
	a.panel.SetSize(a.width, a.height-reserved)
	a.filter.SetWidth(a.width)
}

// View renders the board.
func (a *BoardApp) View() string {
	var b strings.Builder

	title := "herd board"
	if a.loaded {
		title = fmt.Sprintf("%s  %s  owner:%s", a.board.Title, a.board.BoardID, a.board.Owner)
	}
	b.WriteString(a.headerStyle.Render(title))
	b.WriteString("\n")

	if a.err != nil {
		b.WriteString(a.errorStyle.Render("Error: " + a.err.Error()))
		b.WriteString("\n")
	}
	if !a.loaded && a.err == nil {
		b.WriteString(a.mutedStyle.Render("Loading..."))
		b.WriteString("\n")
	}

	b.WriteString(a.panel.View())
	b.WriteString("\n")
	b.WriteString(a.detailView())
	b.WriteString("\n")
	if a.filter.Focused() || a.filter.Value() != "" {
		b.WriteString(a.filter.View())
		b.WriteString("\n")
	}

	help := "↑/↓ select  / filter  r reload  q quit"
	if !a.loadedAt.IsZero() {
		help += "  updated " + a.loadedAt.Format(time.TimeOnly)
	}
	b.WriteString(a.mutedStyle.Render(help))
	return b.String()
}

func (a *BoardApp) detailView() string {
	t := a.panel.SelectedTask()
	if t == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s", t.TaskID, a.mutedStyle.Render("project "+t.Project+"  owner "+t.Owner))
	if t.Description != "" {
		b.WriteString("\n" + t.Description)
	}
	if reason := t.Reason(); reason != "" {
		b.WriteString("\n" + a.reasonStyle.Render(string(t.Status)+": "+reason))
	}
	b.WriteString("\n" + a.mutedStyle.Render(fmt.Sprintf("%d blockers  %d artifacts  %d worklog",
		len(t.Blockers), len(t.Artifacts), len(t.Worklog))))
	if n := len(t.Worklog); n > 0 {
		last := t.Worklog[n-1]
		b.WriteString("\n" + a.mutedStyle.Render(fmt.Sprintf("latest: %s (%s)", last.Content, last.CreatedBy)))
	}
	return b.String()
}

// RunBoard runs the board view until the user quits or ctx is done.
func RunBoard(ctx context.Context, load Loader, changes <-chan struct{}) error {
	p := tea.NewProgram(NewBoardApp(ctx, load, changes), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
