package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/herd/pkg/models"
)

func sampleTasks() []models.Task {
	reason := "waiting on design review"
	return []models.Task{
		{TaskID: "task-00000001", Title: "Write API docs", Status: models.TaskStatusTodo, AssignedTo: "engineer", Project: "~", Owner: "cto"},
		{TaskID: "task-00000002", Title: "Fix login", Status: models.TaskStatusBlocked, StatusReason: &reason, AssignedTo: "qa", Project: "~", Owner: "cto",
			Worklog: []models.TaskEntry{{Content: "reproduced", CreatedBy: "qa"}}},
		{TaskID: "task-00000003", Title: "Ship release", Status: models.TaskStatusDone, AssignedTo: "engineer", Project: "~", Owner: "cto"},
	}
}

func staticLoader(tasks []models.Task) Loader {
	return func(ctx context.Context) (models.Board, []models.Task, error) {
		return models.Board{BoardID: "platform-0a1b2c3d", Title: "Platform", Owner: "cto"}, tasks, nil
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedApp(t *testing.T) *BoardApp {
	t.Helper()
	app := NewBoardApp(context.Background(), staticLoader(sampleTasks()), nil)
	msg := app.reload()()
	app.Update(msg)
	return app
}

func TestBoardApp_Load(t *testing.T) {
	app := loadedApp(t)

	if !app.loaded {
		t.Fatal("expected board to be loaded")
	}
	view := app.View()
	for _, want := range []string{"Platform", "platform-0a1b2c3d", "Write API docs", "Fix login", "2 open, 1 done"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestBoardApp_LoadError(t *testing.T) {
	app := NewBoardApp(context.Background(), func(ctx context.Context) (models.Board, []models.Task, error) {
		return models.Board{}, nil, errors.New("Board \"gone\" was not found.")
	}, nil)
	app.Update(app.reload()())

	if app.loaded {
		t.Error("expected board not to be loaded")
	}
	if !strings.Contains(app.View(), "was not found") {
		t.Error("expected error in view")
	}
}

func TestBoardApp_SelectionShowsDetail(t *testing.T) {
	app := loadedApp(t)

	app.Update(key("down"))

	selected := app.panel.SelectedTask()
	if selected == nil || selected.TaskID != "task-00000002" {
		t.Fatalf("expected second task selected, got %+v", selected)
	}
	view := app.View()
	if !strings.Contains(view, "blocked: waiting on design review") {
		t.Error("expected status reason in detail view")
	}
	if !strings.Contains(view, "latest: reproduced (qa)") {
		t.Error("expected latest worklog in detail view")
	}
}

func TestBoardApp_Filter(t *testing.T) {
	app := loadedApp(t)

	app.Update(key("/"))
	if !app.filter.Focused() {
		t.Fatal("expected filter to be focused")
	}
	for _, r := range "engineer" {
		app.Update(key(string(r)))
	}
	if len(app.panel.tasks) != 2 {
		t.Errorf("expected 2 tasks for engineer, got %d", len(app.panel.tasks))
	}

	app.Update(key("enter"))
	if app.filter.Focused() {
		t.Error("expected enter to leave filter mode")
	}
	if len(app.panel.tasks) != 2 {
		t.Error("expected filter to persist after enter")
	}

	app.Update(key("esc"))
	if len(app.panel.tasks) != 3 {
		t.Errorf("expected esc to clear filter, got %d tasks", len(app.panel.tasks))
	}
}

func TestBoardApp_QuitKeys(t *testing.T) {
	app := loadedApp(t)

	_, cmd := app.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestBoardApp_ReloadOnChange(t *testing.T) {
	calls := 0
	changes := make(chan struct{}, 1)
	app := NewBoardApp(context.Background(), func(ctx context.Context) (models.Board, []models.Task, error) {
		calls++
		return models.Board{BoardID: "b"}, sampleTasks()[:calls], nil
	}, changes)

	app.Update(app.reload()())
	if len(app.tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(app.tasks))
	}

	changes <- struct{}{}
	msg := app.waitForChange()()
	if _, ok := msg.(BoardChangedMsg); !ok {
		t.Fatalf("expected BoardChangedMsg, got %T", msg)
	}
	app.Update(app.reload()())
	if len(app.tasks) != 2 {
		t.Errorf("expected 2 tasks after reload, got %d", len(app.tasks))
	}

	close(changes)
	if msg := app.waitForChange()(); msg != nil {
		t.Errorf("expected nil message after channel close, got %T", msg)
	}
}

func TestBoardApp_NilChanges(t *testing.T) {
	app := NewBoardApp(context.Background(), staticLoader(nil), nil)
	if cmd := app.waitForChange(); cmd != nil {
		t.Error("expected no wait command without a change channel")
	}
}

func TestTasksPanel_SelectionFollowsTaskID(t *testing.T) {
	p := NewTasksPanel()
	tasks := sampleTasks()
	p.SetTasks(tasks)
	p.Update(key("down"))
	p.Update(key("down"))

	// reorder and drop the first task
	p.SetTasks([]models.Task{tasks[2], tasks[1]})

	if got := p.SelectedTask(); got == nil || got.TaskID != "task-00000003" {
		t.Errorf("expected selection to stay on task-00000003, got %+v", got)
	}
}

func TestTasksPanel_Scroll(t *testing.T) {
	p := NewTasksPanel()
	p.SetSize(80, 6) // two visible rows
	p.SetTasks(sampleTasks())

	p.Update(key("G"))
	if p.selected != 2 || p.scrollOffset != 1 {
		t.Errorf("selected=%d scrollOffset=%d, want 2 and 1", p.selected, p.scrollOffset)
	}
	p.Update(key("g"))
	if p.selected != 0 || p.scrollOffset != 0 {
		t.Errorf("selected=%d scrollOffset=%d, want 0 and 0", p.selected, p.scrollOffset)
	}
}

func TestTasksPanel_Empty(t *testing.T) {
	p := NewTasksPanel()
	if p.SelectedTask() != nil {
		t.Error("expected no selection")
	}
	if !strings.Contains(p.View(), "No tasks") {
		t.Error("expected empty message")
	}
}

func TestFilterTasks(t *testing.T) {
	tasks := sampleTasks()
	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"  ", 3},
		{"BLOCKED", 1},
		{"qa", 1},
		{"task-0000000", 3},
		{"login", 1},
		{"nothing", 0},
	}
	for _, tt := range tests {
		if got := filterTasks(tasks, tt.query); len(got) != tt.want {
			t.Errorf("filterTasks(%q) returned %d tasks, want %d", tt.query, len(got), tt.want)
		}
	}
}
