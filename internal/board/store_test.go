package board

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ShayCichocki/herd/internal/org"
	"github.com/ShayCichocki/herd/pkg/models"
)

// testOrg is ceo -> {cto -> engineer, qa}.
func testOrg() *org.Graph {
	src := org.NewMapSource(map[string]map[string]any{
		"ceo": {"name": "CEO"},
		"cto": {"name": "CTO", "type": "manager", "reportsTo": "ceo"},
		"engineer": {
			"name":      "Engineer",
			"type":      "individual",
			"reportsTo": "cto",
		},
		"qa": {"name": "QA", "type": "individual", "reportsTo": "ceo"},
	})
	return org.New(src, "ceo")
}

// testClock returns a clock that advances one millisecond per call.
func testClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

// openTestStore opens a store at path and closes it when the test ends.
func openTestStore(t *testing.T, path string, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(testClock())}, opts...)
	s, err := Open(context.Background(), path, testOrg(), opts...)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// setupTestStore creates a store in a temp home directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	return openTestStore(t, DBPath(t.TempDir()))
}

// insertRawTask writes a task row directly, bypassing authorization.
func insertRawTask(t *testing.T, s *Store, taskID, boardID, createdAt, owner, assignee string) {
	t.Helper()
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO tasks (task_id, board_id, created_at, project, owner_agent_id,
			assigned_to_agent_id, title, description, status, status_reason)
		VALUES (?, ?, ?, '~', ?, ?, ?, ?, 'todo', NULL)
	`, taskID, boardID, createdAt, owner, assignee, "Title "+taskID, "Description for "+taskID)
	if err != nil {
		t.Fatalf("insert raw task %s: %v", taskID, err)
	}
}

func expectError(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", msg)
	}
	if !errors.Is(err, kind) {
		t.Errorf("expected %v, got %v", kind, err)
	}
	if msg != "" && err.Error() != msg {
		t.Errorf("Error() = %q, want %q", err.Error(), msg)
	}
}

func TestOpen_CreatesFileAndIndexes(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested", "home")
	s := openTestStore(t, DBPath(home))

	if s.Path() != filepath.Join(home, "boards.sqlite") {
		t.Errorf("Path() = %q", s.Path())
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Fatalf("database file not created: %v", err)
	}

	for _, name := range []string{
		"idx_tasks_status",
		"idx_tasks_created_at",
		"idx_tasks_assignee_created_at",
		"idx_task_entries_task",
	} {
		var count int
		row := s.db.QueryRowContext(context.Background(),
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = ?", name)
		if err := row.Scan(&count); err != nil {
			t.Fatalf("query index %s: %v", name, err)
		}
		if count != 1 {
			t.Errorf("index %s missing", name)
		}
	}
}

func TestOpen_FailsUnderRegularFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(context.Background(), DBPath(blocker), testOrg())
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	if err := s.db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var version int
	if err := s.db.QueryRowContext(context.Background(), "SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != 3 {
		t.Errorf("schema version = %d, want 3", version)
	}
}

func TestTwoStoresShareFile(t *testing.T) {
	ctx := context.Background()
	path := DBPath(t.TempDir())
	a := openTestStore(t, path)
	b := openTestStore(t, path)

	board, err := a.CreateBoard(ctx, "ceo", "Shared")
	if err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}

	before, err := b.ListTasks(ctx, board.BoardID)
	if err != nil {
		t.Fatalf("ListTasks on b: %v", err)
	}
	if len(before) != 0 {
		t.Fatalf("expected empty board, got %d tasks", len(before))
	}

	task, err := a.CreateTask(ctx, "ceo", board.BoardID, CreateTaskInput{Title: "From A"})
	if err != nil {
		t.Fatalf("CreateTask on a: %v", err)
	}

	after, err := b.ListTasks(ctx, board.BoardID)
	if err != nil {
		t.Fatalf("ListTasks on b: %v", err)
	}
	if len(after) != 1 || after[0].TaskID != task.TaskID {
		t.Fatalf("b did not see a's task: %+v", after)
	}

	// b writes, a sees it.
	if _, err := b.AddTaskWorklog(ctx, "ceo", task.TaskID, "picked up by b"); err != nil {
		t.Fatalf("AddTaskWorklog on b: %v", err)
	}
	got, err := a.GetTask(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("GetTask on a: %v", err)
	}
	if len(got.Worklog) != 1 {
		t.Errorf("a did not see b's worklog: %+v", got.Worklog)
	}
}

func TestFingerprintChangesOnForeignWrite(t *testing.T) {
	ctx := context.Background()
	path := DBPath(t.TempDir())
	a := openTestStore(t, path)
	b := openTestStore(t, path)

	if _, err := a.ListBoards(ctx); err != nil {
		t.Fatal(err)
	}
	seen := takeFingerprint(path)

	if _, err := b.CreateBoard(ctx, "ceo", "Elsewhere"); err != nil {
		t.Fatal(err)
	}
	if takeFingerprint(path).equal(seen) {
		t.Error("fingerprint did not change after another store wrote")
	}
}

func TestReloadFailureIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	home := t.TempDir()
	dir := filepath.Join(home, "boards")
	s := openTestStore(t, DBPath(dir), WithReloadRetries(2))

	// Replace the directory with a regular file so reopening cannot succeed.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := s.ListBoards(ctx)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		t.Errorf("persistence error matched another kind: %v", err)
	}
}

func TestWatch_SignalsForeignWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := DBPath(t.TempDir())
	watched := openTestStore(t, path)
	writer := openTestStore(t, path)

	changes, err := watched.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if _, err := writer.CreateBoard(ctx, "ceo", "Watched"); err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal within 5s")
	}
	if !watched.changedSinceLastOp() {
		t.Error("watched store does not see the foreign write as a change")
	}

	boards, err := watched.ListBoards(ctx)
	if err != nil {
		t.Fatalf("ListBoards: %v", err)
	}
	if len(boards) != 1 {
		t.Errorf("expected 1 board, got %d", len(boards))
	}

	cancel()
	for range changes {
	}
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name    string
		err     error
		matches error
		text    string
	}{
		{"unauthorized", unauthorized("op", "Only managers can create boards."), ErrUnauthorized, "Only managers can create boards."},
		{"validation", invalid("op", "Task title is required."), ErrValidation, "Task title is required."},
		{"not found", notFound("op", `Task "x" was not found.`), ErrNotFound, `Task "x" was not found.`},
		{"persistence", persistence("create task", cause), ErrPersistence, "create task: disk full"},
	}

	all := []error{ErrUnauthorized, ErrValidation, ErrNotFound, ErrPersistence}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, sentinel := range all {
				if got := errors.Is(tt.err, sentinel); got != (sentinel == tt.matches) {
					t.Errorf("errors.Is(%v) = %v", sentinel, got)
				}
			}
			if tt.err.Error() != tt.text {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.text)
			}
		})
	}

	if !errors.Is(persistence("op", cause), cause) {
		t.Error("persistence error does not unwrap to its cause")
	}
	inner := invalid("inner", "bad")
	if persistence("outer", inner) != inner {
		t.Error("persistence re-wrapped an existing board error")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Platform Roadmap", "platform-roadmap"},
		{"  Q3 -- Launch!! ", "q3-launch"},
		{"***", "board"},
		{"", "board"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := slugify("this title keeps going well past the length any reasonable id should have")
	if len(long) > maxSlugLength {
		t.Errorf("slug not truncated: %q", long)
	}
}

func TestBoardIDFormat(t *testing.T) {
	id := newBoardID("Platform Roadmap")
	if !regexp.MustCompile(`^platform-roadmap-[0-9a-f]{8}$`).MatchString(id) {
		t.Errorf("unexpected board id %q", id)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 2, 10, 0, 0, 0, 7_000_000, time.UTC)
	if got := parseTime(formatTime(ts)); !got.Equal(ts) {
		t.Errorf("round trip = %v, want %v", got, ts)
	}
	if got := formatTime(ts); got != "2026-02-10T00:00:00.007Z" {
		t.Errorf("formatTime = %q", got)
	}
	if !parseTime("garbage").IsZero() {
		t.Error("parseTime accepted garbage")
	}
}

var _ Directory = (*org.Graph)(nil)

func TestDirectoryErrorPropagates(t *testing.T) {
	s := setupTestStore(t)
	s.dir = failingDirectory{}

	_, err := s.CreateBoard(context.Background(), "ceo", "Nope")
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}

type failingDirectory struct{}

func (failingDirectory) GetManifest(ctx context.Context, agentID string) (models.AgentManifest, error) {
	return models.AgentManifest{}, errors.New("manifest source unavailable")
}

func TestWatch_QuietWithSingleWriter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := setupTestStore(t)
	changes, err := s.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if _, err := s.CreateBoard(ctx, "ceo", "Solo"); err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}

	// Read after every signal the way board watch does; the store's own
	// activity must not keep the channel firing.
	signals := 0
	deadline := time.After(1500 * time.Millisecond)
loop:
	for {
		select {
		case <-changes:
			signals++
			if _, err := s.ListBoards(ctx); err != nil {
				t.Fatalf("ListBoards: %v", err)
			}
		case <-deadline:
			break loop
		}
	}
	if signals > 3 {
		t.Errorf("got %d change signals with a single writer, want at most 3", signals)
	}

	cancel()
	for range changes {
	}
}
