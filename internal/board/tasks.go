package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/herd/internal/org"
	"github.com/ShayCichocki/herd/pkg/models"
)

const (
	// MaxLatestTasks caps ListLatestTasks regardless of the requested limit.
	MaxLatestTasks = 100

	// DefaultProject is the project marker for tasks created without one.
	DefaultProject = "~"
)

const statusValuesMessage = "Task status must be one of: todo, doing, pending, blocked, done."

const taskColumns = `task_id, board_id, created_at, updated_at, project, owner_agent_id,
	assigned_to_agent_id, title, description, status, status_reason`

// CreateTaskInput holds the fields for a new task. Zero values take defaults.
type CreateTaskInput struct {
	Title        string
	Description  string
	AssignedTo   string
	Status       string
	StatusReason string
	Project      string
}

// ListLatestOptions filters ListLatestTasks.
type ListLatestOptions struct {
	// Assignee limits results to one agent when set.
	Assignee string
	// Limit is capped at MaxLatestTasks. Zero or negative means the cap.
	Limit int
}

// CreateTask creates a task on boardID. When boardID is empty the actor must
// be a manager and the task lands on the actor's default board.
func (s *Store) CreateTask(ctx context.Context, actorID, boardID string, in CreateTaskInput) (models.Task, error) {
	const op = "create task"
	var task models.Task

	err := s.do(ctx, op, func(db *DB) error {
		actor, err := s.actor(ctx, op, actorID)
		if err != nil {
			return err
		}

		title := strings.TrimSpace(in.Title)
		if title == "" {
			return invalid(op, "Task title is required.")
		}
		status := models.TaskStatusTodo
		if strings.TrimSpace(in.Status) != "" {
			parsed, ok := models.ParseTaskStatus(in.Status)
			if !ok {
				return invalid(op, statusValuesMessage)
			}
			status = parsed
		}
		reason, err := reasonFor(op, status, in.StatusReason)
		if err != nil {
			return err
		}
		if !status.RequiresReason() {
			reason = nil
		}

		isManager := org.IsManagerAgent(actor)
		boardID = strings.TrimSpace(boardID)
		if boardID == "" && !isManager {
			return invalid(op, "Board id is required for non-manager agents.")
		}

		assignee := org.NormalizeID(in.AssignedTo)
		if assignee == "" {
			assignee = actor.ID
		}
		if assignee != actor.ID {
			if !isManager {
				return unauthorized(op, "Only managers can assign tasks to other agents.")
			}
			target, err := s.dir.GetManifest(ctx, assignee)
			if err != nil {
				return fmt.Errorf("resolve agent %s: %w", assignee, err)
			}
			if !org.IsDirectReport(target, actor.ID) {
				return unauthorized(op, "Managers can only assign tasks to their direct reportees.")
			}
		}

		project := strings.TrimSpace(in.Project)
		if project == "" {
			project = DefaultProject
		}

		return db.Transaction(ctx, func(tx *sql.Tx) error {
			var board models.Board
			if boardID == "" {
				board, err = s.defaultBoard(ctx, tx, actor)
			} else {
				board, err = getBoard(ctx, tx, op, boardID)
			}
			if err != nil {
				return err
			}

			now := s.timestamp()
			task = models.Task{
				TaskID:       "task-" + hexSuffix(),
				BoardID:      board.BoardID,
				Project:      project,
				Owner:        actor.ID,
				AssignedTo:   assignee,
				Title:        title,
				Description:  strings.TrimSpace(in.Description),
				Status:       status,
				StatusReason: reason,
				Blockers:     []models.TaskEntry{},
				Artifacts:    []models.TaskEntry{},
				Worklog:      []models.TaskEntry{},
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO tasks (`+taskColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				task.TaskID, task.BoardID, formatTime(now), formatTime(now), task.Project, task.Owner,
				task.AssignedTo, task.Title, task.Description, string(task.Status), nullString(reason),
			)
			if err != nil {
				return fmt.Errorf("insert task: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// UpdateTaskStatus moves a task to status. Only the assignee may do this.
// Entering pending or blocked requires a reason. Leaving them keeps the
// stored reason unless a new one is given.
func (s *Store) UpdateTaskStatus(ctx context.Context, actorID, taskID, status, reason string) (models.Task, error) {
	const op = "update task status"
	var task models.Task

	err := s.do(ctx, op, func(db *DB) error {
		actor, err := s.actor(ctx, op, actorID)
		if err != nil {
			return err
		}
		next, ok := models.ParseTaskStatus(status)
		if !ok {
			return invalid(op, statusValuesMessage)
		}

		task, err = getTask(ctx, db, op, taskID)
		if err != nil {
			return err
		}
		if task.AssignedTo != actor.ID {
			return unauthorized(op, "Only the assigned agent can update task status.")
		}

		newReason, err := reasonFor(op, next, reason)
		if err != nil {
			return err
		}
		if newReason == nil {
			newReason = task.StatusReason
		}

		now := s.timestamp()
		_, err = db.ExecContext(ctx, `
			UPDATE tasks SET status = ?, status_reason = ?, updated_at = ? WHERE task_id = ?
		`, string(next), nullString(newReason), formatTime(now), task.TaskID)
		if err != nil {
			return fmt.Errorf("update task status: %w", err)
		}

		task.Status = next
		task.StatusReason = newReason
		task.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// AddTaskBlocker appends a blocker to the task. Only the assignee may do this.
func (s *Store) AddTaskBlocker(ctx context.Context, actorID, taskID, content string) (models.Task, error) {
	return s.addEntry(ctx, "add task blocker", models.EntryBlocker, actorID, taskID, content)
}

// AddTaskArtifact appends an artifact to the task. Only the assignee may do this.
func (s *Store) AddTaskArtifact(ctx context.Context, actorID, taskID, content string) (models.Task, error) {
	return s.addEntry(ctx, "add task artifact", models.EntryArtifact, actorID, taskID, content)
}

// AddTaskWorklog appends a worklog entry to the task. Only the assignee may do this.
func (s *Store) AddTaskWorklog(ctx context.Context, actorID, taskID, content string) (models.Task, error) {
	return s.addEntry(ctx, "add task worklog", models.EntryWorklog, actorID, taskID, content)
}

func (s *Store) addEntry(ctx context.Context, op string, kind models.EntryKind, actorID, taskID, content string) (models.Task, error) {
	var task models.Task

	err := s.do(ctx, op, func(db *DB) error {
		actor, err := s.actor(ctx, op, actorID)
		if err != nil {
			return err
		}
		content = strings.TrimSpace(content)
		if content == "" {
			return invalid(op, fmt.Sprintf("Task %s content is required.", kind))
		}

		task, err = getTask(ctx, db, op, taskID)
		if err != nil {
			return err
		}
		if task.AssignedTo != actor.ID {
			return unauthorized(op, fmt.Sprintf("Only the assigned agent can update task %s.", entryListName(kind)))
		}

		entry := models.TaskEntry{
			Content:   content,
			CreatedBy: actor.ID,
			CreatedAt: s.timestamp(),
		}
		err = db.Transaction(ctx, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO task_entries (task_id, kind, content, created_by, created_at)
				VALUES (?, ?, ?, ?, ?)
			`, task.TaskID, string(kind), entry.Content, entry.CreatedBy, formatTime(entry.CreatedAt))
			if err != nil {
				return fmt.Errorf("insert task %s: %w", kind, err)
			}
			_, err = tx.ExecContext(ctx, "UPDATE tasks SET updated_at = ? WHERE task_id = ?",
				formatTime(entry.CreatedAt), task.TaskID)
			if err != nil {
				return fmt.Errorf("touch task: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		task.UpdatedAt = entry.CreatedAt
		switch kind {
		case models.EntryBlocker:
			task.Blockers = append(task.Blockers, entry)
		case models.EntryArtifact:
			task.Artifacts = append(task.Artifacts, entry)
		case models.EntryWorklog:
			task.Worklog = append(task.Worklog, entry)
		}
		return nil
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// GetTask returns a task by id. The lookup ignores case.
func (s *Store) GetTask(ctx context.Context, taskID string) (models.Task, error) {
	const op = "get task"
	var task models.Task
	err := s.do(ctx, op, func(db *DB) error {
		var err error
		task, err = getTask(ctx, db, op, taskID)
		return err
	})
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// ListTasks returns the tasks on a board, oldest first.
func (s *Store) ListTasks(ctx context.Context, boardID string) ([]models.Task, error) {
	const op = "list tasks"
	var tasks []models.Task

	err := s.do(ctx, op, func(db *DB) error {
		board, err := getBoard(ctx, db, op, boardID)
		if err != nil {
			return err
		}
		tasks, err = queryTasks(ctx, db, `
			SELECT `+taskColumns+` FROM tasks
			WHERE board_id = ?
			ORDER BY created_at ASC, rowid ASC
		`, board.BoardID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListLatestTasks returns the most recently created tasks across all boards,
// newest first, at most MaxLatestTasks of them.
func (s *Store) ListLatestTasks(ctx context.Context, opts ListLatestOptions) ([]models.Task, error) {
	const op = "list latest tasks"
	limit := opts.Limit
	if limit <= 0 || limit > MaxLatestTasks {
		limit = MaxLatestTasks
	}
	assignee := org.NormalizeID(opts.Assignee)

	var tasks []models.Task
	err := s.do(ctx, op, func(db *DB) error {
		var err error
		if assignee == "" {
			tasks, err = queryTasks(ctx, db, `
				SELECT `+taskColumns+` FROM tasks
				ORDER BY created_at DESC, rowid DESC
				LIMIT ?
			`, limit)
		} else {
			tasks, err = queryTasks(ctx, db, `
				SELECT `+taskColumns+` FROM tasks
				WHERE assigned_to_agent_id = ?
				ORDER BY created_at DESC, rowid DESC
				LIMIT ?
			`, assignee, limit)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func getTask(ctx context.Context, q querier, op, taskID string) (models.Task, error) {
	id := strings.TrimSpace(taskID)
	if id == "" {
		return models.Task{}, invalid(op, "Task id is required.")
	}
	tasks, err := queryTasks(ctx, q, `
		SELECT `+taskColumns+` FROM tasks
		WHERE lower(task_id) = lower(?)
		LIMIT 1
	`, id)
	if err != nil {
		return models.Task{}, err
	}
	if len(tasks) == 0 {
		return models.Task{}, notFound(op, fmt.Sprintf("Task %q was not found.", id))
	}
	return tasks[0], nil
}

// queryTasks runs a task query and attaches each task's entries.
func queryTasks(ctx context.Context, q querier, query string, args ...any) ([]models.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	tasks := []models.Task{}
	index := make(map[string]int)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[t.TaskID] = len(tasks)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	rows.Close()

	if len(tasks) == 0 {
		return tasks, nil
	}
	if err := attachEntries(ctx, q, tasks, index); err != nil {
		return nil, err
	}
	return tasks, nil
}

func attachEntries(ctx context.Context, q querier, tasks []models.Task, index map[string]int) error {
	placeholders := make([]string, len(tasks))
	args := make([]any, len(tasks))
	for i, t := range tasks {
		placeholders[i] = "?"
		args[i] = t.TaskID
	}

	rows, err := q.QueryContext(ctx, `
		SELECT task_id, kind, content, created_by, created_at
		FROM task_entries
		WHERE task_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY entry_id ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("query task entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID, kind, createdAt string
			e                       models.TaskEntry
		)
		if err := rows.Scan(&taskID, &kind, &e.Content, &e.CreatedBy, &createdAt); err != nil {
			return fmt.Errorf("scan task entry: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)

		i, ok := index[taskID]
		if !ok {
			continue
		}
		switch models.EntryKind(kind) {
		case models.EntryBlocker:
			tasks[i].Blockers = append(tasks[i].Blockers, e)
		case models.EntryArtifact:
			tasks[i].Artifacts = append(tasks[i].Artifacts, e)
		case models.EntryWorklog:
			tasks[i].Worklog = append(tasks[i].Worklog, e)
		}
	}
	return rows.Err()
}

func scanTask(r rowScanner) (models.Task, error) {
	var (
		t         models.Task
		createdAt string
		updatedAt sql.NullString
		status    string
		reason    sql.NullString
	)
	err := r.Scan(&t.TaskID, &t.BoardID, &createdAt, &updatedAt, &t.Project, &t.Owner,
		&t.AssignedTo, &t.Title, &t.Description, &status, &reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, err
		}
		return models.Task{}, fmt.Errorf("scan task: %w", err)
	}

	t.Status = models.TaskStatus(status)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = t.CreatedAt
	if updatedAt.Valid && updatedAt.String != "" {
		t.UpdatedAt = parseTime(updatedAt.String)
	}
	if reason.Valid {
		v := reason.String
		t.StatusReason = &v
	}
	if t.Project == "" {
		t.Project = DefaultProject
	}
	t.Blockers = []models.TaskEntry{}
	t.Artifacts = []models.TaskEntry{}
	t.Worklog = []models.TaskEntry{}
	return t, nil
}

// reasonFor validates the reason for entering status. It returns nil when the
// caller gave none and status does not need one.
func reasonFor(op string, status models.TaskStatus, raw string) (*string, error) {
	reason := strings.TrimSpace(raw)
	if reason == "" {
		if status.RequiresReason() {
			return nil, invalid(op, fmt.Sprintf("Reason is required when task status is %q.", string(status)))
		}
		return nil, nil
	}
	return &reason, nil
}

func entryListName(kind models.EntryKind) string {
	switch kind {
	case models.EntryBlocker:
		return "blockers"
	case models.EntryArtifact:
		return "artifacts"
	default:
		return string(kind)
	}
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
