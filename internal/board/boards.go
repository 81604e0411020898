package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/herd/internal/org"
	"github.com/ShayCichocki/herd/pkg/models"
)

const maxSlugLength = 48

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// UpdateBoardInput holds the mutable board fields. Nil leaves a field unchanged.
type UpdateBoardInput struct {
	Title *string
}

// CreateBoard creates a board owned by actorID. Only managers may create boards.
func (s *Store) CreateBoard(ctx context.Context, actorID, title string) (models.Board, error) {
	const op = "create board"
	var board models.Board

	err := s.do(ctx, op, func(db *DB) error {
		actor, err := s.actor(ctx, op, actorID)
		if err != nil {
			return err
		}
		title = strings.TrimSpace(title)
		if title == "" {
			return invalid(op, "Board title is required.")
		}
		if !org.IsManagerAgent(actor) {
			return unauthorized(op, "Only managers can create boards.")
		}

		board = models.Board{
			BoardID:   newBoardID(title),
			Title:     title,
			Owner:     actor.ID,
			CreatedAt: s.timestamp(),
		}
		return insertBoard(ctx, db, board)
	})
	if err != nil {
		return models.Board{}, err
	}
	return board, nil
}

// UpdateBoard changes a board's title. Only the board owner may update it.
func (s *Store) UpdateBoard(ctx context.Context, actorID, boardID string, in UpdateBoardInput) (models.Board, error) {
	const op = "update board"
	var board models.Board

	err := s.do(ctx, op, func(db *DB) error {
		actor, err := s.actor(ctx, op, actorID)
		if err != nil {
			return err
		}
		board, err = getBoard(ctx, db, op, boardID)
		if err != nil {
			return err
		}
		if board.Owner != actor.ID {
			return unauthorized(op, "Only board owners can update their own board.")
		}
		if in.Title == nil {
			return nil
		}

		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return invalid(op, "Board title is required.")
		}
		if _, err := db.ExecContext(ctx, "UPDATE boards SET title = ? WHERE board_id = ?", title, board.BoardID); err != nil {
			return fmt.Errorf("update board: %w", err)
		}
		board.Title = title
		return nil
	})
	if err != nil {
		return models.Board{}, err
	}
	return board, nil
}

// GetBoard returns a board by id.
func (s *Store) GetBoard(ctx context.Context, boardID string) (models.Board, error) {
	const op = "get board"
	var board models.Board
	err := s.do(ctx, op, func(db *DB) error {
		var err error
		board, err = getBoard(ctx, db, op, boardID)
		return err
	})
	return board, err
}

// ListBoards returns every board, oldest first.
func (s *Store) ListBoards(ctx context.Context) ([]models.Board, error) {
	const op = "list boards"
	var boards []models.Board

	err := s.do(ctx, op, func(db *DB) error {
		rows, err := db.QueryContext(ctx, `
			SELECT board_id, title, owner_agent_id, is_default, created_at
			FROM boards ORDER BY created_at ASC, rowid ASC
		`)
		if err != nil {
			return fmt.Errorf("query boards: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			b, err := scanBoard(rows)
			if err != nil {
				return err
			}
			boards = append(boards, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return boards, nil
}

// defaultBoard returns the manager's default board, creating it on first use.
func (s *Store) defaultBoard(ctx context.Context, q querier, owner models.AgentManifest) (models.Board, error) {
	row := q.QueryRowContext(ctx, `
		SELECT board_id, title, owner_agent_id, is_default, created_at
		FROM boards WHERE owner_agent_id = ? AND is_default = 1
		ORDER BY created_at ASC, rowid ASC LIMIT 1
	`, owner.ID)
	b, err := scanBoard(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Board{}, err
	}

	name := owner.Name
	if name == "" {
		name = owner.ID
	}
	title := name + " Board"
	b = models.Board{
		BoardID:   newBoardID(title),
		Title:     title,
		Owner:     owner.ID,
		IsDefault: true,
		CreatedAt: s.timestamp(),
	}
	if err := insertBoard(ctx, q, b); err != nil {
		return models.Board{}, err
	}
	s.logger.Debug("created default board", "board", b.BoardID, "owner", owner.ID)
	return b, nil
}

func insertBoard(ctx context.Context, q querier, b models.Board) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO boards (board_id, title, owner_agent_id, is_default, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, b.BoardID, b.Title, b.Owner, boolToInt(b.IsDefault), formatTime(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

func getBoard(ctx context.Context, q querier, op, boardID string) (models.Board, error) {
	id := strings.TrimSpace(boardID)
	if id == "" {
		return models.Board{}, invalid(op, "Board id is required.")
	}
	row := q.QueryRowContext(ctx, `
		SELECT board_id, title, owner_agent_id, is_default, created_at
		FROM boards WHERE board_id = ?
	`, id)
	b, err := scanBoard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Board{}, notFound(op, fmt.Sprintf("Board %q was not found.", id))
	}
	return b, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBoard(r rowScanner) (models.Board, error) {
	var (
		b         models.Board
		isDefault int
		createdAt string
	)
	if err := r.Scan(&b.BoardID, &b.Title, &b.Owner, &isDefault, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Board{}, err
		}
		return models.Board{}, fmt.Errorf("scan board: %w", err)
	}
	b.IsDefault = isDefault != 0
	b.CreatedAt = parseTime(createdAt)
	return b, nil
}

// actor resolves the acting agent. An empty id is a validation error.
func (s *Store) actor(ctx context.Context, op, actorID string) (models.AgentManifest, error) {
	id := org.NormalizeID(actorID)
	if id == "" {
		return models.AgentManifest{}, invalid(op, "Actor agent id is required.")
	}
	m, err := s.dir.GetManifest(ctx, id)
	if err != nil {
		return models.AgentManifest{}, fmt.Errorf("resolve agent %s: %w", id, err)
	}
	return m, nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// newBoardID returns "<slug>-<8 hex>".
func newBoardID(title string) string {
	return slugify(title) + "-" + hexSuffix()
}

func slugify(title string) string {
	slug := strings.Trim(slugSeparators.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return "board"
	}
	return slug
}

func hexSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
