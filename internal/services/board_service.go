package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"visionboard-backend/internal/db"
	"visionboard-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const boardColumns = `id, user_id, title, description, cover_image_url,
		montage_video_url, montage_video_key, montage_generated_at, created_at, updated_at`

// BoardService owns vision board CRUD and crystal associations. Every
// operation is scoped by (id AND user_id); a non-owner never observes more
// than a not-found.
type BoardService struct {
	db    db.Querier
	store ObjectStore
	log   *slog.Logger
}

func NewBoardService(q db.Querier, store ObjectStore, log *slog.Logger) *BoardService {
	return &BoardService{db: q, store: store, log: log}
}

func scanBoard(row pgx.Row) (*models.VisionBoard, error) {
	var b models.VisionBoard
	err := row.Scan(&b.ID, &b.UserID, &b.Title, &b.Description, &b.CoverImageURL,
		&b.MontageVideoURL, &b.MontageVideoKey, &b.MontageGeneratedAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new board with null media fields. The title is trimmed
// and must be non-empty; the description is trimmed and stored as null when
// empty.
func (s *BoardService) Create(ctx context.Context, ownerID, title string, description *string) (*models.VisionBoard, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	var desc *string
	if description != nil {
		if d := strings.TrimSpace(*description); d != "" {
			desc = &d
		}
	}

	query := `INSERT INTO vision_boards (user_id, title, description) VALUES ($1, $2, $3)
		RETURNING ` + boardColumns
	board, err := scanBoard(s.db.QueryRow(ctx, query, ownerID, title, desc))
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	return board, nil
}

// GetAll returns the caller's boards, newest first.
func (s *BoardService) GetAll(ctx context.Context, ownerID string) ([]models.VisionBoard, error) {
	query := `SELECT ` + boardColumns + ` FROM vision_boards WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch boards: %w", err)
	}
	defer rows.Close()

	boards := []models.VisionBoard{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, *b)
	}
	return boards, rows.Err()
}

func (s *BoardService) Get(ctx context.Context, boardID, ownerID string) (*models.VisionBoard, error) {
	query := `SELECT ` + boardColumns + ` FROM vision_boards WHERE id = $1 AND user_id = $2`
	board, err := scanBoard(s.db.QueryRow(ctx, query, boardID, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch board: %w", err)
	}
	return board, nil
}

// Update applies a partial patch and stamps updated_at. An empty patch
// still bumps the timestamp. Zero matched rows (absent or other-owner)
// surface as ErrNotFound, never a silent no-op.
func (s *BoardService) Update(ctx context.Context, boardID, ownerID string, patch models.BoardPatch) (*models.VisionBoard, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		args = append(args, title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Description != nil {
		var desc *string
		if d := strings.TrimSpace(*patch.Description); d != "" {
			desc = &d
		}
		args = append(args, desc)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.CoverImageURL != nil {
		args = append(args, *patch.CoverImageURL)
		sets = append(sets, fmt.Sprintf("cover_image_url = $%d", len(args)))
	}

	args = append(args, boardID, ownerID)
	query := fmt.Sprintf(`UPDATE vision_boards SET %s WHERE id = $%d AND user_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), boardColumns)

	board, err := scanBoard(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update board: %w", err)
	}
	return board, nil
}

// Delete removes the board row. The montage video blob, if any, is
// reclaimed best-effort first; a storage failure is logged and never blocks
// the row deletion. Photos keep their rows with the board reference nulled
// by the schema.
func (s *BoardService) Delete(ctx context.Context, boardID, ownerID string) error {
	var videoKey *string
	err := s.db.QueryRow(ctx,
		`SELECT montage_video_key FROM vision_boards WHERE id = $1 AND user_id = $2`,
		boardID, ownerID).Scan(&videoKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to fetch board: %w", err)
	}

	if videoKey != nil {
		if err := s.store.Delete(ctx, *videoKey); err != nil {
			s.log.Warn("failed to delete montage video from storage", "key", *videoKey, "error", err)
		}
	}

	ct, err := s.db.Exec(ctx, `DELETE FROM vision_boards WHERE id = $1 AND user_id = $2`, boardID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetMontageVideo records the montage output produced by the external
// generator and stamps montage_generated_at.
func (s *BoardService) SetMontageVideo(ctx context.Context, boardID, ownerID, videoURL, videoKey string) (*models.VisionBoard, error) {
	query := `UPDATE vision_boards
		SET montage_video_url = $1, montage_video_key = $2, montage_generated_at = now(), updated_at = now()
		WHERE id = $3 AND user_id = $4 RETURNING ` + boardColumns
	board, err := scanBoard(s.db.QueryRow(ctx, query, videoURL, videoKey, boardID, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record montage video: %w", err)
	}
	return board, nil
}

// ReplaceCrystals swaps the board's crystal associations for the given set.
// The delete and inserts run in one transaction, so a failed insert never
// leaves the board with zero associations.
func (s *BoardService) ReplaceCrystals(ctx context.Context, boardID, ownerID string, crystalIDs []string) error {
	var one int
	err := s.db.QueryRow(ctx,
		`SELECT 1 FROM vision_boards WHERE id = $1 AND user_id = $2`, boardID, ownerID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to fetch board: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM vision_board_crystals WHERE vision_board_id = $1`, boardID); err != nil {
		return fmt.Errorf("failed to clear crystal associations: %w", err)
	}
	for _, crystalID := range crystalIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO vision_board_crystals (vision_board_id, crystal_id) VALUES ($1, $2)`,
			boardID, crystalID)
		if err != nil {
			return fmt.Errorf("failed to attach crystal %s: %w", crystalID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit crystal replacement: %w", err)
	}
	return nil
}

const crystalColumns = `id, name, color, energy, description, image_url`

// ListCrystals returns the full crystal catalog.
func (s *BoardService) ListCrystals(ctx context.Context) ([]models.Crystal, error) {
	rows, err := s.db.Query(ctx, `SELECT `+crystalColumns+` FROM crystals ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch crystals: %w", err)
	}
	defer rows.Close()
	return collectCrystals(rows)
}

// GetBoardCrystals returns the crystals associated with a board, scoped by
// owner through the boards table.
func (s *BoardService) GetBoardCrystals(ctx context.Context, boardID, ownerID string) ([]models.Crystal, error) {
	query := `SELECT c.id, c.name, c.color, c.energy, c.description, c.image_url
		FROM crystals c
		JOIN vision_board_crystals vbc ON vbc.crystal_id = c.id
		JOIN vision_boards vb ON vb.id = vbc.vision_board_id
		WHERE vbc.vision_board_id = $1 AND vb.user_id = $2
		ORDER BY c.name`
	rows, err := s.db.Query(ctx, query, boardID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch board crystals: %w", err)
	}
	defer rows.Close()
	return collectCrystals(rows)
}

func collectCrystals(rows pgx.Rows) ([]models.Crystal, error) {
	crystals := []models.Crystal{}
	for rows.Next() {
		var c models.Crystal
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Energy, &c.Description, &c.ImageURL); err != nil {
			return nil, err
		}
		crystals = append(crystals, c)
	}
	return crystals, rows.Err()
}

// Count returns the number of boards the caller owns.
func (s *BoardService) Count(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM vision_boards WHERE user_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count boards: %w", err)
	}
	return count, nil
}
