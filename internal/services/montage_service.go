package services

import (
	"context"
	"errors"
	"fmt"

	"visionboard-backend/internal/db"
	"visionboard-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const montageColumns = `id, vision_board_id, photo_duration, music_url, music_file_key,
		music_source, timing_mode, music_behavior, created_at, updated_at`

// MontageService owns the per-board montage settings record. The montage
// video itself is produced by an external generator; only its preferences
// live here.
type MontageService struct {
	db db.Querier
}

func NewMontageService(q db.Querier) *MontageService {
	return &MontageService{db: q}
}

func scanMontageSettings(row pgx.Row) (*models.MontageSettings, error) {
	var m models.MontageSettings
	err := row.Scan(&m.ID, &m.VisionBoardID, &m.PhotoDuration, &m.MusicURL, &m.MusicFileKey,
		&m.MusicSource, &m.TimingMode, &m.MusicBehavior, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetForBoard returns the board's montage settings, or nil when none have
// been saved yet. Scoped by owner through the boards table.
func (s *MontageService) GetForBoard(ctx context.Context, boardID, ownerID string) (*models.MontageSettings, error) {
	query := `SELECT ms.id, ms.vision_board_id, ms.photo_duration, ms.music_url, ms.music_file_key,
			ms.music_source, ms.timing_mode, ms.music_behavior, ms.created_at, ms.updated_at
		FROM montage_settings ms
		JOIN vision_boards vb ON vb.id = ms.vision_board_id
		WHERE ms.vision_board_id = $1 AND vb.user_id = $2`
	settings, err := scanMontageSettings(s.db.QueryRow(ctx, query, boardID, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch montage settings: %w", err)
	}
	return settings, nil
}

// Upsert creates or replaces the board's montage settings.
func (s *MontageService) Upsert(ctx context.Context, boardID, ownerID string, input models.MontageSettingsInput) (*models.MontageSettings, error) {
	if err := validateMontageInput(input); err != nil {
		return nil, err
	}

	var one int
	err := s.db.QueryRow(ctx,
		`SELECT 1 FROM vision_boards WHERE id = $1 AND user_id = $2`, boardID, ownerID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch board: %w", err)
	}

	query := `INSERT INTO montage_settings
			(vision_board_id, photo_duration, music_url, music_file_key, music_source, timing_mode, music_behavior)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (vision_board_id) DO UPDATE SET
			photo_duration = EXCLUDED.photo_duration,
			music_url = EXCLUDED.music_url,
			music_file_key = EXCLUDED.music_file_key,
			music_source = EXCLUDED.music_source,
			timing_mode = EXCLUDED.timing_mode,
			music_behavior = EXCLUDED.music_behavior,
			updated_at = now()
		RETURNING ` + montageColumns
	settings, err := scanMontageSettings(s.db.QueryRow(ctx, query,
		boardID, input.PhotoDuration, input.MusicURL, input.MusicFileKey,
		input.MusicSource, input.TimingMode, input.MusicBehavior))
	if err != nil {
		return nil, fmt.Errorf("failed to save montage settings: %w", err)
	}
	return settings, nil
}

func validateMontageInput(input models.MontageSettingsInput) error {
	if input.PhotoDuration <= 0 {
		return fmt.Errorf("%w: photo_duration must be positive", ErrValidation)
	}
	if input.TimingMode != "fixed" && input.TimingMode != "matchMusic" {
		return fmt.Errorf("%w: timing_mode must be fixed or matchMusic", ErrValidation)
	}
	if input.MusicBehavior != "fadeOut" && input.MusicBehavior != "loop" {
		return fmt.Errorf("%w: music_behavior must be fadeOut or loop", ErrValidation)
	}
	if input.MusicSource != nil {
		switch *input.MusicSource {
		case "public", "local", "spotify":
		default:
			return fmt.Errorf("%w: music_source must be public, local or spotify", ErrValidation)
		}
	}
	return nil
}
