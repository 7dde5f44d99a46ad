package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"visionboard-backend/internal/db"
	"visionboard-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

const photoColumns = `id, user_id, vision_board_id, original_url, original_file_key,
		cropped_url, cropped_file_key, crop_data, text_overlay, display_order, created_at, updated_at`

// PhotoService owns photo CRUD, board attachment and ordering. Storage
// cleanup on delete is best-effort: the database row always wins over
// storage hygiene, and orphaned blobs are left for an out-of-band sweep.
type PhotoService struct {
	db    db.Querier
	store ObjectStore
	log   *slog.Logger
}

func NewPhotoService(q db.Querier, store ObjectStore, log *slog.Logger) *PhotoService {
	return &PhotoService{db: q, store: store, log: log}
}

func scanPhoto(row pgx.Row) (*models.Photo, error) {
	var p models.Photo
	var cropJSON, overlayJSON []byte
	err := row.Scan(&p.ID, &p.UserID, &p.VisionBoardID, &p.OriginalURL, &p.OriginalFileKey,
		&p.CroppedURL, &p.CroppedFileKey, &cropJSON, &overlayJSON, &p.DisplayOrder,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if cropJSON != nil {
		if err := json.Unmarshal(cropJSON, &p.CropData); err != nil {
			return nil, fmt.Errorf("malformed crop data on photo %s: %w", p.ID, err)
		}
	}
	if overlayJSON != nil {
		if err := json.Unmarshal(overlayJSON, &p.TextOverlay); err != nil {
			return nil, fmt.Errorf("malformed text overlay on photo %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

// Create inserts a photo row after a successful upload. When the photo is
// created on a board, its display_order is the board's current photo count
// so new photos append rather than collide at 0.
func (s *PhotoService) Create(ctx context.Context, ownerID string, boardID *string, originalURL, originalKey string) (*models.Photo, error) {
	order := 0
	if boardID != nil {
		n, err := s.CountForBoard(ctx, *boardID, ownerID)
		if err != nil {
			return nil, err
		}
		order = n
	}

	query := `INSERT INTO photos (user_id, vision_board_id, original_url, original_file_key, display_order)
		VALUES ($1, $2, $3, $4, $5) RETURNING ` + photoColumns
	photo, err := scanPhoto(s.db.QueryRow(ctx, query, ownerID, boardID, originalURL, originalKey, order))
	if err != nil {
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}
	return photo, nil
}

func (s *PhotoService) Get(ctx context.Context, photoID, ownerID string) (*models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1 AND user_id = $2`
	photo, err := scanPhoto(s.db.QueryRow(ctx, query, photoID, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch photo: %w", err)
	}
	return photo, nil
}

// GetAll returns all of the caller's photos, newest first.
func (s *PhotoService) GetAll(ctx context.Context, ownerID string) ([]models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE user_id = $1 ORDER BY created_at DESC`
	return s.queryPhotos(ctx, query, ownerID)
}

// GetUnassigned returns the caller's library photos with no board reference.
func (s *PhotoService) GetUnassigned(ctx context.Context, ownerID string) ([]models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos
		WHERE user_id = $1 AND vision_board_id IS NULL ORDER BY created_at DESC`
	return s.queryPhotos(ctx, query, ownerID)
}

// GetForBoard returns a board's photos in display order.
func (s *PhotoService) GetForBoard(ctx context.Context, boardID, ownerID string) ([]models.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos
		WHERE vision_board_id = $1 AND user_id = $2 ORDER BY display_order ASC`
	return s.queryPhotos(ctx, query, boardID, ownerID)
}

func (s *PhotoService) queryPhotos(ctx context.Context, query string, args ...any) ([]models.Photo, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch photos: %w", err)
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

// Update applies a partial patch and stamps updated_at. An empty patch
// still bumps the timestamp. Zero matched rows surface as ErrNotFound.
func (s *PhotoService) Update(ctx context.Context, photoID, ownerID string, patch models.PhotoPatch) (*models.Photo, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}

	switch {
	case patch.DetachBoard:
		sets = append(sets, "vision_board_id = NULL")
	case patch.VisionBoardID != nil:
		args = append(args, *patch.VisionBoardID)
		sets = append(sets, fmt.Sprintf("vision_board_id = $%d", len(args)))
	}
	if patch.CroppedURL != nil {
		args = append(args, *patch.CroppedURL)
		sets = append(sets, fmt.Sprintf("cropped_url = $%d", len(args)))
	}
	if patch.CroppedFileKey != nil {
		args = append(args, *patch.CroppedFileKey)
		sets = append(sets, fmt.Sprintf("cropped_file_key = $%d", len(args)))
	}
	if patch.CropData != nil {
		raw, err := json.Marshal(patch.CropData)
		if err != nil {
			return nil, fmt.Errorf("failed to encode crop data: %w", err)
		}
		args = append(args, raw)
		sets = append(sets, fmt.Sprintf("crop_data = $%d", len(args)))
	}
	if patch.TextOverlay != nil {
		raw, err := json.Marshal(patch.TextOverlay)
		if err != nil {
			return nil, fmt.Errorf("failed to encode text overlay: %w", err)
		}
		args = append(args, raw)
		sets = append(sets, fmt.Sprintf("text_overlay = $%d", len(args)))
	}
	if patch.DisplayOrder != nil {
		args = append(args, *patch.DisplayOrder)
		sets = append(sets, fmt.Sprintf("display_order = $%d", len(args)))
	}

	args = append(args, photoID, ownerID)
	query := fmt.Sprintf(`UPDATE photos SET %s WHERE id = $%d AND user_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), photoColumns)

	photo, err := scanPhoto(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update photo: %w", err)
	}
	return photo, nil
}

// Delete removes the photo row and reclaims its blobs. Storage failures are
// logged and swallowed: record deletion never blocks on storage, so a
// failed blob delete leaks until the out-of-band reconciliation sweep.
func (s *PhotoService) Delete(ctx context.Context, photoID, ownerID string) error {
	var originalKey string
	var croppedKey *string
	err := s.db.QueryRow(ctx,
		`SELECT original_file_key, cropped_file_key FROM photos WHERE id = $1 AND user_id = $2`,
		photoID, ownerID).Scan(&originalKey, &croppedKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to fetch photo: %w", err)
	}

	keys := []string{originalKey}
	if croppedKey != nil {
		keys = append(keys, *croppedKey)
	}
	if err := s.store.DeleteMany(ctx, keys); err != nil {
		s.log.Warn("failed to delete photo files from storage", "photo_id", photoID, "keys", keys, "error", err)
	}

	ct, err := s.db.Exec(ctx, `DELETE FROM photos WHERE id = $1 AND user_id = $2`, photoID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AttachToBoard sets the photo's board reference. A nil displayOrder
// appends the photo after the board's current photos.
func (s *PhotoService) AttachToBoard(ctx context.Context, photoID, ownerID, boardID string, displayOrder *int) (*models.Photo, error) {
	if displayOrder == nil {
		n, err := s.CountForBoard(ctx, boardID, ownerID)
		if err != nil {
			return nil, err
		}
		displayOrder = &n
	}
	return s.Update(ctx, photoID, ownerID, models.PhotoPatch{
		VisionBoardID: &boardID,
		DisplayOrder:  displayOrder,
	})
}

// DetachFromBoard nulls the board reference, returning the photo to the
// library. display_order is deliberately left stale until the photo is
// reattached or reordered.
func (s *PhotoService) DetachFromBoard(ctx context.Context, photoID, ownerID string) (*models.Photo, error) {
	return s.Update(ctx, photoID, ownerID, models.PhotoPatch{DetachBoard: true})
}

// SetCrop records a cropped variant produced by the client editor.
func (s *PhotoService) SetCrop(ctx context.Context, photoID, ownerID, croppedURL, croppedKey string, cropData *models.CropData) (*models.Photo, error) {
	return s.Update(ctx, photoID, ownerID, models.PhotoPatch{
		CroppedURL:     &croppedURL,
		CroppedFileKey: &croppedKey,
		CropData:       cropData,
	})
}

// SetTextOverlay records the photo's caption.
func (s *PhotoService) SetTextOverlay(ctx context.Context, photoID, ownerID string, overlay *models.TextOverlay) (*models.Photo, error) {
	return s.Update(ctx, photoID, ownerID, models.PhotoPatch{TextOverlay: overlay})
}

// Reorder assigns display_order = positional index for every photo in the
// given sequence, in one transaction. Any id the caller does not own rolls
// the whole reorder back with ErrNotFound; there is no partial reorder.
func (s *PhotoService) Reorder(ctx context.Context, ownerID string, photoIDs []string) error {
	if len(photoIDs) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, photoID := range photoIDs {
		ct, err := tx.Exec(ctx,
			`UPDATE photos SET display_order = $1, updated_at = now() WHERE id = $2 AND user_id = $3`,
			i, photoID, ownerID)
		if err != nil {
			return fmt.Errorf("failed to reorder photo %s: %w", photoID, err)
		}
		if ct.RowsAffected() == 0 {
			return ErrNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}

// BulkDelete deletes photos one by one with Delete's best-effort storage
// semantics. A failure stops the loop but does not roll back earlier
// deletions.
func (s *PhotoService) BulkDelete(ctx context.Context, ownerID string, photoIDs []string) error {
	for _, photoID := range photoIDs {
		if err := s.Delete(ctx, photoID, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the caller's total photo count.
func (s *PhotoService) Count(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM photos WHERE user_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count photos: %w", err)
	}
	return count, nil
}

// CountForBoard returns the number of photos on a board.
func (s *PhotoService) CountForBoard(ctx context.Context, boardID, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM photos WHERE vision_board_id = $1 AND user_id = $2`,
		boardID, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count board photos: %w", err)
	}
	return count, nil
}
