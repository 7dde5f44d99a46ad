package handlers

import (
	"net/http"

	"visionboard-backend/internal/models"
	"visionboard-backend/internal/services"
	"visionboard-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// GetBoardsHandler lists the authenticated user's boards, newest first.
func GetBoardsHandler(boardService *services.BoardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		boards, err := boardService.GetAll(c.Context(), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"boards": boards})
	}
}

// CreateBoardHandler creates a board from a title and optional description.
func CreateBoardHandler(boardService *services.BoardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req models.CreateBoardRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		board, err := boardService.Create(c.Context(), userID, req.Title, req.Description)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"board": board})
	}
}

// GetBoardHandler returns one board with its ordered photos, crystals and
// montage settings.
func GetBoardHandler(boardService *services.BoardService, photoService *services.PhotoService, montageService *services.MontageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		boardID := c.Params("id")

		board, err := boardService.Get(c.Context(), boardID, userID)
		if err != nil {
			return respondError(c, err)
		}

		photos, err := photoService.GetForBoard(c.Context(), boardID, userID)
		if err != nil {
			return respondError(c, err)
		}
		crystals, err := boardService.GetBoardCrystals(c.Context(), boardID, userID)
		if err != nil {
			return respondError(c, err)
		}
		settings, err := montageService.GetForBoard(c.Context(), boardID, userID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(fiber.Map{"board": models.VisionBoardWithDetails{
			VisionBoard:     *board,
			Photos:          photos,
			Crystals:        crystals,
			MontageSettings: settings,
		}})
	}
}

// UpdateBoardHandler applies a partial patch to a board.
func UpdateBoardHandler(boardService *services.BoardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var body struct {
			Title         *string `json:"title"`
			Description   *string `json:"description"`
			CoverImageURL *string `json:"cover_image_url"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		board, err := boardService.Update(c.Context(), c.Params("id"), userID, models.BoardPatch{
			Title:         body.Title,
			Description:   body.Description,
			CoverImageURL: body.CoverImageURL,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"board": board})
	}
}

// DeleteBoardHandler removes a board. Its photos stay in the library with
// their board reference nulled.
func DeleteBoardHandler(boardService *services.BoardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := boardService.Delete(c.Context(), c.Params("id"), userID); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// ReplaceCrystalsHandler swaps a board's crystal set for the one provided.
func ReplaceCrystalsHandler(boardService *services.BoardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		boardID := c.Params("id")

		var body struct {
			CrystalIDs []string `json:"crystal_ids"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		if err := boardService.ReplaceCrystals(c.Context(), boardID, userID, body.CrystalIDs); err != nil {
			return respondError(c, err)
		}

		crystals, err := boardService.GetBoardCrystals(c.Context(), boardID, userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"crystals": crystals})
	}
}

// ListCrystalsHandler returns the crystal catalog.
func ListCrystalsHandler(boardService *services.BoardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		crystals, err := boardService.ListCrystals(c.Context())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"crystals": crystals})
	}
}

// UploadMontageVideoHandler stores a generated montage video and records it
// on the board. The board is fetched first so an unauthorized caller fails
// before anything is written to storage.
func UploadMontageVideoHandler(boardService *services.BoardService, store services.ObjectStore, maxVideoMB int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		boardID := c.Params("id")

		if _, err := boardService.Get(c.Context(), boardID, userID); err != nil {
			return respondError(c, err)
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "video file is required"})
		}
		if fileHeader.Header.Get("Content-Type") != "video/mp4" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid file type. Only MP4 is allowed."})
		}
		if fileHeader.Size > int64(maxVideoMB)*1024*1024 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "File too large."})
		}

		src, err := fileHeader.Open()
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "could not read file"})
		}
		defer src.Close()

		key := storage.VideoKey(userID, boardID)
		url, err := store.Upload(c.Context(), key, src, fileHeader.Size, "video/mp4")
		if err != nil {
			return respondError(c, err)
		}

		board, err := boardService.SetMontageVideo(c.Context(), boardID, userID, url, key)
		if err != nil {
			// Record update failed; try to reclaim the orphaned upload.
			_ = store.Delete(c.Context(), key)
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"board": board})
	}
}

var allowedAudioTypes = map[string]bool{
	"audio/mpeg": true,
	"audio/mp3":  true,
	"audio/mp4":  true,
	"audio/wav":  true,
	"audio/ogg":  true,
}

// UploadMontageMusicHandler stores a local music track for a board's montage
// and returns its url and key for the settings upsert. The board is fetched
// first so an unauthorized caller fails before anything is written.
func UploadMontageMusicHandler(boardService *services.BoardService, store services.ObjectStore, maxUploadMB int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		boardID := c.Params("id")

		if _, err := boardService.Get(c.Context(), boardID, userID); err != nil {
			return respondError(c, err)
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "audio file is required"})
		}
		if !allowedAudioTypes[fileHeader.Header.Get("Content-Type")] {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid file type. Only MP3, MP4, WAV, and OGG audio are allowed."})
		}
		if fileHeader.Size > int64(maxUploadMB)*1024*1024 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "File too large."})
		}

		src, err := fileHeader.Open()
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "could not read file"})
		}
		defer src.Close()

		key := storage.MusicKey(userID, fileHeader.Filename)
		url, err := store.Upload(c.Context(), key, src, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"music_url": url, "music_file_key": key})
	}
}

// GetMontageSettingsHandler returns a board's montage settings, null when
// none have been saved.
func GetMontageSettingsHandler(boardService *services.BoardService, montageService *services.MontageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		boardID := c.Params("id")

		if _, err := boardService.Get(c.Context(), boardID, userID); err != nil {
			return respondError(c, err)
		}

		settings, err := montageService.GetForBoard(c.Context(), boardID, userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"settings": settings})
	}
}

// UpsertMontageSettingsHandler creates or replaces a board's montage settings.
func UpsertMontageSettingsHandler(montageService *services.MontageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var input models.MontageSettingsInput
		if err := c.BodyParser(&input); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		settings, err := montageService.Upsert(c.Context(), c.Params("id"), userID, input)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"settings": settings})
	}
}

// StatsHandler returns the dashboard counters.
func StatsHandler(boardService *services.BoardService, photoService *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		boardCount, err := boardService.Count(c.Context(), userID)
		if err != nil {
			return respondError(c, err)
		}
		photoCount, err := photoService.Count(c.Context(), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"board_count": boardCount, "photo_count": photoCount})
	}
}
