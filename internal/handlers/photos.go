package handlers

import (
	"encoding/json"
	"net/http"

	"visionboard-backend/internal/models"
	"visionboard-backend/internal/services"
	"visionboard-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// ListPhotosHandler returns the caller's photos, optionally filtered to
// those not attached to any board (?unassigned=true).
func ListPhotosHandler(photoService *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var photos []models.Photo
		var err error
		if c.Query("unassigned") == "true" {
			photos, err = photoService.GetUnassigned(c.Context(), userID)
		} else {
			photos, err = photoService.GetAll(c.Context(), userID)
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"photos": photos})
	}
}

// UploadPhotoHandler validates and stores an uploaded image, then creates
// the photo row. Validation happens before any store write; a failed upload
// aborts record creation, and a failed record creation reclaims the upload.
func UploadPhotoHandler(photoService *services.PhotoService, boardService *services.BoardService, store services.ObjectStore, maxUploadMB int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "No file provided"})
		}

		if !allowedImageTypes[fileHeader.Header.Get("Content-Type")] {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid file type. Only JPEG, PNG, and WebP are allowed."})
		}
		if fileHeader.Size > int64(maxUploadMB)*1024*1024 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "File too large. Maximum size is 10MB."})
		}

		var boardID *string
		if v := c.FormValue("visionBoardId"); v != "" {
			if _, err := boardService.Get(c.Context(), v, userID); err != nil {
				return respondError(c, err)
			}
			boardID = &v
		}

		src, err := fileHeader.Open()
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "could not read file"})
		}
		defer src.Close()

		key := storage.PhotoKey(userID, storage.VariantOriginal, fileHeader.Filename)
		url, err := store.Upload(c.Context(), key, src, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			return respondError(c, err)
		}

		photo, err := photoService.Create(c.Context(), userID, boardID, url, key)
		if err != nil {
			// No row references the blob; reclaim it best-effort.
			_ = store.Delete(c.Context(), key)
			return respondError(c, err)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"photo": photo})
	}
}

// GetPhotoHandler returns one photo.
func GetPhotoHandler(photoService *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		photo, err := photoService.Get(c.Context(), c.Params("id"), userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"photo": photo})
	}
}

// UpdatePhotoHandler applies a partial patch. vision_board_id is decoded
// raw so an explicit null (detach) can be told apart from an absent field.
func UpdatePhotoHandler(photoService *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var body struct {
			VisionBoardID  json.RawMessage     `json:"vision_board_id"`
			CroppedURL     *string             `json:"cropped_url"`
			CroppedFileKey *string             `json:"cropped_file_key"`
			CropData       *models.CropData    `json:"crop_data"`
			TextOverlay    *models.TextOverlay `json:"text_overlay"`
			DisplayOrder   *int                `json:"display_order"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		patch := models.PhotoPatch{
			CroppedURL:     body.CroppedURL,
			CroppedFileKey: body.CroppedFileKey,
			CropData:       body.CropData,
			TextOverlay:    body.TextOverlay,
			DisplayOrder:   body.DisplayOrder,
		}
		if len(body.VisionBoardID) > 0 {
			if string(body.VisionBoardID) == "null" {
				patch.DetachBoard = true
			} else {
				var id string
				if err := json.Unmarshal(body.VisionBoardID, &id); err != nil {
					return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "vision_board_id must be a string or null"})
				}
				patch.VisionBoardID = &id
			}
		}

		photoID := c.Params("id")
		var photo *models.Photo
		var err error
		// Single-field patches go through the named operations; a bare
		// attach in particular gets the append-to-end display order.
		switch {
		case patch == (models.PhotoPatch{DetachBoard: true}):
			photo, err = photoService.DetachFromBoard(c.Context(), photoID, userID)
		case patch.VisionBoardID != nil && patch == (models.PhotoPatch{VisionBoardID: patch.VisionBoardID}):
			photo, err = photoService.AttachToBoard(c.Context(), photoID, userID, *patch.VisionBoardID, nil)
		case patch.TextOverlay != nil && patch == (models.PhotoPatch{TextOverlay: patch.TextOverlay}):
			photo, err = photoService.SetTextOverlay(c.Context(), photoID, userID, patch.TextOverlay)
		default:
			photo, err = photoService.Update(c.Context(), photoID, userID, patch)
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"photo": photo})
	}
}

// DeletePhotoHandler removes a photo row; its blobs are reclaimed
// best-effort by the service.
func DeletePhotoHandler(photoService *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := photoService.Delete(c.Context(), c.Params("id"), userID); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// CropPhotoHandler uploads a cropped variant produced by the client editor
// and records it on the photo together with the crop rectangle.
func CropPhotoHandler(photoService *services.PhotoService, store services.ObjectStore, maxUploadMB int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		photoID := c.Params("id")

		if _, err := photoService.Get(c.Context(), photoID, userID); err != nil {
			return respondError(c, err)
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "No file provided"})
		}
		if !allowedImageTypes[fileHeader.Header.Get("Content-Type")] {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid file type. Only JPEG, PNG, and WebP are allowed."})
		}
		if fileHeader.Size > int64(maxUploadMB)*1024*1024 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "File too large. Maximum size is 10MB."})
		}

		var cropData *models.CropData
		if v := c.FormValue("crop_data"); v != "" {
			cropData = &models.CropData{}
			if err := json.Unmarshal([]byte(v), cropData); err != nil {
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "crop_data must be valid JSON"})
			}
		}

		src, err := fileHeader.Open()
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "could not read file"})
		}
		defer src.Close()

		key := storage.PhotoKey(userID, storage.VariantCropped, fileHeader.Filename)
		url, err := store.Upload(c.Context(), key, src, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			return respondError(c, err)
		}

		photo, err := photoService.SetCrop(c.Context(), photoID, userID, url, key, cropData)
		if err != nil {
			_ = store.Delete(c.Context(), key)
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"photo": photo})
	}
}

// ReorderPhotosHandler assigns display order by position for the given
// photo id sequence, transactionally.
func ReorderPhotosHandler(photoService *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var body struct {
			PhotoIDs []string `json:"photo_ids"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if len(body.PhotoIDs) == 0 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "photo_ids is required"})
		}

		if err := photoService.Reorder(c.Context(), userID, body.PhotoIDs); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// BulkDeletePhotosHandler deletes photos sequentially; earlier deletions
// stand even if a later one fails.
func BulkDeletePhotosHandler(photoService *services.PhotoService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var body struct {
			PhotoIDs []string `json:"photo_ids"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if len(body.PhotoIDs) == 0 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "photo_ids is required"})
		}

		if err := photoService.BulkDelete(c.Context(), userID, body.PhotoIDs); err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
