package models

import "time"

// CropData describes the crop rectangle and zoom a user applied to a photo.
type CropData struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Zoom   float64 `json:"zoom,omitempty"`
}

// TextOverlay is a caption rendered on top of a photo.
type TextOverlay struct {
	Text       string          `json:"text"`
	FontSize   float64         `json:"fontSize"`
	Color      string          `json:"color"`
	Position   OverlayPosition `json:"position"`
	FontFamily string          `json:"fontFamily,omitempty"`
	FontWeight string          `json:"fontWeight,omitempty"`
}

type OverlayPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Photo represents a user-uploaded photo. A nil VisionBoardID means the
// photo is unassigned and lives in the user's general library.
// DisplayOrder is only meaningful relative to photos on the same board.
type Photo struct {
	ID              string       `json:"id"`
	UserID          string       `json:"user_id"`
	VisionBoardID   *string      `json:"vision_board_id"`
	OriginalURL     string       `json:"original_url"`
	OriginalFileKey string       `json:"original_file_key"`
	CroppedURL      *string      `json:"cropped_url"`
	CroppedFileKey  *string      `json:"cropped_file_key"`
	CropData        *CropData    `json:"crop_data"`
	TextOverlay     *TextOverlay `json:"text_overlay"`
	DisplayOrder    int          `json:"display_order"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// PhotoPatch carries the fields of a partial photo update. Nil pointers are
// left unchanged. DetachBoard distinguishes an explicit null board reference
// from an absent one.
type PhotoPatch struct {
	VisionBoardID  *string
	DetachBoard    bool
	CroppedURL     *string
	CroppedFileKey *string
	CropData       *CropData
	TextOverlay    *TextOverlay
	DisplayOrder   *int
}
