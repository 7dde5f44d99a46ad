package models

import "time"

// VisionBoard is a named collection of ordered photos belonging to one user.
type VisionBoard struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	Title              string     `json:"title"`
	Description        *string    `json:"description"`
	CoverImageURL      *string    `json:"cover_image_url"`
	MontageVideoURL    *string    `json:"montage_video_url"`
	MontageVideoKey    *string    `json:"montage_video_key"`
	MontageGeneratedAt *time.Time `json:"montage_generated_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// VisionBoardWithDetails is a board plus its ordered photos, attached
// crystals and montage settings, as returned by GET /api/boards/:id.
type VisionBoardWithDetails struct {
	VisionBoard
	Photos          []Photo          `json:"photos"`
	Crystals        []Crystal        `json:"crystals"`
	MontageSettings *MontageSettings `json:"montage_settings,omitempty"`
}

// BoardPatch carries the fields of a partial board update. Nil means
// "leave unchanged"; a provided empty description is stored as null.
type BoardPatch struct {
	Title         *string
	Description   *string
	CoverImageURL *string
}

type CreateBoardRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}
