package models

// Crystal is a catalog entry a user can associate with a board.
// Associations live in the vision_board_crystals join table and have no
// ordering.
type Crystal struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       *string `json:"color"`
	Energy      *string `json:"energy"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}
