package models

import "time"

// MontageSettings are the per-board preferences the montage generator reads.
// Generation itself happens outside this service; only the record is owned
// here.
type MontageSettings struct {
	ID            string    `json:"id"`
	VisionBoardID string    `json:"vision_board_id"`
	PhotoDuration float64   `json:"photo_duration"`
	MusicURL      *string   `json:"music_url"`
	MusicFileKey  *string   `json:"music_file_key"`
	MusicSource   *string   `json:"music_source"`   // public, local or spotify
	TimingMode    string    `json:"timing_mode"`    // fixed or matchMusic
	MusicBehavior string    `json:"music_behavior"` // fadeOut or loop
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MontageSettingsInput is the writable subset accepted by the upsert endpoint.
type MontageSettingsInput struct {
	PhotoDuration float64 `json:"photo_duration"`
	MusicURL      *string `json:"music_url"`
	MusicFileKey  *string `json:"music_file_key"`
	MusicSource   *string `json:"music_source"`
	TimingMode    string  `json:"timing_mode"`
	MusicBehavior string  `json:"music_behavior"`
}
