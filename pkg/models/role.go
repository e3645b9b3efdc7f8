package models

// Role is a persona a user talks to. It owns zero or more knowledge
// entries and is referenced (not owned) by threads.
type Role struct {
	ID      string `json:"id"`
	VoiceID string `json:"voice_id,omitempty"`
	// BelongsTo is the opaque id of the user that owns this persona.
	BelongsTo   string `json:"belongs_to"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Avatar is an icon reference; clients manage its meaning.
	Avatar     string `json:"avatar,omitempty"`
	Background string `json:"background,omitempty"`
}
