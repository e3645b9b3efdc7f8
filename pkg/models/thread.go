package models

// Thread is an ordered conversation session between a user and a role.
// Content is append-only; append order equals chronological order.
type Thread struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	RoleID string `json:"role_id"`
	Title  string `json:"title,omitempty"`
	// Content is the ordered message log. Never reordered, never edited.
	Content []Message `json:"content"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts"`
	// Updated timestamp (ns) - bumped on every append, monotonically
	// non-decreasing
	UpdatedTS int64 `json:"updated_ts"`
}
