package models

// KnowledgeType distinguishes free-text entries from file-derived ones.
type KnowledgeType string

const (
	KnowledgeText KnowledgeType = "text"
	KnowledgeFile KnowledgeType = "file"
)

// Knowledge is one stored memory entry attached to a role. Identity is
// immutable; content may be updated in place. RoleID is not validated
// against the role registry at write time; dangling references are
// tolerated by readers.
type Knowledge struct {
	ID      string        `json:"id"`
	RoleID  string        `json:"role_id"`
	Name    string        `json:"name,omitempty"`
	Content string        `json:"content"`
	Type    KnowledgeType `json:"type"`
	// Created/Updated timestamps (ns)
	CreatedTS int64 `json:"created_ts"`
	UpdatedTS int64 `json:"updated_ts"`
}
