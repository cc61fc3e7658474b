package store

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message inside a cached conversation. Turns are never edited
// after they are appended.
type Turn struct {
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	ContextChunks string    `json:"context_chunks,omitempty"` // JSON of grounding fragment refs
	CreatedAt     time.Time `json:"created_at"`
}

// Session is the bounded, TTL-scoped conversation state held in the cache.
// It is not the permanent chat history; that lives in the database.
type Session struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"owner_id"`
	KnowledgeBaseID   string    `json:"knowledge_base_id"`
	KnowledgeBaseName string    `json:"knowledge_base_name"`
	Turns             []Turn    `json:"turns"`
	CreatedAt         time.Time `json:"created_at"`
	LastActiveAt      time.Time `json:"last_active_at"`
}
