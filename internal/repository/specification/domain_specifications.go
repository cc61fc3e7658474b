package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByKnowledgeBaseID struct {
	KnowledgeBaseID uuid.UUID
}

func (s ByKnowledgeBaseID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("knowledge_base_id = ?", s.KnowledgeBaseID)
}

type ByCharacterID struct {
	CharacterID uuid.UUID
}

func (s ByCharacterID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("character_id = ?", s.CharacterID)
}

// BySessionID matches the cache-facing session identifier, not the row id.
type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByRolePlaySessionID struct {
	RolePlaySessionID uuid.UUID
}

func (s ByRolePlaySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role_play_session_id = ?", s.RolePlaySessionID)
}

type ByName struct {
	Name string
}

func (s ByName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("name = ?", s.Name)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

type ExcludeID struct {
	ID uuid.UUID
}

func (s ExcludeID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id <> ?", s.ID)
}

// MatchesKeyword is a case-insensitive substring match on name or description.
type MatchesKeyword struct {
	Keyword string
}

func (s MatchesKeyword) Apply(db *gorm.DB) *gorm.DB {
	pattern := "%" + s.Keyword + "%"
	return db.Where("(name ILIKE ? OR description ILIKE ?)", pattern, pattern)
}

type PublicOnly struct{}

func (PublicOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_public = ?", true)
}
