package service

import (
	"errors"

	"ragone-be/pkg/character/profile"
)

var (
	ErrKnowledgeBaseNotFound = errors.New("knowledge base not found")
	ErrCharacterNotFound     = errors.New("character not found")
	ErrProfileNotFound       = errors.New("character profile not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrHistoryNotFound       = errors.New("conversation record not found")

	ErrSessionNotActive       = errors.New("session is not active")
	ErrCharacterNotActive     = errors.New("character is not active")
	ErrProfileNotCompleted    = errors.New("character profile is not completed")
	ErrProfileGenerating      = errors.New("character profile generation already in progress")
	ErrDuplicateCharacterName = errors.New("character name already exists")
	ErrDuplicateKnowledgeBase = errors.New("knowledge base name already exists")
	ErrKnowledgeBaseInUse     = errors.New("knowledge base is used by characters")

	ErrInvalidRating         = errors.New("rating must be between 1 and 5")
	ErrInvalidTemplateConfig = profile.ErrInvalidTemplateConfig
)

// IsInvalidInput reports whether err rejects caller input the validator cannot see.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidRating) || errors.Is(err, ErrInvalidTemplateConfig)
}

// IsNotFound reports whether err wraps one of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKnowledgeBaseNotFound) ||
		errors.Is(err, ErrCharacterNotFound) ||
		errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrHistoryNotFound)
}

// IsConflict reports whether err is a state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrCharacterNotActive) ||
		errors.Is(err, ErrProfileNotCompleted) ||
		errors.Is(err, ErrProfileGenerating) ||
		errors.Is(err, ErrDuplicateCharacterName) ||
		errors.Is(err, ErrDuplicateKnowledgeBase) ||
		errors.Is(err, ErrKnowledgeBaseInUse)
}
