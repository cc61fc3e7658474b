package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

func OrderByCreatedAsc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// NewestFirst orders by recency of activity, falling back to creation time.
func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("COALESCE(last_activity_at, created_at) DESC")
}
