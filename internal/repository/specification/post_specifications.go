package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostAuthoredBy struct {
	AuthorID uuid.UUID
}

func (s PostAuthoredBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("posts.author_id = ?", s.AuthorID)
}

// TitleContains matches a case-insensitive substring of the title.
type TitleContains struct {
	Query string
}

func (s TitleContains) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("title ILIKE ?", "%"+s.Query+"%")
}
