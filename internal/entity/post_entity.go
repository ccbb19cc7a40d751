package entity

import (
	"time"

	"github.com/google/uuid"
)

// Post is the sink of the editor's serialized content. Content holds Lexical JSON.
type Post struct {
	Id        uuid.UUID
	Title     string
	Content   string
	PlainText string
	AuthorId  uuid.UUID
	Revision  int
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
