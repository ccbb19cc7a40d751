package mapper

import (
	"time"

	"post-editor-be/internal/entity"
	"post-editor-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PostMapper struct{}

func NewPostMapper() *PostMapper {
	return &PostMapper{}
}

func (m *PostMapper) ToEntity(p *model.Post) *entity.Post {
	if p == nil {
		return nil
	}

	var deletedAt *time.Time
	if p.DeletedAt.Valid {
		t := p.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		updatedAt = &t
	}

	return &entity.Post{
		Id:        p.Id,
		Title:     p.Title,
		Content:   string(p.Content),
		PlainText: p.PlainText,
		AuthorId:  p.AuthorId,
		Revision:  p.Revision,
		CreatedAt: p.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: p.DeletedAt.Valid,
	}
}

func (m *PostMapper) ToModel(p *entity.Post) *model.Post {
	if p == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if p.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *p.DeletedAt, Valid: true}
	} else if p.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	// jsonb rejects the empty string
	var content datatypes.JSON
	if p.Content != "" {
		content = datatypes.JSON(p.Content)
	}

	return &model.Post{
		Id:        p.Id,
		Title:     p.Title,
		Content:   content,
		PlainText: p.PlainText,
		AuthorId:  p.AuthorId,
		Revision:  p.Revision,
		CreatedAt: p.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}
