package contract

import (
	"context"

	"post-editor-be/internal/entity"
	"post-editor-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PostRepository interface {
	Create(ctx context.Context, post *entity.Post) error
	// UpdateContent writes content and plain text and bumps the revision.
	UpdateContent(ctx context.Context, post *entity.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Post, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
