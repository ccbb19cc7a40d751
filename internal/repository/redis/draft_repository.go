package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Draft is the last committed document of an editor session that has not been saved to its post.
type Draft struct {
	PostID    uuid.UUID `json:"post_id"`
	UserID    uuid.UUID `json:"user_id"`
	SessionID string    `json:"session_id"`
	Content   string    `json:"content"`
	Revision  int       `json:"revision"` // post revision the draft was based on
	UpdatedAt time.Time `json:"updated_at"`
}

type DraftRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDraftRepository(rdb *redis.Client, ttl time.Duration) *DraftRepository {
	return &DraftRepository{rdb: rdb, ttl: ttl}
}

func draftKey(postID, userID uuid.UUID) string {
	return fmt.Sprintf("editor:draft:%s:%s", postID, userID)
}

// Save overwrites the draft of (post, user) and resets its TTL.
func (r *DraftRepository) Save(ctx context.Context, draft *Draft) error {
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	return r.rdb.Set(ctx, draftKey(draft.PostID, draft.UserID), data, r.ttl).Err()
}

// Get returns nil, nil when no draft is stored.
func (r *DraftRepository) Get(ctx context.Context, postID, userID uuid.UUID) (*Draft, error) {
	data, err := r.rdb.Get(ctx, draftKey(postID, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

func (r *DraftRepository) Delete(ctx context.Context, postID, userID uuid.UUID) error {
	return r.rdb.Del(ctx, draftKey(postID, userID)).Err()
}
