package memory

import (
	"time"

	"post-editor-be/pkg/store"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	cache *cache.Cache
}

// NewSessionRepository keeps sessions for ttl after their last touch and purges expired
// ones every janitor interval. Evicted sessions are closed.
func NewSessionRepository(ttl, janitor time.Duration) *SessionRepository {
	c := cache.New(ttl, janitor)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*store.EditorSession); ok {
			s.Close()
		}
	})
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(session *store.EditorSession) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

// Get returns the session and extends its lifetime.
func (r *SessionRepository) Get(sessionID string) (*store.EditorSession, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	s := x.(*store.EditorSession)
	r.cache.Set(sessionID, s, cache.DefaultExpiration)
	return s, true
}

// FindByPost lists the live sessions open on postID.
func (r *SessionRepository) FindByPost(postID uuid.UUID) []*store.EditorSession {
	var out []*store.EditorSession
	for _, item := range r.cache.Items() {
		if s, ok := item.Object.(*store.EditorSession); ok && s.PostID == postID {
			out = append(out, s)
		}
	}
	return out
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

// Delete removes the session and runs its close hooks.
func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
