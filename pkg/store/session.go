package store

import (
	"sync"
	"sync/atomic"
	"time"

	"post-editor-be/pkg/editor"

	"github.com/google/uuid"
)

// EditorSession is one mounted editor bound to a post and its author.
// The editor is single-threaded; every access goes through Do.
type EditorSession struct {
	ID       string
	PostID   uuid.UUID
	UserID   uuid.UUID
	OpenedAt time.Time

	mu         sync.Mutex
	editor     *editor.Editor
	resizer    *editor.ImageResizer
	lastActive time.Time
	closers    []func()
	closed     bool

	revision      atomic.Int64
	staleRevision atomic.Int64
	stale         atomic.Bool
}

func NewEditorSession(postID, userID uuid.UUID, ed *editor.Editor, revision int) *EditorSession {
	now := time.Now()
	s := &EditorSession{
		ID:         uuid.NewString(),
		PostID:     postID,
		UserID:     userID,
		OpenedAt:   now,
		editor:     ed,
		resizer:    editor.NewImageResizer(ed),
		lastActive: now,
	}
	s.revision.Store(int64(revision))
	return s
}

// Do runs fn with exclusive access to the editor and its image resizer.
func (s *EditorSession) Do(fn func(ed *editor.Editor, r *editor.ImageResizer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	return fn(s.editor, s.resizer)
}

// Revision is the post revision the session content is based on.
func (s *EditorSession) Revision() int {
	return int(s.revision.Load())
}

// Saved records a successful save at revision and clears the stale flag.
func (s *EditorSession) Saved(revision int) {
	s.revision.Store(int64(revision))
	s.staleRevision.Store(0)
	s.stale.Store(false)
}

// MarkStale flags that the post was saved elsewhere at a newer revision.
// It returns false when revision is not newer than both the session base
// and the last revision already flagged, so redeliveries are ignored.
func (s *EditorSession) MarkStale(revision int) bool {
	rev := int64(revision)
	for {
		seen := s.staleRevision.Load()
		if rev <= s.revision.Load() || rev <= seen {
			return false
		}
		if s.staleRevision.CompareAndSwap(seen, rev) {
			s.stale.Store(true)
			return true
		}
	}
}

func (s *EditorSession) Stale() bool {
	return s.stale.Load()
}

func (s *EditorSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// OnClose registers fn to run once when the session is closed or evicted.
func (s *EditorSession) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

// Close runs the registered close hooks once.
func (s *EditorSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()
	for _, fn := range closers {
		fn()
	}
}
