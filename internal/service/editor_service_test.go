package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"post-editor-be/internal/dto"
	"post-editor-be/internal/entity"
	"post-editor-be/internal/pkg/logger"
	"post-editor-be/internal/pkg/serverutils"
	"post-editor-be/internal/repository/contract"
	"post-editor-be/internal/repository/memory"
	redisrepo "post-editor-be/internal/repository/redis"
	"post-editor-be/internal/repository/specification"
	"post-editor-be/internal/repository/unitofwork"
	"post-editor-be/internal/websocket"
	"post-editor-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const hiDocument = `{"root":{"children":[{"type":"paragraph","children":[{"type":"text","text":"Hi"}]}]}}`

// fakePostRepository keeps posts in a map and understands the specifications the service uses.
type fakePostRepository struct {
	mu    sync.Mutex
	posts map[uuid.UUID]*entity.Post
}

func newFakePostRepository() *fakePostRepository {
	return &fakePostRepository{posts: make(map[uuid.UUID]*entity.Post)}
}

func (r *fakePostRepository) Create(ctx context.Context, post *entity.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *post
	r.posts[post.Id] = &cp
	return nil
}

func (r *fakePostRepository) UpdateContent(ctx context.Context, post *entity.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.posts[post.Id]
	if !ok {
		return errors.New("record not found")
	}
	now := time.Now()
	stored.Content = post.Content
	stored.PlainText = post.PlainText
	stored.Revision++
	stored.UpdatedAt = &now
	*post = *stored
	return nil
}

func (r *fakePostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

func (r *fakePostRepository) match(p *entity.Post, specs []specification.Specification) bool {
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByID:
			if p.Id != spec.ID {
				return false
			}
		case specification.PostAuthoredBy:
			if p.AuthorId != spec.AuthorID {
				return false
			}
		}
	}
	return true
}

func (r *fakePostRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.posts {
		if r.match(p, specs) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakePostRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.posts {
		if r.match(p, specs) {
			n++
		}
	}
	return n, nil
}

// bump simulates a save made by another session.
func (r *fakePostRepository) bump(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[id].Revision++
}

type fakeUnitOfWork struct {
	repo *fakePostRepository
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error         { return nil }
func (u *fakeUnitOfWork) Commit() error                           { return nil }
func (u *fakeUnitOfWork) Rollback() error                         { return nil }
func (u *fakeUnitOfWork) PostRepository() contract.PostRepository { return u.repo }

type fakeRepositoryFactory struct {
	repo *fakePostRepository
}

func (f *fakeRepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUnitOfWork{repo: f.repo}
}

type MockDraftStore struct {
	mock.Mock
}

func (m *MockDraftStore) Save(ctx context.Context, draft *redisrepo.Draft) error {
	args := m.Called(ctx, draft)
	return args.Error(0)
}

func (m *MockDraftStore) Get(ctx context.Context, postID, userID uuid.UUID) (*redisrepo.Draft, error) {
	args := m.Called(ctx, postID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*redisrepo.Draft), args.Error(1)
}

func (m *MockDraftStore) Delete(ctx context.Context, postID, userID uuid.UUID) error {
	args := m.Called(ctx, postID, userID)
	return args.Error(0)
}

type MockPublisherService struct {
	mock.Mock
}

func (m *MockPublisherService) Publish(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []websocket.Message
	closed []string
}

func (n *fakeNotifier) Send(msg websocket.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *fakeNotifier) CloseSession(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, sessionID)
}

func (n *fakeNotifier) messages() []websocket.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]websocket.Message(nil), n.sent...)
}

type editorFixture struct {
	svc       IEditorService
	repo      *fakePostRepository
	sessions  *memory.SessionRepository
	drafts    *MockDraftStore
	publisher *MockPublisherService
	events    *MockEventPublisher
	notifier  *fakeNotifier
}

func newEditorFixture(t *testing.T) *editorFixture {
	t.Helper()
	f := &editorFixture{
		repo:      newFakePostRepository(),
		sessions:  memory.NewSessionRepository(time.Hour, time.Hour),
		drafts:    new(MockDraftStore),
		publisher: new(MockPublisherService),
		events:    new(MockEventPublisher),
		notifier:  &fakeNotifier{},
	}
	f.drafts.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	f.drafts.On("Delete", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.events.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.svc = NewEditorService(
		&fakeRepositoryFactory{repo: f.repo},
		f.sessions,
		f.drafts,
		f.publisher,
		f.events,
		f.notifier,
		logger.NewNopLogger(),
		EditorOptions{MergeWindow: time.Second, HistoryLimit: 50},
	)
	return f
}

func firstTextKey(t *testing.T, state *dto.SessionStateResponse) string {
	t.Helper()
	require.NotEmpty(t, state.Outline)
	require.NotEmpty(t, state.Outline[0].Children)
	return state.Outline[0].Children[0].Key
}

func caret(key string, offset int) *dto.SelectionDTO {
	return &dto.SelectionDTO{
		Type:   "range",
		Anchor: &dto.PointDTO{Key: key, Offset: offset},
		Focus:  &dto.PointDTO{Key: key, Offset: offset},
	}
}

func insertText(text string) *dto.DispatchCommandRequest {
	raw, _ := json.Marshal(text)
	return &dto.DispatchCommandRequest{Type: "INSERT_TEXT", Payload: raw}
}

func TestOpenCreatesPost(t *testing.T) {
	f := newEditorFixture(t)
	userId := uuid.New()

	state, err := f.svc.Open(context.Background(), userId, &dto.OpenSessionRequest{Content: hiDocument})
	require.NoError(t, err)

	assert.NotEmpty(t, state.SessionId)
	assert.Equal(t, "Hi", state.PlainText)
	assert.Equal(t, 0, state.Revision)
	assert.False(t, state.CanUndo)
	assert.Contains(t, state.Markdown, "Hi")

	post, _ := f.repo.FindOne(context.Background(), specification.ByID{ID: state.PostId})
	require.NotNil(t, post)
	assert.Equal(t, "Untitled", post.Title)
	assert.Equal(t, userId, post.AuthorId)
	assert.Equal(t, "Hi", post.PlainText)

	f.events.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.EventType() == events.TypeEditorSessionOpened
	}))
}

func TestOpenForeignPostIsNotFound(t *testing.T) {
	f := newEditorFixture(t)
	postId := uuid.New()
	require.NoError(t, f.repo.Create(context.Background(), &entity.Post{Id: postId, Title: "x", AuthorId: uuid.New(), Content: hiDocument}))

	_, err := f.svc.Open(context.Background(), uuid.New(), &dto.OpenSessionRequest{PostId: &postId})
	assert.ErrorIs(t, err, serverutils.ErrNotFound)
}

func TestOpenRestoresDraftOfSameRevision(t *testing.T) {
	f := newEditorFixture(t)
	userId, postId := uuid.New(), uuid.New()
	require.NoError(t, f.repo.Create(context.Background(), &entity.Post{Id: postId, Title: "x", AuthorId: userId, Content: hiDocument, Revision: 2}))

	drafts := new(MockDraftStore)
	drafts.On("Get", mock.Anything, postId, userId).Return(&redisrepo.Draft{
		PostID:   postId,
		UserID:   userId,
		Content:  `{"root":{"children":[{"type":"paragraph","children":[{"type":"text","text":"Draft"}]}]}}`,
		Revision: 2,
	}, nil)
	f.svc.(*editorService).drafts = drafts

	state, err := f.svc.Open(context.Background(), userId, &dto.OpenSessionRequest{PostId: &postId})
	require.NoError(t, err)
	assert.True(t, state.RestoredDraft)
	assert.Equal(t, "Draft", state.PlainText)
}

func TestOpenDropsDraftOfOlderRevision(t *testing.T) {
	f := newEditorFixture(t)
	userId, postId := uuid.New(), uuid.New()
	require.NoError(t, f.repo.Create(context.Background(), &entity.Post{Id: postId, Title: "x", AuthorId: userId, Content: hiDocument, Revision: 3}))

	drafts := new(MockDraftStore)
	drafts.On("Get", mock.Anything, postId, userId).Return(&redisrepo.Draft{Content: "stale", Revision: 1}, nil)
	drafts.On("Delete", mock.Anything, postId, userId).Return(nil).Once()
	f.svc.(*editorService).drafts = drafts

	state, err := f.svc.Open(context.Background(), userId, &dto.OpenSessionRequest{PostId: &postId})
	require.NoError(t, err)
	assert.False(t, state.RestoredDraft)
	assert.Equal(t, "Hi", state.PlainText)
	drafts.AssertExpectations(t)
}

func TestDispatchEditsAndPublishesChange(t *testing.T) {
	f := newEditorFixture(t)
	userId := uuid.New()
	ctx := context.Background()

	opened, err := f.svc.Open(ctx, userId, &dto.OpenSessionRequest{Content: hiDocument})
	require.NoError(t, err)

	_, err = f.svc.SetSelection(ctx, userId, opened.SessionId, caret(firstTextKey(t, opened), 2))
	require.NoError(t, err)

	res, err := f.svc.Dispatch(ctx, userId, opened.SessionId, insertText("!"))
	require.NoError(t, err)
	assert.True(t, res.Handled)
	assert.Equal(t, "Hi!", res.State.PlainText)
	assert.True(t, res.State.CanUndo)

	f.publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(payload []byte) bool {
		var msg dto.DocumentChangedMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return false
		}
		return msg.SessionId == opened.SessionId && msg.Seq == 1 && msg.UserId == userId
	}))

	undone, err := f.svc.Undo(ctx, userId, opened.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "Hi", undone.State.PlainText)
	assert.True(t, undone.State.CanRedo)

	redone, err := f.svc.Redo(ctx, userId, opened.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "Hi!", redone.State.PlainText)
}

func TestDispatchRejectsBadPayload(t *testing.T) {
	f := newEditorFixture(t)
	userId := uuid.New()
	ctx := context.Background()

	opened, err := f.svc.Open(ctx, userId, &dto.OpenSessionRequest{Content: hiDocument})
	require.NoError(t, err)

	_, err = f.svc.Dispatch(ctx, userId, opened.SessionId, &dto.DispatchCommandRequest{Type: "FORMAT_TEXT", Payload: json.RawMessage(`"blink"`)})
	assert.ErrorIs(t, err, serverutils.ErrValidation)

	_, err = f.svc.Dispatch(ctx, userId, opened.SessionId, &dto.DispatchCommandRequest{Type: "INSERT_IMAGE"})
	assert.ErrorIs(t, err, serverutils.ErrValidation)
}

func TestSessionBelongsToOpener(t *testing.T) {
	f := newEditorFixture(t)
	ctx := context.Background()

	opened, err := f.svc.Open(ctx, uuid.New(), &dto.OpenSessionRequest{Content: hiDocument})
	require.NoError(t, err)

	_, err = f.svc.State(ctx, uuid.New(), opened.SessionId)
	assert.ErrorIs(t, err, serverutils.ErrForbidden)

	_, err = f.svc.State(ctx, uuid.New(), "missing")
	assert.ErrorIs(t, err, serverutils.ErrNotFound)
}

func TestSaveBumpsRevisionAndDropsDraft(t *testing.T) {
	f := newEditorFixture(t)
	userId := uuid.New()
	ctx := context.Background()

	opened, err := f.svc.Open(ctx, userId, &dto.OpenSessionRequest{Content: hiDocument})
	require.NoError(t, err)
	_, err = f.svc.SetSelection(ctx, userId, opened.SessionId, caret(firstTextKey(t, opened), 2))
	require.NoError(t, err)
	_, err = f.svc.Dispatch(ctx, userId, opened.SessionId, insertText(" there"))
	require.NoError(t, err)

	saved, err := f.svc.Save(ctx, userId, opened.SessionId, &dto.SavePostRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Revision)
	assert.Equal(t, opened.PostId, saved.PostId)

	post, _ := f.repo.FindOne(ctx, specification.ByID{ID: opened.PostId})
	assert.Equal(t, "Hi there", post.PlainText)

	state, err := f.svc.State(ctx, userId, opened.SessionId)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Revision)

	f.drafts.AssertCalled(t, "Delete", mock.Anything, opened.PostId, userId)
	f.events.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.EventType() == events.TypePostContentSaved && events.String(e, "session_id") == opened.SessionId
	}))
}

func TestSaveConflictUnlessForced(t *testing.T) {
	f := newEditorFixture(t)
	userId := uuid.New()
	ctx := context.Background()

	opened, err := f.svc.Open(ctx, userId, &dto.OpenSessionRequest{Content: hiDocument})
	require.NoError(t, err)
	f.repo.bump(opened.PostId)

	_, err = f.svc.Save(ctx, userId, opened.SessionId, &dto.SavePostRequest{})
	assert.ErrorIs(t, err, serverutils.ErrConflict)

	saved, err := f.svc.Save(ctx, userId, opened.SessionId, &dto.SavePostRequest{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Revision)
}

func TestHandlePostSavedMarksOtherSessionsStale(t *testing.T) {
	f := newEditorFixture(t)
	userId := uuid.New()
	ctx := context.Background()

	first, err := f.svc.Open(ctx, userId, &dto.OpenSessionRequest{Content: hiDocument})
	require.NoError(t, err)
	second, err := f.svc.Open(ctx, userId, &dto.OpenSessionRequest{PostId: &first.PostId})
	require.NoError(t, err)

	err = f.svc.HandlePostSaved(ctx, events.PostContentSaved(first.SessionId, first.PostId.String(), 1))
	require.NoError(t, err)

	firstState, _ := f.svc.State(ctx, userId, first.SessionId)
	secondState, _ := f.svc.State(ctx, userId, second.SessionId)
	assert.False(t, firstState.Stale)
	assert.True(t, secondState.Stale)

	msgs := f.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, websocket.TypeStale, msgs[0].Type)
	assert.Equal(t, second.SessionId, msgs[0].SessionID)

	// A replay of the same revision does not notify twice.
	require.NoError(t, f.svc.HandlePostSaved(ctx, events.PostContentSaved(first.SessionId, first.PostId.String(), 1)))
	assert.Len(t, f.notifier.messages(), 1)
}

func TestCloseRemovesSessionAndSockets(t *testing.T) {
	f := newEditorFixture(t)
	userId := uuid.New()
	ctx := context.Background()

	opened, err := f.svc.Open(ctx, userId, &dto.OpenSessionRequest{Content: hiDocument})
	require.NoError(t, err)

	require.NoError(t, f.svc.Close(ctx, userId, opened.SessionId))
	assert.Equal(t, 0, f.sessions.Count())
	assert.Equal(t, []string{opened.SessionId}, f.notifier.closed)

	_, err = f.svc.State(ctx, userId, opened.SessionId)
	assert.ErrorIs(t, err, serverutils.ErrNotFound)
}

func TestRenderPostSanitizes(t *testing.T) {
	f := newEditorFixture(t)
	postId := uuid.New()
	content := `{"root":{"children":[{"type":"paragraph","children":[{"type":"text","text":"<script>x</script>ok"}]}]}}`
	require.NoError(t, f.repo.Create(context.Background(), &entity.Post{Id: postId, Title: "x", AuthorId: uuid.New(), Content: content}))

	html, err := f.svc.RenderPost(context.Background(), postId)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "ok")

	_, err = f.svc.RenderPost(context.Background(), uuid.New())
	assert.ErrorIs(t, err, serverutils.ErrNotFound)
}
