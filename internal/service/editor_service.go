package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"post-editor-be/internal/dto"
	"post-editor-be/internal/entity"
	"post-editor-be/internal/pkg/logger"
	"post-editor-be/internal/pkg/serverutils"
	redisrepo "post-editor-be/internal/repository/redis"
	"post-editor-be/internal/repository/specification"
	"post-editor-be/internal/repository/unitofwork"
	"post-editor-be/internal/websocket"
	"post-editor-be/pkg/editor"
	"post-editor-be/pkg/events"
	"post-editor-be/pkg/lexical"
	"post-editor-be/pkg/store"

	"github.com/google/uuid"
)

type IEditorService interface {
	Open(ctx context.Context, userId uuid.UUID, req *dto.OpenSessionRequest) (*dto.SessionStateResponse, error)
	State(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.SessionStateResponse, error)
	Dispatch(ctx context.Context, userId uuid.UUID, sessionId string, req *dto.DispatchCommandRequest) (*dto.DispatchCommandResponse, error)
	SetSelection(ctx context.Context, userId uuid.UUID, sessionId string, req *dto.SelectionDTO) (*dto.SessionStateResponse, error)
	Undo(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.DispatchCommandResponse, error)
	Redo(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.DispatchCommandResponse, error)
	Resizer(ctx context.Context, userId uuid.UUID, sessionId string, req *dto.ResizerRequest) (*dto.ResizerResponse, error)
	Save(ctx context.Context, userId uuid.UUID, sessionId string, req *dto.SavePostRequest) (*dto.SavePostResponse, error)
	Close(ctx context.Context, userId uuid.UUID, sessionId string) error
	Authorize(userId uuid.UUID, sessionId string) error
	RenderPost(ctx context.Context, postId uuid.UUID) (string, error)
	HandlePostSaved(ctx context.Context, event events.Event) error
}

// SessionStore holds the mounted editors.
type SessionStore interface {
	Save(session *store.EditorSession)
	Get(sessionID string) (*store.EditorSession, bool)
	FindByPost(postID uuid.UUID) []*store.EditorSession
	Delete(sessionID string)
}

// EventPublisher sends domain events to the bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type EditorOptions struct {
	MergeWindow  time.Duration
	HistoryLimit int
}

type editorService struct {
	uowFactory       unitofwork.RepositoryFactory
	sessions         SessionStore
	drafts           DraftStore
	publisherService IPublisherService
	eventPublisher   EventPublisher
	notifier         SessionNotifier
	renderer         *lexical.HTMLRenderer
	logger           logger.ILogger
	opts             EditorOptions
}

func NewEditorService(
	uowFactory unitofwork.RepositoryFactory,
	sessions SessionStore,
	drafts DraftStore,
	publisherService IPublisherService,
	eventPublisher EventPublisher,
	notifier SessionNotifier,
	log logger.ILogger,
	opts EditorOptions,
) IEditorService {
	return &editorService{
		uowFactory:       uowFactory,
		sessions:         sessions,
		drafts:           drafts,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		notifier:         notifier,
		renderer:         lexical.NewHTMLRenderer(),
		logger:           log,
		opts:             opts,
	}
}

const untitled = "Untitled"

func (s *editorService) Open(ctx context.Context, userId uuid.UUID, req *dto.OpenSessionRequest) (*dto.SessionStateResponse, error) {
	post, err := s.loadOrCreatePost(ctx, userId, req)
	if err != nil {
		return nil, err
	}

	content, restored := post.Content, false
	if !req.DiscardDraft {
		draft, err := s.drafts.Get(ctx, post.Id, userId)
		if err != nil {
			s.logger.Warn("EditorService", "Failed to read draft", map[string]interface{}{"error": err.Error(), "post_id": post.Id})
		}
		switch {
		case draft == nil:
		case draft.Revision == post.Revision:
			content, restored = draft.Content, true
		default:
			s.logger.Info("EditorService", "Dropping draft of an older revision", map[string]interface{}{"post_id": post.Id, "draft_revision": draft.Revision, "revision": post.Revision})
			s.deleteDraft(ctx, post.Id, userId)
		}
	} else {
		s.deleteDraft(ctx, post.Id, userId)
	}

	ed := editor.New(content,
		editor.WithLogger(s.logger.Named("editor")),
		editor.WithMergeWindow(s.opts.MergeWindow),
		editor.WithHistoryLimit(s.opts.HistoryLimit),
	)
	unregister := editor.RegisterRichText(ed)

	session := store.NewEditorSession(post.Id, userId, ed, post.Revision)
	unlisten := ed.RegisterUpdateListener(s.changeForwarder(session))
	session.OnClose(func() {
		unlisten()
		unregister()
		s.notifier.CloseSession(session.ID)
	})
	s.sessions.Save(session)

	s.logger.Info("EditorService", "Session opened", map[string]interface{}{"session_id": session.ID, "post_id": post.Id, "restored_draft": restored})
	s.publishEvent(ctx, events.EditorSessionOpened(session.ID, post.Id.String(), userId.String()))

	var state *dto.SessionStateResponse
	_ = session.Do(func(ed *editor.Editor, _ *editor.ImageResizer) error {
		state = buildState(session, ed, true)
		return nil
	})
	state.RestoredDraft = restored
	return state, nil
}

func (s *editorService) loadOrCreatePost(ctx context.Context, userId uuid.UUID, req *dto.OpenSessionRequest) (*entity.Post, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if req.PostId != nil {
		post, err := uow.PostRepository().FindOne(ctx,
			specification.ByID{ID: *req.PostId},
			specification.PostAuthoredBy{AuthorID: userId},
		)
		if err != nil {
			return nil, err
		}
		if post == nil {
			return nil, serverutils.NotFound("post")
		}
		return post, nil
	}

	doc := lexical.Deserialize(req.Content)
	content, err := lexical.Serialize(doc)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = untitled
	}
	post := &entity.Post{
		Id:        uuid.New(),
		Title:     title,
		Content:   content,
		PlainText: lexical.PlainText(doc),
		AuthorId:  userId,
		CreatedAt: time.Now(),
	}
	if err := uow.PostRepository().Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// changeForwarder publishes every dirty commit of the session on the change topic.
// It runs inside the session lock, so it only reads atomics and the event itself.
func (s *editorService) changeForwarder(session *store.EditorSession) editor.UpdateListener {
	var seq atomic.Uint64
	return func(ev editor.UpdateEvent) {
		if !ev.Dirty {
			return
		}
		payload, err := json.Marshal(dto.DocumentChangedMessage{
			SessionId:  session.ID,
			PostId:     session.PostID,
			UserId:     session.UserID,
			Seq:        seq.Add(1),
			Revision:   session.Revision(),
			Content:    ev.JSON,
			CanUndo:    ev.CanUndo,
			CanRedo:    ev.CanRedo,
			Tags:       ev.Tags,
			OccurredAt: time.Now(),
		})
		if err != nil {
			s.logger.Error("EditorService", "Failed to encode change", map[string]interface{}{"error": err.Error()})
			return
		}
		if err := s.publisherService.Publish(context.Background(), payload); err != nil {
			s.logger.Warn("EditorService", "Failed to publish change", map[string]interface{}{"error": err.Error(), "session_id": session.ID})
		}
	}
}

func (s *editorService) session(userId uuid.UUID, sessionId string) (*store.EditorSession, error) {
	session, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, serverutils.NotFound("editor session")
	}
	if session.UserID != userId {
		return nil, serverutils.ErrForbidden
	}
	return session, nil
}

func (s *editorService) Authorize(userId uuid.UUID, sessionId string) error {
	_, err := s.session(userId, sessionId)
	return err
}

func (s *editorService) State(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.SessionStateResponse, error) {
	session, err := s.session(userId, sessionId)
	if err != nil {
		return nil, err
	}
	var state *dto.SessionStateResponse
	_ = session.Do(func(ed *editor.Editor, _ *editor.ImageResizer) error {
		state = buildState(session, ed, true)
		return nil
	})
	return state, nil
}

func (s *editorService) Dispatch(ctx context.Context, userId uuid.UUID, sessionId string, req *dto.DispatchCommandRequest) (*dto.DispatchCommandResponse, error) {
	session, err := s.session(userId, sessionId)
	if err != nil {
		return nil, err
	}
	t, payload, err := decodeCommand(req)
	if err != nil {
		return nil, err
	}

	res := &dto.DispatchCommandResponse{}
	err = session.Do(func(ed *editor.Editor, _ *editor.ImageResizer) error {
		handled, err := ed.DispatchCommand(t, payload)
		if err != nil {
			return commandError(t, err)
		}
		res.Handled = handled
		res.State = buildState(session, ed, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// commandError maps a rolled-back command to a client error unless the editor itself broke.
func commandError(t editor.CommandType, err error) error {
	switch {
	case errors.Is(err, editor.ErrEditPanicked):
		return fmt.Errorf("%s: %w", t, err)
	case errors.Is(err, editor.ErrInvalidPayload),
		errors.Is(err, editor.ErrInvalidSelection),
		errors.Is(err, editor.ErrNoSuchNode),
		errors.Is(err, lexical.ErrInvalidStructure):
		return fmt.Errorf("%w: %s: %v", serverutils.ErrValidation, t, err)
	}
	return fmt.Errorf("%s: %w", t, err)
}

func (s *editorService) SetSelection(ctx context.Context, userId uuid.UUID, sessionId string, req *dto.SelectionDTO) (*dto.SessionStateResponse, error) {
	session, err := s.session(userId, sessionId)
	if err != nil {
		return nil, err
	}
	var state *dto.SessionStateResponse
	err = session.Do(func(ed *editor.Editor, _ *editor.ImageResizer) error {
		if err := applySelection(ed, req); err != nil {
			return err
		}
		state = buildState(session, ed, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *editorService) Undo(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.DispatchCommandResponse, error) {
	return s.Dispatch(ctx, userId, sessionId, &dto.DispatchCommandRequest{Type: string(editor.CommandUndo)})
}

func (s *editorService) Redo(ctx context.Context, userId uuid.UUID, sessionId string) (*dto.DispatchCommandResponse, error) {
	return s.Dispatch(ctx, userId, sessionId, &dto.DispatchCommandRequest{Type: string(editor.CommandRedo)})
}

func (s *editorService) Resizer(ctx context.Context, userId uuid.UUID, sessionId string, req *dto.ResizerRequest) (*dto.ResizerResponse, error) {
	session, err := s.session(userId, sessionId)
	if err != nil {
		return nil, err
	}
	var res *dto.ResizerResponse
	err = session.Do(func(_ *editor.Editor, r *editor.ImageResizer) error {
		var err error
		res, err = driveResizer(r, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *editorService) Save(ctx context.Context, userId uuid.UUID, sessionId string, req *dto.SavePostRequest) (*dto.SavePostResponse, error) {
	session, err := s.session(userId, sessionId)
	if err != nil {
		return nil, err
	}

	var saved *entity.Post
	err = session.Do(func(ed *editor.Editor, _ *editor.ImageResizer) error {
		saved, err = s.writePost(ctx, session, ed, req.Force)
		return err
	})
	if err != nil {
		return nil, err
	}

	session.Saved(saved.Revision)
	s.deleteDraft(ctx, session.PostID, userId)
	event := events.PostContentSaved(session.ID, session.PostID.String(), saved.Revision)
	if s.eventPublisher == nil {
		// No bus: only sessions on this instance can be told.
		_ = s.HandlePostSaved(ctx, event)
	}
	s.publishEvent(ctx, event)

	savedAt := saved.CreatedAt
	if saved.UpdatedAt != nil {
		savedAt = *saved.UpdatedAt
	}
	return &dto.SavePostResponse{
		PostId:   saved.Id,
		Revision: saved.Revision,
		SavedAt:  savedAt,
	}, nil
}

// writePost stores the editor JSON as the post content in one transaction.
func (s *editorService) writePost(ctx context.Context, session *store.EditorSession, ed *editor.Editor, force bool) (*entity.Post, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = uow.Rollback()
			panic(r)
		}
	}()

	post, err := uow.PostRepository().FindOne(ctx,
		specification.ByID{ID: session.PostID},
		specification.PostAuthoredBy{AuthorID: session.UserID},
	)
	if err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if post == nil {
		_ = uow.Rollback()
		return nil, serverutils.NotFound("post")
	}
	if post.Revision != session.Revision() && !force {
		_ = uow.Rollback()
		return nil, fmt.Errorf("%w: post is at revision %d, session is based on %d", serverutils.ErrConflict, post.Revision, session.Revision())
	}

	post.Content = ed.JSON()
	post.PlainText = ed.PlainText()
	if err := uow.PostRepository().UpdateContent(ctx, post); err != nil {
		_ = uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *editorService) Close(ctx context.Context, userId uuid.UUID, sessionId string) error {
	if _, err := s.session(userId, sessionId); err != nil {
		return err
	}
	s.sessions.Delete(sessionId)
	s.logger.Info("EditorService", "Session closed", map[string]interface{}{"session_id": sessionId})
	return nil
}

// RenderPost returns the sanitized HTML of a saved post.
func (s *editorService) RenderPost(ctx context.Context, postId uuid.UUID) (string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	post, err := uow.PostRepository().FindOne(ctx, specification.ByID{ID: postId})
	if err != nil {
		return "", err
	}
	if post == nil {
		return "", serverutils.NotFound("post")
	}
	return s.renderer.Render(lexical.Deserialize(post.Content)), nil
}

// HandlePostSaved marks the other sessions open on the saved post stale and tells their sockets.
func (s *editorService) HandlePostSaved(ctx context.Context, event events.Event) error {
	postId, err := uuid.Parse(events.String(event, "post_id"))
	if err != nil {
		s.logger.Warn("EditorService", "POST_CONTENT_SAVED without post_id", map[string]interface{}{"payload": event.Payload()})
		return nil
	}
	origin := events.String(event, "session_id")
	revision := intField(event.Payload()["revision"])

	for _, session := range s.sessions.FindByPost(postId) {
		if session.ID == origin || !session.MarkStale(revision) {
			continue
		}
		s.notifier.Send(websocket.Message{
			Type:      websocket.TypeStale,
			SessionID: session.ID,
			Data:      map[string]interface{}{"post_id": postId, "revision": revision},
		})
	}
	return nil
}

// intField reads a number that may have been through JSON.
func intField(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

func (s *editorService) publishEvent(ctx context.Context, event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	// Auxiliary: a failed publish never fails the request.
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("EditorService", fmt.Sprintf("Failed to publish %s event", event.EventType()), map[string]interface{}{"error": err.Error()})
	}
}

func (s *editorService) deleteDraft(ctx context.Context, postId, userId uuid.UUID) {
	if err := s.drafts.Delete(ctx, postId, userId); err != nil {
		s.logger.Warn("EditorService", "Failed to delete draft", map[string]interface{}{"error": err.Error(), "post_id": postId})
	}
}

func buildState(session *store.EditorSession, ed *editor.Editor, full bool) *dto.SessionStateResponse {
	state := &dto.SessionStateResponse{
		SessionId: session.ID,
		PostId:    session.PostID,
		Revision:  session.Revision(),
		Stale:     session.Stale(),
		Content:   ed.JSON(),
		PlainText: ed.PlainText(),
		CanUndo:   ed.CanUndo(),
		CanRedo:   ed.CanRedo(),
		Selection: selectionDTO(ed),
	}
	if full {
		doc := ed.Document()
		state.Markdown = lexical.Markdown(doc)
		state.Outline = outline(doc, doc.Root())
	}
	return state
}

var _ DraftStore = (*redisrepo.DraftRepository)(nil)
