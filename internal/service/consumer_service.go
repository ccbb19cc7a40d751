package service

import (
	"context"
	"encoding/json"
	"time"

	"post-editor-be/internal/dto"
	"post-editor-be/internal/pkg/logger"
	redisrepo "post-editor-be/internal/repository/redis"
	"post-editor-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// DraftStore persists the latest document of a session between saves.
type DraftStore interface {
	Save(ctx context.Context, draft *redisrepo.Draft) error
	Get(ctx context.Context, postID, userID uuid.UUID) (*redisrepo.Draft, error)
	Delete(ctx context.Context, postID, userID uuid.UUID) error
}

// SessionNotifier pushes frames to the sockets watching a session.
type SessionNotifier interface {
	Send(msg websocket.Message)
	CloseSession(sessionID string)
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	drafts     DraftStore
	notifier   SessionNotifier
	logger     logger.ILogger

	// last applied seq per session; gochannel does not keep delivery order
	seen *cache.Cache
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	drafts DraftStore,
	notifier SessionNotifier,
	log logger.ILogger,
	sessionTTL time.Duration,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		drafts:     drafts,
		notifier:   notifier,
		logger:     log,
		seen:       cache.New(sessionTTL, sessionTTL),
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Drafts are best effort: every message is acked, the next change overwrites a failed write.
	defer msg.Ack()

	var payload dto.DocumentChangedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		return
	}

	if !cs.advance(payload.SessionId, payload.Seq) {
		cs.logger.Debug("ConsumerService", "Skipping out-of-order change", map[string]interface{}{"session_id": payload.SessionId, "seq": payload.Seq})
		return
	}

	err := cs.drafts.Save(ctx, &redisrepo.Draft{
		PostID:    payload.PostId,
		UserID:    payload.UserId,
		SessionID: payload.SessionId,
		Content:   payload.Content,
		Revision:  payload.Revision,
		UpdatedAt: payload.OccurredAt,
	})
	if err != nil {
		cs.logger.Warn("ConsumerService", "Failed to save draft", map[string]interface{}{"error": err.Error(), "session_id": payload.SessionId})
	}

	cs.notifier.Send(websocket.Message{
		Type:      websocket.TypeUpdate,
		SessionID: payload.SessionId,
		Data: map[string]interface{}{
			"seq":      payload.Seq,
			"content":  payload.Content,
			"can_undo": payload.CanUndo,
			"can_redo": payload.CanRedo,
			"tags":     payload.Tags,
		},
	})
}

// advance records seq for the session and reports whether it is newer than what was applied.
func (cs *consumerService) advance(sessionID string, seq uint64) bool {
	if last, ok := cs.seen.Get(sessionID); ok && last.(uint64) >= seq {
		return false
	}
	cs.seen.SetDefault(sessionID, seq)
	return true
}
