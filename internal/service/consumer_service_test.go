package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"post-editor-be/internal/dto"
	"post-editor-be/internal/pkg/logger"
	redisrepo "post-editor-be/internal/repository/redis"
	"post-editor-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func changeMessage(t *testing.T, change dto.DocumentChangedMessage) *message.Message {
	t.Helper()
	payload, err := json.Marshal(change)
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), payload)
}

func newTestConsumer(drafts DraftStore, notifier SessionNotifier) *consumerService {
	return NewConsumerService(nil, "test", drafts, notifier, logger.NewNopLogger(), time.Minute).(*consumerService)
}

func TestProcessMessageSavesDraftAndNotifies(t *testing.T) {
	drafts := new(MockDraftStore)
	notifier := &fakeNotifier{}
	cs := newTestConsumer(drafts, notifier)

	postId, userId := uuid.New(), uuid.New()
	drafts.On("Save", mock.Anything, mock.MatchedBy(func(d *redisrepo.Draft) bool {
		return d.PostID == postId && d.UserID == userId && d.Revision == 3 && d.Content == hiDocument
	})).Return(nil).Once()

	cs.processMessage(context.Background(), changeMessage(t, dto.DocumentChangedMessage{
		SessionId: "s1",
		PostId:    postId,
		UserId:    userId,
		Seq:       1,
		Revision:  3,
		Content:   hiDocument,
		CanUndo:   true,
	}))

	drafts.AssertExpectations(t)
	msgs := notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, websocket.TypeUpdate, msgs[0].Type)
	assert.Equal(t, "s1", msgs[0].SessionID)
}

func TestProcessMessageSkipsOutOfOrder(t *testing.T) {
	drafts := new(MockDraftStore)
	drafts.On("Save", mock.Anything, mock.Anything).Return(nil)
	notifier := &fakeNotifier{}
	cs := newTestConsumer(drafts, notifier)

	cs.processMessage(context.Background(), changeMessage(t, dto.DocumentChangedMessage{SessionId: "s1", Seq: 2}))
	cs.processMessage(context.Background(), changeMessage(t, dto.DocumentChangedMessage{SessionId: "s1", Seq: 1}))
	cs.processMessage(context.Background(), changeMessage(t, dto.DocumentChangedMessage{SessionId: "s2", Seq: 1}))

	drafts.AssertNumberOfCalls(t, "Save", 2)
	assert.Len(t, notifier.messages(), 2)
}

func TestProcessMessageDropsGarbage(t *testing.T) {
	drafts := new(MockDraftStore)
	notifier := &fakeNotifier{}
	cs := newTestConsumer(drafts, notifier)

	cs.processMessage(context.Background(), message.NewMessage(watermill.NewUUID(), []byte("nope")))

	drafts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, notifier.messages())
}

func TestConsumeOverGoChannel(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	drafts := new(MockDraftStore)
	drafts.On("Save", mock.Anything, mock.Anything).Return(nil)
	notifier := &fakeNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := NewConsumerService(pubSub, "changes", drafts, notifier, logger.NewNopLogger(), time.Minute)
	require.NoError(t, consumer.Consume(ctx))

	payload, err := json.Marshal(dto.DocumentChangedMessage{SessionId: "s1", Seq: 1, Content: hiDocument})
	require.NoError(t, err)
	require.NoError(t, NewPublisherService("changes", pubSub).Publish(ctx, payload))

	assert.Eventually(t, func() bool { return len(notifier.messages()) == 1 }, time.Second, 10*time.Millisecond)
}
