package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kaya2m/Camply-API-sub003/internal/db"
	"github.com/kaya2m/Camply-API-sub003/internal/event"
	"github.com/kaya2m/Camply-API-sub003/internal/model"
	"github.com/kaya2m/Camply-API-sub003/internal/service"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// stubConversations serves one fixed conversation. listDelay models a slow
// store behind ListConversations.
type stubConversations struct {
	conv      *model.Conversation
	listDelay time.Duration
}

func (s *stubConversations) GetOrCreateDirect(context.Context, string, string) (*model.Conversation, error) {
	return s.conv, nil
}

func (s *stubConversations) CreateGroup(context.Context, string, []string, string, string) (*model.Conversation, error) {
	return s.conv, nil
}

func (s *stubConversations) GetConversation(context.Context, string, string) (*model.Conversation, error) {
	return s.conv, nil
}

func (s *stubConversations) ListConversations(context.Context, string) ([]model.Conversation, error) {
	if s.listDelay > 0 {
		time.Sleep(s.listDelay)
	}
	return []model.Conversation{*s.conv}, nil
}

func (s *stubConversations) IsParticipant(context.Context, string, string) (bool, error) {
	return true, nil
}

func (s *stubConversations) MuteConversation(context.Context, string, string, bool) error { return nil }

func (s *stubConversations) ArchiveConversation(context.Context, string, string, bool) error {
	return nil
}

func (s *stubConversations) DeleteConversation(context.Context, string, string) error { return nil }

// stubMessages persists nothing. Sends whose content matches slowContent
// sleep for delay, modeling an uneven store.
type stubMessages struct {
	slowContent string
	delay       time.Duration
}

func (s *stubMessages) SendMessage(_ context.Context, in service.SendMessageInput) (*model.Message, error) {
	if in.Content == s.slowContent {
		time.Sleep(s.delay)
	}
	convID, _ := primitive.ObjectIDFromHex(in.ConversationID)
	return &model.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: convID,
		SenderID:       in.SenderID,
		Content:        in.Content,
		MessageType:    in.MessageType,
		ReadBy:         map[string]time.Time{},
		CreatedAt:      time.Now(),
	}, nil
}

func (s *stubMessages) GetMessage(context.Context, string, string) (*model.Message, error) {
	return nil, service.ErrNotFound
}

func (s *stubMessages) ListMessages(context.Context, string, string, int64) (*db.PaginatedResult[model.Message], error) {
	return &db.PaginatedResult[model.Message]{}, nil
}

func (s *stubMessages) MarkMessageRead(context.Context, string, string) (bool, *model.Message, time.Time, error) {
	return false, nil, time.Time{}, nil
}

func (s *stubMessages) MarkConversationRead(context.Context, string, string) (int64, time.Time, error) {
	return 0, time.Time{}, nil
}

func (s *stubMessages) EditMessage(context.Context, string, string, string) (*model.Message, error) {
	return nil, service.ErrNotFound
}

func (s *stubMessages) DeleteMessage(context.Context, string, string) error { return nil }

func (s *stubMessages) SearchMessages(context.Context, string, string, string, int64) (*db.PaginatedResult[model.Message], error) {
	return &db.PaginatedResult[model.Message]{}, nil
}

func (s *stubMessages) ListMediaMessages(context.Context, string, string, int64) (*db.PaginatedResult[model.Message], error) {
	return &db.PaginatedResult[model.Message]{}, nil
}

type stubUsers struct{}

func (stubUsers) GetUser(context.Context, string) (*model.User, error) {
	return nil, service.ErrNotFound
}

func (stubUsers) GetDisplayName(context.Context, string) string { return "" }

func TestSameSenderBroadcastOrderPreserved(t *testing.T) {
	conv := &model.Conversation{ID: primitive.NewObjectID(), ParticipantIds: []string{"alice", "bob"}}
	messages := &stubMessages{slowContent: "first", delay: 150 * time.Millisecond}
	ch := NewChatHandler(&stubConversations{conv: conv}, messages, nil, stubUsers{}, nil)
	h := NewHub(ch, NewPresenceTracker())
	defer h.Stop()

	alice := newTestClient("c1", "alice")
	bob := newTestClient("c2", "bob")
	h.JoinGroup(alice, conv.ID.Hex())
	h.JoinGroup(bob, conv.ID.Hex())

	send := func(content string) {
		payload := event.SendMessagePayload{
			ConversationID: conv.ID.Hex(),
			Content:        content,
			MessageType:    model.MessageTypeText,
		}
		h.inboundQueue(alice.ID) <- inboundMessage{client: alice, event: event.NewEvent(event.EventSendMessage, payload)}
	}

	// The first send's persist is slow. Both ride the same queue, so the
	// recipient must still see them in send order.
	send("first")
	send("second")

	var got []string
	for len(got) < 2 {
		select {
		case ev := <-bob.egress:
			if ev.Event != event.EventReceiveMessage {
				continue
			}
			var msg struct {
				Content string `json:"content"`
			}
			assert.NoError(t, json.Unmarshal(ev.Payload, &msg))
			got = append(got, msg.Content)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for broadcasts, got %v", got)
		}
	}
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestRegisterNotStalledByPresenceBroadcast(t *testing.T) {
	conv := &model.Conversation{ID: primitive.NewObjectID(), ParticipantIds: []string{"alice", "bob"}}
	ch := NewChatHandler(&stubConversations{conv: conv, listDelay: time.Second}, &stubMessages{}, nil, stubUsers{}, nil)
	h := NewHub(ch, NewPresenceTracker())
	defer h.Stop()

	h.register <- newTestClient("c1", "alice")
	h.register <- newTestClient("c2", "bob")

	// Both registrations must complete well before the first user's
	// presence broadcast finishes its store read.
	assert.Eventually(t, func() bool {
		users, _ := h.presence.OnlineCount()
		return users == 2
	}, 300*time.Millisecond, 10*time.Millisecond,
		"registration stalled behind presence store I/O")
}

func TestStopWithActiveSenders(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("c1", "alice")

	// A read pump enqueueing during shutdown must not hit a closed channel.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			select {
			case h.inboundQueue(alice.ID) <- inboundMessage{client: alice, event: event.NewEvent("test:event", nil)}:
			case <-time.After(5 * time.Millisecond):
				return
			}
		}
	}()

	h.Stop()
	<-done
}
