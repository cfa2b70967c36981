package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kaya2m/Camply-API-sub003/internal/db"
	"github.com/kaya2m/Camply-API-sub003/internal/model"
	"github.com/kaya2m/Camply-API-sub003/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes backing the service tests. They mirror the
// store-level semantics the Mongo implementations provide: canonical pair
// keys, set-once read receipts and one reaction row per (message, user).

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*model.Conversation
	byPairKey     map[string]string
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[string]*model.Conversation),
		byPairKey:     make(map[string]string),
	}
}

func (f *fakeConversationRepo) addDirect(userA, userB string) *model.Conversation {
	conv, _ := f.GetOrCreateOneToOne(context.Background(), userA, userB)
	return conv
}

func (f *fakeConversationRepo) GetConversation(_ context.Context, conversationID string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.conversations[conversationID]
	if !ok {
		return nil, repo.ErrConversationNotFound
	}
	copied := *conv
	return &copied, nil
}

func (f *fakeConversationRepo) GetOrCreateOneToOne(_ context.Context, userA, userB string) (*model.Conversation, error) {
	if userA == "" || userB == "" || userA == userB {
		return nil, repo.ErrInvalidParticipants
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	pairKey := repo.PairKey(userA, userB)
	if id, ok := f.byPairKey[pairKey]; ok {
		copied := *f.conversations[id]
		return &copied, nil
	}

	conv := &model.Conversation{
		ID:             primitive.NewObjectID(),
		PairKey:        pairKey,
		ParticipantIds: []string{userA, userB},
		CreatedBy:      userA,
		CreatedAt:      time.Now(),
		Status:         model.ConversationStatusActive,
		MutedBy:        map[string]bool{},
		ArchivedBy:     map[string]bool{},
		DeletedBy:      map[string]bool{},
		UnreadCount:    map[string]int{userA: 0, userB: 0},
	}
	f.conversations[conv.ID.Hex()] = conv
	f.byPairKey[pairKey] = conv.ID.Hex()
	copied := *conv
	return &copied, nil
}

func (f *fakeConversationRepo) CreateGroup(_ context.Context, createdBy string, participantIDs []string, title, imageURL string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv := &model.Conversation{
		ID:             primitive.NewObjectID(),
		ParticipantIds: participantIDs,
		IsGroup:        true,
		Title:          title,
		ImageURL:       imageURL,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now(),
		Status:         model.ConversationStatusActive,
		MutedBy:        map[string]bool{},
		ArchivedBy:     map[string]bool{},
		DeletedBy:      map[string]bool{},
		UnreadCount:    map[string]int{},
	}
	f.conversations[conv.ID.Hex()] = conv
	copied := *conv
	return &copied, nil
}

func (f *fakeConversationRepo) IsParticipant(_ context.Context, conversationID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.conversations[conversationID]
	if !ok {
		return false, nil
	}
	return conv.HasParticipant(userID), nil
}

func (f *fakeConversationRepo) ListByParticipant(_ context.Context, userID string) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []model.Conversation
	for _, conv := range f.conversations {
		if conv.HasParticipant(userID) && !conv.DeletedBy[userID] {
			result = append(result, *conv)
		}
	}
	return result, nil
}

func (f *fakeConversationRepo) SetUserFlag(_ context.Context, conversationID, userID, flag string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.conversations[conversationID]
	if !ok {
		return repo.ErrConversationNotFound
	}
	switch flag {
	case "muted_by":
		conv.MutedBy[userID] = value
	case "archived_by":
		conv.ArchivedBy[userID] = value
	case "deleted_by":
		conv.DeletedBy[userID] = value
	}
	return nil
}

func (f *fakeConversationRepo) SetStatusForUser(ctx context.Context, conversationID, userID, status string) error {
	switch status {
	case model.ConversationStatusArchived:
		return f.SetUserFlag(ctx, conversationID, userID, "archived_by", true)
	case model.ConversationStatusDeleted:
		return f.SetUserFlag(ctx, conversationID, userID, "deleted_by", true)
	default:
		return nil
	}
}

func (f *fakeConversationRepo) UpdateLastMessage(_ context.Context, conversationID, messageID, preview, senderID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.conversations[conversationID]
	if !ok {
		return repo.ErrConversationNotFound
	}
	conv.LastMessageId = messageID
	conv.LastMessagePreview = preview
	conv.LastMessageSenderId = senderID
	conv.LastActivityDate = at
	return nil
}

func (f *fakeConversationRepo) IncrementUnread(_ context.Context, conversationID string, userIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.conversations[conversationID]
	if !ok {
		return repo.ErrConversationNotFound
	}
	for _, id := range userIDs {
		conv.UnreadCount[id]++
	}
	return nil
}

func (f *fakeConversationRepo) ResetUnread(_ context.Context, conversationID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	conv, ok := f.conversations[conversationID]
	if !ok {
		return repo.ErrConversationNotFound
	}
	conv.UnreadCount[userID] = 0
	return nil
}

func (f *fakeConversationRepo) unread(conversationID, userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversations[conversationID].UnreadCount[userID]
}

// -----------------------------------------------------------------------------

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string]*model.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]*model.Message)}
}

func (f *fakeMessageRepo) InsertMessage(_ context.Context, msg *model.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg.ID = primitive.NewObjectID()
	stored := *msg
	f.messages[msg.ID.Hex()] = &stored
	return msg.ID.Hex(), nil
}

func (f *fakeMessageRepo) GetMessage(_ context.Context, messageID string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := f.messages[messageID]
	if !ok {
		return nil, repo.ErrMessageNotFound
	}
	copied := *msg
	return &copied, nil
}

func (f *fakeMessageRepo) ListMessages(_ context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	return f.page(conversationID, page, func(m *model.Message) bool { return true })
}

func (f *fakeMessageRepo) SearchMessages(_ context.Context, conversationID, query string, page int64) (*db.PaginatedResult[model.Message], error) {
	return f.page(conversationID, page, func(m *model.Message) bool {
		return strings.Contains(strings.ToLower(m.Content), strings.ToLower(query))
	})
}

func (f *fakeMessageRepo) ListMediaMessages(_ context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	return f.page(conversationID, page, func(m *model.Message) bool { return len(m.Media) > 0 })
}

func (f *fakeMessageRepo) page(conversationID string, page int64, match func(*model.Message) bool) (*db.PaginatedResult[model.Message], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var data []model.Message
	for _, msg := range f.messages {
		if msg.ConversationID.Hex() == conversationID && !msg.IsDeleted && match(msg) {
			data = append(data, *msg)
		}
	}
	return &db.PaginatedResult[model.Message]{Data: data, Total: int64(len(data)), Page: page}, nil
}

func (f *fakeMessageRepo) MarkRead(_ context.Context, messageID, userID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := f.messages[messageID]
	if !ok {
		return false, repo.ErrMessageNotFound
	}
	if _, read := msg.ReadBy[userID]; read {
		return false, nil
	}
	if msg.ReadBy == nil {
		msg.ReadBy = map[string]time.Time{}
	}
	msg.ReadBy[userID] = at
	return true, nil
}

func (f *fakeMessageRepo) MarkConversationRead(_ context.Context, conversationID, userID string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var stamped int64
	for _, msg := range f.messages {
		if msg.ConversationID.Hex() != conversationID || msg.SenderID == userID || msg.IsDeleted {
			continue
		}
		if _, read := msg.ReadBy[userID]; read {
			continue
		}
		if msg.ReadBy == nil {
			msg.ReadBy = map[string]time.Time{}
		}
		msg.ReadBy[userID] = at
		stamped++
	}
	return stamped, nil
}

func (f *fakeMessageRepo) EditMessage(_ context.Context, messageID, content string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := f.messages[messageID]
	if !ok {
		return repo.ErrMessageNotFound
	}
	msg.Content = content
	msg.IsEdited = true
	msg.EditedAt = &at
	return nil
}

func (f *fakeMessageRepo) SoftDeleteMessage(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := f.messages[messageID]
	if !ok {
		return repo.ErrMessageNotFound
	}
	msg.IsDeleted = true
	return nil
}

// -----------------------------------------------------------------------------

type fakeReactionRepo struct {
	mu        sync.Mutex
	reactions map[string]*model.Reaction // key: messageID + "/" + userID
}

func newFakeReactionRepo() *fakeReactionRepo {
	return &fakeReactionRepo{reactions: make(map[string]*model.Reaction)}
}

func (f *fakeReactionRepo) Upsert(_ context.Context, messageID, userID, reactionType string, at time.Time) (*model.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := messageID + "/" + userID
	if existing, ok := f.reactions[key]; ok {
		existing.ReactionType = reactionType
		copied := *existing
		return &copied, nil
	}

	objectID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, repo.ErrMessageNotFound
	}
	reaction := &model.Reaction{
		ID:           primitive.NewObjectID(),
		MessageID:    objectID,
		UserID:       userID,
		ReactionType: reactionType,
		CreatedAt:    at,
	}
	f.reactions[key] = reaction
	copied := *reaction
	return &copied, nil
}

func (f *fakeReactionRepo) Remove(_ context.Context, messageID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := messageID + "/" + userID
	if _, ok := f.reactions[key]; !ok {
		return false, nil
	}
	delete(f.reactions, key)
	return true, nil
}

func (f *fakeReactionRepo) ListByMessage(_ context.Context, messageID string) ([]model.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []model.Reaction
	for _, r := range f.reactions {
		if r.MessageID.Hex() == messageID {
			result = append(result, *r)
		}
	}
	return result, nil
}
