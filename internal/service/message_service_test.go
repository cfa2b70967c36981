package service

import (
	"context"
	"strings"
	"testing"

	"github.com/kaya2m/Camply-API-sub003/internal/model"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newMessageServiceForTest() (MessageService, *fakeConversationRepo, *fakeMessageRepo) {
	convRepo := newFakeConversationRepo()
	msgRepo := newFakeMessageRepo()
	svc := NewMessageService(msgRepo, convRepo, zap.NewNop())
	return svc, convRepo, msgRepo
}

func TestBuildPreviewShortTextPassesThrough(t *testing.T) {
	assert.Equal(t, "hello", BuildPreview(model.MessageTypeText, "hello"))
}

func TestBuildPreviewLongTextTruncated(t *testing.T) {
	long := strings.Repeat("a", 60)
	preview := BuildPreview(model.MessageTypeText, long)

	assert.Equal(t, strings.Repeat("a", 47)+"...", preview)
	assert.Len(t, []rune(preview), 50)
}

func TestBuildPreviewExactly50CharsNotTruncated(t *testing.T) {
	exact := strings.Repeat("b", 50)
	assert.Equal(t, exact, BuildPreview(model.MessageTypeText, exact))
}

func TestBuildPreviewTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ğ", 60)
	preview := BuildPreview(model.MessageTypeText, long)

	assert.Equal(t, strings.Repeat("ğ", 47)+"...", preview)
}

func TestBuildPreviewTypedLabels(t *testing.T) {
	assert.Equal(t, "📷 Fotoğraf", BuildPreview(model.MessageTypeImage, ""))
	assert.Equal(t, "🎥 Video", BuildPreview(model.MessageTypeVideo, ""))
	assert.Equal(t, "🎵 Ses", BuildPreview(model.MessageTypeAudio, ""))
	assert.Equal(t, "📎 Dosya", BuildPreview(model.MessageTypeFile, ""))
	assert.Equal(t, "❤️", BuildPreview(model.MessageTypeHeart, ""))
	assert.Equal(t, "↩️ Hikaye yanıtı", BuildPreview(model.MessageTypeStoryReply, "content ignored"))
}

func TestSendMessagePersistsAndUpdatesBookkeeping(t *testing.T) {
	svc, convRepo, _ := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, SendMessageInput{
		ConversationID: conv.ID.Hex(),
		SenderID:       "alice",
		Content:        "merhaba",
		MessageType:    model.MessageTypeText,
	})

	assert.NoError(t, err)
	assert.False(t, msg.ID.IsZero())
	assert.Equal(t, "alice", msg.SenderID)

	stored, err := convRepo.GetConversation(ctx, conv.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, msg.ID.Hex(), stored.LastMessageId)
	assert.Equal(t, "merhaba", stored.LastMessagePreview)
	assert.Equal(t, "alice", stored.LastMessageSenderId)

	// Only the recipient's counter moved.
	assert.Equal(t, 1, convRepo.unread(conv.ID.Hex(), "bob"))
	assert.Equal(t, 0, convRepo.unread(conv.ID.Hex(), "alice"))
}

func TestSendMessageDeniedForNonParticipant(t *testing.T) {
	svc, convRepo, _ := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		ConversationID: conv.ID.Hex(),
		SenderID:       "mallory",
		Content:        "hi",
		MessageType:    model.MessageTypeText,
	})

	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSendMessageRejectsUnknownType(t *testing.T) {
	svc, convRepo, _ := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		ConversationID: conv.ID.Hex(),
		SenderID:       "alice",
		Content:        "hi",
		MessageType:    "sticker",
	})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	svc, convRepo, _ := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		ConversationID: conv.ID.Hex(),
		SenderID:       "alice",
		MessageType:    model.MessageTypeText,
	})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendMessageRejectsMediaWithoutAttachments(t *testing.T) {
	svc, convRepo, _ := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")

	_, err := svc.SendMessage(context.Background(), SendMessageInput{
		ConversationID: conv.ID.Hex(),
		SenderID:       "alice",
		MessageType:    model.MessageTypeImage,
	})

	assert.ErrorIs(t, err, ErrValidation)
}

func TestMarkMessageReadIsSetOnce(t *testing.T) {
	svc, convRepo, _ := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, SendMessageInput{
		ConversationID: conv.ID.Hex(),
		SenderID:       "alice",
		Content:        "hi",
		MessageType:    model.MessageTypeText,
	})
	assert.NoError(t, err)

	newlySet, _, _, err := svc.MarkMessageRead(ctx, "bob", msg.ID.Hex())
	assert.NoError(t, err)
	assert.True(t, newlySet)

	// Second read is a no-op and must not produce another event.
	newlySet, _, _, err = svc.MarkMessageRead(ctx, "bob", msg.ID.Hex())
	assert.NoError(t, err)
	assert.False(t, newlySet)
}

func TestMarkMessageReadOwnMessageIsSilent(t *testing.T) {
	svc, convRepo, _ := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")
	ctx := context.Background()

	msg, _ := svc.SendMessage(ctx, SendMessageInput{
		ConversationID: conv.ID.Hex(),
		SenderID:       "alice",
		Content:        "hi",
		MessageType:    model.MessageTypeText,
	})

	newlySet, _, _, err := svc.MarkMessageRead(ctx, "alice", msg.ID.Hex())
	assert.NoError(t, err)
	assert.False(t, newlySet)
}

func TestMarkMessageReadReturnsPersistedInstant(t *testing.T) {
	svc, convRepo, msgRepo := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, SendMessageInput{
		ConversationID: conv.ID.Hex(),
		SenderID:       "alice",
		Content:        "hi",
		MessageType:    model.MessageTypeText,
	})
	assert.NoError(t, err)

	newlySet, _, readAt, err := svc.MarkMessageRead(ctx, "bob", msg.ID.Hex())
	assert.NoError(t, err)
	assert.True(t, newlySet)

	// The instant handed to subscribers must be the one in the receipt,
	// not a second clock read.
	stored, err := msgRepo.GetMessage(ctx, msg.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, stored.ReadBy["bob"], readAt)
}

func TestMarkConversationReadStampsAndResetsCounter(t *testing.T) {
	svc, convRepo, _ := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.SendMessage(ctx, SendMessageInput{
			ConversationID: conv.ID.Hex(),
			SenderID:       "alice",
			Content:        "hi",
			MessageType:    model.MessageTypeText,
		})
		assert.NoError(t, err)
	}
	assert.Equal(t, 3, convRepo.unread(conv.ID.Hex(), "bob"))

	stamped, _, err := svc.MarkConversationRead(ctx, "bob", conv.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, int64(3), stamped)
	assert.Equal(t, 0, convRepo.unread(conv.ID.Hex(), "bob"))

	// Re-invoking is harmless and reports nothing new.
	stamped, _, err = svc.MarkConversationRead(ctx, "bob", conv.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, int64(0), stamped)
}

func TestEditMessageSenderOnly(t *testing.T) {
	svc, convRepo, _ := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")
	ctx := context.Background()

	msg, _ := svc.SendMessage(ctx, SendMessageInput{
		ConversationID: conv.ID.Hex(),
		SenderID:       "alice",
		Content:        "typo",
		MessageType:    model.MessageTypeText,
	})

	_, err := svc.EditMessage(ctx, "bob", msg.ID.Hex(), "hijacked")
	assert.ErrorIs(t, err, ErrAccessDenied)

	edited, err := svc.EditMessage(ctx, "alice", msg.ID.Hex(), "fixed")
	assert.NoError(t, err)
	assert.Equal(t, "fixed", edited.Content)
	assert.True(t, edited.IsEdited)
	assert.NotNil(t, edited.EditedAt)
}

func TestDeleteMessageSenderOnlyAndSoft(t *testing.T) {
	svc, convRepo, msgRepo := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")
	ctx := context.Background()

	msg, _ := svc.SendMessage(ctx, SendMessageInput{
		ConversationID: conv.ID.Hex(),
		SenderID:       "alice",
		Content:        "secret",
		MessageType:    model.MessageTypeText,
	})

	assert.ErrorIs(t, svc.DeleteMessage(ctx, "bob", msg.ID.Hex()), ErrAccessDenied)
	assert.NoError(t, svc.DeleteMessage(ctx, "alice", msg.ID.Hex()))

	// Soft delete keeps the row for reply references.
	stored, err := msgRepo.GetMessage(ctx, msg.ID.Hex())
	assert.NoError(t, err)
	assert.True(t, stored.IsDeleted)
}

func TestSearchMessagesRequiresQuery(t *testing.T) {
	svc, convRepo, _ := newMessageServiceForTest()
	conv := convRepo.addDirect("alice", "bob")

	_, err := svc.SearchMessages(context.Background(), "alice", conv.ID.Hex(), "", 1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetMessageUnknownIDIsNotFound(t *testing.T) {
	svc, _, _ := newMessageServiceForTest()

	_, err := svc.GetMessage(context.Background(), "alice", "652f00000000000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}
