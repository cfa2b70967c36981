package service

import (
	"context"
	"testing"

	"github.com/kaya2m/Camply-API-sub003/internal/model"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newReactionServiceForTest(t *testing.T) (ReactionService, string, string) {
	t.Helper()

	convRepo := newFakeConversationRepo()
	msgRepo := newFakeMessageRepo()
	reactionRepo := newFakeReactionRepo()

	conv := convRepo.addDirect("alice", "bob")
	messageSvc := NewMessageService(msgRepo, convRepo, zap.NewNop())
	msg, err := messageSvc.SendMessage(context.Background(), SendMessageInput{
		ConversationID: conv.ID.Hex(),
		SenderID:       "alice",
		Content:        "react to me",
		MessageType:    model.MessageTypeText,
	})
	assert.NoError(t, err)

	svc := NewReactionService(reactionRepo, msgRepo, convRepo, zap.NewNop())
	return svc, msg.ID.Hex(), conv.ID.Hex()
}

func TestAddReactionStoresSingleRow(t *testing.T) {
	svc, messageID, conversationID := newReactionServiceForTest(t)
	ctx := context.Background()

	result, err := svc.AddReaction(ctx, "bob", messageID, model.ReactionLike)
	assert.NoError(t, err)
	assert.Equal(t, conversationID, result.ConversationID)
	assert.Equal(t, model.ReactionLike, result.Reaction.ReactionType)

	reactions, err := svc.ListReactions(ctx, "bob", messageID)
	assert.NoError(t, err)
	assert.Len(t, reactions, 1)
}

func TestAddReactionReplacesInsteadOfStacking(t *testing.T) {
	svc, messageID, _ := newReactionServiceForTest(t)
	ctx := context.Background()

	_, err := svc.AddReaction(ctx, "bob", messageID, model.ReactionLike)
	assert.NoError(t, err)

	result, err := svc.AddReaction(ctx, "bob", messageID, model.ReactionLove)
	assert.NoError(t, err)
	assert.Equal(t, model.ReactionLove, result.Reaction.ReactionType)

	reactions, err := svc.ListReactions(ctx, "bob", messageID)
	assert.NoError(t, err)
	assert.Len(t, reactions, 1, "same user reacting twice must keep one row")
	assert.Equal(t, model.ReactionLove, reactions[0].ReactionType)
}

func TestAddReactionUnknownTypeRejected(t *testing.T) {
	svc, messageID, _ := newReactionServiceForTest(t)

	_, err := svc.AddReaction(context.Background(), "bob", messageID, "fire")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddReactionDeniedForOutsider(t *testing.T) {
	svc, messageID, _ := newReactionServiceForTest(t)

	_, err := svc.AddReaction(context.Background(), "mallory", messageID, model.ReactionLike)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestRemoveReactionReportsExistence(t *testing.T) {
	svc, messageID, conversationID := newReactionServiceForTest(t)
	ctx := context.Background()

	// Removing before adding is a no-op, not an error.
	removed, _, err := svc.RemoveReaction(ctx, "bob", messageID)
	assert.NoError(t, err)
	assert.False(t, removed)

	_, err = svc.AddReaction(ctx, "bob", messageID, model.ReactionHaha)
	assert.NoError(t, err)

	removed, gotConv, err := svc.RemoveReaction(ctx, "bob", messageID)
	assert.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, conversationID, gotConv)
}

func TestReactionsPerUserAreIndependent(t *testing.T) {
	svc, messageID, _ := newReactionServiceForTest(t)
	ctx := context.Background()

	_, err := svc.AddReaction(ctx, "alice", messageID, model.ReactionLike)
	assert.NoError(t, err)
	_, err = svc.AddReaction(ctx, "bob", messageID, model.ReactionSad)
	assert.NoError(t, err)

	reactions, err := svc.ListReactions(ctx, "alice", messageID)
	assert.NoError(t, err)
	assert.Len(t, reactions, 2)
}
