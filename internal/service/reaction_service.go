package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kaya2m/Camply-API-sub003/internal/model"
	"github.com/kaya2m/Camply-API-sub003/internal/repo"

	"go.uber.org/zap"
)

// ReactionResult pairs a stored reaction with the conversation it belongs to,
// which the gateway needs to route the broadcast.
type ReactionResult struct {
	Reaction       *model.Reaction
	ConversationID string
}

type ReactionService interface {
	AddReaction(ctx context.Context, userID, messageID, reactionType string) (*ReactionResult, error)
	RemoveReaction(ctx context.Context, userID, messageID string) (bool, string, error)
	ListReactions(ctx context.Context, userID, messageID string) ([]model.Reaction, error)
}

type reactionService struct {
	reactionRepo     repo.ReactionRepository
	messageRepo      repo.MessageRepository
	conversationRepo repo.ConversationRepository
	logger           *zap.Logger
}

func NewReactionService(reactionRepo repo.ReactionRepository, messageRepo repo.MessageRepository, conversationRepo repo.ConversationRepository, logger *zap.Logger) ReactionService {
	return &reactionService{
		reactionRepo:     reactionRepo,
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		logger:           logger,
	}
}

// AddReaction upserts the caller's reaction on a message. Reacting twice with
// different types replaces the earlier reaction instead of stacking.
func (s *reactionService) AddReaction(ctx context.Context, userID, messageID, reactionType string) (*ReactionResult, error) {
	if !model.IsValidReactionType(reactionType) {
		return nil, fmt.Errorf("%w: unknown reaction type %q", ErrValidation, reactionType)
	}

	conversationID, err := s.authorize(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}

	reaction, err := s.reactionRepo.Upsert(ctx, messageID, userID, reactionType, time.Now())
	if err != nil {
		return nil, err
	}

	return &ReactionResult{Reaction: reaction, ConversationID: conversationID}, nil
}

// RemoveReaction deletes the caller's reaction if present. The bool reports
// whether a reaction actually existed.
func (s *reactionService) RemoveReaction(ctx context.Context, userID, messageID string) (bool, string, error) {
	conversationID, err := s.authorize(ctx, userID, messageID)
	if err != nil {
		return false, "", err
	}

	removed, err := s.reactionRepo.Remove(ctx, messageID, userID)
	if err != nil {
		return false, "", err
	}
	return removed, conversationID, nil
}

func (s *reactionService) ListReactions(ctx context.Context, userID, messageID string) ([]model.Reaction, error) {
	if _, err := s.authorize(ctx, userID, messageID); err != nil {
		return nil, err
	}
	return s.reactionRepo.ListByMessage(ctx, messageID)
}

// authorize resolves the message's conversation and checks membership.
func (s *reactionService) authorize(ctx context.Context, userID, messageID string) (string, error) {
	msg, err := s.messageRepo.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, repo.ErrMessageNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if msg.IsDeleted {
		return "", ErrNotFound
	}

	conversationID := msg.ConversationID.Hex()
	ok, err := s.conversationRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrAccessDenied
	}
	return conversationID, nil
}
