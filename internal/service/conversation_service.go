package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kaya2m/Camply-API-sub003/internal/model"
	"github.com/kaya2m/Camply-API-sub003/internal/repo"

	"go.uber.org/zap"
)

type ConversationService interface {
	GetOrCreateDirect(ctx context.Context, userID, otherUserID string) (*model.Conversation, error)
	CreateGroup(ctx context.Context, creatorID string, participantIDs []string, title, imageURL string) (*model.Conversation, error)
	GetConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	MuteConversation(ctx context.Context, userID, conversationID string, muted bool) error
	ArchiveConversation(ctx context.Context, userID, conversationID string, archived bool) error
	DeleteConversation(ctx context.Context, userID, conversationID string) error
}

type conversationService struct {
	conversationRepo repo.ConversationRepository
	logger           *zap.Logger
}

func NewConversationService(conversationRepo repo.ConversationRepository, logger *zap.Logger) ConversationService {
	return &conversationService{
		conversationRepo: conversationRepo,
		logger:           logger,
	}
}

// GetOrCreateDirect resolves the single one-to-one conversation between the
// caller and another user, creating it on first contact.
func (s *conversationService) GetOrCreateDirect(ctx context.Context, userID, otherUserID string) (*model.Conversation, error) {
	conv, err := s.conversationRepo.GetOrCreateOneToOne(ctx, userID, otherUserID)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidParticipants) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}
	return conv, nil
}

func (s *conversationService) CreateGroup(ctx context.Context, creatorID string, participantIDs []string, title, imageURL string) (*model.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: group title required", ErrValidation)
	}

	members := dedupe(append([]string{creatorID}, participantIDs...))
	if len(members) < 3 {
		return nil, fmt.Errorf("%w: a group needs at least three members", ErrValidation)
	}

	conv, err := s.conversationRepo.CreateGroup(ctx, creatorID, members, strings.TrimSpace(title), imageURL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("group conversation created",
		zap.String("conversation_id", conv.ID.Hex()),
		zap.String("created_by", creatorID),
		zap.Int("members", len(members)),
	)
	return conv, nil
}

func (s *conversationService) GetConversation(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.conversationRepo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repo.ErrConversationNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrAccessDenied
	}
	return conv, nil
}

func (s *conversationService) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user ID", ErrValidation)
	}
	return s.conversationRepo.ListByParticipant(ctx, userID)
}

func (s *conversationService) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	return s.conversationRepo.IsParticipant(ctx, conversationID, userID)
}

func (s *conversationService) MuteConversation(ctx context.Context, userID, conversationID string, muted bool) error {
	if err := s.requireMembership(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.conversationRepo.SetUserFlag(ctx, conversationID, userID, "muted_by", muted)
}

func (s *conversationService) ArchiveConversation(ctx context.Context, userID, conversationID string, archived bool) error {
	if err := s.requireMembership(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.conversationRepo.SetUserFlag(ctx, conversationID, userID, "archived_by", archived)
}

// DeleteConversation hides the conversation for this user only. History stays
// intact for the other participants.
func (s *conversationService) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if err := s.requireMembership(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.conversationRepo.SetStatusForUser(ctx, conversationID, userID, model.ConversationStatusDeleted)
}

func (s *conversationService) requireMembership(ctx context.Context, conversationID, userID string) error {
	ok, err := s.conversationRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAccessDenied
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var result []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
