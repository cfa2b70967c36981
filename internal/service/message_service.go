package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kaya2m/Camply-API-sub003/internal/db"
	"github.com/kaya2m/Camply-API-sub003/internal/model"
	"github.com/kaya2m/Camply-API-sub003/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	maxContentLength = 4096
	previewLimit     = 50
	previewCut       = 47
)

// SendMessageInput carries everything the gateway collected for one send.
type SendMessageInput struct {
	ConversationID   string
	SenderID         string
	Content          string
	MessageType      string
	ReplyToMessageID string
	Media            []model.MediaAttachment
	ExpiresAt        *time.Time
}

type MessageService interface {
	SendMessage(ctx context.Context, in SendMessageInput) (*model.Message, error)
	GetMessage(ctx context.Context, userID, messageID string) (*model.Message, error)
	ListMessages(ctx context.Context, userID, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
	MarkMessageRead(ctx context.Context, userID, messageID string) (bool, *model.Message, time.Time, error)
	MarkConversationRead(ctx context.Context, userID, conversationID string) (int64, time.Time, error)
	EditMessage(ctx context.Context, userID, messageID, content string) (*model.Message, error)
	DeleteMessage(ctx context.Context, userID, messageID string) error
	SearchMessages(ctx context.Context, userID, conversationID, query string, page int64) (*db.PaginatedResult[model.Message], error)
	ListMediaMessages(ctx context.Context, userID, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
}

type messageService struct {
	messageRepo      repo.MessageRepository
	conversationRepo repo.ConversationRepository
	logger           *zap.Logger
}

func NewMessageService(messageRepo repo.MessageRepository, conversationRepo repo.ConversationRepository, logger *zap.Logger) MessageService {
	return &messageService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		logger:           logger,
	}
}

// -----------------------------------------------------------------------------
// Preview
// -----------------------------------------------------------------------------

// BuildPreview renders the conversation-list summary for a message. Text is
// truncated on rune boundaries; non-text types map to fixed labels.
func BuildPreview(messageType, content string) string {
	switch messageType {
	case model.MessageTypeImage:
		return "📷 Fotoğraf"
	case model.MessageTypeVideo:
		return "🎥 Video"
	case model.MessageTypeAudio:
		return "🎵 Ses"
	case model.MessageTypeFile:
		return "📎 Dosya"
	case model.MessageTypeHeart:
		return "❤️"
	case model.MessageTypeStoryReply:
		return "↩️ Hikaye yanıtı"
	}

	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewCut]) + "..."
}

// -----------------------------------------------------------------------------
// Send
// -----------------------------------------------------------------------------

// SendMessage validates, persists and records conversation bookkeeping for a
// new message. The caller broadcasts only after this returns, so a delivered
// event always refers to a stored message.
func (s *messageService) SendMessage(ctx context.Context, in SendMessageInput) (*model.Message, error) {
	conv, err := s.requireParticipant(ctx, in.ConversationID, in.SenderID)
	if err != nil {
		return nil, err
	}

	if err := validateSendInput(in); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		Content:        in.Content,
		MessageType:    in.MessageType,
		Media:          in.Media,
		ReadBy:         map[string]time.Time{},
		CreatedAt:      time.Now(),
		ExpiresAt:      in.ExpiresAt,
	}
	if in.ReplyToMessageID != "" {
		replyID, err := primitive.ObjectIDFromHex(in.ReplyToMessageID)
		if err != nil {
			return nil, fmt.Errorf("%w: bad reply_to_message_id", ErrValidation)
		}
		msg.ReplyToMessageID = &replyID
	}
	if conv.IsVanish && msg.ExpiresAt == nil {
		expiry := msg.CreatedAt.Add(24 * time.Hour)
		msg.ExpiresAt = &expiry
	}

	messageID, err := s.messageRepo.InsertMessage(ctx, msg)
	if err != nil {
		return nil, err
	}

	// Bookkeeping failures are logged, not surfaced: the message is already
	// durable and the sender must still get their ack.
	preview := BuildPreview(msg.MessageType, msg.Content)
	if err := s.conversationRepo.UpdateLastMessage(ctx, in.ConversationID, messageID, preview, in.SenderID, msg.CreatedAt); err != nil {
		s.logger.Warn("failed to update conversation preview",
			zap.String("conversation_id", in.ConversationID),
			zap.Error(err),
		)
	}

	recipients := Filter(conv.ParticipantIds, func(id string) bool { return id != in.SenderID })
	if err := s.conversationRepo.IncrementUnread(ctx, in.ConversationID, recipients); err != nil {
		s.logger.Warn("failed to increment unread counters",
			zap.String("conversation_id", in.ConversationID),
			zap.Error(err),
		)
	}

	return msg, nil
}

func validateSendInput(in SendMessageInput) error {
	if !model.IsValidMessageType(in.MessageType) {
		return fmt.Errorf("%w: unknown message type %q", ErrValidation, in.MessageType)
	}
	switch in.MessageType {
	case model.MessageTypeText, model.MessageTypeStoryReply:
		if in.Content == "" {
			return fmt.Errorf("%w: empty content", ErrValidation)
		}
	case model.MessageTypeImage, model.MessageTypeVideo, model.MessageTypeAudio, model.MessageTypeFile:
		if len(in.Media) == 0 {
			return fmt.Errorf("%w: media message without attachments", ErrValidation)
		}
	}
	if len([]rune(in.Content)) > maxContentLength {
		return fmt.Errorf("%w: content exceeds %d characters", ErrValidation, maxContentLength)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (s *messageService) GetMessage(ctx context.Context, userID, messageID string) (*model.Message, error) {
	msg, err := s.messageRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, translateMessageErr(err)
	}
	if _, err := s.requireParticipant(ctx, msg.ConversationID.Hex(), userID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageService) ListMessages(ctx context.Context, userID, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if _, err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListMessages(ctx, conversationID, page)
}

func (s *messageService) SearchMessages(ctx context.Context, userID, conversationID, query string, page int64) (*db.PaginatedResult[model.Message], error) {
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", ErrValidation)
	}
	if _, err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.messageRepo.SearchMessages(ctx, conversationID, query, page)
}

func (s *messageService) ListMediaMessages(ctx context.Context, userID, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if _, err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListMediaMessages(ctx, conversationID, page)
}

// -----------------------------------------------------------------------------
// Read receipts
// -----------------------------------------------------------------------------

// MarkMessageRead stamps the receipt once. The bool is false when the user had
// already read the message, in which case no event should go out. The returned
// instant is the one written into the receipt, so broadcasts carry the stored
// timestamp.
func (s *messageService) MarkMessageRead(ctx context.Context, userID, messageID string) (bool, *model.Message, time.Time, error) {
	msg, err := s.messageRepo.GetMessage(ctx, messageID)
	if err != nil {
		return false, nil, time.Time{}, translateMessageErr(err)
	}
	if _, err := s.requireParticipant(ctx, msg.ConversationID.Hex(), userID); err != nil {
		return false, nil, time.Time{}, err
	}
	if msg.SenderID == userID || msg.IsReadBy(userID) {
		return false, msg, time.Time{}, nil
	}

	at := time.Now()
	newlySet, err := s.messageRepo.MarkRead(ctx, messageID, userID, at)
	if err != nil {
		return false, nil, time.Time{}, err
	}
	return newlySet, msg, at, nil
}

// MarkConversationRead stamps all unread messages and zeroes the caller's
// counter. Re-invoking is a harmless no-op reporting zero stamped messages.
// The returned instant is the one written into the receipts.
func (s *messageService) MarkConversationRead(ctx context.Context, userID, conversationID string) (int64, time.Time, error) {
	if _, err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return 0, time.Time{}, err
	}

	at := time.Now()
	stamped, err := s.messageRepo.MarkConversationRead(ctx, conversationID, userID, at)
	if err != nil {
		return 0, time.Time{}, err
	}
	if err := s.conversationRepo.ResetUnread(ctx, conversationID, userID); err != nil {
		s.logger.Warn("failed to reset unread counter",
			zap.String("conversation_id", conversationID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	return stamped, at, nil
}

// -----------------------------------------------------------------------------
// Edit and delete
// -----------------------------------------------------------------------------

func (s *messageService) EditMessage(ctx context.Context, userID, messageID, content string) (*model.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrValidation)
	}

	msg, err := s.messageRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, translateMessageErr(err)
	}
	if msg.SenderID != userID {
		return nil, ErrAccessDenied
	}
	if msg.MessageType != model.MessageTypeText {
		return nil, fmt.Errorf("%w: only text messages can be edited", ErrValidation)
	}

	now := time.Now()
	if err := s.messageRepo.EditMessage(ctx, messageID, content, now); err != nil {
		return nil, translateMessageErr(err)
	}

	msg.Content = content
	msg.IsEdited = true
	msg.EditedAt = &now
	return msg, nil
}

func (s *messageService) DeleteMessage(ctx context.Context, userID, messageID string) error {
	msg, err := s.messageRepo.GetMessage(ctx, messageID)
	if err != nil {
		return translateMessageErr(err)
	}
	if msg.SenderID != userID {
		return ErrAccessDenied
	}
	return translateMessageErr(s.messageRepo.SoftDeleteMessage(ctx, messageID))
}

// -----------------------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------------------

func (s *messageService) requireParticipant(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	conv, err := s.conversationRepo.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repo.ErrConversationNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, err
	}
	if !conv.HasParticipant(userID) || conv.Status == model.ConversationStatusDeleted {
		return nil, ErrAccessDenied
	}
	return conv, nil
}

func translateMessageErr(err error) error {
	if errors.Is(err, repo.ErrMessageNotFound) {
		return ErrNotFound
	}
	return err
}
