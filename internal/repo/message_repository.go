package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kaya2m/Camply-API-sub003/internal/db"
	"github.com/kaya2m/Camply-API-sub003/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrInvalidMessage   = errors.New("invalid message: message cannot be nil")
	ErrMessageNotFound  = errors.New("message not found")
	ErrOperationTimeout = errors.New("operation timeout exceeded")
)

const (
	// Timeouts
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	// Retry configuration
	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second

	messagePageSize = 20
)

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

type MessageRepository interface {
	InsertMessage(ctx context.Context, msg *model.Message) (string, error)
	GetMessage(ctx context.Context, messageID string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
	MarkRead(ctx context.Context, messageID, userID string, at time.Time) (bool, error)
	MarkConversationRead(ctx context.Context, conversationID, userID string, at time.Time) (int64, error)
	EditMessage(ctx context.Context, messageID, content string, at time.Time) error
	SoftDeleteMessage(ctx context.Context, messageID string) error
	SearchMessages(ctx context.Context, conversationID, query string, page int64) (*db.PaginatedResult[model.Message], error)
	ListMediaMessages(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
}

func NewMessageRepository(repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// EnsureMessageIndexes creates the lookup indexes used by the read paths.
func EnsureMessageIndexes(ctx context.Context, repo *db.Repository[model.Message]) error {
	return repo.EnsureIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "message_type", Value: 1}}},
	})
}

// -----------------------------------------------------------------------------
// InsertMessage
// -----------------------------------------------------------------------------

func (m *messageRepository) InsertMessage(ctx context.Context, msg *model.Message) (string, error) {
	if msg == nil {
		return "", ErrInvalidMessage
	}
	if msg.ConversationID.IsZero() {
		return "", ErrConversationNotFound
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := m.waitForRetry(ctx, attempt); err != nil {
				return "", err
			}
		}

		result, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			insertedID := ""
			if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
				insertedID = oid.Hex()
				msg.ID = oid
			}

			m.logger.Info("message inserted",
				zap.String("inserted_id", insertedID),
				zap.String("conversation_id", msg.ConversationID.Hex()),
				zap.Int("attempt", attempt+1),
			)
			return insertedID, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	m.logger.Error("failed to insert message after all retries",
		zap.Error(lastErr),
		zap.String("conversation_id", msg.ConversationID.Hex()),
	)

	return "", fmt.Errorf("insert message failed: %w", lastErr)
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

func (m *messageRepository) GetMessage(ctx context.Context, messageID string) (*model.Message, error) {
	ctx, cancel := m.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	msg, err := m.mongoRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	return msg, nil
}

// ListMessages pages a conversation's visible history in creation order.
// Soft-deleted rows and expired vanish messages are excluded at the query.
func (m *messageRepository) ListMessages(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	ctx, cancel := m.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		ObjectID("conversation_id", conversationID).
		Eq("is_deleted", false).
		NotExpired("expires_at", time.Now()).
		Build()

	return m.findPage(ctx, conversationID, filter, page)
}

// SearchMessages runs a case-insensitive content search scoped to one
// conversation. The membership gate lives in the service layer.
func (m *messageRepository) SearchMessages(ctx context.Context, conversationID, query string, page int64) (*db.PaginatedResult[model.Message], error) {
	ctx, cancel := m.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		ObjectID("conversation_id", conversationID).
		Eq("is_deleted", false).
		Contains("content", query).
		NotExpired("expires_at", time.Now()).
		Build()

	return m.findPage(ctx, conversationID, filter, page)
}

// ListMediaMessages pages messages carrying attachments.
func (m *messageRepository) ListMediaMessages(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	ctx, cancel := m.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		ObjectID("conversation_id", conversationID).
		Eq("is_deleted", false).
		In("message_type", []string{model.MessageTypeImage, model.MessageTypeVideo, model.MessageTypeAudio, model.MessageTypeFile}).
		NotExpired("expires_at", time.Now()).
		Build()

	return m.findPage(ctx, conversationID, filter, page)
}

func (m *messageRepository) findPage(ctx context.Context, conversationID string, filter bson.M, page int64) (*db.PaginatedResult[model.Message], error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := m.waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
			m.logger.Warn("retrying message query",
				zap.String("conversation_id", conversationID),
				zap.Int("attempt", attempt+1),
			)
		}

		result, err := m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
			Page:     page,
			PageSize: messagePageSize,
			SortBy:   "created_at",
			SortDesc: false,
		})
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	return nil, m.handleReadError(lastErr, conversationID)
}

// -----------------------------------------------------------------------------
// Read receipts
// -----------------------------------------------------------------------------

// MarkRead stamps read_by[userID] once. A second call matches nothing and
// reports false, which keeps the receipt timestamp monotonic per user.
func (m *messageRepository) MarkRead(ctx context.Context, messageID, userID string, at time.Time) (bool, error) {
	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return false, ErrMessageNotFound
	}

	filter := bson.M{
		"_id":               objectID,
		"read_by." + userID: bson.M{"$exists": false},
	}
	result, err := m.mongoRepo.UpdateRaw(ctx, filter, bson.M{
		"$set": bson.M{"read_by." + userID: at},
	})
	if err != nil {
		return false, fmt.Errorf("mark read failed: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

// MarkConversationRead stamps every unread message from other senders in one
// bulk write. A message inserted after the filter is evaluated is untouched,
// so a send racing this call is never silently marked read.
func (m *messageRepository) MarkConversationRead(ctx context.Context, conversationID, userID string, at time.Time) (int64, error) {
	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return 0, ErrConversationNotFound
	}

	filter := bson.M{
		"conversation_id":   objectID,
		"sender_id":         bson.M{"$ne": userID},
		"is_deleted":        false,
		"read_by." + userID: bson.M{"$exists": false},
	}
	result, err := m.mongoRepo.UpdateManyRaw(ctx, filter, bson.M{
		"$set": bson.M{"read_by." + userID: at},
	})
	if err != nil {
		return 0, fmt.Errorf("mark conversation read failed: %w", err)
	}
	return result.ModifiedCount, nil
}

// -----------------------------------------------------------------------------
// Mutations
// -----------------------------------------------------------------------------

// EditMessage replaces content and flags the row as edited. Sender
// authorization happens in the service before this runs.
func (m *messageRepository) EditMessage(ctx context.Context, messageID, content string, at time.Time) error {
	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := m.mongoRepo.UpdateByID(ctx, messageID, bson.M{
		"content":   content,
		"is_edited": true,
		"edited_at": at,
	})
	if err != nil {
		if errors.Is(err, primitive.ErrInvalidHex) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("edit message failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// SoftDeleteMessage flags the row; the ID survives for reply references.
func (m *messageRepository) SoftDeleteMessage(ctx context.Context, messageID string) error {
	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	result, err := m.mongoRepo.UpdateByID(ctx, messageID, bson.M{
		"is_deleted": true,
	})
	if err != nil {
		if errors.Is(err, primitive.ErrInvalidHex) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("delete message failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// -----------------------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------------------

func (m *messageRepository) ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}

func (m *messageRepository) waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Context errors are not retryable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	// MongoDB transient errors
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}

	return false
}

func (m *messageRepository) handleReadError(err error, conversationID string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		m.logger.Error("read timeout", zap.String("conversation_id", conversationID))
		return ErrOperationTimeout
	}

	if errors.Is(err, context.Canceled) {
		m.logger.Debug("read cancelled", zap.String("conversation_id", conversationID))
		return err
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil // Not an error, just empty result
	}

	m.logger.Error("read failed", zap.Error(err), zap.String("conversation_id", conversationID))
	return fmt.Errorf("query messages failed: %w", err)
}
