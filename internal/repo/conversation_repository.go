package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kaya2m/Camply-API-sub003/internal/db"
	"github.com/kaya2m/Camply-API-sub003/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidParticipants  = errors.New("invalid participants: need two distinct user IDs")
)

// conversationStore is the slice of db.Repository this repository issues
// queries through.
type conversationStore interface {
	Create(ctx context.Context, document model.Conversation) (*mongo.InsertOneResult, error)
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindOne(ctx context.Context, filter bson.M) (*model.Conversation, error)
	FindWithPagination(ctx context.Context, filter bson.M, params db.PaginationParams) (*db.PaginatedResult[model.Conversation], error)
	UpdateRaw(ctx context.Context, filter bson.M, update bson.M) (*mongo.UpdateResult, error)
	Exists(ctx context.Context, filter bson.M) (bool, error)
}

type conversationRepository struct {
	mongoRepo conversationStore
	logger    *zap.Logger
}

type ConversationRepository interface {
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
	GetOrCreateOneToOne(ctx context.Context, userA, userB string) (*model.Conversation, error)
	CreateGroup(ctx context.Context, createdBy string, participantIDs []string, title, imageURL string) (*model.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	ListByParticipant(ctx context.Context, userID string) ([]model.Conversation, error)
	SetUserFlag(ctx context.Context, conversationID, userID, flag string, value bool) error
	SetStatusForUser(ctx context.Context, conversationID, userID, status string) error
	UpdateLastMessage(ctx context.Context, conversationID, messageID, preview, senderID string, at time.Time) error
	IncrementUnread(ctx context.Context, conversationID string, userIDs []string) error
	ResetUnread(ctx context.Context, conversationID, userID string) error
}

func NewConversationRepository(repo *db.Repository[model.Conversation], logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// EnsureConversationIndexes creates the uniqueness and lookup indexes the
// repository relies on. The unique pair_key index is what makes one-to-one
// get-or-create race-safe.
func EnsureConversationIndexes(ctx context.Context, repo *db.Repository[model.Conversation]) error {
	return repo.EnsureIndexes(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "participant_ids", Value: 1}, {Key: "last_activity_date", Value: -1}}},
	})
}

// PairKey builds the canonical key for an unordered one-to-one pair.
func PairKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return pair[0] + ":" + pair[1]
}

// GetConversation fetches a conversation document by ID.
func (r *conversationRepository) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if conversationID == "" {
		return nil, ErrConversationNotFound
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	conversation, err := r.mongoRepo.FindByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
			return nil, ErrConversationNotFound
		}
		r.logger.Error("failed to fetch conversation",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}

	return conversation, nil
}

// GetOrCreateOneToOne returns the single conversation for an unordered user
// pair, creating it when absent. Concurrent callers converge on one row: the
// insert hits the unique pair_key index, and the loser of the race re-reads.
func (r *conversationRepository) GetOrCreateOneToOne(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	if userA == "" || userB == "" || userA == userB {
		return nil, ErrInvalidParticipants
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	pairKey := PairKey(userA, userB)
	filter := db.NewFilter().Eq("pair_key", pairKey).Build()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := r.waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
		}

		existing, err := r.mongoRepo.FindOne(ctx, filter)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			lastErr = err
			if !isRetryableError(err) {
				break
			}
			continue
		}

		now := time.Now()
		conv := model.Conversation{
			PairKey:          pairKey,
			ParticipantIds:   []string{userA, userB},
			IsGroup:          false,
			CreatedBy:        userA,
			CreatedAt:        now,
			LastActivityDate: now,
			Status:           model.ConversationStatusActive,
			MutedBy:          map[string]bool{},
			ArchivedBy:       map[string]bool{},
			DeletedBy:        map[string]bool{},
			UnreadCount:      map[string]int{userA: 0, userB: 0},
			Settings:         model.ConversationSettings{AllowReactions: true},
		}

		_, err = r.mongoRepo.Create(ctx, conv)
		if err == nil {
			created, ferr := r.mongoRepo.FindOne(ctx, filter)
			if ferr != nil {
				return nil, fmt.Errorf("read back created conversation: %w", ferr)
			}
			r.logger.Info("one-to-one conversation created",
				zap.String("pair_key", pairKey),
				zap.String("conversation_id", created.ID.Hex()),
			)
			return created, nil
		}

		// Lost the race: another caller inserted the pair first. Re-read.
		if db.IsDuplicateKey(err) {
			continue
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	r.logger.Error("get-or-create one-to-one failed",
		zap.String("pair_key", pairKey),
		zap.Error(lastErr),
	)
	return nil, fmt.Errorf("get or create conversation failed: %w", lastErr)
}

// CreateGroup creates a group conversation with the given participants.
func (r *conversationRepository) CreateGroup(ctx context.Context, createdBy string, participantIDs []string, title, imageURL string) (*model.Conversation, error) {
	if len(participantIDs) < 2 {
		return nil, ErrInvalidParticipants
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now()
	unread := make(map[string]int, len(participantIDs))
	for _, id := range participantIDs {
		unread[id] = 0
	}

	conv := model.Conversation{
		ParticipantIds:   participantIDs,
		IsGroup:          true,
		Title:            title,
		ImageURL:         imageURL,
		CreatedBy:        createdBy,
		CreatedAt:        now,
		LastActivityDate: now,
		Status:           model.ConversationStatusActive,
		MutedBy:          map[string]bool{},
		ArchivedBy:       map[string]bool{},
		DeletedBy:        map[string]bool{},
		UnreadCount:      unread,
		Settings:         model.ConversationSettings{AllowReactions: true},
	}

	result, err := r.mongoRepo.Create(ctx, conv)
	if err != nil {
		r.logger.Error("failed to create group conversation", zap.Error(err))
		return nil, fmt.Errorf("create group conversation failed: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		conv.ID = oid
	}
	return &conv, nil
}

// IsParticipant is the access-control gate used before join/read/send. Any
// ambiguity (missing conversation, bad ID) answers false rather than leaking
// whether the conversation exists.
func (r *conversationRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	if conversationID == "" || userID == "" {
		return false, nil
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		ObjectID("_id", conversationID).
		Eq("participant_ids", userID).
		Ne("status", model.ConversationStatusDeleted).
		Build()

	// A malformed hex ID never added the _id clause; deny instead of matching broadly.
	if _, ok := filter["_id"]; !ok {
		return false, nil
	}

	ok, err := r.mongoRepo.Exists(ctx, filter)
	if err != nil {
		r.logger.Error("participant check failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return false, fmt.Errorf("participant check failed: %w", err)
	}
	return ok, nil
}

// ListByParticipant returns the user's conversations ordered by recency,
// excluding ones the user deleted.
func (r *conversationRepository) ListByParticipant(ctx context.Context, userID string) ([]model.Conversation, error) {
	ctx, cancel := r.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("participant_ids", userID).
		Ne("status", model.ConversationStatusDeleted).
		Ne("deleted_by."+userID, true).
		Build()

	result, err := r.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
		Page:     1,
		PageSize: 100,
		SortBy:   "last_activity_date",
		SortDesc: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list conversations failed: %w", err)
	}
	return result.Data, nil
}

// SetUserFlag writes one per-user flag map entry: muted_by, archived_by or
// deleted_by. Other participants' views are untouched.
func (r *conversationRepository) SetUserFlag(ctx context.Context, conversationID, userID, flag string, value bool) error {
	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().ObjectID("_id", conversationID).Build()
	result, err := r.mongoRepo.UpdateRaw(ctx, filter, bson.M{
		"$set": bson.M{flag + "." + userID: value},
	})
	if err != nil {
		return fmt.Errorf("set %s flag failed: %w", flag, err)
	}
	if result.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// SetStatusForUser transitions conversation state for one user. Delete is a
// state transition, never a row removal.
func (r *conversationRepository) SetStatusForUser(ctx context.Context, conversationID, userID, status string) error {
	switch status {
	case model.ConversationStatusArchived:
		return r.SetUserFlag(ctx, conversationID, userID, "archived_by", true)
	case model.ConversationStatusDeleted:
		return r.SetUserFlag(ctx, conversationID, userID, "deleted_by", true)
	case model.ConversationStatusActive:
		if err := r.SetUserFlag(ctx, conversationID, userID, "archived_by", false); err != nil {
			return err
		}
		return r.SetUserFlag(ctx, conversationID, userID, "deleted_by", false)
	default:
		return fmt.Errorf("unknown conversation status %q", status)
	}
}

// UpdateLastMessage refreshes the conversation preview fields after a send.
func (r *conversationRepository) UpdateLastMessage(ctx context.Context, conversationID, messageID, preview, senderID string, at time.Time) error {
	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().ObjectID("_id", conversationID).Build()
	result, err := r.mongoRepo.UpdateRaw(ctx, filter, bson.M{
		"$set": bson.M{
			"last_message_id":        messageID,
			"last_message_preview":   preview,
			"last_message_sender_id": senderID,
			"last_activity_date":     at,
		},
	})
	if err != nil {
		return fmt.Errorf("update last message failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// IncrementUnread bumps the unread counter for every listed user in one write.
func (r *conversationRepository) IncrementUnread(ctx context.Context, conversationID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	inc := bson.M{}
	for _, id := range userIDs {
		inc["unread_count."+id] = 1
	}

	filter := db.NewFilter().ObjectID("_id", conversationID).Build()
	result, err := r.mongoRepo.UpdateRaw(ctx, filter, bson.M{"$inc": inc})
	if err != nil {
		return fmt.Errorf("increment unread failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// ResetUnread zeroes the acting user's counter only. Counters never go
// negative because reset writes an absolute zero.
func (r *conversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) error {
	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().ObjectID("_id", conversationID).Build()
	result, err := r.mongoRepo.UpdateRaw(ctx, filter, bson.M{
		"$set": bson.M{"unread_count." + userID: 0},
	})
	if err != nil {
		return fmt.Errorf("reset unread failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

func (r *conversationRepository) ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *conversationRepository) waitForRetry(ctx context.Context, attempt int) error {
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
