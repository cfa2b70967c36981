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
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var ErrInvalidReaction = errors.New("invalid reaction: unknown reaction type")

type reactionRepository struct {
	mongoRepo *db.Repository[model.Reaction]
	logger    *zap.Logger
}

type ReactionRepository interface {
	Upsert(ctx context.Context, messageID, userID, reactionType string, at time.Time) (*model.Reaction, error)
	Remove(ctx context.Context, messageID, userID string) (bool, error)
	ListByMessage(ctx context.Context, messageID string) ([]model.Reaction, error)
}

func NewReactionRepository(repo *db.Repository[model.Reaction], logger *zap.Logger) ReactionRepository {
	return &reactionRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// EnsureReactionIndexes enforces one reaction row per (message, user) pair.
func EnsureReactionIndexes(ctx context.Context, repo *db.Repository[model.Reaction]) error {
	return repo.EnsureIndexes(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "message_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
}

// Upsert stores the user's reaction on a message, replacing any previous
// reaction type in place. Concurrent upserts for the same pair collapse onto
// the single indexed row, last writer wins.
func (r *reactionRepository) Upsert(ctx context.Context, messageID, userID, reactionType string, at time.Time) (*model.Reaction, error) {
	if !model.IsValidReactionType(reactionType) {
		return nil, ErrInvalidReaction
	}

	objectID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, ErrMessageNotFound
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := bson.M{
		"message_id": objectID,
		"user_id":    userID,
	}
	update := bson.M{
		"$set": bson.M{"reaction_type": reactionType},
		"$setOnInsert": bson.M{
			"message_id": objectID,
			"user_id":    userID,
			"created_at": at,
		},
	}

	reaction, err := r.mongoRepo.FindOneAndUpsert(ctx, filter, update)
	if err != nil {
		r.logger.Error("failed to upsert reaction",
			zap.Error(err),
			zap.String("message_id", messageID),
			zap.String("user_id", userID),
		)
		return nil, fmt.Errorf("upsert reaction failed: %w", err)
	}

	return reaction, nil
}

// Remove deletes the user's reaction row if one exists. The bool reports
// whether anything was actually removed, so callers can skip the broadcast
// when the operation was a no-op.
func (r *reactionRepository) Remove(ctx context.Context, messageID, userID string) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return false, ErrMessageNotFound
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := bson.M{
		"message_id": objectID,
		"user_id":    userID,
	}
	result, err := r.mongoRepo.Delete(ctx, filter)
	if err != nil {
		r.logger.Error("failed to remove reaction",
			zap.Error(err),
			zap.String("message_id", messageID),
			zap.String("user_id", userID),
		)
		return false, fmt.Errorf("remove reaction failed: %w", err)
	}

	return result.DeletedCount > 0, nil
}

func (r *reactionRepository) ListByMessage(ctx context.Context, messageID string) ([]model.Reaction, error) {
	objectID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, ErrMessageNotFound
	}

	ctx, cancel := r.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	reactions, err := r.mongoRepo.FindAll(ctx, bson.M{"message_id": objectID})
	if err != nil {
		return nil, fmt.Errorf("list reactions failed: %w", err)
	}
	return reactions, nil
}

func (r *reactionRepository) ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}
