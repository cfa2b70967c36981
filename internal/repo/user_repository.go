package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/kaya2m/Camply-API-sub003/internal/db"
	"github.com/kaya2m/Camply-API-sub003/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ErrUserNotFound = errors.New("user not found")

type userRepository struct {
	mongoRepo *db.Repository[model.User]
	logger    *zap.Logger
}

type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

func NewUserRepository(repo *db.Repository[model.User], logger *zap.Logger) UserRepository {
	return &userRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

func (u *userRepository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultReadTimeout)
	defer cancel()

	user, err := u.mongoRepo.FindOne(ctx, bson.M{"user_id": userID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		u.logger.Error("failed to fetch user", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("fetch user failed: %w", err)
	}
	return user, nil
}
