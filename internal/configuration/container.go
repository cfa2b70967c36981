package configuration

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kaya2m/Camply-API-sub003/internal/auth"
	"github.com/kaya2m/Camply-API-sub003/internal/db"
	"github.com/kaya2m/Camply-API-sub003/internal/handler"
	"github.com/kaya2m/Camply-API-sub003/internal/hub"
	"github.com/kaya2m/Camply-API-sub003/internal/metrics"
	"github.com/kaya2m/Camply-API-sub003/internal/model"
	"github.com/kaya2m/Camply-API-sub003/internal/ratelimit"
	"github.com/kaya2m/Camply-API-sub003/internal/repo"
	"github.com/kaya2m/Camply-API-sub003/internal/service"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	MessageHandler handler.MessageHandler
	Hub            *hub.Hub
	Verifier       *auth.Verifier
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
	redisClient *redis.Client
}

func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	con, err := db.OpenConnection(config.ChatDatabase.Uri, config.ChatDatabase.Database)
	if err != nil {
		return nil, err
	}

	logger, _ := zap.NewProduction()
	metrics.Init()

	conversationMongoRepo := db.NewRepository[model.Conversation](con, config.ChatDatabase.ConversationsCollection)
	messageMongoRepo := db.NewRepository[model.Message](con, config.ChatDatabase.MessagesCollection)
	reactionMongoRepo := db.NewRepository[model.Reaction](con, config.ChatDatabase.ReactionsCollection)
	userMongoRepo := db.NewRepository[model.User](con, config.ChatDatabase.UsersCollection)

	if err := ensureIndexes(conversationMongoRepo, messageMongoRepo, reactionMongoRepo); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	conversationRepo := repo.NewConversationRepository(conversationMongoRepo, logger)
	messageRepo := repo.NewMessageRepository(messageMongoRepo, logger)
	reactionRepo := repo.NewReactionRepository(reactionMongoRepo, logger)
	userRepo := repo.NewUserRepository(userMongoRepo, logger)

	conversationService := service.NewConversationService(conversationRepo, logger)
	messageService := service.NewMessageService(messageRepo, conversationRepo, logger)
	reactionService := service.NewReactionService(reactionRepo, messageRepo, conversationRepo, logger)
	userService := service.NewUserService(userRepo)

	var redisClient *redis.Client
	var limiter *ratelimit.TokenBucketLimiter
	if config.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		limiter = ratelimit.NewTokenBucketLimiter(redisClient)
	}

	presence := hub.NewPresenceTracker()
	chatHandler := hub.NewChatHandler(conversationService, messageService, reactionService, userService, limiter)
	h := hub.NewHub(chatHandler, presence)

	if len(config.Server.AllowedOrigins) > 0 {
		hub.SetAllowedOrigins(config.Server.AllowedOrigins)
	}

	messageHandler := handler.NewMessageHandler(conversationService, messageService)
	verifier := auth.NewVerifier(config.Auth.JwtSecret)

	return &Container{
		MessageHandler: messageHandler,
		Hub:            h,
		Verifier:       verifier,
		Config:         *config,
		Logger:         logger,
		mongoClient:    con,
		redisClient:    redisClient,
	}, nil
}

func ensureIndexes(
	conversations *db.Repository[model.Conversation],
	messages *db.Repository[model.Message],
	reactions *db.Repository[model.Reaction],
) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := repo.EnsureConversationIndexes(ctx, conversations); err != nil {
		return err
	}
	if err := repo.EnsureMessageIndexes(ctx, messages); err != nil {
		return err
	}
	return repo.EnsureReactionIndexes(ctx, reactions)
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	if c.redisClient != nil {
		_ = c.redisClient.Close()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
