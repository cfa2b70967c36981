package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reaction type constants - the bounded emoji set accepted by the service
const (
	ReactionLike  = "like"
	ReactionLove  = "love"
	ReactionHaha  = "haha"
	ReactionWow   = "wow"
	ReactionSad   = "sad"
	ReactionAngry = "angry"
)

// KnownReactionTypes lists every accepted reaction type.
var KnownReactionTypes = []string{
	ReactionLike,
	ReactionLove,
	ReactionHaha,
	ReactionWow,
	ReactionSad,
	ReactionAngry,
}

// IsValidReactionType checks a type against the known set.
func IsValidReactionType(t string) bool {
	for _, k := range KnownReactionTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Reaction represents a single user's reaction on a message.
// A unique index on (message_id, user_id) guarantees at most one row per pair;
// adding a second reaction replaces the type in place.
type Reaction struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MessageID    primitive.ObjectID `json:"messageId" bson:"message_id"`
	UserID       string             `json:"userId" bson:"user_id"`
	ReactionType string             `json:"reactionType" bson:"reaction_type"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`
}

// ErrorPayload represents an error response sent to a client via WebSocket
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
