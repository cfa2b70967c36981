package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation status constants
const (
	ConversationStatusActive   = "active"
	ConversationStatusArchived = "archived"
	ConversationStatusDeleted  = "deleted"
)

// Conversation represents a chat conversation document in MongoDB.
// One-to-one conversations carry a canonical PairKey built from the sorted
// participant pair; a unique index on pair_key makes get-or-create race-safe.
type Conversation struct {
	ID                  primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	PairKey             string               `json:"-" bson:"pair_key,omitempty"`
	ParticipantIds      []string             `json:"participantIds" bson:"participant_ids"`
	IsGroup             bool                 `json:"isGroup" bson:"is_group"`
	Title               string               `json:"title,omitempty" bson:"title,omitempty"`
	ImageURL            string               `json:"imageUrl,omitempty" bson:"image_url,omitempty"`
	CreatedBy           string               `json:"createdBy" bson:"created_by"`
	CreatedAt           time.Time            `json:"createdAt" bson:"created_at"`
	LastMessageId       string               `json:"lastMessageId" bson:"last_message_id"`
	LastMessagePreview  string               `json:"lastMessagePreview" bson:"last_message_preview"`
	LastMessageSenderId string               `json:"lastMessageSenderId" bson:"last_message_sender_id"`
	LastActivityDate    time.Time            `json:"lastActivityDate" bson:"last_activity_date"`
	Status              string               `json:"status" bson:"status"`
	MutedBy             map[string]bool      `json:"mutedBy" bson:"muted_by"`
	ArchivedBy          map[string]bool      `json:"archivedBy" bson:"archived_by"`
	DeletedBy           map[string]bool      `json:"deletedBy" bson:"deleted_by"`
	UnreadCount         map[string]int       `json:"unreadCount" bson:"unread_count"`
	IsVanish            bool                 `json:"isVanish" bson:"is_vanish"`
	IsTemporary         bool                 `json:"isTemporary" bson:"is_temporary"`
	Settings            ConversationSettings `json:"settings" bson:"settings"`
}

// ConversationSettings holds conversation-level settings
type ConversationSettings struct {
	AllowReactions bool `json:"allowReactions" bson:"allow_reactions"`
	AdminOnlyPost  bool `json:"adminOnlyPost" bson:"admin_only_post"`
}

// HasParticipant reports whether the given user belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIds {
		if id == userID {
			return true
		}
	}
	return false
}
