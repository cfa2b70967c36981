package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message type constants - closed set, validated at the service boundary
const (
	MessageTypeText       = "text"
	MessageTypeImage      = "image"
	MessageTypeVideo      = "video"
	MessageTypeAudio      = "audio"
	MessageTypeFile       = "file"
	MessageTypeHeart      = "heart"
	MessageTypeStoryReply = "story_reply"
)

// KnownMessageTypes lists every accepted message type.
var KnownMessageTypes = []string{
	MessageTypeText,
	MessageTypeImage,
	MessageTypeVideo,
	MessageTypeAudio,
	MessageTypeFile,
	MessageTypeHeart,
	MessageTypeStoryReply,
}

// IsValidMessageType checks a type against the known set.
func IsValidMessageType(t string) bool {
	for _, k := range KnownMessageTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Message represents a chat message in MongoDB.
// Edits and deletes never remove the row, only flag it; a reply keeps only the
// referenced message ID and is resolved lazily at read time.
type Message struct {
	ID               primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	ConversationID   primitive.ObjectID   `json:"conversationId" bson:"conversation_id"`
	SenderID         string               `json:"senderId" bson:"sender_id"`
	Content          string               `json:"content" bson:"content"`
	MessageType      string               `json:"messageType" bson:"message_type"`
	ReplyToMessageID *primitive.ObjectID  `json:"replyToMessageId,omitempty" bson:"reply_to_message_id,omitempty"`
	Media            []MediaAttachment    `json:"media,omitempty" bson:"media,omitempty"`
	ReadBy           map[string]time.Time `json:"readBy" bson:"read_by"`
	IsDeleted        bool                 `json:"isDeleted" bson:"is_deleted"`
	IsEdited         bool                 `json:"isEdited" bson:"is_edited"`
	EditedAt         *time.Time           `json:"editedAt,omitempty" bson:"edited_at,omitempty"`
	CreatedAt        time.Time            `json:"createdAt" bson:"created_at"`
	ExpiresAt        *time.Time           `json:"expiresAt,omitempty" bson:"expires_at,omitempty"`
}

// MediaAttachment describes one attachment on a message, in send order.
type MediaAttachment struct {
	Type         string `json:"type" bson:"type"`
	URL          string `json:"url" bson:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty" bson:"thumbnail_url,omitempty"`
	Width        int    `json:"width,omitempty" bson:"width,omitempty"`
	Height       int    `json:"height,omitempty" bson:"height,omitempty"`
	DurationMS   int64  `json:"durationMs,omitempty" bson:"duration_ms,omitempty"`
}

// IsReadBy reports whether the given user already has a read receipt.
func (m *Message) IsReadBy(userID string) bool {
	if m.ReadBy == nil {
		return false
	}
	_, ok := m.ReadBy[userID]
	return ok
}
