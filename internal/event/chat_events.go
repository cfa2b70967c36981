package event

import "time"

// Chat Event Types - Client to Server
const (
	// EventJoinConversation - Client asks to join a conversation group
	EventJoinConversation = "chat:join_conversation"

	// EventLeaveConversation - Client leaves a conversation group
	EventLeaveConversation = "chat:leave_conversation"

	// EventSendMessage - Client sends a message to a conversation
	EventSendMessage = "chat:send_message"

	// EventMarkRead - Client marks a single message as read
	EventMarkRead = "chat:mark_read"

	// EventMarkConversationRead - Client marks a whole conversation as read
	EventMarkConversationRead = "chat:mark_conversation_read"

	// EventStartTyping - Client started typing in a conversation
	EventStartTyping = "chat:start_typing"

	// EventStopTyping - Client stopped typing in a conversation
	EventStopTyping = "chat:stop_typing"

	// EventAddReaction - Client adds/replaces a reaction on a message
	EventAddReaction = "chat:add_reaction"

	// EventRemoveReaction - Client removes its reaction from a message
	EventRemoveReaction = "chat:remove_reaction"

	// EventGetOnlineStatus - Client asks whether a user is online
	EventGetOnlineStatus = "presence:get_online_status"

	// EventGetLastSeen - Client asks for a user's last-seen time
	EventGetLastSeen = "presence:get_last_seen"

	// EventGetOnlineUsers - Client asks for the current online user list
	EventGetOnlineUsers = "presence:get_online_users"
)

// Chat Event Types - Server to Client
const (
	// EventReceiveMessage - Full message broadcast to the conversation group
	EventReceiveMessage = "chat:receive_message"

	// EventNewMessageNotification - Compact notification to personal groups
	EventNewMessageNotification = "chat:new_message_notification"

	// EventMessageRead - A user read a single message
	EventMessageRead = "chat:message_read"

	// EventConversationRead - A user read the whole conversation
	EventConversationRead = "chat:conversation_read"

	// EventUserTyping - Typing indicator, ephemeral and best-effort
	EventUserTyping = "chat:user_typing"

	// EventMessageReaction - A reaction was added or replaced
	EventMessageReaction = "chat:message_reaction"

	// EventMessageReactionRemoved - A reaction was removed
	EventMessageReactionRemoved = "chat:message_reaction_removed"

	// EventUserOnline - A user's first connection came up
	EventUserOnline = "presence:user_online"

	// EventUserOffline - A user's last connection went away
	EventUserOffline = "presence:user_offline"

	// EventUserJoinedConversation - A user joined the conversation group
	EventUserJoinedConversation = "chat:user_joined_conversation"

	// EventUserLeftConversation - A user left the conversation group
	EventUserLeftConversation = "chat:user_left_conversation"

	// EventOnlineStatus - Reply to a presence query
	EventOnlineStatus = "presence:online_status"

	// EventLastSeen - Reply to a last-seen query
	EventLastSeen = "presence:last_seen"

	// EventOnlineUsers - Reply to an online-users query
	EventOnlineUsers = "presence:online_users"

	// EventError - Error delivered to the acting client only, never broadcast
	EventError = "chat:error"
)

// Error codes carried by EventError payloads
const (
	CodeAuthenticationRequired = "authentication_required"
	CodeAccessDenied           = "access_denied"
	CodeNotFound               = "not_found"
	CodeValidationFailed       = "validation_failed"
	CodePersistenceFailure     = "persistence_failure"
	CodeRateLimited            = "rate_limited"
)

// -----------------------------------------------------------------
// WebSocket Event Payloads - Client to Server
// -----------------------------------------------------------------

// JoinConversationPayload asks to join a conversation group
type JoinConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

// LeaveConversationPayload leaves a conversation group
type LeaveConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

// SendMessagePayload carries a new message
type SendMessagePayload struct {
	ConversationID   string            `json:"conversationId"`
	Content          string            `json:"content"`
	MessageType      string            `json:"messageType"`
	ReplyToMessageID string            `json:"replyToMessageId,omitempty"`
	Media            []MediaDescriptor `json:"media,omitempty"`
}

// MediaDescriptor mirrors model.MediaAttachment on the wire
type MediaDescriptor struct {
	Type         string `json:"type"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	DurationMS   int64  `json:"durationMs,omitempty"`
}

// MarkReadPayload marks one message as read
type MarkReadPayload struct {
	MessageID string `json:"messageId"`
}

// MarkConversationReadPayload marks a whole conversation as read
type MarkConversationReadPayload struct {
	ConversationID string `json:"conversationId"`
}

// TypingPayload signals typing start/stop
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
}

// AddReactionPayload adds or replaces a reaction
type AddReactionPayload struct {
	MessageID    string `json:"messageId"`
	ReactionType string `json:"reactionType"`
}

// RemoveReactionPayload removes the caller's reaction
type RemoveReactionPayload struct {
	MessageID string `json:"messageId"`
}

// PresenceQueryPayload asks about one user
type PresenceQueryPayload struct {
	UserID string `json:"userId"`
}

// -----------------------------------------------------------------
// WebSocket Event Payloads - Server to Client
// -----------------------------------------------------------------

// NewMessageNotificationEvent is the compact push to personal groups,
// covering participants not currently viewing the conversation.
type NewMessageNotificationEvent struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName,omitempty"`
	Preview        string `json:"preview"`
	Timestamp      int64  `json:"timestamp"`
}

// MessageReadEvent notifies the group that a user read one message
type MessageReadEvent struct {
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	ReadBy         string    `json:"readBy"`
	ReadAt         time.Time `json:"readAt"`
}

// ConversationReadEvent notifies the group of a bulk read
type ConversationReadEvent struct {
	ConversationID string    `json:"conversationId"`
	ReadBy         string    `json:"readBy"`
	ReadAt         time.Time `json:"readAt"`
}

// UserTypingEvent is the ephemeral typing broadcast
type UserTypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
	Timestamp      int64  `json:"timestamp"`
}

// MessageReactionEvent announces an added/replaced reaction
type MessageReactionEvent struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	UserID         string `json:"userId"`
	ReactionType   string `json:"reactionType"`
	Timestamp      int64  `json:"timestamp"`
}

// MessageReactionRemovedEvent announces a removed reaction
type MessageReactionRemovedEvent struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	UserID         string `json:"userId"`
	Timestamp      int64  `json:"timestamp"`
}

// UserOnlineEvent announces a user's first active connection
type UserOnlineEvent struct {
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// UserOfflineEvent announces a user's last connection going away
type UserOfflineEvent struct {
	UserID     string    `json:"userId"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// ConversationMembershipEvent announces join/leave of a conversation group
type ConversationMembershipEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Timestamp      int64  `json:"timestamp"`
}

// OnlineStatusEvent replies to a presence query
type OnlineStatusEvent struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// LastSeenEvent replies to a last-seen query
type LastSeenEvent struct {
	UserID     string     `json:"userId"`
	IsOnline   bool       `json:"isOnline"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

// OnlineUsersEvent replies to an online-users query
type OnlineUsersEvent struct {
	UserIDs []string `json:"userIds"`
}
