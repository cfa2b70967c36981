package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/kaya2m/Camply-API-sub003/internal/event"
	"github.com/kaya2m/Camply-API-sub003/internal/metrics"
	"github.com/kaya2m/Camply-API-sub003/internal/model"
	"github.com/kaya2m/Camply-API-sub003/internal/ratelimit"
	"github.com/kaya2m/Camply-API-sub003/internal/service"
)

const (
	handlerTimeout = 10 * time.Second
	sendRatePerSec = 5
	sendBurst      = 10
	typingRate     = 2
	typingBurst    = 4
)

// ChatHandler processes chat and presence WebSocket events. Every operation
// persists through the services before anything is broadcast, so delivered
// events always reference stored state.
type ChatHandler struct {
	hub *Hub

	conversations service.ConversationService
	messages      service.MessageService
	reactions     service.ReactionService
	users         service.UserService
	limiter       *ratelimit.TokenBucketLimiter // nil disables rate limiting
}

// NewChatHandler creates the handler. Call SetHub() after creating Hub to
// complete the initialization.
func NewChatHandler(conversations service.ConversationService, messages service.MessageService, reactions service.ReactionService, users service.UserService, limiter *ratelimit.TokenBucketLimiter) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		messages:      messages,
		reactions:     reactions,
		users:         users,
		limiter:       limiter,
	}
}

// SetHub sets the hub reference. Must be called after Hub is created.
func (ch *ChatHandler) SetHub(hub *Hub) {
	ch.hub = hub
}

// HandleChatEvent dispatches one inbound WebSocket event.
func (ch *ChatHandler) HandleChatEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventJoinConversation:
		ch.handleJoinConversation(ev, c)
	case event.EventLeaveConversation:
		ch.handleLeaveConversation(ev, c)
	case event.EventSendMessage:
		ch.handleSendMessage(ev, c)
	case event.EventMarkRead:
		ch.handleMarkRead(ev, c)
	case event.EventMarkConversationRead:
		ch.handleMarkConversationRead(ev, c)
	case event.EventStartTyping:
		ch.handleTyping(ev, c, true)
	case event.EventStopTyping:
		ch.handleTyping(ev, c, false)
	case event.EventAddReaction:
		ch.handleAddReaction(ev, c)
	case event.EventRemoveReaction:
		ch.handleRemoveReaction(ev, c)
	case event.EventGetOnlineStatus:
		ch.handleGetOnlineStatus(ev, c)
	case event.EventGetLastSeen:
		ch.handleGetLastSeen(ev, c)
	case event.EventGetOnlineUsers:
		ch.handleGetOnlineUsers(c)
	default:
		log.Printf("unknown chat event type: %s", ev.Event)
	}
}

// -----------------------------------------------------------------
// Conversation Group Membership
// -----------------------------------------------------------------

func (ch *ChatHandler) handleJoinConversation(ev event.WsEvent, c *Client) {
	var payload event.JoinConversationPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.ConversationID == "" {
		ch.sendError(c, event.CodeValidationFailed, "Failed to parse join request")
		return
	}

	ctx, cancel := ch.opCtx()
	defer cancel()

	ok, err := ch.conversations.IsParticipant(ctx, payload.ConversationID, c.userId)
	if err != nil {
		ch.sendError(c, event.CodePersistenceFailure, "Could not verify conversation membership")
		return
	}
	if !ok {
		ch.sendError(c, event.CodeAccessDenied, "You are not a participant of this conversation")
		return
	}

	ch.hub.JoinGroup(c, payload.ConversationID)
	ch.notifyMembership(event.EventUserJoinedConversation, payload.ConversationID, c)
}

func (ch *ChatHandler) handleLeaveConversation(ev event.WsEvent, c *Client) {
	var payload event.LeaveConversationPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.ConversationID == "" {
		ch.sendError(c, event.CodeValidationFailed, "Failed to parse leave request")
		return
	}

	if !ch.hub.InGroup(c, payload.ConversationID) {
		return
	}

	ch.hub.LeaveGroup(c, payload.ConversationID)
	ch.notifyMembership(event.EventUserLeftConversation, payload.ConversationID, c)
}

// -----------------------------------------------------------------
// Messaging
// -----------------------------------------------------------------

func (ch *ChatHandler) handleSendMessage(ev event.WsEvent, c *Client) {
	var payload event.SendMessagePayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		ch.sendError(c, event.CodeValidationFailed, "Failed to parse send request")
		return
	}

	ctx, cancel := ch.opCtx()
	defer cancel()

	if !ch.allow(ctx, c.userId, "send", sendRatePerSec, sendBurst) {
		ch.sendError(c, event.CodeRateLimited, "Too many messages, slow down")
		return
	}

	conv, err := ch.conversations.GetConversation(ctx, c.userId, payload.ConversationID)
	if err != nil {
		ch.sendServiceError(c, err)
		return
	}

	media := make([]model.MediaAttachment, 0, len(payload.Media))
	for _, m := range payload.Media {
		media = append(media, model.MediaAttachment{
			Type:         m.Type,
			URL:          m.URL,
			ThumbnailURL: m.ThumbnailURL,
			Width:        m.Width,
			Height:       m.Height,
			DurationMS:   m.DurationMS,
		})
	}

	msg, err := ch.messages.SendMessage(ctx, service.SendMessageInput{
		ConversationID:   payload.ConversationID,
		SenderID:         c.userId,
		Content:          payload.Content,
		MessageType:      payload.MessageType,
		ReplyToMessageID: payload.ReplyToMessageID,
		Media:            media,
	})
	if err != nil {
		ch.sendServiceError(c, err)
		return
	}
	metrics.MessagesPersisted.Inc()

	// Full message to everyone viewing the conversation, sender included,
	// which doubles as the sender's delivery ack.
	ch.hub.PublishToGroup(payload.ConversationID, event.NewEvent(event.EventReceiveMessage, msg), "")

	// Compact notification to participants who are online but not viewing.
	ch.notifyNewMessage(conv, msg)
}

func (ch *ChatHandler) handleMarkRead(ev event.WsEvent, c *Client) {
	var payload event.MarkReadPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.MessageID == "" {
		ch.sendError(c, event.CodeValidationFailed, "Failed to parse mark read request")
		return
	}

	ctx, cancel := ch.opCtx()
	defer cancel()

	newlySet, msg, readAt, err := ch.messages.MarkMessageRead(ctx, c.userId, payload.MessageID)
	if err != nil {
		ch.sendServiceError(c, err)
		return
	}
	if !newlySet {
		// Already read, nothing to announce.
		return
	}

	readEvent := event.MessageReadEvent{
		ConversationID: msg.ConversationID.Hex(),
		MessageID:      payload.MessageID,
		ReadBy:         c.userId,
		ReadAt:         readAt,
	}
	ch.hub.PublishToGroup(readEvent.ConversationID, event.NewEvent(event.EventMessageRead, readEvent), c.ID)
}

func (ch *ChatHandler) handleMarkConversationRead(ev event.WsEvent, c *Client) {
	var payload event.MarkConversationReadPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.ConversationID == "" {
		ch.sendError(c, event.CodeValidationFailed, "Failed to parse mark conversation read request")
		return
	}

	ctx, cancel := ch.opCtx()
	defer cancel()

	stamped, readAt, err := ch.messages.MarkConversationRead(ctx, c.userId, payload.ConversationID)
	if err != nil {
		ch.sendServiceError(c, err)
		return
	}
	if stamped == 0 {
		return
	}

	readEvent := event.ConversationReadEvent{
		ConversationID: payload.ConversationID,
		ReadBy:         c.userId,
		ReadAt:         readAt,
	}
	ch.hub.PublishToGroup(payload.ConversationID, event.NewEvent(event.EventConversationRead, readEvent), c.ID)
}

// -----------------------------------------------------------------
// Typing Indicators
// -----------------------------------------------------------------

// handleTyping broadcasts the ephemeral indicator. Nothing is persisted and
// only connections that joined the group get it.
func (ch *ChatHandler) handleTyping(ev event.WsEvent, c *Client, isTyping bool) {
	var payload event.TypingPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.ConversationID == "" {
		return
	}

	if !ch.hub.InGroup(c, payload.ConversationID) {
		ch.sendError(c, event.CodeAccessDenied, "Join the conversation before typing")
		return
	}

	ctx, cancel := ch.opCtx()
	defer cancel()
	if !ch.allow(ctx, c.userId, "typing", typingRate, typingBurst) {
		return // silently dropped, typing is best effort
	}

	typingEvent := event.UserTypingEvent{
		ConversationID: payload.ConversationID,
		UserID:         c.userId,
		IsTyping:       isTyping,
		Timestamp:      time.Now().Unix(),
	}
	ch.hub.PublishToGroup(payload.ConversationID, event.NewEvent(event.EventUserTyping, typingEvent), c.ID)
}

// -----------------------------------------------------------------
// Reactions
// -----------------------------------------------------------------

func (ch *ChatHandler) handleAddReaction(ev event.WsEvent, c *Client) {
	var payload event.AddReactionPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.MessageID == "" {
		ch.sendError(c, event.CodeValidationFailed, "Failed to parse reaction request")
		return
	}

	ctx, cancel := ch.opCtx()
	defer cancel()

	result, err := ch.reactions.AddReaction(ctx, c.userId, payload.MessageID, payload.ReactionType)
	if err != nil {
		ch.sendServiceError(c, err)
		return
	}

	reactionEvent := event.MessageReactionEvent{
		ConversationID: result.ConversationID,
		MessageID:      payload.MessageID,
		UserID:         c.userId,
		ReactionType:   result.Reaction.ReactionType,
		Timestamp:      time.Now().Unix(),
	}
	ch.hub.PublishToGroup(result.ConversationID, event.NewEvent(event.EventMessageReaction, reactionEvent), "")
}

func (ch *ChatHandler) handleRemoveReaction(ev event.WsEvent, c *Client) {
	var payload event.RemoveReactionPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.MessageID == "" {
		ch.sendError(c, event.CodeValidationFailed, "Failed to parse reaction request")
		return
	}

	ctx, cancel := ch.opCtx()
	defer cancel()

	removed, conversationID, err := ch.reactions.RemoveReaction(ctx, c.userId, payload.MessageID)
	if err != nil {
		ch.sendServiceError(c, err)
		return
	}
	if !removed {
		return
	}

	removedEvent := event.MessageReactionRemovedEvent{
		ConversationID: conversationID,
		MessageID:      payload.MessageID,
		UserID:         c.userId,
		Timestamp:      time.Now().Unix(),
	}
	ch.hub.PublishToGroup(conversationID, event.NewEvent(event.EventMessageReactionRemoved, removedEvent), "")
}

// -----------------------------------------------------------------
// Presence Queries
// -----------------------------------------------------------------

func (ch *ChatHandler) handleGetOnlineStatus(ev event.WsEvent, c *Client) {
	var payload event.PresenceQueryPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.UserID == "" {
		ch.sendError(c, event.CodeValidationFailed, "Failed to parse presence query")
		return
	}

	reply := event.OnlineStatusEvent{
		UserID:   payload.UserID,
		IsOnline: ch.hub.presence.IsOnline(payload.UserID),
	}
	c.SafeSend(event.NewEvent(event.EventOnlineStatus, reply), sendTimeout)
}

func (ch *ChatHandler) handleGetLastSeen(ev event.WsEvent, c *Client) {
	var payload event.PresenceQueryPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.UserID == "" {
		ch.sendError(c, event.CodeValidationFailed, "Failed to parse presence query")
		return
	}

	reply := event.LastSeenEvent{
		UserID:   payload.UserID,
		IsOnline: ch.hub.presence.IsOnline(payload.UserID),
	}
	if at, ok := ch.hub.presence.LastSeenAt(payload.UserID); ok {
		reply.LastSeenAt = &at
	}
	c.SafeSend(event.NewEvent(event.EventLastSeen, reply), sendTimeout)
}

func (ch *ChatHandler) handleGetOnlineUsers(c *Client) {
	reply := event.OnlineUsersEvent{UserIDs: ch.hub.presence.OnlineUsers()}
	c.SafeSend(event.NewEvent(event.EventOnlineUsers, reply), sendTimeout)
}

// -----------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------

func (ch *ChatHandler) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

func (ch *ChatHandler) allow(ctx context.Context, userID, action string, rate, burst int) bool {
	if ch.limiter == nil {
		return true
	}
	allowed, _, err := ch.limiter.Allow(ctx, userID+":"+action, rate, burst)
	if err != nil {
		log.Printf("rate limiter error for %s: %v", userID, err)
	}
	return allowed
}

// sendServiceError maps service sentinels onto wire error codes. The error
// goes to the acting client only; groups never see another user's failures.
func (ch *ChatHandler) sendServiceError(c *Client, err error) {
	switch {
	case errors.Is(err, service.ErrAccessDenied):
		ch.sendError(c, event.CodeAccessDenied, "You do not have access to this resource")
	case errors.Is(err, service.ErrNotFound):
		ch.sendError(c, event.CodeNotFound, "Resource not found")
	case errors.Is(err, service.ErrValidation):
		ch.sendError(c, event.CodeValidationFailed, err.Error())
	default:
		log.Printf("operation failed for user %s: %v", c.userId, err)
		ch.sendError(c, event.CodePersistenceFailure, "Operation failed, please retry")
	}
}

func (ch *ChatHandler) sendError(c *Client, code, message string) {
	payload := model.ErrorPayload{Code: code, Message: message}
	c.SafeSend(event.NewEvent(event.EventError, payload), sendTimeout)
}
