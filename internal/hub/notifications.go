package hub

import (
	"log"
	"time"

	"github.com/kaya2m/Camply-API-sub003/internal/event"
	"github.com/kaya2m/Camply-API-sub003/internal/model"
	"github.com/kaya2m/Camply-API-sub003/internal/service"
)

// -----------------------------------------------------------------
// Presence Transitions
// -----------------------------------------------------------------

// HandleUserOnline runs when a user's first connection comes up. Every
// conversation the user belongs to hears about it, so open chat screens can
// flip the presence dot without polling.
func (ch *ChatHandler) HandleUserOnline(c *Client) {
	ctx, cancel := ch.opCtx()
	defer cancel()

	conversations, err := ch.conversations.ListConversations(ctx, c.userId)
	if err != nil {
		log.Printf("failed to list conversations for presence broadcast (user %s): %v", c.userId, err)
		return
	}

	onlineEvent := event.NewEvent(event.EventUserOnline, event.UserOnlineEvent{
		UserID:    c.userId,
		Timestamp: time.Now().Unix(),
	})
	for _, conv := range conversations {
		ch.hub.PublishToGroup(conv.ID.Hex(), onlineEvent, c.ID)
	}
}

// HandleUserOffline runs after a user's last connection went away. The
// last-seen instant recorded at that final disconnect rides along.
func (ch *ChatHandler) HandleUserOffline(c *Client, lastSeenAt time.Time) {
	ctx, cancel := ch.opCtx()
	defer cancel()

	conversations, err := ch.conversations.ListConversations(ctx, c.userId)
	if err != nil {
		log.Printf("failed to list conversations for presence broadcast (user %s): %v", c.userId, err)
		return
	}

	offlineEvent := event.NewEvent(event.EventUserOffline, event.UserOfflineEvent{
		UserID:     c.userId,
		LastSeenAt: lastSeenAt,
	})
	for _, conv := range conversations {
		ch.hub.PublishToGroup(conv.ID.Hex(), offlineEvent, c.ID)
	}
}

// -----------------------------------------------------------------
// Message Notifications
// -----------------------------------------------------------------

// notifyNewMessage pushes the compact notification to every recipient's live
// connections. Participants currently viewing the conversation already got
// the full message through the group broadcast and are skipped here.
func (ch *ChatHandler) notifyNewMessage(conv *model.Conversation, msg *model.Message) {
	ctx, cancel := ch.opCtx()
	defer cancel()

	notification := event.NewEvent(event.EventNewMessageNotification, event.NewMessageNotificationEvent{
		ConversationID: conv.ID.Hex(),
		MessageID:      msg.ID.Hex(),
		SenderID:       msg.SenderID,
		SenderName:     ch.users.GetDisplayName(ctx, msg.SenderID),
		Preview:        service.BuildPreview(msg.MessageType, msg.Content),
		Timestamp:      msg.CreatedAt.Unix(),
	})

	viewing := ch.viewingUsers(conv.ID.Hex())
	recipients := service.Filter(conv.ParticipantIds, func(id string) bool {
		return id != msg.SenderID && !viewing[id] && !conv.MutedBy[id]
	})

	for _, userID := range recipients {
		if ch.hub.presence.SendToUser(userID, notification) == 0 {
			// Offline or egress saturated. Push notification delivery for
			// offline users is handled by a separate system.
			continue
		}
	}
}

// notifyMembership announces a join or leave to the rest of the group.
func (ch *ChatHandler) notifyMembership(eventName, conversationID string, c *Client) {
	membershipEvent := event.ConversationMembershipEvent{
		ConversationID: conversationID,
		UserID:         c.userId,
		Timestamp:      time.Now().Unix(),
	}
	ch.hub.PublishToGroup(conversationID, event.NewEvent(eventName, membershipEvent), c.ID)
}

// viewingUsers reports which users have a connection joined to the group.
func (ch *ChatHandler) viewingUsers(groupID string) map[string]bool {
	viewing := make(map[string]bool)
	for _, userID := range ch.hub.GroupMembers(groupID) {
		viewing[userID] = true
	}
	return viewing
}
