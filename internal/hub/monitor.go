package hub

import (
	"github.com/kaya2m/Camply-API-sub003/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	connectionStats := ms.getConnectionStats()
	groupStats := ms.getGroupStats()
	presence := ms.getPresenceList()

	// Determine overall health status
	status := "healthy"
	if connectionStats.TotalConnections == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status:      status,
		Connections: connectionStats,
		Groups:      groupStats,
		Presence:    presence,
	}
}

func (ms *MonitorService) getConnectionStats() model.ConnectionStats {
	users, conns := ms.hub.presence.OnlineCount()
	return model.ConnectionStats{
		TotalConnections: conns,
		TotalOnlineUsers: users,
	}
}

func (ms *MonitorService) getGroupStats() model.GroupStats {
	stats := model.GroupStats{
		GroupDetails: make([]model.GroupInfo, 0),
	}

	for conversationID, members := range ms.hub.GroupSnapshot() {
		distinct := make(map[string]bool, len(members))
		memberIDs := make([]string, 0, len(members))
		for _, userID := range members {
			if !distinct[userID] {
				distinct[userID] = true
				memberIDs = append(memberIDs, userID)
			}
		}

		stats.GroupDetails = append(stats.GroupDetails, model.GroupInfo{
			ConversationID: conversationID,
			TotalMembers:   len(members),
			MemberIDs:      memberIDs,
		})
		stats.TotalGroups++
	}

	return stats
}

func (ms *MonitorService) getPresenceList() []model.PresenceInfo {
	snapshot := ms.hub.presence.Snapshot()
	presence := make([]model.PresenceInfo, 0, len(snapshot))
	for userID, conns := range snapshot {
		presence = append(presence, model.PresenceInfo{
			UserID:      userID,
			Connections: conns,
		})
	}
	return presence
}
