package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"`      // "healthy", "idle"
	Connections ConnectionStats `json:"connections"` // Client connection stats
	Groups      GroupStats      `json:"groups"`      // Conversation group stats
	Presence    []PresenceInfo  `json:"presence"`    // Online users snapshot
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalConnections int `json:"totalConnections"` // Total WebSocket connections
	TotalOnlineUsers int `json:"totalOnlineUsers"` // Distinct users online
}

// GroupStats holds conversation group statistics
type GroupStats struct {
	TotalGroups  int         `json:"totalGroups"`  // Conversation groups with members
	GroupDetails []GroupInfo `json:"groupDetails"` // Details of each group
}

// GroupInfo contains information about a single conversation group
type GroupInfo struct {
	ConversationID string   `json:"conversationId"`
	TotalMembers   int      `json:"totalMembers"` // Connections currently joined
	MemberIDs      []string `json:"memberIds"`    // Distinct user IDs in the group
}

// PresenceInfo contains one online user's presence snapshot
type PresenceInfo struct {
	UserID      string `json:"userId"`
	Connections int    `json:"connections"` // Active connections for the user
}
