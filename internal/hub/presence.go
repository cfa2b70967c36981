package hub

import (
	"sync"
	"time"

	"github.com/kaya2m/Camply-API-sub003/internal/event"
)

// PresenceTracker maintains the live connection set per user. A user is
// online while at least one connection exists; presence transitions fire only
// on the empty/non-empty boundary, so a second device coming or going is
// silent.
type PresenceTracker struct {
	mu          sync.RWMutex
	connections map[string]map[string]*Client // userID -> clientID -> client
	lastSeen    map[string]time.Time
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		connections: make(map[string]map[string]*Client),
		lastSeen:    make(map[string]time.Time),
	}
}

// Connect records a new connection. Returns true when this is the user's
// first live connection, meaning the user just came online.
func (p *PresenceTracker) Connect(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.connections[c.userId]
	if !ok {
		conns = make(map[string]*Client)
		p.connections[c.userId] = conns
	}
	cameOnline := len(conns) == 0
	conns[c.ID] = c
	return cameOnline
}

// Disconnect drops a connection. Returns true and the recorded last-seen
// instant when this was the user's final connection. The timestamp is written
// only at that final disconnect, never while other devices remain.
func (p *PresenceTracker) Disconnect(c *Client) (bool, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conns, ok := p.connections[c.userId]
	if !ok {
		return false, time.Time{}
	}
	if _, exists := conns[c.ID]; !exists {
		return false, time.Time{}
	}

	delete(conns, c.ID)
	if len(conns) > 0 {
		return false, time.Time{}
	}

	delete(p.connections, c.userId)
	now := time.Now()
	p.lastSeen[c.userId] = now
	return true, now
}

func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.connections[userID]) > 0
}

// LastSeenAt returns the user's last disconnect time. The zero time with
// ok=false means the user was never seen or is currently online.
func (p *PresenceTracker) LastSeenAt(userID string) (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.connections[userID]) > 0 {
		return time.Time{}, false
	}
	at, ok := p.lastSeen[userID]
	return at, ok
}

// OnlineUsers returns the IDs of every user with at least one connection.
func (p *PresenceTracker) OnlineUsers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]string, 0, len(p.connections))
	for userID := range p.connections {
		users = append(users, userID)
	}
	return users
}

// FilterOnline keeps only the IDs that are currently online.
func (p *PresenceTracker) FilterOnline(userIDs []string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	online := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if len(p.connections[id]) > 0 {
			online = append(online, id)
		}
	}
	return online
}

// OnlineCount returns the number of online users and total connections.
func (p *PresenceTracker) OnlineCount() (users int, conns int) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users = len(p.connections)
	for _, set := range p.connections {
		conns += len(set)
	}
	return users, conns
}

// clientsOf snapshots a user's connections so delivery happens without the
// tracker lock held.
func (p *PresenceTracker) clientsOf(userID string) []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conns := p.connections[userID]
	clients := make([]*Client, 0, len(conns))
	for _, c := range conns {
		clients = append(clients, c)
	}
	return clients
}

// SendToUser delivers an event to every live connection of one user. Returns
// the number of connections that accepted the event.
func (p *PresenceTracker) SendToUser(userID string, ev event.WsEvent) int {
	delivered := 0
	for _, c := range p.clientsOf(userID) {
		if c.SafeSend(ev, sendTimeout) {
			delivered++
		}
	}
	return delivered
}

// Snapshot reports per-user connection counts for the monitor endpoint.
func (p *PresenceTracker) Snapshot() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make(map[string]int, len(p.connections))
	for userID, conns := range p.connections {
		snapshot[userID] = len(conns)
	}
	return snapshot
}
