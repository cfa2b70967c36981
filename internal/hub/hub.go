package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/kaya2m/Camply-API-sub003/internal/event"
	"github.com/kaya2m/Camply-API-sub003/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type inboundMessage struct {
	event  event.WsEvent
	client *Client
}

type clientBucket struct {
	sync.RWMutex
	groups map[string]map[string]*Client
}

type Hub struct {
	shards      [shardCount]*clientBucket
	register    chan *Client
	unregister  chan *Client
	inbound     [workerPoolSize]chan inboundMessage
	presence    *PresenceTracker
	chatHandler *ChatHandler
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewHub wires the connection manager to its event handler and presence
// tracker and starts the manager and worker goroutines.
func NewHub(chatHandler *ChatHandler, presence *PresenceTracker) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:    make(chan *Client, 1024),
		unregister:  make(chan *Client, 1024),
		presence:    presence,
		chatHandler: chatHandler,
		ctx:         ctx,
		cancel:      cancel,
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &clientBucket{
			groups: make(map[string]map[string]*Client),
		}
	}
	for i := range h.inbound {
		h.inbound[i] = make(chan inboundMessage, 256) // buffer for burst handling
	}

	chatHandler.SetHub(h)

	// run manager loop
	go h.run()

	// One worker per queue. A connection always lands on the same queue, so
	// one sender's events are handled in the order they arrived.
	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go func(queue chan inboundMessage) {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in := <-queue:
					h.handleEvent(in.event, in.client)
				}
			}
		}(h.inbound[i])
	}

	return h
}

// inboundQueue maps a connection to its worker queue.
func (h *Hub) inboundQueue(clientID string) chan inboundMessage {
	sum := sha1.Sum([]byte(clientID))
	return h.inbound[binary.BigEndian.Uint32(sum[:4])%workerPoolSize]
}

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	start := time.Now()
	h.chatHandler.HandleChatEvent(ev, c)
	metrics.ObserveWsAction(ev.Event, time.Since(start))
}

func (h *Hub) Presence() *PresenceTracker {
	return h.presence
}

// -----------------------------------------------------------------
// Group Membership
// -----------------------------------------------------------------

func getShard(groupID string) uint32 {
	if groupID == "" {
		return 0
	}

	h := sha1.Sum([]byte(groupID))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

// JoinGroup adds the connection to a conversation group. Membership checks
// happen before this is called.
func (h *Hub) JoinGroup(c *Client, groupID string) {
	sh := getShard(groupID)
	b := h.shards[sh]
	b.Lock()
	group, ok := b.groups[groupID]
	if !ok {
		group = make(map[string]*Client)
		b.groups[groupID] = group
	}
	group[c.ID] = c
	b.Unlock()

	c.trackGroup(groupID)
	log.Printf("client %s joined group %s (shard %d)", c.ID, groupID, sh)
}

// LeaveGroup removes the connection from a conversation group. Empty groups
// are deleted so the shard map does not accumulate dead entries.
func (h *Hub) LeaveGroup(c *Client, groupID string) {
	sh := getShard(groupID)
	b := h.shards[sh]
	b.Lock()
	if group, ok := b.groups[groupID]; ok {
		delete(group, c.ID)
		if len(group) == 0 {
			delete(b.groups, groupID)
		}
	}
	b.Unlock()

	c.untrackGroup(groupID)
}

// InGroup reports whether the connection currently belongs to the group.
func (h *Hub) InGroup(c *Client, groupID string) bool {
	return c.inGroup(groupID)
}

// PublishToGroup delivers an event to every connection in the group.
// skipClientID suppresses echo to the originating connection; pass empty to
// deliver to everyone.
func (h *Hub) PublishToGroup(groupID string, ev event.WsEvent, skipClientID string) {
	sh := getShard(groupID)
	b := h.shards[sh]

	// collect clients while holding RLock
	b.RLock()
	group, ok := b.groups[groupID]
	if !ok || len(group) == 0 {
		b.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(group))
	for _, c := range group {
		if c.ID == skipClientID {
			continue
		}
		clients = append(clients, c)
	}
	b.RUnlock()

	// deliver to clients without holding lock
	for _, c := range clients {
		if !c.SafeSend(ev, sendTimeout) {
			log.Printf("egress full for client %s in group %s", c.ID, groupID)
			if kickOnFull {
				// Unregister (safe async)
				h.unregister <- c
			}
		}
	}
}

// GroupMembers returns the user IDs with a connection in one group.
func (h *Hub) GroupMembers(groupID string) []string {
	sh := getShard(groupID)
	b := h.shards[sh]

	b.RLock()
	defer b.RUnlock()

	group := b.groups[groupID]
	members := make([]string, 0, len(group))
	for _, c := range group {
		members = append(members, c.userId)
	}
	return members
}

// GroupSnapshot reports each group's member user IDs, for the monitor.
func (h *Hub) GroupSnapshot() map[string][]string {
	snapshot := make(map[string][]string)
	for _, b := range h.shards {
		b.RLock()
		for groupID, group := range b.groups {
			members := make([]string, 0, len(group))
			for _, c := range group {
				members = append(members, c.userId)
			}
			snapshot[groupID] = members
		}
		b.RUnlock()
	}
	return snapshot
}

// -----------------------------------------------------------------
// Connection Lifecycle
// -----------------------------------------------------------------

func (h *Hub) addClient(c *Client) {
	cameOnline := h.presence.Connect(c)

	users, conns := h.presence.OnlineCount()
	metrics.SetOnline(users, conns)

	if cameOnline {
		// The transition broadcast reads the store; the lifecycle loop must
		// not wait on that.
		go h.chatHandler.HandleUserOnline(c)
	}
}

func (h *Hub) removeClient(c *Client) {
	for _, groupID := range c.trackedGroups() {
		h.LeaveGroup(c, groupID)
	}

	wentOffline, lastSeenAt := h.presence.Disconnect(c)

	users, conns := h.presence.OnlineCount()
	metrics.SetOnline(users, conns)

	c.Close()
	log.Printf("client %s removed (user %s)", c.ID, c.userId)

	if wentOffline {
		go h.chatHandler.HandleUserOffline(c, lastSeenAt)
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()

	// Close all client connections
	for _, shard := range h.shards {
		shard.RLock()
		for _, group := range shard.groups {
			for _, client := range group {
				client.Close()
			}
		}
		shard.RUnlock()
	}

	// Workers exit through ctx. The inbound queues are never closed: a read
	// pump can still be selecting a send during shutdown.
	h.wg.Wait()
}

// -----------------------------------------------------------------
// WebSocket Upgrade
// -----------------------------------------------------------------

var (
	allowedOrigins   = map[string]bool{"http://localhost:4200": true}
	allowedOriginsMu sync.RWMutex

	websocketUpgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}
)

// SetAllowedOrigins replaces the origin allowlist, normally at startup from
// configuration.
func SetAllowedOrigins(origins []string) {
	next := make(map[string]bool, len(origins))
	for _, o := range origins {
		next[o] = true
	}
	allowedOriginsMu.Lock()
	allowedOrigins = next
	allowedOriginsMu.Unlock()
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	allowedOriginsMu.RLock()
	defer allowedOriginsMu.RUnlock()
	return allowedOrigins[origin]
}

// ServeWS upgrades the HTTP request and registers the connection for an
// already-authenticated user.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}

	RegisterClient(userID, conn, h)
}
