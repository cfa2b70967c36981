package hub

import (
	"testing"

	"github.com/kaya2m/Camply-API-sub003/internal/event"

	"github.com/stretchr/testify/assert"
)

func newTestHub() *Hub {
	chatHandler := NewChatHandler(nil, nil, nil, nil, nil)
	return NewHub(chatHandler, NewPresenceTracker())
}

func TestShardIsStable(t *testing.T) {
	assert.Equal(t, getShard("conv-1"), getShard("conv-1"))
	assert.Less(t, getShard("conv-1"), uint32(shardCount))
	assert.Equal(t, uint32(0), getShard(""))
}

func TestJoinAndLeaveGroup(t *testing.T) {
	h := newTestHub()
	defer h.Stop()

	alice := newTestClient("c1", "alice")
	bob := newTestClient("c2", "bob")

	h.JoinGroup(alice, "conv-1")
	h.JoinGroup(bob, "conv-1")

	assert.True(t, h.InGroup(alice, "conv-1"))
	assert.ElementsMatch(t, []string{"alice", "bob"}, h.GroupMembers("conv-1"))

	h.LeaveGroup(alice, "conv-1")
	assert.False(t, h.InGroup(alice, "conv-1"))
	assert.Equal(t, []string{"bob"}, h.GroupMembers("conv-1"))

	// Last member out deletes the group entry.
	h.LeaveGroup(bob, "conv-1")
	assert.Empty(t, h.GroupMembers("conv-1"))
	assert.NotContains(t, h.GroupSnapshot(), "conv-1")
}

func TestPublishToGroupSkipsOriginator(t *testing.T) {
	h := newTestHub()
	defer h.Stop()

	alice := newTestClient("c1", "alice")
	bob := newTestClient("c2", "bob")
	h.JoinGroup(alice, "conv-1")
	h.JoinGroup(bob, "conv-1")

	h.PublishToGroup("conv-1", event.NewEvent("test:event", nil), alice.ID)

	assert.Len(t, alice.egress, 0, "originator must not receive its own broadcast")
	assert.Len(t, bob.egress, 1)
}

func TestPublishToGroupDeliversToAll(t *testing.T) {
	h := newTestHub()
	defer h.Stop()

	alice := newTestClient("c1", "alice")
	bob := newTestClient("c2", "bob")
	h.JoinGroup(alice, "conv-1")
	h.JoinGroup(bob, "conv-1")

	ev := event.NewEvent("test:event", map[string]string{"k": "v"})
	h.PublishToGroup("conv-1", ev, "")

	assert.Len(t, alice.egress, 1)
	assert.Len(t, bob.egress, 1)

	got := <-alice.egress
	assert.Equal(t, "test:event", got.Event)
}

func TestPublishToUnknownGroupIsNoop(t *testing.T) {
	h := newTestHub()
	defer h.Stop()

	h.PublishToGroup("missing", event.NewEvent("test:event", nil), "")
}

func TestMultipleGroupsPerClient(t *testing.T) {
	h := newTestHub()
	defer h.Stop()

	alice := newTestClient("c1", "alice")
	h.JoinGroup(alice, "conv-1")
	h.JoinGroup(alice, "conv-2")

	assert.ElementsMatch(t, []string{"conv-1", "conv-2"}, alice.trackedGroups())

	// Teardown walks every tracked group, mirroring unregister.
	for _, g := range alice.trackedGroups() {
		h.LeaveGroup(alice, g)
	}
	assert.Empty(t, alice.trackedGroups())
	assert.Empty(t, h.GroupMembers("conv-1"))
	assert.Empty(t, h.GroupMembers("conv-2"))
}
