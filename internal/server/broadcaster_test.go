package server

import (
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"

	"github.com/edusphere/go-classroom/internal/testutil"
	"github.com/edusphere/go-classroom/internal/types"
)

func newTestSubscriber(t *testing.T, username string, userType types.UserType) *Client {
	t.Helper()
	return &Client{
		user: types.User{Username: username, UserType: userType},
		send: make(chan *ServerEnvelope, 16),
		log:  testutil.TestLogger(t),
	}
}

func TestGroupNames(t *testing.T) {
	assert.Equal(t, "room:math", roomGroup("math"))
	assert.Equal(t, "room:math:user:alice", roomUserGroup("math", "alice"))
}

func TestLocalBroadcaster(t *testing.T) {
	t.Run("broadcast reaches every member", func(t *testing.T) {
		b := NewLocalBroadcaster()
		c1 := newTestSubscriber(t, "alice", types.UserTypeStudent)
		c2 := newTestSubscriber(t, "bob", types.UserTypeStudent)

		b.Join("room:math", c1)
		b.Join("room:math", c2)

		b.Broadcast("room:math", chatMsg("hi", "alice", types.UserTypeStudent))

		assert.Len(t, c1.send, 1, "expected envelope queued to c1")
		assert.Len(t, c2.send, 1, "expected envelope queued to c2")
	})

	t.Run("sender is not excluded from its own broadcast", func(t *testing.T) {
		b := NewLocalBroadcaster()
		sender := newTestSubscriber(t, "alice", types.UserTypeStudent)
		b.Join("room:math", sender)

		b.Broadcast("room:math", chatMsg("hi", "alice", types.UserTypeStudent))
		assert.Len(t, sender.send, 1, "expected sender to receive its own chat echo")
	})

	t.Run("broadcast honors role exclusion", func(t *testing.T) {
		b := NewLocalBroadcaster()
		teacher := newTestSubscriber(t, "teach", types.UserTypeTeacher)
		student := newTestSubscriber(t, "alice", types.UserTypeStudent)

		b.Join("room:math", teacher)
		b.Join("room:math", student)

		b.Broadcast("room:math", audioDataMsg("chunk"))

		assert.Len(t, teacher.send, 0, "expected audio data not to echo to teachers")
		assert.Len(t, student.send, 1, "expected audio data to reach students")
	})

	t.Run("leave stops delivery", func(t *testing.T) {
		b := NewLocalBroadcaster()
		c := newTestSubscriber(t, "alice", types.UserTypeStudent)

		b.Join("room:math", c)
		b.Leave("room:math", c)

		b.Broadcast("room:math", chatMsg("hi", "bob", types.UserTypeStudent))
		assert.Len(t, c.send, 0, "expected no delivery after leave")
		assert.NotContains(t, b.groups, "room:math", "expected empty group to be removed")
	})

	t.Run("broadcast to unknown group is a no-op", func(t *testing.T) {
		b := NewLocalBroadcaster()
		b.Broadcast("room:ghost", chatMsg("hi", "bob", types.UserTypeStudent))
	})

	t.Run("leave of unknown group is a no-op", func(t *testing.T) {
		b := NewLocalBroadcaster()
		b.Leave("room:ghost", newTestSubscriber(t, "alice", types.UserTypeStudent))
	})

	t.Run("per-user group targets one user's connections", func(t *testing.T) {
		b := NewLocalBroadcaster()
		aliceTab1 := newTestSubscriber(t, "alice", types.UserTypeStudent)
		aliceTab2 := newTestSubscriber(t, "alice", types.UserTypeStudent)
		bob := newTestSubscriber(t, "bob", types.UserTypeStudent)

		b.Join(roomUserGroup("math", "alice"), aliceTab1)
		b.Join(roomUserGroup("math", "alice"), aliceTab2)
		b.Join(roomUserGroup("math", "bob"), bob)

		b.Broadcast(roomUserGroup("math", "alice"), userJoinMsg("alice"))

		assert.Len(t, aliceTab1.send, 1, "expected delivery to first connection")
		assert.Len(t, aliceTab2.send, 1, "expected delivery to second connection")
		assert.Len(t, bob.send, 0, "expected no delivery to other users")
	})

	t.Run("close", func(t *testing.T) {
		b := NewLocalBroadcaster()
		assert.NoError(t, b.Close())
	})
}

// The client never connects in this test; Join and Leave only exercise the
// broadcaster's own group bookkeeping.
func TestRedisBroadcasterGroupLifecycle(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	b := NewRedisBroadcaster(client, testutil.TestLogger(t))
	defer b.Close()

	c1 := newTestSubscriber(t, "alice", types.UserTypeStudent)
	b.Join("room:math", c1)
	g1, ok := b.groups["room:math"]
	assert.True(t, ok, "expected the first join to register the group")
	assert.Contains(t, g1.members, subscriber(c1))

	b.Leave("room:math", c1)
	_, ok = b.groups["room:math"]
	assert.False(t, ok, "expected the empty group to be dropped")

	// a rejoin after the last member left must land in a live group, not the
	// closed one
	c2 := newTestSubscriber(t, "bob", types.UserTypeStudent)
	b.Join("room:math", c2)
	g2, ok := b.groups["room:math"]
	assert.True(t, ok, "expected the rejoin to register a group")
	assert.NotSame(t, g1, g2, "expected a fresh group after the previous one was closed")
	assert.Contains(t, g2.members, subscriber(c2))
}
