package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/edusphere/go-classroom/internal/types"
)

// subscriber is one live connection from the broadcaster's point of view.
// Delivery to a subscriber that is gone or backed up is a silent no-op.
type subscriber interface {
	queueEnvelope(env *ServerEnvelope) bool
	role() types.UserType
}

// GroupBroadcaster fans an envelope out to every subscriber of a named
// group. Room logic does not know which implementation is active: the
// in-process one serves a single-node deployment, the Redis one spans
// processes.
type GroupBroadcaster interface {
	Join(group string, sub subscriber)
	Leave(group string, sub subscriber)
	Broadcast(group string, env *ServerEnvelope)
	Close() error
}

func roomGroup(roomName string) string {
	return "room:" + roomName
}

func roomUserGroup(roomName, username string) string {
	return "room:" + roomName + ":user:" + username
}

// LocalBroadcaster is the in-process implementation: a group name mapped to
// its live subscribers.
type LocalBroadcaster struct {
	mu     sync.RWMutex
	groups map[string]map[subscriber]struct{}
}

func NewLocalBroadcaster() *LocalBroadcaster {
	return &LocalBroadcaster{
		groups: make(map[string]map[subscriber]struct{}),
	}
}

func (b *LocalBroadcaster) Join(group string, sub subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.groups[group]
	if !ok {
		members = make(map[subscriber]struct{})
		b.groups[group] = members
	}
	members[sub] = struct{}{}
}

func (b *LocalBroadcaster) Leave(group string, sub subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.groups[group]
	if !ok {
		return
	}

	delete(members, sub)
	if len(members) == 0 {
		delete(b.groups, group)
	}
}

func (b *LocalBroadcaster) Broadcast(group string, env *ServerEnvelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.groups[group] {
		if env.ExcludesRole(sub.role()) {
			continue
		}
		sub.queueEnvelope(env)
	}
}

func (b *LocalBroadcaster) Close() error {
	return nil
}

// wireEnvelope is the pub/sub frame for the Redis broadcaster: the outbound
// payload plus its delivery exclusion, so every process applies the same
// rule locally.
type wireEnvelope struct {
	ExcludeRole types.UserType `json:"exclude_role,omitempty"`
	Payload     map[string]any `json:"payload"`
}

// RedisBroadcaster maps each group onto a Redis pub/sub channel. Every
// process subscribes to the channels of groups with local members and
// delivers incoming envelopes to those members.
type RedisBroadcaster struct {
	client *redis.Client
	log    *log.Logger

	mu     sync.Mutex
	groups map[string]*redisGroup
}

type redisGroup struct {
	mu      sync.RWMutex
	members map[subscriber]struct{}
	pubsub  *redis.PubSub
}

func NewRedisBroadcaster(client *redis.Client, logger *log.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		client: client,
		log:    logger,
		groups: make(map[string]*redisGroup),
	}
}

func channelName(group string) string {
	return "classroom:" + group
}

func (b *RedisBroadcaster) Join(group string, sub subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, ok := b.groups[group]
	if !ok {
		g = &redisGroup{
			members: make(map[subscriber]struct{}),
			pubsub:  b.client.Subscribe(context.Background(), channelName(group)),
		}
		b.groups[group] = g
		go b.consume(g)
	}

	// the member must land while b.mu is held: a concurrent Leave that
	// empties the group deletes and closes it, and a subscriber added after
	// that would never see another envelope
	g.mu.Lock()
	g.members[sub] = struct{}{}
	g.mu.Unlock()
}

func (b *RedisBroadcaster) Leave(group string, sub subscriber) {
	b.mu.Lock()
	g, ok := b.groups[group]
	if !ok {
		b.mu.Unlock()
		return
	}

	g.mu.Lock()
	delete(g.members, sub)
	empty := len(g.members) == 0
	g.mu.Unlock()

	if empty {
		delete(b.groups, group)
	}
	b.mu.Unlock()

	if empty {
		// closing the subscription ends the consume goroutine
		if err := g.pubsub.Close(); err != nil {
			b.log.Println("pubsub close:", err)
		}
	}
}

func (b *RedisBroadcaster) Broadcast(group string, env *ServerEnvelope) {
	payload, err := json.Marshal(wireEnvelope{
		ExcludeRole: env.excludeRole,
		Payload:     env.fields,
	})
	if err != nil {
		b.log.Println("marshal wire envelope:", err)
		return
	}

	if err := b.client.Publish(context.Background(), channelName(group), payload).Err(); err != nil {
		b.log.Printf("publish to %q: %v", group, err)
	}
}

func (b *RedisBroadcaster) consume(g *redisGroup) {
	for msg := range g.pubsub.Channel() {
		var wire wireEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
			b.log.Println("unmarshal wire envelope:", err)
			continue
		}

		env := &ServerEnvelope{fields: wire.Payload, excludeRole: wire.ExcludeRole}

		g.mu.RLock()
		for sub := range g.members {
			if env.ExcludesRole(sub.role()) {
				continue
			}
			sub.queueEnvelope(env)
		}
		g.mu.RUnlock()
	}
}

func (b *RedisBroadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for group, g := range b.groups {
		if err := g.pubsub.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close pubsub for %q: %w", group, err)
		}
		delete(b.groups, group)
	}
	return firstErr
}
