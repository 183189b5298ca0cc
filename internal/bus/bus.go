// Package bus fans game events out to local subscribers and, behind Redis,
// to peer instances through per-game pub/sub channels.
package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/onatuner/tap-or-tarp-sub001/internal/protocol"
	"github.com/onatuner/tap-or-tarp-sub001/internal/store"
)

// MaxBufferedBytes caps a subscriber's outbound queue. A subscriber whose
// buffer would exceed the cap is closed with code 1008.
const MaxBufferedBytes = 1 << 20

// OverflowCode is the close code sent to evicted subscribers.
const OverflowCode = 1008

// GoingAwayCode is the close code sent on graceful shutdown, telling clients
// to reconnect elsewhere.
const GoingAwayCode = 1001

// Subscriber is one attached client. TrySend must refuse (return false)
// rather than block when the payload would push the buffer past the cap.
type Subscriber interface {
	ClientID() string
	GameID() string
	TrySend(payload []byte) bool
	Kick(code int, reason string)
}

// peerEnvelope wraps payloads published to broadcast:{id} so receivers can
// filter out their own messages.
type peerEnvelope struct {
	Instance string          `json:"instance"`
	Payload  json.RawMessage `json:"payload"`
}

// Bus is the single entry point for broadcasting.
type Bus struct {
	instanceID string
	store      store.Store

	mu     sync.RWMutex
	subs   map[string]map[Subscriber]struct{} // game id -> subscribers
	remote map[string]func()                  // game id -> unsubscribe

	overflows atomic.Int64
	published atomic.Int64
}

// New creates a bus stamped with this instance's id.
func New(instanceID string, st store.Store) *Bus {
	return &Bus{
		instanceID: instanceID,
		store:      st,
		subs:       make(map[string]map[Subscriber]struct{}),
		remote:     make(map[string]func()),
	}
}

// Attach registers a local subscriber. The first subscriber for a game also
// opens the peer channel so events from other instances reach them.
func (b *Bus) Attach(s Subscriber) {
	id := s.GameID()
	b.mu.Lock()
	if b.subs[id] == nil {
		b.subs[id] = make(map[Subscriber]struct{})
	}
	b.subs[id][s] = struct{}{}
	needRemote := b.remote[id] == nil
	b.mu.Unlock()

	if needRemote {
		b.openPeerChannel(id)
	}
}

// Detach removes a subscriber. Returns the number of subscribers left on
// the game, which drives auto-pause.
func (b *Bus) Detach(s Subscriber) int {
	id := s.GameID()
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[id]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.subs, id)
			if unsub := b.remote[id]; unsub != nil {
				delete(b.remote, id)
				go unsub()
			}
			return 0
		}
		return len(set)
	}
	return 0
}

// SubscriberCount returns the number of local subscribers for a game.
func (b *Bus) SubscriberCount(gameID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[gameID])
}

// Broadcast serializes the event once and delivers it to every local
// subscriber of the game, then publishes it for peer instances. A publish
// failure is logged but never fails the originating mutation.
func (b *Bus) Broadcast(ctx context.Context, gameID string, ev protocol.EventType, data interface{}) {
	payload, err := protocol.Encode(ev, data)
	if err != nil {
		slog.Error("failed to encode event", "game_id", gameID, "event", ev, "error", err)
		return
	}
	b.deliverLocal(gameID, payload)
	b.published.Add(1)

	env, err := json.Marshal(peerEnvelope{Instance: b.instanceID, Payload: payload})
	if err != nil {
		return
	}
	if err := b.store.Publish(ctx, store.BroadcastChanPfx+gameID, env); err != nil {
		slog.Warn("peer publish failed", "game_id", gameID, "event", ev, "error", err)
	}
}

// Send delivers an already-encoded event to a single subscriber, applying
// the same overflow policy as broadcast.
func (b *Bus) Send(s Subscriber, ev protocol.EventType, data interface{}) {
	payload, err := protocol.Encode(ev, data)
	if err != nil {
		slog.Error("failed to encode event", "event", ev, "error", err)
		return
	}
	if !s.TrySend(payload) {
		b.evict(s)
	}
}

func (b *Bus) deliverLocal(gameID string, payload []byte) {
	b.mu.RLock()
	targets := make([]Subscriber, 0, len(b.subs[gameID]))
	for s := range b.subs[gameID] {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if !s.TrySend(payload) {
			b.evict(s)
		}
	}
}

func (b *Bus) evict(s Subscriber) {
	b.overflows.Add(1)
	slog.Warn("subscriber buffer overflow, closing",
		"client_id", s.ClientID(),
		"game_id", s.GameID(),
	)
	s.Kick(OverflowCode, "buffer overflow")
	b.Detach(s)
}

// openPeerChannel subscribes to broadcast:{id}, filtering self-stamped
// messages. Local subscribers already saw them in step one.
func (b *Bus) openPeerChannel(gameID string) {
	unsub, err := b.store.Subscribe(store.BroadcastChanPfx+gameID, func(raw []byte) {
		var env peerEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			slog.Warn("malformed peer broadcast", "game_id", gameID, "error", err)
			return
		}
		if env.Instance == b.instanceID {
			return
		}
		b.deliverLocal(gameID, env.Payload)
	})
	if err != nil {
		slog.Error("failed to open peer channel", "game_id", gameID, "error", err)
		return
	}
	b.mu.Lock()
	if _, stillNeeded := b.subs[gameID]; stillNeeded && b.remote[gameID] == nil {
		b.remote[gameID] = unsub
		unsub = nil
	}
	b.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// CloseAll kicks every local subscriber and drops the peer channels. Used
// on graceful shutdown.
func (b *Bus) CloseAll(code int, reason string) {
	b.mu.Lock()
	var all []Subscriber
	for _, set := range b.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	b.subs = make(map[string]map[Subscriber]struct{})
	remotes := b.remote
	b.remote = make(map[string]func())
	b.mu.Unlock()

	for _, s := range all {
		s.Kick(code, reason)
	}
	for _, unsub := range remotes {
		unsub()
	}
}

// Overflows returns how many subscribers were evicted for buffer overflow.
func (b *Bus) Overflows() int64 { return b.overflows.Load() }

// Published returns how many events this instance has broadcast.
func (b *Bus) Published() int64 { return b.published.Load() }
