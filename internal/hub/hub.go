// Package hub coordinates everything above the store: hydrated sessions,
// the per-game tick engine, message dispatch, and game lifecycle.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/onatuner/tap-or-tarp-sub001/internal/bus"
	"github.com/onatuner/tap-or-tarp-sub001/internal/cache"
	"github.com/onatuner/tap-or-tarp-sub001/internal/config"
	"github.com/onatuner/tap-or-tarp-sub001/internal/feedback"
	"github.com/onatuner/tap-or-tarp-sub001/internal/game"
	"github.com/onatuner/tap-or-tarp-sub001/internal/lock"
	"github.com/onatuner/tap-or-tarp-sub001/internal/protocol"
	"github.com/onatuner/tap-or-tarp-sub001/internal/ratelimit"
	"github.com/onatuner/tap-or-tarp-sub001/internal/store"
	"github.com/onatuner/tap-or-tarp-sub001/internal/telemetry"
	"github.com/onatuner/tap-or-tarp-sub001/internal/ticker"
)

// createAttempts bounds the id reservation loop.
const createAttempts = 10

// healthInterval is how often the store is probed for degraded mode.
const healthInterval = 15 * time.Second

// Hub owns the sessions on this instance and the background loops that
// keep them honest.
type Hub struct {
	cfg        *config.Config
	store      store.Store
	cache      *cache.Cache[*game.State]
	locks      *lock.KeyedMutex
	bus        *bus.Bus
	feedback   feedback.Store
	limitConn  *ratelimit.Limiter
	limitIP    *ratelimit.Limiter
	instanceID string
	tracer     trace.Tracer

	mu       sync.RWMutex
	sessions map[string]*session

	createMu sync.Mutex
	degraded bool
	degMu    sync.RWMutex

	metrics Metrics
	started time.Time

	peerUnsub func()

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires a hub from its collaborators. Run must be called before
// serving traffic.
func New(cfg *config.Config, st store.Store, fb feedback.Store) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:        cfg,
		store:      st,
		cache:      cache.New[*game.State](cfg.Timing.CacheTTL),
		locks:      lock.New(),
		bus:        bus.New(cfg.Instance.ID, st),
		feedback:   fb,
		limitConn:  ratelimit.New(),
		limitIP:    ratelimit.New(),
		instanceID: cfg.Instance.ID,
		tracer:     otel.Tracer("taportarp/hub"),
		sessions:   make(map[string]*session),
		started:    time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}
	// Behind Redis the limiters also keep their counters there, so repeat
	// offenders are visible across the fleet.
	if rs, ok := st.(*store.RedisStore); ok {
		h.limitConn.SetRedis(rs.Client())
		h.limitIP.SetRedis(rs.Client())
	}
	// Peers announce graceful shutdown on the control channel; the departing
	// instance has persisted its countdowns, so cached copies are stale.
	unsub, err := st.Subscribe(store.ShutdownChan, h.onPeerShutdown)
	if err != nil {
		slog.Warn("shutdown channel subscribe failed", "error", err)
	} else {
		h.peerUnsub = unsub
	}
	return h
}

// onPeerShutdown re-reads every hydrated game after a peer instance
// announces it is going away.
func (h *Hub) onPeerShutdown(raw []byte) {
	var m struct {
		Instance string `json:"instance"`
	}
	if err := json.Unmarshal(raw, &m); err != nil || m.Instance == h.instanceID {
		return
	}
	slog.Info("peer instance shutting down", "peer", m.Instance)
	h.mu.RLock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.cache.Drop(id)
		h.refresh(id)
	}
}

// Bus exposes the event bus, mainly for tests.
func (h *Hub) Bus() *bus.Bus { return h.bus }

// Metrics returns a snapshot of the hub counters.
func (h *Hub) Metrics() MetricsSnapshot {
	hits, misses := h.cache.Stats()
	h.mu.RLock()
	sessions := len(h.sessions)
	h.mu.RUnlock()
	return MetricsSnapshot{
		Connections:   h.metrics.Connections.Load(),
		Messages:      h.metrics.Messages.Load(),
		Errors:        h.metrics.Errors.Load(),
		GamesCreated:  h.metrics.GamesCreated.Load(),
		GamesRestored: h.metrics.GamesRestored.Load(),
		GamesClosed:   h.metrics.GamesClosed.Load(),
		Ticks:         h.metrics.Ticks.Load(),
		Sessions:      sessions,
		CacheHits:     hits,
		CacheMisses:   misses,
		CacheHitRate:  h.cache.HitRate(),
		BusPublished:  h.bus.Published(),
		BusOverflows:  h.bus.Overflows(),
		Degraded:      h.Degraded(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
}

// Degraded reports whether the store is currently unreachable.
func (h *Hub) Degraded() bool {
	h.degMu.RLock()
	defer h.degMu.RUnlock()
	return h.degraded
}

func (h *Hub) setDegraded(v bool) {
	h.degMu.Lock()
	was := h.degraded
	h.degraded = v
	h.degMu.Unlock()
	if was != v {
		if v {
			slog.Error("store unreachable, entering degraded mode", "instance", h.instanceID)
		} else {
			slog.Info("store reachable again, leaving degraded mode", "instance", h.instanceID)
		}
	}
}

// Run restores persisted games and starts the background loops. It returns
// once restoration finishes; the loops run until Shutdown.
func (h *Hub) Run(ctx context.Context) error {
	if err := h.restore(ctx); err != nil {
		return err
	}
	go h.cache.Run(h.ctx)
	go h.healthLoop()
	go h.cleanupLoop()
	go h.persistenceLoop()
	return nil
}

// restore hydrates every non-closed game from the store so reconnecting
// clients find their games after a restart. Tick tasks are not armed here;
// they arm when the first subscriber attaches.
func (h *Hub) restore(ctx context.Context) error {
	ids, err := h.store.ScanIDs(ctx)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(4, h.cfg.Instance.Workers))
	for _, id := range ids {
		g.Go(func() error {
			st, err := h.store.Get(ctx, id)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					slog.Warn("restore failed", "game_id", id, "error", err)
				}
				return nil
			}
			if st.IsClosed {
				return nil
			}
			if err := h.locks.WithLock(ctx, id, func() error {
				h.materialize(id, st)
				h.cache.Put(id, st)
				return nil
			}); err != nil {
				return nil
			}
			h.metrics.GamesRestored.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("restore complete", "games", h.metrics.GamesRestored.Load(), "scanned", len(ids))
	return nil
}

// session returns the hydrated session for id, or nil.
func (h *Hub) session(id string) *session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[id]
}

// materialize registers a session and opens its invalidation channel.
// Callers hold the game's keyed lock.
func (h *Hub) materialize(id string, st *game.State) *session {
	h.mu.Lock()
	if sess, ok := h.sessions[id]; ok {
		h.mu.Unlock()
		return sess
	}
	sess := &session{id: id, state: st}
	h.sessions[id] = sess
	h.mu.Unlock()

	unsub, err := h.store.Subscribe(store.InvalidateChanPfx+id, func(raw []byte) {
		var m struct {
			Instance string `json:"instance"`
		}
		if err := json.Unmarshal(raw, &m); err != nil || m.Instance == h.instanceID {
			return
		}
		h.cache.Drop(id)
		go h.refresh(id)
	})
	if err != nil {
		slog.Warn("invalidation subscribe failed", "game_id", id, "error", err)
		return sess
	}
	h.mu.Lock()
	if s, ok := h.sessions[id]; ok && s.unsub == nil {
		s.unsub = unsub
		unsub = nil
	}
	h.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	return sess
}

// refresh re-reads a peer-modified game. Local countdown fields win when
// this instance runs the tick task.
func (h *Hub) refresh(id string) {
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()
	_ = h.locks.WithLock(ctx, id, func() error {
		sess := h.session(id)
		if sess == nil {
			return nil
		}
		st, err := h.store.Get(ctx, id)
		if err != nil {
			return nil
		}
		h.mu.RLock()
		ticking := sess.tick != nil
		h.mu.RUnlock()
		if ticking {
			st.AdoptTimers(sess.state)
		}
		sess.state = st
		h.cache.Put(id, st)
		return nil
	})
}

// ensureLoaded returns the session for id, hydrating it through the cache
// and the store. Callers hold the game's keyed lock. In degraded mode a
// stale cache entry still serves.
func (h *Hub) ensureLoaded(ctx context.Context, id string) (*session, error) {
	if sess := h.session(id); sess != nil {
		return sess, nil
	}
	if st, ok := h.cache.Get(id); ok {
		return h.materialize(id, st), nil
	}
	st, err := h.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, game.ErrGameNotFound
		}
		if st, ok := h.cache.Peek(id); ok && h.Degraded() {
			return h.materialize(id, st), nil
		}
		slog.Error("store read failed", "game_id", id, "error", err)
		return nil, game.ErrInternal
	}
	h.cache.Put(id, st)
	return h.materialize(id, st), nil
}

// mutate is the single write path: keyed lock, optimistic store update with
// the local countdown overlaid, session and cache refresh, then a cache
// invalidation message for peers.
func (h *Hub) mutate(ctx context.Context, id string, fn store.Transform) (*game.State, error) {
	if h.Degraded() {
		return nil, game.ErrInternal
	}
	var out *game.State
	err := h.locks.WithLock(ctx, id, func() error {
		sess, err := h.ensureLoaded(ctx, id)
		if err != nil {
			return err
		}
		next, err := h.store.Update(ctx, id, func(st *game.State) error {
			if st.IsClosed {
				return game.ErrGameNotFound
			}
			h.mu.RLock()
			ticking := sess.tick != nil
			h.mu.RUnlock()
			if ticking {
				st.AdoptTimers(sess.state)
			}
			if err := fn(st); err != nil {
				return err
			}
			st.Touch()
			return nil
		}, store.DefaultTTL)
		if err != nil {
			return err
		}
		sess.state = next
		h.cache.Put(id, next)
		out = next
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	h.publishInvalidate(ctx, id)
	return out, nil
}

func (h *Hub) publishInvalidate(ctx context.Context, id string) {
	payload, _ := json.Marshal(struct {
		Instance string `json:"instance"`
	}{h.instanceID})
	if err := h.store.Publish(ctx, store.InvalidateChanPfx+id, payload); err != nil {
		slog.Warn("invalidation publish failed", "game_id", id, "error", err)
	}
}

// mapError converts infrastructure failures into wire errors.
func mapError(err error) error {
	var gerr *game.Error
	if errors.As(err, &gerr) {
		return gerr
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return game.ErrGameNotFound
	case errors.Is(err, store.ErrConflict):
		return game.ErrUpdateConflict
	case errors.Is(err, lock.ErrTimeout):
		return game.ErrLockTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return game.ErrLockTimeout
	}
	slog.Error("unexpected hub error", "error", err)
	return game.ErrInternal
}

// armTicker starts the countdown task for a game unless one is running.
func (h *Hub) armTicker(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[id]
	if !ok || sess.tick != nil {
		return
	}
	sess.tick = ticker.Start(h.ctx, func(delta int64) {
		h.tick(id, delta)
	})
	slog.Debug("tick task armed", "game_id", id)
}

// stopTicker cancels the countdown task. The in-flight tick takes the
// keyed lock, so the wait happens outside the session map lock.
func (h *Hub) stopTicker(id string) {
	h.mu.Lock()
	sess, ok := h.sessions[id]
	var t *ticker.Ticker
	if ok {
		t = sess.tick
		sess.tick = nil
	}
	h.mu.Unlock()
	if t != nil {
		t.Stop()
		slog.Debug("tick task stopped", "game_id", id)
	}
}

type tickData struct {
	ActivePlayer int           `json:"activePlayer"`
	Times        map[int]int64 `json:"times"`
}

type playerEvent struct {
	PlayerID int `json:"playerId"`
}

type warningEvent struct {
	PlayerID  int   `json:"playerId"`
	Remaining int64 `json:"remaining"`
}

// tick bills the active player for the elapsed wall-clock time, emits the
// tick event, and fires warning and timeout events on threshold crossings.
// Ticks mutate memory only; the persistence loop writes the countdown back.
func (h *Hub) tick(id string, delta int64) {
	_ = h.locks.WithLock(h.ctx, id, func() error {
		sess := h.session(id)
		if sess == nil {
			return nil
		}
		st := sess.state
		if st.Status != game.StatusRunning || st.ActivePlayer == 0 {
			return nil
		}
		p := st.Player(st.ActivePlayer)
		if p == nil || p.IsEliminated || p.TimeoutPending {
			return nil
		}
		before := p.TimeRemaining
		after := before - delta
		if after < 0 {
			after = 0
		}
		p.TimeRemaining = after
		h.metrics.Ticks.Add(1)

		h.bus.Broadcast(h.ctx, id, protocol.EvTick, tickData{
			ActivePlayer: st.ActivePlayer,
			Times:        st.TimeMap(),
		})
		for _, th := range st.Settings.WarningThresholds {
			if ticker.CrossedWarning(before, after, th) {
				h.bus.Broadcast(h.ctx, id, protocol.EvWarning, warningEvent{
					PlayerID:  p.ID,
					Remaining: th,
				})
			}
		}
		if after == 0 && st.MarkTimeout(p.ID) {
			h.bus.Broadcast(h.ctx, id, protocol.EvTimeout, playerEvent{PlayerID: p.ID})
		}
		return nil
	})
}

// healthLoop probes the store and flips degraded mode.
func (h *Hub) healthLoop() {
	tk := time.NewTicker(healthInterval)
	defer tk.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-tk.C:
			ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
			err := h.store.Ping(ctx)
			cancel()
			h.setDegraded(err != nil)
		}
	}
}

// cleanupLoop closes idle games and deletes closed games past the maximum
// age. A closed game stays in the store as a tombstone until then so late
// joins see a definite "not found" rather than a resurrection.
func (h *Hub) cleanupLoop() {
	tk := time.NewTicker(h.cfg.Timing.CleanupInterval)
	defer tk.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-tk.C:
			h.cleanupPass()
			h.limitConn.Sweep()
			h.limitIP.Sweep()
		}
	}
}

func (h *Hub) cleanupPass() {
	ctx, cancel := context.WithTimeout(h.ctx, time.Minute)
	defer cancel()

	now := game.NowMillis()
	idleMs := h.cfg.Timing.IdleTimeout.Milliseconds()
	maxAgeMs := h.cfg.Timing.MaxAge.Milliseconds()

	h.mu.RLock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		var closed bool
		var createdAt int64
		err := h.locks.WithLock(ctx, id, func() error {
			sess := h.session(id)
			if sess == nil {
				return nil
			}
			st := sess.state
			createdAt = st.CreatedAt
			idle := now - st.LastActivity
			abandoned := h.bus.SubscriberCount(id) == 0 && idle >= idleMs
			if !abandoned && idle < maxAgeMs {
				return nil
			}
			_, err := h.store.Update(ctx, id, func(st *game.State) error {
				st.IsClosed = true
				st.Status = game.StatusFinished
				return nil
			}, store.DefaultTTL)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			closed = true
			return nil
		})
		if err != nil {
			slog.Warn("cleanup failed", "game_id", id, "error", err)
			continue
		}
		if closed {
			h.closeSession(id)
			h.metrics.GamesClosed.Add(1)
			telemetry.RecordGameClosed(ctx, id, string(game.StatusFinished), now-createdAt)
			slog.Info("game closed", "game_id", id)
		}
	}

	h.reapTombstones(ctx, now, maxAgeMs)
}

// reapTombstones deletes closed games whose tombstone outlived the maximum
// age. Every instance runs this; deletion is idempotent.
func (h *Hub) reapTombstones(ctx context.Context, now, maxAgeMs int64) {
	ids, err := h.store.ScanIDs(ctx)
	if err != nil {
		return
	}
	for _, id := range ids {
		st, err := h.store.Get(ctx, id)
		if err != nil {
			continue
		}
		if st.IsClosed && now-st.LastActivity >= maxAgeMs {
			if err := h.store.Delete(ctx, id); err == nil {
				slog.Info("tombstone deleted", "game_id", id)
			}
		}
	}
}

// closeSession tears down the local materialization of a game.
func (h *Hub) closeSession(id string) {
	h.stopTicker(id)
	h.mu.Lock()
	sess, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	if ok && sess.unsub != nil {
		sess.unsub()
	}
	h.cache.Drop(id)
}

// persistenceLoop writes the in-memory countdown back to the store so a
// crash loses at most one interval of billed time.
func (h *Hub) persistenceLoop() {
	tk := time.NewTicker(h.cfg.Timing.PersistenceInterval)
	defer tk.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-tk.C:
			h.persistTimers()
		}
	}
}

func (h *Hub) persistTimers() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.sessions))
	for id, sess := range h.sessions {
		if sess.tick != nil {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range ids {
		ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
		_ = h.locks.WithLock(ctx, id, func() error {
			sess := h.session(id)
			if sess == nil {
				return nil
			}
			next, err := h.store.Update(ctx, id, func(st *game.State) error {
				st.AdoptTimers(sess.state)
				return nil
			}, store.DefaultTTL)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					slog.Warn("countdown persist failed", "game_id", id, "error", err)
				}
				return nil
			}
			sess.state = next
			h.cache.Put(id, next)
			return nil
		})
		cancel()
	}
}

// Shutdown persists every session, announces the departure to peers, and
// stops the loops. Clients are closed with 1001 so they reconnect elsewhere.
func (h *Hub) Shutdown(ctx context.Context) {
	h.persistTimers()

	h.mu.RLock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.stopTicker(id)
	}

	h.announceShutdown(ctx)
	h.bus.CloseAll(bus.GoingAwayCode, "server restarting")
	if h.peerUnsub != nil {
		h.peerUnsub()
	}
	h.cancel()
	slog.Info("hub shut down", "sessions", len(ids))
}

// announceShutdown publishes the shutdown hint so peers re-read the games
// this instance just persisted.
func (h *Hub) announceShutdown(ctx context.Context) {
	payload, _ := json.Marshal(struct {
		Instance string `json:"instance"`
	}{h.instanceID})
	if err := h.store.Publish(ctx, store.ShutdownChan, payload); err != nil {
		slog.Warn("shutdown announce failed", "error", err)
	}
}
