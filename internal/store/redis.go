package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onatuner/tap-or-tarp-sub001/internal/game"
)

const (
	updateAttempts = 3
	updateBackoff  = 50 * time.Millisecond
	scanCount      = 100
)

// RedisStore is the horizontal variant: state lives under game:{id} with a
// 24-hour TTL, id reservations under game:{id}:reserved, and pub/sub fans
// events out across instances.
type RedisStore struct {
	client *redis.Client

	mu      sync.Mutex
	pubsubs map[string]*subEntry
}

type subEntry struct {
	ps       *redis.PubSub
	handlers map[int]func([]byte)
	nextID   int
}

// NewRedisStore connects to Redis using a URL (redis://[:pass@]host:port/db)
// and verifies connectivity before returning.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	slog.Info("redis store initialized", "addr", opts.Addr, "db", opts.DB)
	return &RedisStore{
		client:  client,
		pubsubs: make(map[string]*subEntry),
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*game.State, error) {
	data, err := s.client.Get(ctx, GameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	var st game.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding game %s: %w", id, err)
	}
	return &st, nil
}

func (s *RedisStore) Create(ctx context.Context, id string, st *game.State, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding game %s: %w", id, err)
	}
	ok, err := s.client.SetNX(ctx, GameKey(id), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx %s: %w", id, err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

// Update runs the optimistic WATCH/MULTI/EXEC protocol: read under WATCH,
// transform, write in a transaction. If a peer wrote between the read and
// the EXEC the transaction fails and we retry against the fresh value, up
// to three attempts with a growing backoff.
func (s *RedisStore) Update(ctx context.Context, id string, fn Transform, ttl time.Duration) (*game.State, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key := GameKey(id)

	var result *game.State
	for attempt := 1; attempt <= updateAttempts; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			var st game.State
			if err := json.Unmarshal(data, &st); err != nil {
				return fmt.Errorf("decoding game %s: %w", id, err)
			}
			if err := fn(&st); err != nil {
				return err
			}
			next, err := json.Marshal(&st)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, next, ttl)
				return nil
			})
			if err == nil {
				result = &st
			}
			return err
		}, key)

		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		slog.Debug("optimistic update conflict, retrying",
			"game_id", id,
			"attempt", attempt,
		)
		select {
		case <-time.After(updateBackoff * time.Duration(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, ErrConflict
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, GameKey(id), ReservedKey(id)).Err()
}

func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, GameKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ScanIDs iterates game keys with SCAN (never KEYS) and strips reservation
// markers. Batches are not consistent with each other.
func (s *RedisStore) ScanIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, GameKeyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if strings.HasSuffix(key, ReservedKeySuffix) {
			continue
		}
		ids = append(ids, strings.TrimPrefix(key, GameKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) ReserveID(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ok, err := s.client.SetNX(ctx, ReservedKey(id), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis reserve %s: %w", id, err)
	}
	return ok, nil
}

func (s *RedisStore) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.client.Publish(ctx, channel, payload).Err()
}

// Subscribe opens (or reuses) a Redis subscription for the channel. Each
// channel gets one PubSub whose messages are fanned out to every handler.
func (s *RedisStore) Subscribe(channel string, handler func([]byte)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.pubsubs[channel]
	if !ok {
		ps := s.client.Subscribe(context.Background(), channel)
		entry = &subEntry{ps: ps, handlers: make(map[int]func([]byte))}
		s.pubsubs[channel] = entry
		go s.pump(channel, entry)
	}
	id := entry.nextID
	entry.nextID++
	entry.handlers[id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		e, ok := s.pubsubs[channel]
		if !ok {
			return
		}
		delete(e.handlers, id)
		if len(e.handlers) == 0 {
			e.ps.Close()
			delete(s.pubsubs, channel)
		}
	}, nil
}

func (s *RedisStore) pump(channel string, entry *subEntry) {
	for msg := range entry.ps.Channel() {
		s.mu.Lock()
		handlers := make([]func([]byte), 0, len(entry.handlers))
		for _, h := range entry.handlers {
			handlers = append(handlers, h)
		}
		s.mu.Unlock()
		for _, h := range handlers {
			h([]byte(msg.Payload))
		}
	}
	slog.Debug("pubsub channel closed", "channel", channel)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying connection for collaborators that keep
// their own keys (rate-limit counters).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Close() error {
	s.mu.Lock()
	for _, e := range s.pubsubs {
		e.ps.Close()
	}
	s.pubsubs = make(map[string]*subEntry)
	s.mu.Unlock()
	return s.client.Close()
}
