// Package store persists per-subscriber task snapshots and self-origin
// markers in Redis.
//
// Snapshots live in a hash per subscriber (field = task ID), so every write
// is additive or overwriting at single-task granularity. A poll of one tier
// can never evict tasks known only from another tier, and concurrent cycles
// for the same subscriber converge to the union of their observations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oscarh/taskwatch/internal/task"
)

const (
	// StateKeyPrefix is the Redis key prefix for subscriber snapshot hashes.
	StateKeyPrefix = "taskwatch:state:"
	// LastPollKeyPrefix is the Redis key prefix for last-poll timestamps.
	LastPollKeyPrefix = "taskwatch:lastpoll:"
	// OriginKeyPrefix is the Redis key prefix for self-origin markers.
	OriginKeyPrefix = "taskwatch:origin:"

	// DefaultOriginTTL is how long a self-origin marker lives if the caller
	// does not configure one.
	DefaultOriginTTL = 90 * time.Second

	// DefaultRedisURL is the default Redis connection URL.
	DefaultRedisURL = "redis://localhost:6379"
)

// Store wraps a Redis client with taskwatch state operations.
type Store struct {
	rdb       *redis.Client
	originTTL time.Duration
}

// State is one subscriber's persisted view of the task world, merged across
// all polling tiers.
type State struct {
	LastPoll time.Time
	Tasks    map[string]task.Snapshot
}

// New connects to Redis and returns a Store. The connection is verified
// with a short ping so misconfiguration fails at startup.
func New(redisURL string, originTTL time.Duration) (*Store, error) {
	if redisURL == "" {
		redisURL = DefaultRedisURL
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(rdb, originTTL), nil
}

// NewWithClient wraps an existing Redis client. Used by tests with miniredis.
func NewWithClient(rdb *redis.Client, originTTL time.Duration) *Store {
	if originTTL <= 0 {
		originTTL = DefaultOriginTTL
	}
	return &Store{rdb: rdb, originTTL: originTTL}
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// LoadState returns the subscriber's stored snapshots and last-poll time.
// A subscriber that has never been polled gets an empty task map.
func (s *Store) LoadState(ctx context.Context, subscriber string) (*State, error) {
	state := &State{Tasks: make(map[string]task.Snapshot)}

	entries, err := s.rdb.HGetAll(ctx, StateKeyPrefix+subscriber).Result()
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", subscriber, err)
	}

	for id, raw := range entries {
		var snap task.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			// A corrupt entry is unreadable, not fatal; it will be
			// overwritten by the next observation of the task.
			continue
		}
		state.Tasks[id] = snap
	}

	raw, err := s.rdb.Get(ctx, LastPollKeyPrefix+subscriber).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load last poll for %s: %w", subscriber, err)
	}
	if err == nil {
		if ms, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			state.LastPoll = time.UnixMilli(ms)
		}
	}

	return state, nil
}

// PutSnapshots writes the given snapshots into the subscriber's state hash.
// Existing entries for other task IDs are left untouched.
func (s *Store) PutSnapshots(ctx context.Context, subscriber string, snaps map[string]task.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	pairs := make([]interface{}, 0, len(snaps)*2)
	for id, snap := range snaps {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot %s: %w", id, err)
		}
		pairs = append(pairs, id, data)
	}

	if err := s.rdb.HSet(ctx, StateKeyPrefix+subscriber, pairs...).Err(); err != nil {
		return fmt.Errorf("store snapshots for %s: %w", subscriber, err)
	}
	return nil
}

// TouchLastPoll records when the subscriber was last polled.
func (s *Store) TouchLastPoll(ctx context.Context, subscriber string, at time.Time) error {
	key := LastPollKeyPrefix + subscriber
	return s.rdb.Set(ctx, key, strconv.FormatInt(at.UnixMilli(), 10), 0).Err()
}

// DeleteState removes all stored state for a subscriber.
func (s *Store) DeleteState(ctx context.Context, subscriber string) error {
	return s.rdb.Del(ctx, StateKeyPrefix+subscriber, LastPollKeyPrefix+subscriber).Err()
}

// MarkOrigin records that this system itself caused the next change for
// (subscriber, taskID). The marker expires on its own if never consulted.
func (s *Store) MarkOrigin(ctx context.Context, subscriber, taskID, eventType string) error {
	key := originKey(subscriber, taskID)
	return s.rdb.Set(ctx, key, eventType, s.originTTL).Err()
}

// ConsumeOrigin returns and deletes the self-origin marker for
// (subscriber, taskID). Markers are single-use: a second call for the same
// pair reports no marker.
func (s *Store) ConsumeOrigin(ctx context.Context, subscriber, taskID string) (string, bool, error) {
	val, err := s.rdb.GetDel(ctx, originKey(subscriber, taskID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("consume origin marker: %w", err)
	}
	return val, true, nil
}

// ListSubscribers returns the IDs of all subscribers with stored state.
func (s *Store) ListSubscribers(ctx context.Context) ([]string, error) {
	keys, err := s.scanKeys(ctx, StateKeyPrefix+"*")
	if err != nil {
		return nil, err
	}

	subs := make([]string, 0, len(keys))
	for _, key := range keys {
		subs = append(subs, strings.TrimPrefix(key, StateKeyPrefix))
	}
	return subs, nil
}

func originKey(subscriber, taskID string) string {
	return OriginKeyPrefix + subscriber + ":" + taskID
}

// scanKeys scans for all keys matching a pattern.
func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64

	for {
		var batch []string
		var err error
		batch, cursor, err = s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return keys, err
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	return keys, nil
}
