// Copyright 2026 The StageGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package redisstore implements the store contract on Redis: streams
// for logs, ZSET for the sorted index, hashes for records, lists for
// ordered appends, and a Lua script for the atomic field
// compare-and-swap.
package redisstore

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/stagegate-io/stagegate/lib/store"
)

// Config holds the connection parameters for Open.
type Config struct {
	// Addr is the host:port of the Redis server. Required.
	Addr string

	// Password authenticates the connection. Empty means no auth.
	Password string

	// DB selects the logical database.
	DB int

	// Logger receives connection-level log output. Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// Store implements store.Store on a Redis client.
type Store struct {
	rdb    *redis.Client
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// swapScript atomically sets ARGV[1] to ARGV[3], plus the trailing
// field/value pairs, iff its current value equals ARGV[2]. A missing
// record never swaps.
var swapScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], ARGV[1])
if current == false or current ~= ARGV[2] then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
for i = 4, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
end
return 1
`)

// Open connects to Redis and verifies the connection with a ping so
// misconfiguration fails at startup, not at first use.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redisstore: config missing Addr")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisstore: ping %s: %w", cfg.Addr, err)
	}
	logger.Debug("connected to redis", "addr", cfg.Addr, "db", cfg.DB)
	return &Store{rdb: rdb, logger: logger}, nil
}

// New wraps an existing client. The caller keeps ownership of the
// client's lifecycle.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, logger: slog.Default()}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.rdb.Close() }

// Append implements store.Log via XADD with an approximate MAXLEN
// trim. Approximate trimming lets Redis trim at macro-node
// boundaries, which is the documented efficient form.
func (s *Store) Append(ctx context.Context, stream string, fields map[string]string, maxLen int64) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: toValues(fields),
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	id, err := s.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("redisstore: append to %q: %w", stream, err)
	}
	return id, nil
}

// CreateGroup implements store.Log via XGROUP CREATE ... MKSTREAM.
func (s *Store) CreateGroup(ctx context.Context, stream, group, start string) error {
	err := s.rdb.XGroupCreateMkStream(ctx, stream, group, start).Err()
	if err == nil {
		return nil
	}
	if isBusyGroup(err) {
		return fmt.Errorf("redisstore: group %q on stream %q: %w", group, stream, store.ErrGroupExists)
	}
	return fmt.Errorf("redisstore: create group %q on stream %q: %w", group, stream, err)
}

// Info implements store.Log via XINFO STREAM and XINFO GROUPS.
func (s *Store) Info(ctx context.Context, stream string) (*store.LogInfo, error) {
	raw, err := s.rdb.XInfoStream(ctx, stream).Result()
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("redisstore: stream %q: %w", stream, store.ErrNotFound)
		}
		return nil, fmt.Errorf("redisstore: info for %q: %w", stream, err)
	}

	info := &store.LogInfo{Name: stream, Length: raw.Length}
	if raw.FirstEntry.ID != "" {
		first := toEntry(raw.FirstEntry)
		info.First = &first
	}
	if raw.LastEntry.ID != "" {
		last := toEntry(raw.LastEntry)
		info.Last = &last
	}

	groups, err := s.rdb.XInfoGroups(ctx, stream).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: group info for %q: %w", stream, err)
	}
	for _, g := range groups {
		info.Groups = append(info.Groups, store.GroupInfo{
			Name:            g.Name,
			Consumers:       g.Consumers,
			Pending:         g.Pending,
			LastDeliveredID: g.LastDeliveredID,
		})
	}
	return info, nil
}

// IndexAdd implements store.SortedIndex.
func (s *Store) IndexAdd(ctx context.Context, key, member string, score float64) error {
	if err := s.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return fmt.Errorf("redisstore: index add to %q: %w", key, err)
	}
	return nil
}

// IndexRemove implements store.SortedIndex.
func (s *Store) IndexRemove(ctx context.Context, key, member string) error {
	if err := s.rdb.ZRem(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redisstore: index remove from %q: %w", key, err)
	}
	return nil
}

// IndexRangeMax implements store.SortedIndex.
func (s *Store) IndexRangeMax(ctx context.Context, key string, max float64) ([]string, error) {
	members, err := s.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: formatScore(max),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: index range on %q: %w", key, err)
	}
	return members, nil
}

// IndexMembers implements store.SortedIndex.
func (s *Store) IndexMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.rdb.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: index members of %q: %w", key, err)
	}
	return members, nil
}

// PutRecord implements store.Records.
func (s *Store) PutRecord(ctx context.Context, key string, fields map[string]string) error {
	if err := s.rdb.HSet(ctx, key, toValues(fields)).Err(); err != nil {
		return fmt.Errorf("redisstore: put record %q: %w", key, err)
	}
	return nil
}

// GetRecord implements store.Records. Redis returns an empty map for
// a missing hash, which is exactly the contract's absent shape.
func (s *Store) GetRecord(ctx context.Context, key string) (map[string]string, error) {
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: get record %q: %w", key, err)
	}
	return fields, nil
}

// SwapField implements store.Records with the Lua compare-and-swap.
func (s *Store) SwapField(ctx context.Context, key, field, want, next string, also map[string]string) (bool, error) {
	argv := make([]interface{}, 0, 3+2*len(also))
	argv = append(argv, field, want, next)
	for k, v := range also {
		argv = append(argv, k, v)
	}
	applied, err := swapScript.Run(ctx, s.rdb, []string{key}, argv...).Int()
	if err != nil {
		return false, fmt.Errorf("redisstore: swap field %q on %q: %w", field, key, err)
	}
	return applied == 1, nil
}

// ListAppend implements store.Lists.
func (s *Store) ListAppend(ctx context.Context, key, value string) error {
	if err := s.rdb.RPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("redisstore: list append to %q: %w", key, err)
	}
	return nil
}

// ListRange implements store.Lists.
func (s *Store) ListRange(ctx context.Context, key string) ([]string, error) {
	values, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list range of %q: %w", key, err)
	}
	return values, nil
}

// isBusyGroup matches the BUSYGROUP reply XGROUP CREATE returns for
// an existing group. Redis reports it only by error string.
func isBusyGroup(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

// isNoSuchKey matches the reply XINFO returns for a stream that was
// never created.
func isNoSuchKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such key")
}

// formatScore renders a score for ZRANGEBYSCORE. Positive infinity is
// the score of never-expiring index entries.
func formatScore(score float64) string {
	if math.IsInf(score, 1) {
		return "+inf"
	}
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func toValues(fields map[string]string) map[string]interface{} {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return values
}

func toEntry(message redis.XMessage) store.Entry {
	fields := make(map[string]string, len(message.Values))
	for k, v := range message.Values {
		fields[k] = fmt.Sprint(v)
	}
	return store.Entry{ID: message.ID, Fields: fields}
}
