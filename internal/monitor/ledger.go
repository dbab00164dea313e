package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ledger remembers the last status published for each job group
type Ledger interface {
	Get(ctx context.Context, jobGroupID int64) (status string, ok bool, err error)
	Set(ctx context.Context, jobGroupID int64, status string) error
}

// MemoryLedger is a process-local Ledger; it forgets everything on restart
type MemoryLedger struct {
	mu       sync.RWMutex
	statuses map[int64]string
}

// NewMemoryLedger creates an empty MemoryLedger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{statuses: make(map[int64]string)}
}

func (l *MemoryLedger) Get(_ context.Context, jobGroupID int64) (string, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	status, ok := l.statuses[jobGroupID]
	return status, ok, nil
}

func (l *MemoryLedger) Set(_ context.Context, jobGroupID int64, status string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses[jobGroupID] = status
	return nil
}

const defaultKeyPrefix = "jobgroup:status:"

// RedisLedger keeps the ledger in Redis so restarts and replicas share it
type RedisLedger struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisLedger creates a RedisLedger. A zero ttl keeps entries forever.
func NewRedisLedger(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLedger {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisLedger{client: client, prefix: prefix, ttl: ttl}
}

func (l *RedisLedger) key(jobGroupID int64) string {
	return l.prefix + strconv.FormatInt(jobGroupID, 10)
}

func (l *RedisLedger) Get(ctx context.Context, jobGroupID int64) (string, bool, error) {
	status, err := l.client.Get(ctx, l.key(jobGroupID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return status, true, nil
}

func (l *RedisLedger) Set(ctx context.Context, jobGroupID int64, status string) error {
	if err := l.client.Set(ctx, l.key(jobGroupID), status, l.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Health pings Redis
func (l *RedisLedger) Health(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
