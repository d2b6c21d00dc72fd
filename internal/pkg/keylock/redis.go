package keylock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var ErrLockTimeout = errors.New("keylock: timed out waiting for lock")

const (
	defaultTTL        = 30 * time.Second
	defaultRetryEvery = 50 * time.Millisecond
	defaultMaxWait    = 15 * time.Second
)

// Only the holder's token may delete the key, so an expired holder cannot
// release a lock someone else took over.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a SETNX based lock shared by every process using the same server.
type Redis struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	retryEvery time.Duration
	maxWait    time.Duration
}

// NewRedis creates a Redis lock. Keys are stored as prefix+key.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{
		client:     client,
		prefix:     prefix,
		ttl:        defaultTTL,
		retryEvery: defaultRetryEvery,
		maxWait:    defaultMaxWait,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + key
	token := uuid.New().String()

	deadline := time.NewTimer(r.maxWait)
	defer deadline.Stop()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("keylock: setnx %s: %w", fullKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrLockTimeout
		case <-time.After(r.retryEvery):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled.
			unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := unlockScript.Run(unlockCtx, r.client, []string{fullKey}, token).Err(); err != nil {
				log.Warn().Err(err).Str("key", fullKey).Msg("keylock: release failed, waiting for ttl")
			}
		})
	}, nil
}
