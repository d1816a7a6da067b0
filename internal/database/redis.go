package database

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/tallbag/gutinvoice/internal/config"
	ierr "github.com/tallbag/gutinvoice/internal/errors"
)

const (
	messageKeyPrefix = "gutinvoice:msg:"
	lockKeyPrefix    = "gutinvoice:lock:seller:"
	deadLetterKey    = "gutinvoice:deadletter"
	deadLetterCap    = 1000
)

// Redis wraps the Redis client and the distributed locker
type Redis struct {
	*redis.Client
	locker *redislock.Client
}

// ConnectRedis opens the Redis connection and checks it
func ConnectRedis(cfg *config.Config) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error pinging Redis: %w", err)
	}

	return NewRedis(client), nil
}

// NewRedis wraps an existing client
func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client, locker: redislock.New(client)}
}

// Close closes the connection
func (r *Redis) Close() error {
	return r.Client.Close()
}

// HealthCheck pings Redis
func (r *Redis) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.Ping(ctx).Err()
}

// MarkMessageSeen records a transport message id. It returns false when the
// id was already recorded within ttl.
func (r *Redis) MarkMessageSeen(ctx context.Context, sid string, ttl time.Duration) (bool, error) {
	return r.SetNX(ctx, messageKeyPrefix+sid, time.Now().Unix(), ttl).Result()
}

// SellerLock is a held per-seller lock
type SellerLock struct {
	lock *redislock.Lock
}

// Release frees the lock. A nil lock is a no-op.
func (l *SellerLock) Release(ctx context.Context) error {
	if l == nil || l.lock == nil {
		return nil
	}
	err := l.lock.Release(ctx)
	if ierr.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

// LockSeller serialises work for one seller. It waits up to wait for the
// lock and returns redislock.ErrNotObtained when it stays taken.
func (r *Redis) LockSeller(ctx context.Context, phone string, ttl, wait time.Duration) (*SellerLock, error) {
	step := 250 * time.Millisecond
	retries := int(wait / step)
	lock, err := r.locker.Obtain(ctx, lockKeyPrefix+phone, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(step), retries),
	})
	if err != nil {
		return nil, err
	}
	return &SellerLock{lock: lock}, nil
}

// PushDeadLetter appends a failed task record, keeping the newest entries
func (r *Redis) PushDeadLetter(ctx context.Context, payload []byte) error {
	pipe := r.TxPipeline()
	pipe.LPush(ctx, deadLetterKey, payload)
	pipe.LTrim(ctx, deadLetterKey, 0, deadLetterCap-1)
	_, err := pipe.Exec(ctx)
	return err
}

// DeadLetters returns up to n of the newest failed task records
func (r *Redis) DeadLetters(ctx context.Context, n int64) ([]string, error) {
	if n <= 0 {
		n = 50
	}
	return r.LRange(ctx, deadLetterKey, 0, n-1).Result()
}

// LogStats logs connection pool statistics
func (r *Redis) LogStats(logger *logrus.Logger) {
	s := r.PoolStats()
	logger.WithFields(logrus.Fields{
		"hits":        s.Hits,
		"misses":      s.Misses,
		"timeouts":    s.Timeouts,
		"total_conns": s.TotalConns,
		"idle_conns":  s.IdleConns,
	}).Info("Redis pool statistics")
}
