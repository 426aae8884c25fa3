package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/fernandomesquita/stenopro/logger"
)

// ErrLocked is returned by TryLock when another holder owns the key.
var ErrLocked = errors.New("redis: lock is held")

// ErrLeaseLost is returned by Refresh when the key expired or changed owner.
var ErrLeaseLost = errors.New("redis: lease lost")

// Both scripts act only while the key still carries the caller's token.
var (
	releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// Locker hands out leases on keys with SET NX PX.
type Locker struct {
	client *Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewLocker creates a locker whose leases last ttl unless refreshed.
func NewLocker(client *Client, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl, log: client.log.WithComponent("redis-lock")}
}

// TryLock takes the lock on key without waiting. The returned lease refreshes
// itself every ttl/3 until Release.
func (l *Locker) TryLock(ctx context.Context, key string) (*Lease, error) {
	full := l.client.Key("lock", key)
	token := uuid.NewString()
	ok, err := l.client.rdb.SetNX(ctx, full, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	lease := &Lease{
		rdb:   l.client.rdb,
		key:   full,
		token: token,
		ttl:   l.ttl,
		log:   l.log,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go lease.keepAlive()
	return lease, nil
}

// Lease is a held lock.
type Lease struct {
	rdb   *goredis.Client
	key   string
	token string
	ttl   time.Duration
	log   *logger.Logger

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// Key returns the full Redis key of the lease.
func (l *Lease) Key() string { return l.key }

// Refresh extends the lease by its ttl.
func (l *Lease) Refresh(ctx context.Context) error {
	n, err := refreshScript.Run(ctx, l.rdb, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("redis refresh %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

// Release stops refreshing and deletes the key if this lease still owns it.
// Safe to call more than once.
func (l *Lease) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		close(l.stop)
		<-l.done
		err = releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
		if err != nil {
			err = fmt.Errorf("redis release %s: %w", l.key, err)
		}
	})
	return err
}

func (l *Lease) keepAlive() {
	defer close(l.done)
	interval := l.ttl / 3
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			err := l.Refresh(ctx)
			cancel()
			if errors.Is(err, ErrLeaseLost) {
				l.log.Warn("Lock lease lost", map[string]interface{}{"key": l.key})
				return
			}
			if err != nil {
				l.log.Warn("Lock refresh failed", map[string]interface{}{"key": l.key, "error": err.Error()})
			}
		}
	}
}
