package processing

import (
	"context"
	"errors"
	"strconv"
	"sync"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/redis"
)

// ErrBusyMessage is the conflict message for a record with a run in flight.
const ErrBusyMessage = "transcription is already being processed"

// Unlock releases a run lock.
type Unlock func()

// Locker grants at most one run per record at a time. Acquire fails with a
// CONFLICT app error when the record is already locked.
type Locker interface {
	Acquire(ctx context.Context, id uint) (Unlock, error)
}

func busy(id uint) *apperrors.AppError {
	return apperrors.Conflict(ErrBusyMessage).WithDetail("id", id)
}

// LocalLocker locks records within this process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[uint]struct{}
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[uint]struct{})}
}

// Acquire implements Locker.
func (l *LocalLocker) Acquire(_ context.Context, id uint) (Unlock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[id]; ok {
		return nil, busy(id)
	}
	l.held[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, id)
			l.mu.Unlock()
		})
	}, nil
}

// Held reports whether id is locked.
func (l *LocalLocker) Held(id uint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[id]
	return ok
}

// RedisLocker locks records across replicas with leases in Redis.
type RedisLocker struct {
	locker *redis.Locker
	log    *logger.Logger
}

// NewRedisLocker adapts a redis.Locker to Locker.
func NewRedisLocker(l *redis.Locker) *RedisLocker {
	return &RedisLocker{locker: l, log: logger.Get("processing")}
}

// Acquire implements Locker.
func (l *RedisLocker) Acquire(ctx context.Context, id uint) (Unlock, error) {
	lease, err := l.locker.TryLock(ctx, "run:"+strconv.FormatUint(uint64(id), 10))
	if errors.Is(err, redis.ErrLocked) {
		return nil, busy(id)
	}
	if err != nil {
		return nil, apperrors.ServiceUnavailable("run lock").WithCause(err)
	}
	return func() {
		// the run's context may already be cancelled
		if err := lease.Release(context.Background()); err != nil {
			l.log.Warn("Run lock release failed", logger.Fields(
				logger.FieldTranscriptionID, id,
				logger.FieldError, err.Error(),
			))
		}
	}, nil
}
