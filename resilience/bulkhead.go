package resilience

import (
	"context"
	"errors"
	"time"
)

// ErrBulkheadFull is returned when no slot frees up in time.
var ErrBulkheadFull = errors.New("bulkhead is full")

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the number of slots.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait bounds how long Acquire waits for a slot. Zero waits until ctx is done.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// Bulkhead bounds the number of concurrent executions.
type Bulkhead struct {
	name string
	cfg  BulkheadConfig
	sem  chan struct{}
}

// NewBulkhead creates a bulkhead with cfg.MaxConcurrent slots (default 10).
func NewBulkhead(name string, cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	return &Bulkhead{name: name, cfg: cfg, sem: make(chan struct{}, cfg.MaxConcurrent)}
}

// Acquire takes a slot and returns the function that gives it back.
func (b *Bulkhead) Acquire(ctx context.Context) (func(), error) {
	select {
	case b.sem <- struct{}{}:
		return b.release, nil
	default:
	}

	var timeout <-chan time.Time
	if b.cfg.MaxWait > 0 {
		timer := time.NewTimer(b.cfg.MaxWait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case b.sem <- struct{}{}:
		return b.release, nil
	case <-timeout:
		return nil, ErrBulkheadFull
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Execute runs fn inside a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	release, err := b.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (b *Bulkhead) release() { <-b.sem }

// InUse returns the number of occupied slots.
func (b *Bulkhead) InUse() int { return len(b.sem) }

// MaxConcurrent returns the number of slots.
func (b *Bulkhead) MaxConcurrent() int { return cap(b.sem) }
