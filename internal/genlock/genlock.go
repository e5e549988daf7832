// Package genlock deduplicates concurrent question generation for the same
// key. Three modes are available: no guard, an in-process singleflight
// group, and a Redis lock shared across replicas.
package genlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/quizadapt/internal/logger"
)

// ErrWaited is returned to a caller that waited on another holder instead
// of running fn. It should re-check its cache before generating.
var ErrWaited = errors.New("genlock: waited on another generator")

// Guard runs fn at most once at a time per key.
type Guard interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error)
}

// Modes accepted by New.
const (
	ModeNone  = "none"
	ModeLocal = "local"
	ModeRedis = "redis"
)

// Config selects and tunes the guard.
type Config struct {
	Mode string        `mapstructure:"mode"`
	TTL  time.Duration `mapstructure:"ttl"`  // redis lock expiry
	Wait time.Duration `mapstructure:"wait"` // max time a waiter polls
	Poll time.Duration `mapstructure:"poll"`
}

// DefaultConfig leaves generation unguarded.
func DefaultConfig() Config {
	return Config{
		Mode: ModeNone,
		TTL:  30 * time.Second,
		Wait: 20 * time.Second,
		Poll: 100 * time.Millisecond,
	}
}

// New builds the Guard for cfg.Mode. rdb is only used in redis mode.
func New(cfg Config, rdb goredis.UniversalClient, log *logger.Logger) (Guard, error) {
	switch cfg.Mode {
	case "", ModeNone:
		return None{}, nil
	case ModeLocal:
		return NewLocal(), nil
	case ModeRedis:
		if rdb == nil {
			return nil, fmt.Errorf("genlock: redis mode needs a redis client")
		}
		return NewRedis(rdb, cfg, log), nil
	default:
		return nil, fmt.Errorf("genlock: unknown mode %q", cfg.Mode)
	}
}

// None runs fn directly. Concurrent callers may generate duplicates.
type None struct{}

func (None) Do(ctx context.Context, _ string, fn func(ctx context.Context) (any, error)) (any, error) {
	return fn(ctx)
}

// Local collapses concurrent calls within this process; every caller
// receives the single result.
type Local struct {
	group singleflight.Group
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	v, err, _ := l.group.Do(key, func() (any, error) {
		return fn(ctx)
	})
	return v, err
}
