package genlock

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/quizadapt/internal/logger"
)

const keyPrefix = "quizadapt:genlock:"

// releaseScript deletes the lock only if we still own it.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// locker is the subset of the redis client the lock needs.
type locker interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd
	Exists(ctx context.Context, keys ...string) *goredis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *goredis.Cmd
}

// Redis is a SET NX PX lock. A caller that finds the lock held polls until
// it clears or Wait elapses and then returns ErrWaited. If Redis itself is
// unreachable fn runs unguarded.
type Redis struct {
	client locker
	cfg    Config
	log    *logger.Logger
}

func NewRedis(client locker, cfg Config, log *logger.Logger) *Redis {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Wait <= 0 {
		cfg.Wait = def.Wait
	}
	if cfg.Poll <= 0 {
		cfg.Poll = def.Poll
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Redis{client: client, cfg: cfg, log: log.With("component", "genlock")}
}

func (r *Redis) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	k := keyPrefix + key
	token := uuid.NewString()

	acquired, err := r.client.SetNX(ctx, k, token, r.cfg.TTL).Result()
	if err != nil {
		r.log.Warn("redis lock unavailable, generating unguarded", "key", key, "error", err)
		return fn(ctx)
	}
	if acquired {
		defer func() {
			if err := r.client.Eval(context.WithoutCancel(ctx), releaseScript, []string{k}, token).Err(); err != nil {
				r.log.Warn("redis lock release failed", "key", key, "error", err)
			}
		}()
		return fn(ctx)
	}

	return nil, r.wait(ctx, k)
}

func (r *Redis) wait(ctx context.Context, k string) error {
	deadline := time.NewTimer(r.cfg.Wait)
	defer deadline.Stop()
	tick := time.NewTicker(r.cfg.Poll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrWaited
		case <-tick.C:
			n, err := r.client.Exists(ctx, k).Result()
			if err != nil || n == 0 {
				return ErrWaited
			}
		}
	}
}
