package genlock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNone_RunsEveryCall(t *testing.T) {
	var calls int
	g := None{}
	for range 3 {
		v, err := g.Do(context.Background(), "k", func(context.Context) (any, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
		assert.Equal(t, calls, v)
	}
	assert.Equal(t, 3, calls)
}

func TestLocal_CollapsesConcurrentCalls(t *testing.T) {
	g := NewLocal()
	var calls atomic.Int32
	release := make(chan struct{})

	fn := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "question", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := g.Do(context.Background(), "tmpl:1:learner:2", fn)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	// Let the callers pile up behind the first one.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "question", v)
	}
}

func TestNew_Modes(t *testing.T) {
	g, err := New(Config{Mode: ""}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, None{}, g)

	g, err = New(Config{Mode: ModeLocal}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &Local{}, g)

	_, err = New(Config{Mode: ModeRedis}, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{Mode: "zookeeper"}, nil, nil)
	assert.Error(t, err)
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	setErr   error
	released []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]string{}}
}

func (f *fakeLocker) SetNX(ctx context.Context, key string, value any, _ time.Duration) *goredis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return goredis.NewBoolResult(false, f.setErr)
	}
	if _, ok := f.held[key]; ok {
		return goredis.NewBoolResult(false, nil)
	}
	f.held[key] = value.(string)
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeLocker) Exists(ctx context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.held[k]; ok {
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func (f *fakeLocker) Eval(ctx context.Context, _ string, keys []string, args ...any) *goredis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[keys[0]] == args[0].(string) {
		delete(f.held, keys[0])
		f.released = append(f.released, keys[0])
		return goredis.NewCmdResult(int64(1), nil)
	}
	return goredis.NewCmdResult(int64(0), nil)
}

func (f *fakeLocker) drop(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
}

func testRedis(f *fakeLocker) *Redis {
	return NewRedis(f, Config{TTL: time.Second, Wait: 200 * time.Millisecond, Poll: 5 * time.Millisecond}, nil)
}

func TestRedis_AcquireRunsAndReleases(t *testing.T) {
	f := newFakeLocker()
	r := testRedis(f)

	v, err := r.Do(context.Background(), "k", func(context.Context) (any, error) {
		f.mu.Lock()
		_, held := f.held[keyPrefix+"k"]
		f.mu.Unlock()
		assert.True(t, held, "lock should be held while generating")
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, []string{keyPrefix + "k"}, f.released)
}

func TestRedis_WaiterReturnsErrWaitedWhenLockClears(t *testing.T) {
	f := newFakeLocker()
	f.held[keyPrefix+"k"] = "someone-else"
	r := testRedis(f)

	go func() {
		time.Sleep(20 * time.Millisecond)
		f.drop(keyPrefix + "k")
	}()

	called := false
	_, err := r.Do(context.Background(), "k", func(context.Context) (any, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrWaited)
	assert.False(t, called)
}

func TestRedis_WaiterGivesUpAfterWait(t *testing.T) {
	f := newFakeLocker()
	f.held[keyPrefix+"k"] = "stuck"
	r := testRedis(f)

	start := time.Now()
	_, err := r.Do(context.Background(), "k", func(context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrWaited)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestRedis_UnavailableRunsUnguarded(t *testing.T) {
	f := newFakeLocker()
	f.setErr = errors.New("connection refused")
	r := testRedis(f)

	v, err := r.Do(context.Background(), "k", func(context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestRedis_WaiterHonorsContext(t *testing.T) {
	f := newFakeLocker()
	f.held[keyPrefix+"k"] = "stuck"
	r := testRedis(f)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Do(ctx, "k", func(context.Context) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
