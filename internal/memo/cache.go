package memo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oshokin/tidal-grabber/internal/logger"
)

// Key identifies a cached object by its kind and identifier.
type Key struct {
	// Kind is the object type, such as "track" or "album".
	Kind string
	// ID is the object identifier within its kind.
	ID string
}

// String returns the key in "kind:id" form.
func (k Key) String() string {
	return k.Kind + ":" + k.ID
}

// flightKey is the singleflight key. The separator cannot appear in kinds.
func (k Key) flightKey() string {
	return k.Kind + "\x00" + k.ID
}

// Loader produces the value for a key.
type Loader[V any] func(ctx context.Context) (V, error)

// result is the write-once outcome of a load.
type result[V any] struct {
	// value is the loaded value.
	value V
	// err is the memoized *LoadError, or nil on success.
	err error
}

// Cache memoizes loader results per key. The zero value is not usable, call New.
type Cache[V any] struct {
	// name is used in log messages.
	name string
	// mu guards done. It is never held while a loader runs.
	mu sync.RWMutex
	// done holds completed results.
	done map[Key]*result[V]
	// group elects a single leader per key among concurrent callers.
	group singleflight.Group
}

// New creates an empty cache. The name only appears in log messages.
func New[V any](name string) *Cache[V] {
	return &Cache[V]{
		name: name,
		done: make(map[Key]*result[V]),
	}
}

// GetOrLoad returns the memoized result for key, running loader if no caller has done so yet.
//
// The loader runs without the caller's cancellation, so a caller that stops waiting
// does not poison the entry: GetOrLoad returns ctx.Err() to that caller only, while the load
// completes and is stored for everybody else.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key Key, loader Loader[V]) (V, error) {
	if r, ok := c.lookup(key); ok {
		return r.value, r.err
	}

	ch := c.group.DoChan(key.flightKey(), func() (any, error) {
		// The previous leader may have stored the result after our lookup and left the group.
		if r, ok := c.lookup(key); ok {
			return r, nil
		}

		r := c.load(context.WithoutCancel(ctx), key, loader)

		c.mu.Lock()
		c.done[key] = r
		c.mu.Unlock()

		return r, nil
	})

	select {
	case <-ctx.Done():
		var zero V

		return zero, ctx.Err()
	case res := <-ch:
		//nolint:forcetypeassert // The flight function always returns *result[V].
		r := res.Val.(*result[V])

		return r.value, r.err
	}
}

// Peek returns the stored result for key without loading it.
// found is false if the key has not completed loading.
func (c *Cache[V]) Peek(key Key) (value V, found bool, err error) {
	r, ok := c.lookup(key)
	if !ok {
		return value, false, nil
	}

	return r.value, true, r.err
}

// Len returns the number of completed entries, including failed ones.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.done)
}

func (c *Cache[V]) lookup(key Key) (*result[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.done[key]

	return r, ok
}

func (c *Cache[V]) load(ctx context.Context, key Key, loader Loader[V]) (r *result[V]) {
	startTime := time.Now()

	defer func() {
		if p := recover(); p != nil {
			r = &result[V]{err: &LoadError{Key: key, Err: fmt.Errorf("%w: %v", ErrLoaderPanic, p)}}
		}

		if r.err != nil {
			logger.DebugKV(ctx, "Memoized failed load",
				"cache", c.name, "key", key.String(), "error", r.err, "duration", time.Since(startTime))

			return
		}

		logger.DebugKV(ctx, "Memoized load", "cache", c.name, "key", key.String(), "duration", time.Since(startTime))
	}()

	value, err := loader(ctx)
	if err != nil {
		return &result[V]{err: &LoadError{Key: key, Err: err}}
	}

	return &result[V]{value: value}
}
