package workspace

import (
	"context"
	"sync"
)

// keyedLock serializes holders of the same workspace name
type keyedLock struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func newKeyedLock() *keyedLock {
	return &keyedLock{held: make(map[string]chan struct{})}
}

// acquire blocks until key is free or ctx is done. The returned release func
// must be called exactly once.
func (l *keyedLock) acquire(ctx context.Context, key string) (func(), error) {
	for {
		release, ch := l.tryAcquire(key)
		if release != nil {
			return release, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// tryAcquire returns a release func when key was free, otherwise a channel
// closed when the current holder releases
func (l *keyedLock) tryAcquire(key string) (func(), <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ch, ok := l.held[key]; ok {
		return nil, ch
	}
	ch := make(chan struct{})
	l.held[key] = ch
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
		close(ch)
	}, nil
}
