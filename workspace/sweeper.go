package workspace

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper removes workspaces older than a TTL that no request holds, which
// only exist when a previous process died between materialize and remove
type Sweeper struct {
	m       *Manager
	ttl     time.Duration
	observe func(removed []string)
	logger  *zap.Logger

	stopOnce sync.Once
	done     chan struct{}
	stopped  chan struct{}
}

// NewSweeper sweeps once and then every interval until Stop. observe, if not
// nil, receives the names removed by every pass.
func NewSweeper(m *Manager, ttl, interval time.Duration, observe func([]string), logger *zap.Logger) *Sweeper {
	s := &Sweeper{
		m:       m,
		ttl:     ttl,
		observe: observe,
		logger:  logger,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.checkTimeoutLoop(interval)
	return s
}

func (s *Sweeper) checkTimeoutLoop(interval time.Duration) {
	defer close(s.stopped)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		removed := s.Sweep(time.Now())
		if s.observe != nil {
			s.observe(removed)
		}
		select {
		case <-ticker.C:
		case <-s.done:
			return
		}
	}
}

// Sweep removes expired workspaces as of now and returns their names
func (s *Sweeper) Sweep(now time.Time) []string {
	var removed []string
	for _, name := range s.m.List() {
		if s.sweepOne(name, now) {
			removed = append(removed, name)
		}
	}
	if len(removed) > 0 {
		s.logger.Info("expired workspaces removed", zap.Strings("names", removed))
	}
	return removed
}

func (s *Sweeper) sweepOne(name string, now time.Time) bool {
	release, _ := s.m.locks.tryAcquire(name)
	if release == nil {
		return false
	}
	defer release()

	p := filepath.Join(s.m.root, name)
	fi, err := os.Lstat(p)
	if err != nil || fi.ModTime().Add(s.ttl).After(now) {
		return false
	}
	if err := os.RemoveAll(p); err != nil {
		s.logger.Warn("remove expired workspace failed", zap.String("path", p), zap.Error(err))
		return false
	}
	return true
}

// Stop stops the sweep loop and waits for it to exit
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
}
