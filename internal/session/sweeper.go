package session

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/stackhaven/authgate/pkg/debug"
)

// Sweeper periodically removes expired sessions so the authority's maps
// don't grow without bound. Expired sessions are already invisible to
// Lookup; the sweep only reclaims memory.
type Sweeper struct {
	authority *Authority
	cron      *cron.Cron
	running   bool
	mu        sync.Mutex
}

// NewSweeper creates a sweeper for the given authority
func NewSweeper(authority *Authority) *Sweeper {
	return &Sweeper{
		authority: authority,
		cron:      cron.New(),
	}
}

// Start begins the periodic sweep. Safe to call once.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("session sweeper already running")
	}

	_, err := s.cron.AddFunc("@every 1m", func() {
		if removed := s.authority.removeExpired(); removed > 0 {
			debug.Info("Session sweep removed %d expired sessions", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	debug.Info("Session sweeper started (interval: 1m)")
	return nil
}

// Stop halts the periodic sweep
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	debug.Info("Session sweeper stopped")
}
