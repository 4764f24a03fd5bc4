package session

import (
	"testing"
	"time"
)

func TestSweeperStartStop(t *testing.T) {
	s := NewSweeper(NewAuthority(time.Hour))

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("Second Start should fail while running")
	}

	s.Stop()
	// Stopping twice is harmless
	s.Stop()

	if err := s.Start(); err != nil {
		t.Errorf("Restart after Stop failed: %v", err)
	}
	s.Stop()
}
