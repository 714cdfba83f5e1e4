package service

import (
	"context"
	"sync"
)

// MemoryDenialLog keeps the last capacity denials in a ring; reason counts
// cover everything recorded since start.
type MemoryDenialLog struct {
	mu    sync.RWMutex
	ring  []Denial
	next  int
	full  bool
	stats map[string]int64
}

func NewMemoryDenialLog(capacity int) *MemoryDenialLog {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryDenialLog{
		ring:  make([]Denial, capacity),
		stats: map[string]int64{},
	}
}

func (s *MemoryDenialLog) Record(ctx context.Context, d Denial) error {
	d = stamp(d)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring[s.next] = d
	s.next = (s.next + 1) % len(s.ring)
	if s.next == 0 {
		s.full = true
	}
	s.stats[d.Reason]++
	return nil
}

func (s *MemoryDenialLog) Recent(ctx context.Context, limit int) ([]Denial, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.ring)
	}
	if limit > n {
		limit = n
	}

	out := make([]Denial, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.ring)) % len(s.ring)
		out = append(out, s.ring[idx])
	}
	return out, nil
}

func (s *MemoryDenialLog) Stats(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(s.stats))
	for k, v := range s.stats {
		out[k] = v
	}
	return out, nil
}
