package telemetry

import (
	"sync"
	"time"
)

// Store keeps usage and trace events per scan, in memory.
// Events are append-only; readers get copies.
type Store struct {
	mu     sync.RWMutex
	events map[string][]map[string]any
}

func NewStore() *Store {
	return &Store{events: make(map[string][]map[string]any)}
}

func (s *Store) Append(scanID, source, stage string, fields map[string]any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if fields == nil {
		fields = map[string]any{}
	}
	evt := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		evt[k] = v
	}
	evt["scan_id"] = scanID
	evt["source"] = source
	evt["stage"] = stage
	if _, ok := evt["timestamp"]; !ok {
		evt["timestamp"] = time.Now().Format(time.RFC3339Nano)
	}
	s.events[scanID] = append(s.events[scanID], evt)
}

func (s *Store) Read(scanID string) []map[string]any {
	if s == nil {
		return []map[string]any{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	events, ok := s.events[scanID]
	if !ok {
		return []map[string]any{}
	}
	out := make([]map[string]any, len(events))
	copy(out, events)
	return out
}
