package scanstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"scanagent/internal/scanflow"
)

type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Record)}
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	if rec == nil || strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("scan id is required")
	}
	cp := *rec
	cp.Issues = append([]scanflow.AggregatedIssue(nil), rec.Issues...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("scan id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	cp.Issues = append([]scanflow.AggregatedIssue(nil), rec.Issues...)
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.byID))
	for _, rec := range s.byID {
		cp := *rec
		cp.Issues = nil // summaries only
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Findings(ctx context.Context, id string) ([]scanflow.AggregatedIssue, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Issues, nil
}
