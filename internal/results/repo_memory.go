package results

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repo for development and tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]AnalysisResult // keyed by job ID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]AnalysisResult)}
}

func (r *MemoryRepo) Create(ctx context.Context, result AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[result.JobID] = result
	return nil
}

func (r *MemoryRepo) GetByJobID(ctx context.Context, jobID string) (AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisResult{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result, ok := r.data[jobID]
	if !ok {
		return AnalysisResult{}, ErrNotFound
	}
	return result, nil
}

func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	all := make([]AnalysisResult, 0, len(r.data))
	for _, result := range r.data {
		all = append(all, result)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []AnalysisResult{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

var _ Repo = (*MemoryRepo)(nil)
