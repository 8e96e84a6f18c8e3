package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Analysis
	now    func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[int64]Analysis),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores the analysis and assigns its ID.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := r.now()
	analysis.ID = r.nextID
	if analysis.Status == "" {
		analysis.Status = StatusPending
	}
	if analysis.CreatedAt.IsZero() {
		analysis.CreatedAt = now
	}
	analysis.UpdatedAt = now
	r.byID[analysis.ID] = analysis
	return cloneAnalysis(analysis), nil
}

// GetByID returns an analysis by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[id]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return cloneAnalysis(analysis), nil
}

// List returns analyses newest first, with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	all := make([]Analysis, 0, len(r.byID))
	for _, a := range r.byID {
		all = append(all, cloneAnalysis(a))
	}
	r.mu.RUnlock()

	if offset >= len(all) {
		return []Analysis{}, nil
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// Delete removes an analysis.
func (r *MemoryRepo) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// MarkPending resets the record to pending.
func (r *MemoryRepo) MarkPending(ctx context.Context, id int64) error {
	return r.update(ctx, id, func(a *Analysis) {
		a.Status = StatusPending
		a.Error = ""
		a.clearOutputs()
	})
}

// MarkProcessing sets processing and clears previous outputs and error.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, id int64) error {
	return r.update(ctx, id, func(a *Analysis) {
		a.Status = StatusProcessing
		a.Error = ""
		a.clearOutputs()
	})
}

// SaveResult stores outputs and sets completed.
func (r *MemoryRepo) SaveResult(ctx context.Context, id int64, res Result) error {
	return r.update(ctx, id, func(a *Analysis) {
		a.applyResult(res)
		a.Status = StatusCompleted
		a.Error = ""
	})
}

// MarkFailed sets failed with the given message.
func (r *MemoryRepo) MarkFailed(ctx context.Context, id int64, msg string) error {
	return r.update(ctx, id, func(a *Analysis) {
		a.Status = StatusFailed
		a.Error = msg
		a.clearOutputs()
	})
}

func (r *MemoryRepo) update(ctx context.Context, id int64, mutate func(*Analysis)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	analysis, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	mutate(&analysis)
	analysis.UpdatedAt = r.now()
	r.byID[id] = analysis
	return nil
}

func cloneAnalysis(a Analysis) Analysis {
	a.KeyPoints = cloneList(a.KeyPoints)
	a.MissingInfo = cloneList(a.MissingInfo)
	a.NextActions = cloneList(a.NextActions)
	return a
}

func cloneList(list []string) []string {
	if list == nil {
		return nil
	}
	return append([]string{}, list...)
}
