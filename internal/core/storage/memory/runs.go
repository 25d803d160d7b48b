package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/core/workflow"
)

// RunStore is an in-memory implementation of workflow.Store.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*workflow.Run
}

// NewRunStore creates an empty in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*workflow.Run)}
}

func (r *RunStore) Create(ctx context.Context, run *workflow.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runs[run.ID]; exists {
		return fmt.Errorf("workflow run %s already exists", run.ID)
	}
	run.Version = 1
	r.runs[run.ID] = cloneRun(run)
	return nil
}

func (r *RunStore) Get(ctx context.Context, id string) (*workflow.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, exists := r.runs[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneRun(run), nil
}

func (r *RunStore) Save(ctx context.Context, run *workflow.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.runs[run.ID]
	if !exists {
		return storage.ErrNotFound
	}
	if stored.Version != run.Version {
		return workflow.ErrStaleRun
	}
	// A cancel request may land between load and save; never drop it.
	if stored.CancelRequested && !run.CancelRequested {
		run.CancelRequested = true
		if stored.NextAttemptAt.Before(run.NextAttemptAt) {
			run.NextAttemptAt = stored.NextAttemptAt
		}
	}
	run.Version++
	r.runs[run.ID] = cloneRun(run)
	return nil
}

func (r *RunStore) ClaimRunnable(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*workflow.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*workflow.Run
	for _, run := range r.runs {
		if run.Terminal() || run.NextAttemptAt.After(now) {
			continue
		}
		due = append(due, run)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*workflow.Run, 0, len(due))
	for _, run := range due {
		run.NextAttemptAt = now.Add(lease)
		run.Version++
		claimed = append(claimed, cloneRun(run))
	}
	return claimed, nil
}

func (r *RunStore) RequestCancel(ctx context.Context, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, exists := r.runs[id]
	if !exists {
		return storage.ErrNotFound
	}
	if run.Terminal() {
		return nil
	}
	// Version is left alone so an in-flight Save still succeeds and carries the flag forward.
	run.CancelRequested = true
	run.NextAttemptAt = now
	return nil
}

func (r *RunStore) PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for id, run := range r.runs {
		if run.Terminal() && run.UpdatedAt.Before(cutoff) {
			delete(r.runs, id)
			purged++
		}
	}
	return purged, nil
}

// cloneRun deep-copies a run through its JSON form, the same shape it is persisted in.
func cloneRun(run *workflow.Run) *workflow.Run {
	raw, err := json.Marshal(run)
	if err != nil {
		panic(fmt.Sprintf("memory: clone workflow run: %v", err))
	}
	var c workflow.Run
	if err := json.Unmarshal(raw, &c); err != nil {
		panic(fmt.Sprintf("memory: clone workflow run: %v", err))
	}
	return &c
}
