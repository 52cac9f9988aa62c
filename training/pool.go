package training

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Pool runs several independent runners in parallel. Each runner owns its
// environment, agent and table; sinks are whatever the caller gave each one.
type Pool struct {
	runners []*Runner
}

// NewPool builds numWorkers runners with newRunner.
func NewPool(numWorkers int, newRunner func(index int) (*Runner, error)) (*Pool, error) {
	if numWorkers <= 0 {
		return nil, errors.Errorf("pool needs at least one worker, got %d", numWorkers)
	}

	pool := &Pool{runners: make([]*Runner, numWorkers)}
	for i := 0; i < numWorkers; i++ {
		r, err := newRunner(i)
		if err != nil {
			return nil, errors.Wrapf(err, "worker %d", i)
		}
		pool.runners[i] = r
	}
	return pool, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.runners)
}

// Run starts every runner and waits for all of them. Summaries are indexed
// by worker; the first error cancels the others between episodes.
func (p *Pool) Run(ctx context.Context) ([]Summary, error) {
	runners := p.runners

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	summaries := make([]Summary, len(runners))
	errs := make([]error, len(runners))
	var wg sync.WaitGroup

	for i, r := range runners {
		wg.Add(1)
		go func(i int, r *Runner) {
			defer wg.Done()
			summaries[i], errs[i] = r.Run(ctx)
			if errs[i] != nil {
				cancel()
			}
		}(i, r)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return summaries, errors.Wrapf(err, "worker %d", i)
		}
	}
	return summaries, nil
}

// WorkerPath derives the per-worker variant of path: "q.txt" becomes
// "q.worker2.txt". A single worker keeps path unchanged.
func WorkerPath(path string, index, numWorkers int) string {
	if path == "" || numWorkers <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s.worker%d%s", strings.TrimSuffix(path, ext), index, ext)
}
