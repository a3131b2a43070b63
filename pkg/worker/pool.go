package worker

import (
	"context"
	"sync"

	"homeautomation-crosspost/pkg/domain"
)

// Predicate decides whether a post is kept.
type Predicate func(ctx context.Context, post domain.Post) bool

// Pool evaluates a predicate over posts with a bounded number of workers.
// Results keep the input order regardless of the worker count.
type Pool struct {
	workerCount int
}

// NewPool creates a pool. workerCount <= 0 is coerced to 1 (sequential).
func NewPool(workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Pool{workerCount: workerCount}
}

// WorkerCount returns the number of workers used by Filter.
func (p *Pool) WorkerCount() int {
	return p.workerCount
}

// Filter returns the posts for which keep returned true, in input order.
// Posts not yet evaluated when ctx is cancelled are dropped.
func (p *Pool) Filter(ctx context.Context, posts []domain.Post, keep Predicate) []domain.Post {
	if len(posts) == 0 {
		return nil
	}

	if p.workerCount == 1 || len(posts) == 1 {
		return p.filterSequential(ctx, posts, keep)
	}

	// Job channel carries indexes so that each worker writes its own slot (no contention)
	jobChan := make(chan int, len(posts))
	for i := range posts {
		jobChan <- i
	}
	close(jobChan)

	kept := make([]bool, len(posts))

	workers := p.workerCount
	if workers > len(posts) {
		workers = len(posts)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				if ctx.Err() != nil {
					return
				}
				kept[idx] = keep(ctx, posts[idx])
			}
		}()
	}
	wg.Wait()

	return collect(posts, kept)
}

func (p *Pool) filterSequential(ctx context.Context, posts []domain.Post, keep Predicate) []domain.Post {
	kept := make([]bool, len(posts))
	for i, post := range posts {
		if ctx.Err() != nil {
			break
		}
		kept[i] = keep(ctx, post)
	}
	return collect(posts, kept)
}

func collect(posts []domain.Post, kept []bool) []domain.Post {
	var out []domain.Post
	for i, ok := range kept {
		if ok {
			out = append(out, posts[i])
		}
	}
	return out
}
