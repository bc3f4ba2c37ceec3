package utils

import (
	"sync"
)

// WorkerPool runs submitted jobs on at most maxWorkers goroutines.
type WorkerPool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
}

// NewWorkerPool creates a WorkerPool; maxWorkers below 1 means 1.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{semaphore: make(chan struct{}, maxWorkers)}
}

// Submit enqueues a job, blocking while every worker slot is busy.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// ParallelMap applies f to every item on the pool and returns the results in
// input order, whatever order the jobs finish in.
func ParallelMap[T, U any](pool *WorkerPool, items []T, f func(T) U) []U {
	out := make([]U, len(items))
	for i, item := range items {
		i, item := i, item
		pool.Submit(func() {
			out[i] = f(item)
		})
	}
	pool.Wait()
	return out
}
