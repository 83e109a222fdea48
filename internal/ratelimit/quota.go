package ratelimit

import (
	"errors"
	"fmt"
	"sync"
)

const DefaultQueryThreshold = 1000

var ErrQuotaExceeded = errors.New("query quota exceeded")

type QuotaExceededError struct {
	Threshold int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("this instance has made %d queries, no more queries allowed", e.Threshold)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// Quota - счетчик запросов за все время жизни клиента, без окна и сброса.
type Quota struct {
	mu        sync.Mutex
	count     int
	threshold int
}

func NewQuota(threshold int) *Quota {
	if threshold <= 0 {
		threshold = DefaultQueryThreshold
	}
	return &Quota{threshold: threshold}
}

// TryIncrement consumes one query. On failure the count is left untouched.
func (q *Quota) TryIncrement() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count+1 > q.threshold {
		return &QuotaExceededError{Threshold: q.threshold}
	}
	q.count++
	return nil
}

func (q *Quota) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *Quota) Threshold() int {
	return q.threshold
}

func (q *Quota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if rem := q.threshold - q.count; rem > 0 {
		return rem
	}
	return 0
}
