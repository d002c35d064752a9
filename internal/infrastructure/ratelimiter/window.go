package ratelimiter

import (
	"sync"
	"time"
)

// AttemptLimiter caps attempts per key inside fixed windows. It guards the
// password-bearing routes, keyed by client and room.
type AttemptLimiter struct {
	windows sync.Map // string -> *attemptWindow
	limit   int
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

type attemptWindow struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

func NewAttemptLimiter(limit int, window time.Duration) *AttemptLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	al := &AttemptLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go al.sweep()
	return al
}

// Allow records an attempt for key. When the window is exhausted it returns
// false and the time until the window resets.
func (al *AttemptLimiter) Allow(key string) (bool, time.Duration) {
	now := al.now()

	val, _ := al.windows.LoadOrStore(key, &attemptWindow{})
	w := val.(*attemptWindow)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !now.Before(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(al.window)
	}

	if w.count >= al.limit {
		return false, w.resetAt.Sub(now)
	}

	w.count++
	return true, 0
}

func (al *AttemptLimiter) Limit() int {
	return al.limit
}

func (al *AttemptLimiter) sweep() {
	ticker := time.NewTicker(al.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			al.removeExpired()
		case <-al.done:
			return
		}
	}
}

func (al *AttemptLimiter) removeExpired() {
	now := al.now()
	al.windows.Range(func(key, value any) bool {
		w := value.(*attemptWindow)
		w.mu.Lock()
		expired := !now.Before(w.resetAt)
		w.mu.Unlock()
		if expired {
			al.windows.Delete(key)
		}
		return true
	})
}

func (al *AttemptLimiter) Close() {
	al.once.Do(func() {
		close(al.done)
	})
}
