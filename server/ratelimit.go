package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/juju/ratelimit"
)

// RateLimiter manages per-client token buckets
type RateLimiter struct {
	rate        float64
	capacity    int64
	metricsPath string

	clients map[string]*ratelimit.Bucket
	mu      sync.RWMutex

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRateLimiter creates a rate limiter refilling rate tokens per second up
// to capacity. Scrapes of metricsPath are free.
func NewRateLimiter(rate float64, capacity int64, metricsPath string) *RateLimiter {
	return &RateLimiter{
		rate:        rate,
		capacity:    capacity,
		metricsPath: metricsPath,
		clients:     make(map[string]*ratelimit.Bucket),
		stop:        make(chan struct{}),
	}
}

func (rl *RateLimiter) getBucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	bucket, exists := rl.clients[clientIP]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if bucket, exists = rl.clients[clientIP]; !exists {
			bucket = ratelimit.NewBucketWithRate(rl.rate, rl.capacity)
			rl.clients[clientIP] = bucket
		}
		rl.mu.Unlock()
	}

	return bucket
}

// cleanup drops clients whose bucket has refilled completely
func (rl *RateLimiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for ip, bucket := range rl.clients {
		if bucket.Available() == bucket.Capacity() {
			delete(rl.clients, ip)
			removed++
		}
	}
	return removed
}

// StartCleanup runs cleanup every interval until Stop
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-rl.stop:
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) tokenCost(r *http.Request) int64 {
	switch r.URL.Path {
	case rl.metricsPath:
		return 0 // Scrapes must never be throttled
	case "/health":
		return 5
	case "/submit":
		return 50
	}
	return 20
}

// Handler implements rate limiting using token buckets
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCost := rl.tokenCost(r)
		if tokenCost == 0 {
			next.ServeHTTP(w, r)
			return
		}

		bucket := rl.getBucket(r.RemoteAddr)

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.capacity, 10))
		w.Header().Set("X-RateLimit-Rate", strconv.FormatFloat(rl.rate, 'f', -1, 64))

		if bucket.TakeAvailable(tokenCost) < tokenCost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))
		next.ServeHTTP(w, r)
	})
}
