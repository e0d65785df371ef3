package middlewares

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// KeyFunc derives the bucket a request counts against.
type KeyFunc func(*gin.Context) string

// OnLimit answers a request that exceeded its bucket.
type OnLimit func(c *gin.Context, retryAfter time.Duration)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	clients map[string]*clientBucket
	now     func() time.Time
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

// maxTrackedClients bounds the bucket map; expired buckets are dropped once it is reached.
const maxTrackedClients = 10000

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

// Allow counts one hit against key and reports how long to wait when the
// bucket is full. A limit <= 0 disables limiting.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	if rl.limit <= 0 {
		return true, 0
	}

	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[key]
	if !ok || !now.Before(b.windowEnd) {
		if !ok && len(rl.clients) >= maxTrackedClients {
			for k, old := range rl.clients {
				if !now.Before(old.windowEnd) {
					delete(rl.clients, k)
				}
			}
		}
		rl.clients[key] = &clientBucket{count: 1, windowEnd: now.Add(rl.window)}
		return true, 0
	}

	if b.count >= rl.limit {
		return false, b.windowEnd.Sub(now)
	}
	b.count++
	return true, 0
}

// Limit rejects requests over the limit with onLimit. Requests whose key
// cannot be derived count against the client IP.
func (rl *RateLimiter) Limit(keyFn KeyFunc, onLimit OnLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			key = clientIP(c)
		}

		ok, wait := rl.Allow(key)
		if ok {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		onLimit(c, wait)
	}
}

// TooManyJSON answers 429 in the flat {"error": "..."} shape of /predict.
func TooManyJSON(c *gin.Context, _ time.Duration) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
}

// TooManyFlash sends browsers back to a form with a warning instead of a bare 429.
func TooManyFlash(path string) OnLimit {
	return func(c *gin.Context, _ time.Duration) {
		SetFlash(c, FlashWarning, "Too many attempts. Please wait a moment and try again.")
		c.Redirect(http.StatusFound, path)
		c.Abort()
	}
}

// KeyByIP is for unauthenticated endpoints such as login and signup.
func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

// KeyByUserOrIP limits signed-in callers per user, anyone else per IP.
func KeyByUserOrIP(c *gin.Context) string {
	if id, ok := UserIDFromContext(c); ok && id != "" {
		return "user:" + id
	}
	return KeyByIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	// strip a port if one slipped through
	if host, _, err := net.SplitHostPort(ip); err == nil && host != "" {
		return host
	}
	return ip
}
