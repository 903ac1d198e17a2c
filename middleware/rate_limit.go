package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// loginAttempt tracks failed logins from one IP.
type loginAttempt struct {
	count    int
	firstAt  time.Time
	lockedAt time.Time
	isLocked bool
}

// LoginRateLimiter locks out an IP after repeated failed logins.
type LoginRateLimiter struct {
	mu           sync.Mutex
	attempts     map[string]*loginAttempt
	maxAttempts  int
	windowPeriod time.Duration
	lockDuration time.Duration
}

// NewLoginRateLimiter creates a limiter allowing maxAttempts failures per
// windowPeriod before locking the IP for lockDuration.
func NewLoginRateLimiter(maxAttempts int, windowPeriod, lockDuration time.Duration) *LoginRateLimiter {
	return &LoginRateLimiter{
		attempts:     make(map[string]*loginAttempt),
		maxAttempts:  maxAttempts,
		windowPeriod: windowPeriod,
		lockDuration: lockDuration,
	}
}

// Allow reports whether the IP may attempt a login right now.
func (rl *LoginRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	attempt, ok := rl.attempts[ip]
	if !ok {
		return true
	}

	now := time.Now()
	if attempt.isLocked {
		if now.Sub(attempt.lockedAt) > rl.lockDuration {
			delete(rl.attempts, ip)
			return true
		}
		return false
	}
	if now.Sub(attempt.firstAt) > rl.windowPeriod {
		delete(rl.attempts, ip)
		return true
	}
	return true
}

// RecordFailure registers one failed login and locks the IP when the
// threshold is reached.
func (rl *LoginRateLimiter) RecordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	attempt, ok := rl.attempts[ip]
	if !ok || now.Sub(attempt.firstAt) > rl.windowPeriod {
		rl.attempts[ip] = &loginAttempt{count: 1, firstAt: now}
		return
	}

	attempt.count++
	if attempt.count >= rl.maxAttempts {
		attempt.isLocked = true
		attempt.lockedAt = now
	}
}

// Reset clears the record for an IP after a successful login.
func (rl *LoginRateLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, ip)
}

// LoginRateLimitMiddleware rejects login requests from locked-out IPs.
func LoginRateLimitMiddleware(rl *LoginRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many failed login attempts, try again later",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
