package protocol

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool          `json:"enabled"`
	RequestsPerMinute int           `json:"requests_per_minute"`
	BurstLimit        int           `json:"burst_limit"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// clientLimiter tracks rate limiting for a single client
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	denied   int64
	allowed  int64
}

// RateLimiter enforces per-client request rates with a token bucket.
type RateLimiter struct {
	logger  *logrus.Logger
	clients map[string]*clientLimiter
	config  RateLimitConfig
	mu      sync.Mutex
}

// NewRateLimiter creates a rate limiter with default limits.
func NewRateLimiter(logger *logrus.Logger) *RateLimiter {
	rl := &RateLimiter{
		logger:  logger,
		clients: make(map[string]*clientLimiter),
		config: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
			BurstLimit:        10,
			CleanupInterval:   10 * time.Minute,
		},
	}

	go rl.cleanupLoop()

	return rl
}

// AllowRequest reports whether a request from the given client may proceed.
// Unknown clients are initialized on first use.
func (rl *RateLimiter) AllowRequest(clientID string) bool {
	if !rl.config.Enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, exists := rl.clients[clientID]
	if !exists {
		client = &clientLimiter{
			limiter: rate.NewLimiter(
				rate.Limit(float64(rl.config.RequestsPerMinute)/60.0),
				rl.config.BurstLimit),
		}
		rl.clients[clientID] = client
		rl.logger.WithFields(logrus.Fields{
			"client_id":           clientID,
			"requests_per_minute": rl.config.RequestsPerMinute,
			"burst_limit":         rl.config.BurstLimit,
		}).Debug("Initialized rate limiter for client")
	}
	client.lastSeen = time.Now()

	if !client.limiter.Allow() {
		client.denied++
		rl.logger.WithFields(logrus.Fields{
			"client_id": clientID,
			"denied":    client.denied,
		}).Warn("Request denied: rate limit exceeded")
		return false
	}

	client.allowed++
	return true
}

// RemoveClient removes rate limiting data for a client
func (rl *RateLimiter) RemoveClient(clientID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.clients, clientID)
}

// GetClientStats returns rate limiting statistics for one client, or nil.
func (rl *RateLimiter) GetClientStats(clientID string) map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, exists := rl.clients[clientID]
	if !exists {
		return nil
	}

	return map[string]interface{}{
		"client_id": clientID,
		"allowed":   client.allowed,
		"denied":    client.denied,
		"last_seen": client.lastSeen.Format(time.RFC3339),
	}
}

// GetStats returns overall rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var allowed, denied int64
	for _, client := range rl.clients {
		allowed += client.allowed
		denied += client.denied
	}

	return map[string]interface{}{
		"enabled":             rl.config.Enabled,
		"total_clients":       len(rl.clients),
		"total_allowed":       allowed,
		"total_denied":        denied,
		"requests_per_minute": rl.config.RequestsPerMinute,
		"burst_limit":         rl.config.BurstLimit,
	}
}

// cleanupLoop periodically drops clients that have been idle for over an hour.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-time.Hour)
		removed := 0
		for clientID, client := range rl.clients {
			if client.lastSeen.Before(cutoff) {
				delete(rl.clients, clientID)
				removed++
			}
		}
		rl.mu.Unlock()

		if removed > 0 {
			rl.logger.WithField("cleaned_count", removed).Info("Cleaned up inactive rate limiter data")
		}
	}
}
