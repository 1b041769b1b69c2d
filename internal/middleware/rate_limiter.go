package middleware

import (
	"net/http"
	"sync"
	"time"

	"cochera/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// slidingWindow counts requests per IP over a fixed-length window that resets
// on expiry. Both limiters share this implementation but keep separate state:
// a burst against the API must not lock an operator out of the login.
type slidingWindow struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
}

type windowEntry struct {
	mu        sync.Mutex
	count     int
	windowEnd time.Time
}

func newSlidingWindow() *slidingWindow {
	return &slidingWindow{entries: make(map[string]*windowEntry)}
}

func (w *slidingWindow) allow(ip string, limit int, window time.Duration) (bool, time.Time) {
	w.mu.Lock()
	entry, ok := w.entries[ip]
	if !ok {
		entry = &windowEntry{}
		w.entries[ip] = entry
	}
	w.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	if now.After(entry.windowEnd) {
		entry.count = 0
		entry.windowEnd = now.Add(window)
	}
	entry.count++
	return entry.count <= limit, entry.windowEnd
}

func (w *slidingWindow) purge(now time.Time) (purged, remaining int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ip, entry := range w.entries {
		entry.mu.Lock()
		if now.After(entry.windowEnd) {
			delete(w.entries, ip)
			purged++
		}
		entry.mu.Unlock()
	}
	return purged, len(w.entries)
}

var (
	loginWindow = newSlidingWindow()
	apiWindow   = newSlidingWindow()
)

// loginAttemptsPerMinute is generous for a booth where two or three operators
// may share one public IP, while still stopping credential stuffing.
const loginAttemptsPerMinute = 20

// LoginRateLimiter limits login attempts per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, _ := loginWindow.allow(c.ClientIP(), loginAttemptsPerMinute, time.Minute)
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiados intentos de login. Intente en 1 minuto."))
			return
		}
		c.Next()
	}
}

// RateLimiter is the general per-IP limiter applied to the whole API.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := apiWindow.allow(c.ClientIP(), limit, window)
		if !ok {
			c.Header("Retry-After", windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

// Expired entries are purged periodically so IPs that never return do not
// accumulate forever.

const purgeInterval = 5 * time.Minute

func init() {
	go purgeExpiredEntries()
}

func purgeExpiredEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		purgedLogin, remainingLogin := loginWindow.purge(now)
		purgedAPI, remainingAPI := apiWindow.purge(now)

		if purgedLogin > 0 || purgedAPI > 0 {
			log.Debug().
				Int("login_entries_purged", purgedLogin).
				Int("api_entries_purged", purgedAPI).
				Int("login_entries_remaining", remainingLogin).
				Int("api_entries_remaining", remainingAPI).
				Msg("rate limiter maps purged")
		}
	}
}
