package main

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	// Utilizes a non-standard nginx code
	statusClosedConnection int = 499

	identityContextKey = "identity"
	tokenContextKey    = "token"
)

func filterError(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := c.Response()
		// Process the request
		err := next(c)
		// The below is executed after the request and subsequent middleware
		if err != nil {
			// Check for a broken pipe, modify response status, and create an error
			if errors.Is(err, syscall.EPIPE) {
				logger(c.Request().Context(), err)
				resp.Status = statusClosedConnection
				return nil
			}
		}
		return err
	}
}

// requireSession gates the view routes. The persisted token is re-read on
// every request; a missing or undecodable token answers 401 with a message
// and the session is already cleared by the controller.
func requireSession(session *SessionController) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			token, identity, err := session.Token(ctx)
			if err != nil {
				logger(ctx, err)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": userMessage(err)})
			}

			// Make the session available to the handler
			c.Set(identityContextKey, identity)
			c.Set(tokenContextKey, token)

			return next(c)
		}
	}
}

func identityFrom(c echo.Context) Identity {
	identity, _ := c.Get(identityContextKey).(Identity)
	return identity
}

func tokenFrom(c echo.Context) string {
	token, _ := c.Get(tokenContextKey).(string)
	return token
}

// loginRateLimit applies a token bucket per client IP to the login route.
func loginRateLimit(perSecond, burst int) echo.MiddlewareFunc {
	type bucket struct {
		lim *rate.Limiter
		ts  time.Time
	}
	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
		ttl     = 5 * time.Minute
	)

	// Drop buckets that have been idle past the TTL
	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for range ticker.C {
			now := time.Now()
			mu.Lock()
			for k, b := range buckets {
				if now.Sub(b.ts) > ttl {
					delete(buckets, k)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := clientIP(c.Request())
			if ip == "" {
				ip = "unknown"
			}

			mu.Lock()
			b, ok := buckets[ip]
			if !ok {
				b = &bucket{lim: rate.NewLimiter(rate.Limit(perSecond), burst)}
				buckets[ip] = b
			}
			b.ts = time.Now()
			mu.Unlock()

			if !b.lim.Allow() {
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "Too many login attempts. Try again shortly."})
			}
			return next(c)
		}
	}
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For support (first IP)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
