package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// EndpointRateLimiter gives selected route patterns their own per-IP
// budget on top of the global one. Routes are registered before serving,
// so lookups need no locking.
type EndpointRateLimiter struct {
	limiters map[string]*RateLimiter
}

func NewEndpointRateLimiter() *EndpointRateLimiter {
	return &EndpointRateLimiter{limiters: make(map[string]*RateLimiter)}
}

// AddEndpoint limits the route registered as route (gin's FullPath form,
// e.g. "/api/events/:id/interest").
func (e *EndpointRateLimiter) AddEndpoint(route string, limit int, window time.Duration) *EndpointRateLimiter {
	e.limiters[route] = NewRateLimiter(limit, window)
	return e
}

func (e *EndpointRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter, ok := e.limiters[c.FullPath()]
		if ok && !limiter.Allow(c.ClientIP()) {
			rejectRateLimited(c, limiter, "rate limit exceeded for this endpoint")
			return
		}
		c.Next()
	}
}

// AuthRateLimiter allows 5 login or register attempts per minute per IP.
func AuthRateLimiter() gin.HandlerFunc {
	limiter := NewRateLimiter(5, time.Minute)
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			rejectRateLimited(c, limiter, "too many authentication attempts, please try again later")
			return
		}
		c.Next()
	}
}
