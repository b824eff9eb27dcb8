package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/kswpuk/portal-api/utils"
)

// RateLimiter returns a Gin middleware that limits requests per IP.
// The limit is shared across instances via redis when available and falls
// back to an in-memory store otherwise.
func RateLimiter() gin.HandlerFunc {
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  100,
	}

	var store limiter.Store
	if utils.Rdb != nil {
		var err error
		store, err = redisstore.NewStoreWithOptions(utils.Rdb, limiter.StoreOptions{
			Prefix: "portal:ratelimit",
		})
		if err != nil {
			log.Printf("⚠️ Redis rate limit store unavailable, using memory store: %v", err)
			store = memory.NewStore()
		}
	} else {
		store = memory.NewStore()
	}

	// 📊 Limiter instance
	instance := limiter.New(store, rate)

	// 🚦 Gin-compatible middleware
	return ginlimiter.NewMiddleware(instance)
}
