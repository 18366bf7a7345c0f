package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/x0ba/habithing/internal/database"
	"github.com/x0ba/habithing/internal/models"
	"github.com/x0ba/habithing/internal/request"
)

const defaultRatelimitRate = "5-S"

// RateLimit returns middleware backed by ulule/limiter with a Redis store.
// The rate comes from the database when an operator has set one; otherwise
// defaultRate is used and persisted so it shows up in the admin CLI.
// Clients are keyed by IP via request.ClientIP.
func RateLimit(redisClient *redis.Client, repo *database.RatelimitConfigRepository, defaultRate string) (func(http.Handler) http.Handler, error) {
	if defaultRate == "" {
		defaultRate = defaultRatelimitRate
	}

	ctx := context.Background()
	cfg, err := repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate limit config: %w", err)
	}

	rateStr := defaultRate
	if cfg != nil && cfg.Rate != "" {
		rateStr = cfg.Rate
	} else {
		if err := repo.Set(ctx, &models.RatelimitConfig{Rate: defaultRate}); err != nil {
			return nil, fmt.Errorf("failed to persist default rate limit: %w", err)
		}
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rateStr, err)
	}

	store, err := redisstore.NewStore(redisClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
	}

	instance := limiter.New(store, rate)
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(func(r *http.Request) string {
		return request.ClientIP(r)
	}))
	return mw.Handler, nil
}
