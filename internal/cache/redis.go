package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"booking-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	billingKeyFmt      = "billing:booking:%d"
	billingDirtyKeyFmt = "billing:booking:%d:dirty"

	// TTLs are short because a cached view can lag a concurrent write: a
	// reader that derived its view before an append may still publish it
	// after the invalidation. The dirty marker blocks that reader for the
	// marker window, and the view TTL bounds any write that slips past it.
	billingTTL      = 30 * time.Second
	billingDirtyTTL = 10 * time.Second
)

var client *redis.Client

// Init initializes the Redis connection. The cache is optional: every
// accessor degrades to a no-op when Redis is unavailable, and the billing
// view is always re-derivable from the ledger.
func Init() error {
	host := os.Getenv("REDIS_SERVICE_HOST")
	if host == "" {
		host = "redis"
	}
	port := os.Getenv("REDIS_SERVICE_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetBillingView returns the cached reconciliation view for a booking, or
// nil on miss / cache unavailable.
func GetBillingView(ctx context.Context, bookingID int) *models.BookingBilling {
	if client == nil {
		return nil
	}
	data, err := client.Get(ctx, fmt.Sprintf(billingKeyFmt, bookingID)).Bytes()
	if err != nil {
		return nil
	}
	var view models.BookingBilling
	if err := json.Unmarshal(data, &view); err != nil {
		return nil
	}
	return &view
}

// SetBillingView caches the reconciliation view with a short TTL. The set
// is skipped while the booking's dirty marker is live, and SetNX never
// replaces a view published by a fresher reader.
func SetBillingView(ctx context.Context, view *models.BookingBilling) {
	if client == nil || view == nil {
		return
	}
	if n, err := client.Exists(ctx, fmt.Sprintf(billingDirtyKeyFmt, view.BookingID)).Result(); err != nil || n > 0 {
		return
	}
	data, err := json.Marshal(view)
	if err != nil {
		return
	}
	client.SetNX(ctx, fmt.Sprintf(billingKeyFmt, view.BookingID), data, billingTTL)
}

// InvalidateBilling drops the cached view for a booking and marks it dirty
// for a short window. Called on every ledger append, refund transition, and
// payment capture.
func InvalidateBilling(ctx context.Context, bookingID int) {
	if client == nil {
		return
	}
	pipe := client.TxPipeline()
	pipe.Del(ctx, fmt.Sprintf(billingKeyFmt, bookingID))
	pipe.Set(ctx, fmt.Sprintf(billingDirtyKeyFmt, bookingID), "1", billingDirtyTTL)
	pipe.Exec(ctx)
}
