// Package publisher caches the latest analysis snapshot per symbol in Redis
// so sibling services can read current order-flow state without holding a
// websocket open.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Elloy123/imbalance-chart27/internal/instrumentation"
	"github.com/Elloy123/imbalance-chart27/internal/model"
)

// Snapshot is the publisher interface the session writes through. A nil or
// disabled publisher is a no-op.
type Snapshot interface {
	Publish(ctx context.Context, res model.AnalysisResult) error
	Close() error
}

// Redis writes the latest AnalysisResult JSON under analysis:{symbol} with a
// TTL. Writes are throttled: at most one per interval per symbol, keyed on
// tick timestamps so replayed history throttles the same way live data does.
type Redis struct {
	client   *redis.Client
	ttl      time.Duration
	interval time.Duration
	metrics  *instrumentation.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	lastPub map[string]int64 // symbol -> last published tick timestamp (ms)
	writes  int64
}

func NewRedis(redisURL, password string, ttl, interval time.Duration, metrics *instrumentation.Metrics, logger *slog.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if password != "" {
		opt.Password = password
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{
		client:   client,
		ttl:      ttl,
		interval: interval,
		metrics:  metrics,
		logger:   logger.With("component", "snapshot_publisher"),
		lastPub:  make(map[string]int64),
	}, nil
}

// Publish caches one snapshot, skipping silently when the throttle interval
// has not elapsed since the last write for this symbol.
func (r *Redis) Publish(ctx context.Context, res model.AnalysisResult) error {
	r.mu.Lock()
	last := r.lastPub[res.Symbol]
	if res.Timestamp-last < r.interval.Milliseconds() && last != 0 {
		r.mu.Unlock()
		return nil
	}
	r.lastPub[res.Symbol] = res.Timestamp
	r.writes++
	writes := r.writes
	r.mu.Unlock()

	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}

	key := fmt.Sprintf("analysis:%s", res.Symbol)
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		r.metrics.SnapshotError()
		return fmt.Errorf("redis SET failed: %w", err)
	}
	r.metrics.SnapshotWritten()

	if writes%100 == 1 {
		r.logger.Info("snapshot_cached",
			"symbol", res.Symbol,
			"cache_key", key,
			"ttl_sec", r.ttl.Seconds(),
			"size_bytes", len(payload),
		)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Disabled is a Snapshot that publishes nothing, used when no cache URL is
// configured.
type Disabled struct{}

func (Disabled) Publish(context.Context, model.AnalysisResult) error { return nil }
func (Disabled) Close() error                                        { return nil }
