// Package usage meters per-account consumption in Redis with calendar-month
// buckets.
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"deflect.app/relay/internal/deflection"
)

// bucketTTL keeps a month's counters and dedupe keys long enough to cover
// late retries.
const bucketTTL = 40 * 24 * time.Hour

// trackScript increments the counter once per idempotency key. Returns the
// new total, or -1 when the key was already counted.
var trackScript = redis.NewScript(`
if redis.call('SET', KEYS[2], '1', 'NX', 'EX', ARGV[2]) then
	local total = redis.call('INCRBY', KEYS[1], ARGV[1])
	redis.call('EXPIRE', KEYS[1], ARGV[2])
	return total
end
return -1
`)

type RedisMeter struct {
	client *redis.Client
	limits map[string]int64
	now    func() time.Time
}

// NewRedisMeter creates a meter. A meter missing from limits, or with a limit
// of zero or less, is unlimited.
func NewRedisMeter(client *redis.Client, limits map[string]int64) *RedisMeter {
	return &RedisMeter{client: client, limits: limits, now: time.Now}
}

var _ deflection.Quota = (*RedisMeter)(nil)

func (m *RedisMeter) CheckLimit(ctx context.Context, accountID int64, meter string) (deflection.QuotaStatus, error) {
	used, err := m.client.Get(ctx, counterKey(accountID, meter, m.now())).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return deflection.QuotaStatus{}, fmt.Errorf("reading usage counter: %w", err)
	}
	return evaluate(used, m.limits[meter]), nil
}

func (m *RedisMeter) Track(ctx context.Context, accountID int64, meter string, delta int64, key string) error {
	now := m.now()
	keys := []string{counterKey(accountID, meter, now), dedupeKey(accountID, meter, now, key)}

	if err := trackScript.Run(ctx, m.client, keys, delta, int64(bucketTTL.Seconds())).Err(); err != nil {
		return fmt.Errorf("tracking usage: %w", err)
	}
	return nil
}

// Usage returns the current month's count for a meter.
func (m *RedisMeter) Usage(ctx context.Context, accountID int64, meter string) (int64, error) {
	status, err := m.CheckLimit(ctx, accountID, meter)
	if err != nil {
		return 0, err
	}
	return status.Used, nil
}

func evaluate(used, limit int64) deflection.QuotaStatus {
	if limit <= 0 {
		return deflection.QuotaStatus{Allowed: true, Used: used, Limit: limit}
	}
	return deflection.QuotaStatus{Allowed: used < limit, Used: used, Limit: limit}
}

func period(t time.Time) string {
	return t.UTC().Format("200601")
}

func counterKey(accountID int64, meter string, t time.Time) string {
	return fmt.Sprintf("usage:{%d}:%s:%s", accountID, meter, period(t))
}

// dedupeKey shares the counter's hash tag so both keys live on one cluster slot.
func dedupeKey(accountID int64, meter string, t time.Time, key string) string {
	return fmt.Sprintf("usage:{%d}:%s:%s:seen:%s", accountID, meter, period(t), key)
}
