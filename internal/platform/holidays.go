package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/covermd/dutyplanner/internal/telemetry"
	"github.com/covermd/dutyplanner/pkg/calendar"
)

// CachedHolidaySource wraps a calendar.HolidaySource with a Redis-backed
// cache. It exists for deployments that load the holiday table from an
// admin API rather than the built-in static table — the cache just saves
// repeated lookups against that source, it never changes scheduling
// semantics (spec.md §4.1).
type CachedHolidaySource struct {
	redis  *redis.Client
	source calendar.HolidaySource
	logger *slog.Logger
}

// NewCachedHolidaySource wraps source with a Redis cache.
func NewCachedHolidaySource(rdb *redis.Client, source calendar.HolidaySource, logger *slog.Logger) *CachedHolidaySource {
	return &CachedHolidaySource{redis: rdb, source: source, logger: logger}
}

// IsHoliday implements calendar.HolidaySource, checking Redis before
// falling back to the wrapped source and populating the cache on miss.
func (c *CachedHolidaySource) IsHoliday(year, month, day int) bool {
	ctx := context.Background()
	key := fmt.Sprintf("dutyplanner:holiday:%04d-%02d-%02d", year, month, day)

	val, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		telemetry.HolidayCacheHitsTotal.WithLabelValues("hit").Inc()
		return val == "1"
	}
	if err != redis.Nil {
		c.logger.Warn("holiday cache read failed", "error", err)
	}

	telemetry.HolidayCacheHitsTotal.WithLabelValues("miss").Inc()
	isHoliday := c.source.IsHoliday(year, month, day)

	if err := c.redis.Set(ctx, key, boolToFlag(isHoliday), 0).Err(); err != nil {
		c.logger.Warn("holiday cache write failed", "error", err)
	}

	return isHoliday
}

func boolToFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
