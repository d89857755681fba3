package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vidria/internal/constants"
	"vidria/internal/logger"
	"vidria/pkg/metrics"
)

// Service suppresses duplicate deliveries of the same detection event.
// Frigate republishes an event on reconnects and the listener retries
// forwarding, so the same (tenant, frigate event, type) tuple can arrive
// more than once within a short window.
//
// Dedup is best-effort: when Redis is unreachable the event is treated as
// new, trading the occasional duplicate alert for never dropping one.
type Service struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewService(client *redis.Client, ttlSeconds int, log logger.Logger) *Service {
	if ttlSeconds <= 0 {
		ttlSeconds = 60
	}
	return &Service{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
		logger: log,
	}
}

// IsDuplicate claims the event's dedup slot. The first caller for a given
// key within the TTL gets false; everyone after gets true.
func (s *Service) IsDuplicate(ctx context.Context, tenantToken, frigateEventID, eventType string) bool {
	if s.client == nil || frigateEventID == "" {
		return false
	}

	key := Key(tenantToken, frigateEventID, eventType)

	claimed, err := s.client.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		s.logger.WarnwCtx(ctx, "Dedup check failed, treating event as new",
			"error", err,
			"key", key,
		)
		metrics.DedupEventsTotal.WithLabelValues("error").Inc()
		return false
	}

	if claimed {
		metrics.DedupEventsTotal.WithLabelValues("miss").Inc()
		return false
	}

	metrics.DedupEventsTotal.WithLabelValues("hit").Inc()
	return true
}

// Key builds the Redis key for one (tenant, frigate event, type) tuple.
func Key(tenantToken, frigateEventID, eventType string) string {
	return fmt.Sprintf("%s%s:%s:%s", constants.CacheKeyPrefixDedup, tenantToken, frigateEventID, eventType)
}
