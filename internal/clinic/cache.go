package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/git-bonda108/Dentsi-sub000/pkg/logging"
)

// cacheTTL bounds how stale a cached clinic record can get.
const cacheTTL = 5 * time.Minute

// Source loads clinic records from the system of record.
type Source interface {
	Get(ctx context.Context, id string) (*Clinic, error)
}

// CachedRepository layers a Redis cache over a clinic source. Clinic records
// are read on every call turn, so the cache keeps the hot path off Postgres.
type CachedRepository struct {
	source Source
	redis  *redis.Client
	logger *logging.Logger
}

// NewCachedRepository wraps a source with Redis caching. redisClient may be
// nil; reads then go straight to the source.
func NewCachedRepository(source Source, redisClient *redis.Client, logger *logging.Logger) *CachedRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedRepository{
		source: source,
		redis:  redisClient,
		logger: logger.Component("clinic"),
	}
}

func (r *CachedRepository) key(id string) string {
	return fmt.Sprintf("clinic:record:%s", id)
}

// Get returns the clinic, serving from cache when possible. Cache failures
// fall through to the source.
func (r *CachedRepository) Get(ctx context.Context, id string) (*Clinic, error) {
	if r.redis != nil {
		data, err := r.redis.Get(ctx, r.key(id)).Bytes()
		if err == nil {
			var c Clinic
			if err := json.Unmarshal(data, &c); err == nil {
				return &c, nil
			}
			r.logger.Warn("discarding bad cached clinic record", "clinic_id", id)
		} else if err != redis.Nil {
			r.logger.Warn("clinic cache read failed", "error", err)
		}
	}

	c, err := r.source.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(c); err == nil {
			if err := r.redis.Set(ctx, r.key(id), data, cacheTTL).Err(); err != nil {
				r.logger.Warn("clinic cache write failed", "error", err)
			}
		}
	}
	return c, nil
}

// Invalidate drops a clinic from the cache after an update.
func (r *CachedRepository) Invalidate(ctx context.Context, id string) error {
	if r.redis == nil {
		return nil
	}
	return r.redis.Del(ctx, r.key(id)).Err()
}
