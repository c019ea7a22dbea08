package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediaecomx/dashboard-project/internal/domain"
	"github.com/mediaecomx/dashboard-project/pkg/logger"
)

// RedisSnapshotStore keeps trend samples in a sorted set scored by sample
// timestamp, so range queries and retention trimming are both one command.
type RedisSnapshotStore struct {
	client    *redis.Client
	key       string
	retention time.Duration
	logger    *logger.Logger
}

func NewRedisSnapshotStore(client *redis.Client, key string, retention time.Duration, logger *logger.Logger) *RedisSnapshotStore {
	return &RedisSnapshotStore{
		client:    client,
		key:       key,
		retention: retention,
		logger:    logger,
	}
}

// Append stores one sample per marketer and trims entries past retention.
func (s *RedisSnapshotStore) Append(ctx context.Context, summary map[string]int, ts time.Time) error {
	members := make([]redis.Z, 0, len(summary))
	for marketer, activeUsers := range summary {
		point := domain.TrendPoint{
			Timestamp:   ts,
			Marketer:    marketer,
			ActiveUsers: activeUsers,
		}
		raw, err := json.Marshal(point)
		if err != nil {
			return fmt.Errorf("failed to encode trend point: %w", err)
		}
		members = append(members, redis.Z{
			Score:  float64(ts.UnixMilli()),
			Member: raw,
		})
	}
	if len(members) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, s.key, members...)
	cutoff := ts.Add(-s.retention).UnixMilli()
	pipe.ZRemRangeByScore(ctx, s.key, "-inf", fmt.Sprintf("(%d", cutoff))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append trend snapshot: %w", err)
	}

	return nil
}

// Query returns samples at or after since, in timestamp order.
func (s *RedisSnapshotStore) Query(ctx context.Context, since time.Time) ([]domain.TrendPoint, error) {
	raw, err := s.client.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", since.UnixMilli()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query trend snapshots: %w", err)
	}

	points := make([]domain.TrendPoint, 0, len(raw))
	for _, member := range raw {
		var point domain.TrendPoint
		if err := json.Unmarshal([]byte(member), &point); err != nil {
			// Skip rather than fail the whole trend on one bad member.
			s.logger.WithContext(ctx).WithError(err).Warn("Dropping undecodable trend point")
			continue
		}
		points = append(points, point)
	}

	return points, nil
}

// Ping verifies connectivity at startup.
func (s *RedisSnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
