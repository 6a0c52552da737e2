package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adreel/api/internal/model"
)

const maxWatchRetries = 10

// RedisStore keeps each job as a JSON document and indexes jobs per user in a
// sorted set scored by creation time.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewRedisStore creates a store. A zero ttl keeps jobs forever.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis: redisClient,
		ttl:   ttl,
		now:   time.Now,
	}
}

func jobKey(id string) string {
	return fmt.Sprintf("video:job:%s", id)
}

func userIndexKey(userID string) string {
	return fmt.Sprintf("video:user:%s:jobs", userID)
}

func (s *RedisStore) CreateJob(ctx context.Context, job *model.VideoJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	created, err := s.redis.SetNX(ctx, jobKey(job.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	if !created {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	err = s.redis.ZAdd(ctx, userIndexKey(job.UserID), redis.Z{
		Score:  float64(job.CreatedAt.UnixNano()),
		Member: job.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to index job: %w", err)
	}
	return nil
}

func (s *RedisStore) GetJob(ctx context.Context, id string) (*model.VideoJob, error) {
	data, err := s.redis.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrJobNotFound
		}
		return nil, err
	}
	return decodeJob(data)
}

func (s *RedisStore) ListJobs(ctx context.Context, userID string, limit int) ([]*model.VideoJob, error) {
	ids, err := s.redis.ZRevRange(ctx, userIndexKey(userID), 0, int64(normalizeLimit(limit)-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	jobs := make([]*model.VideoJob, 0, len(ids))
	if len(ids) == 0 {
		return jobs, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = jobKey(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	var expired []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// document expired but the index entry survived
			expired = append(expired, ids[i])
			continue
		}
		job, err := decodeJob([]byte(raw))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if len(expired) > 0 {
		s.redis.ZRem(ctx, userIndexKey(userID), expired...)
	}
	return jobs, nil
}

func (s *RedisStore) SetStatus(ctx context.Context, id string, status model.JobStatus, errorMessage string) (*model.VideoJob, error) {
	return s.mutate(ctx, id, setStatus(status, errorMessage))
}

func (s *RedisStore) SetSegments(ctx context.Context, id string, segments []model.Segment, status model.JobStatus) (*model.VideoJob, error) {
	return s.mutate(ctx, id, setSegments(segments, status))
}

func (s *RedisStore) SetOverlaySpec(ctx context.Context, id string, spec model.OverlaySpec, status model.JobStatus) (*model.VideoJob, error) {
	return s.mutate(ctx, id, setOverlaySpec(spec, status))
}

func (s *RedisStore) SetFinalVideo(ctx context.Context, id, ref string) (*model.VideoJob, error) {
	return s.mutate(ctx, id, setFinalVideo(ref))
}

// mutate performs an optimistic read-modify-write under WATCH so concurrent
// writers never interleave on the same job.
func (s *RedisStore) mutate(ctx context.Context, id string, m mutation) (*model.VideoJob, error) {
	key := jobKey(id)
	var updated *model.VideoJob

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrJobNotFound
			}
			return err
		}
		job, err := decodeJob(data)
		if err != nil {
			return err
		}
		next, err := apply(job, m, s.now())
		if err != nil {
			return err
		}
		out, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.ttl)
			return nil
		})
		if err == nil {
			updated = next
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("job %s: too many concurrent updates", id)
}

func decodeJob(data []byte) (*model.VideoJob, error) {
	var job model.VideoJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
