package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adreel/api/internal/model"
)

// MemoryStore keeps jobs in process memory. Used in development and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.VideoJob
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*model.VideoJob),
		now:  time.Now,
	}
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *model.VideoJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id string) (*model.VideoJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryStore) ListJobs(ctx context.Context, userID string, limit int) ([]*model.VideoJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*model.VideoJob, 0)
	for _, job := range s.jobs {
		if job.UserID == userID {
			jobs = append(jobs, job.Clone())
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if n := normalizeLimit(limit); len(jobs) > n {
		jobs = jobs[:n]
	}
	return jobs, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, status model.JobStatus, errorMessage string) (*model.VideoJob, error) {
	return s.mutate(id, setStatus(status, errorMessage))
}

func (s *MemoryStore) SetSegments(ctx context.Context, id string, segments []model.Segment, status model.JobStatus) (*model.VideoJob, error) {
	return s.mutate(id, setSegments(segments, status))
}

func (s *MemoryStore) SetOverlaySpec(ctx context.Context, id string, spec model.OverlaySpec, status model.JobStatus) (*model.VideoJob, error) {
	return s.mutate(id, setOverlaySpec(spec, status))
}

func (s *MemoryStore) SetFinalVideo(ctx context.Context, id, ref string) (*model.VideoJob, error) {
	return s.mutate(id, setFinalVideo(ref))
}

func (s *MemoryStore) mutate(id string, m mutation) (*model.VideoJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	next, err := apply(job, m, s.now())
	if err != nil {
		return nil, err
	}
	s.jobs[id] = next
	return next.Clone(), nil
}
