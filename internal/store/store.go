// Package store persists video jobs. Every write goes through a mutation that
// checks the status transition table and the job invariants before commit,
// so readers never observe a half-updated job.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/adreel/api/internal/model"
)

// JobStore is the persistence contract for video jobs
type JobStore interface {
	CreateJob(ctx context.Context, job *model.VideoJob) error
	GetJob(ctx context.Context, id string) (*model.VideoJob, error)
	ListJobs(ctx context.Context, userID string, limit int) ([]*model.VideoJob, error)
	SetStatus(ctx context.Context, id string, status model.JobStatus, errorMessage string) (*model.VideoJob, error)
	SetSegments(ctx context.Context, id string, segments []model.Segment, status model.JobStatus) (*model.VideoJob, error)
	SetOverlaySpec(ctx context.Context, id string, spec model.OverlaySpec, status model.JobStatus) (*model.VideoJob, error)
	SetFinalVideo(ctx context.Context, id, ref string) (*model.VideoJob, error)
}

// DefaultListLimit caps ListJobs when the caller passes no limit.
const DefaultListLimit = 50

// mutation changes a job in place. Implementations apply it inside their own
// atomic section.
type mutation func(job *model.VideoJob) error

// transition moves job to next, clearing fields that only belong to the old
// status.
func transition(job *model.VideoJob, next model.JobStatus) error {
	if !job.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, job.Status, next)
	}
	job.Status = next
	if next != model.JobStatusFailed {
		job.ErrorMessage = ""
	}
	if next != model.JobStatusCompleted {
		job.FinalVideoRef = ""
	}
	return nil
}

func setStatus(status model.JobStatus, errorMessage string) mutation {
	return func(job *model.VideoJob) error {
		if err := transition(job, status); err != nil {
			return err
		}
		if status == model.JobStatusFailed {
			job.ErrorMessage = errorMessage
		}
		return nil
	}
}

func setSegments(segments []model.Segment, status model.JobStatus) mutation {
	return func(job *model.VideoJob) error {
		if err := model.ValidateSegments(segments); err != nil {
			return fmt.Errorf("%w: %v", model.ErrInvariantViolation, err)
		}
		ordered := make([]model.Segment, model.SegmentCount)
		for _, seg := range segments {
			ordered[seg.Role.Index()] = seg
		}
		if err := transition(job, status); err != nil {
			return err
		}
		job.Segments = ordered
		return nil
	}
}

func setOverlaySpec(spec model.OverlaySpec, status model.JobStatus) mutation {
	return func(job *model.VideoJob) error {
		if status != "" {
			if err := transition(job, status); err != nil {
				return err
			}
		}
		cp := spec.Clone()
		job.OverlaySpec = &cp
		return nil
	}
}

func setFinalVideo(ref string) mutation {
	return func(job *model.VideoJob) error {
		if err := transition(job, model.JobStatusCompleted); err != nil {
			return err
		}
		job.FinalVideoRef = ref
		return nil
	}
}

// apply runs m against a copy of job and returns the copy if every
// invariant still holds.
func apply(job *model.VideoJob, m mutation, now time.Time) (*model.VideoJob, error) {
	next := job.Clone()
	if err := m(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = now
	return next, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}
