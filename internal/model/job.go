package model

import (
	"fmt"
	"time"
)

// Segment is one generated scene clip
type Segment struct {
	Role    SceneRole `json:"role"`
	ClipRef string    `json:"clipRef"`
	Prompt  string    `json:"prompt"`
}

// VideoJob is the unit of work tracked through generation and composition
type VideoJob struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	Prompt        string       `json:"prompt"`
	StyleID       string       `json:"styleId"`
	Status        JobStatus    `json:"status"`
	SourceImages  []string     `json:"sourceImages"`
	LogoRef       string       `json:"logoRef,omitempty"`
	Segments      []Segment    `json:"segments,omitempty"`
	OverlaySpec   *OverlaySpec `json:"overlaySpec,omitempty"`
	FinalVideoRef string       `json:"finalVideoRef,omitempty"`
	ErrorMessage  string       `json:"errorMessage,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// HasSegments reports whether generation has produced the full scene set.
func (j *VideoJob) HasSegments() bool {
	return len(j.Segments) == SegmentCount
}

// Validate checks the invariants every persisted job must satisfy.
func (j *VideoJob) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvariantViolation)
	}
	if !j.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvariantViolation, j.Status)
	}
	if len(j.Segments) > 0 {
		if err := ValidateSegments(j.Segments); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
	}
	switch j.Status {
	case JobStatusEditing, JobStatusReadyToRender, JobStatusCompleted:
		if !j.HasSegments() {
			return fmt.Errorf("%w: status %s requires %d segments", ErrInvariantViolation, j.Status, SegmentCount)
		}
	}
	if j.Status == JobStatusFailed && j.ErrorMessage == "" {
		return fmt.Errorf("%w: failed job without error message", ErrInvariantViolation)
	}
	if j.Status == JobStatusCompleted && j.FinalVideoRef == "" {
		return fmt.Errorf("%w: completed job without final video", ErrInvariantViolation)
	}
	if j.Status != JobStatusCompleted && j.FinalVideoRef != "" {
		return fmt.Errorf("%w: final video set on %s job", ErrInvariantViolation, j.Status)
	}
	if j.OverlaySpec != nil {
		if err := j.OverlaySpec.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
		}
	}
	return nil
}

// ValidateSegments checks that segments hold exactly one clip per role.
func ValidateSegments(segments []Segment) error {
	if len(segments) != SegmentCount {
		return fmt.Errorf("expected %d segments, got %d", SegmentCount, len(segments))
	}
	seen := make(map[SceneRole]bool, SegmentCount)
	for _, seg := range segments {
		if seg.Role.Index() < 0 {
			return fmt.Errorf("unknown scene role %q", seg.Role)
		}
		if seen[seg.Role] {
			return fmt.Errorf("duplicate scene role %q", seg.Role)
		}
		if seg.ClipRef == "" {
			return fmt.Errorf("segment %s has no clip", seg.Role)
		}
		seen[seg.Role] = true
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without sharing slices.
func (j *VideoJob) Clone() *VideoJob {
	if j == nil {
		return nil
	}
	cp := *j
	cp.SourceImages = append([]string(nil), j.SourceImages...)
	if j.Segments != nil {
		cp.Segments = append([]Segment(nil), j.Segments...)
	}
	if j.OverlaySpec != nil {
		spec := j.OverlaySpec.Clone()
		cp.OverlaySpec = &spec
	}
	return &cp
}

// GenerationTaskPayload is the queue payload for a generation run
type GenerationTaskPayload struct {
	JobID string `json:"jobId"`
}

// GenerationResult reports the outcome of one generation run
type GenerationResult struct {
	JobID    string    `json:"jobId"`
	Success  bool      `json:"success"`
	Segments []Segment `json:"segments,omitempty"`
	Error    string    `json:"error,omitempty"`
	Kind     ErrorKind `json:"errorKind,omitempty"`
}

// Err returns the failure as a *JobError, or nil on success.
func (r *GenerationResult) Err() error {
	if r.Success {
		return nil
	}
	return &JobError{Kind: r.Kind, Message: r.Error}
}
