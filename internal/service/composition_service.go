package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/adreel/api/internal/client"
	"github.com/adreel/api/internal/model"
	"github.com/adreel/api/internal/store"
	"github.com/adreel/api/internal/style"
	"github.com/adreel/api/internal/timeline"
)

const defaultSignedURLTTL = time.Hour

// CompositionResult is returned by PrepareComposition
type CompositionResult struct {
	JobID         string          `json:"jobId"`
	Success       bool            `json:"success"`
	Timeline      *timeline.Spec  `json:"timeline,omitempty"`
	RenderCommand string          `json:"renderCommand,omitempty"`
	Error         string          `json:"error,omitempty"`
	Kind          model.ErrorKind `json:"errorKind,omitempty"`
}

// Err returns the failure as a *JobError, or nil on success.
func (r *CompositionResult) Err() error {
	if r.Success {
		return nil
	}
	return &model.JobError{Kind: r.Kind, Message: r.Error}
}

// CompositionService merges overlay choices onto a job and materializes the
// timeline a renderer consumes
type CompositionService struct {
	store     store.JobStore
	storage   client.StorageClient
	catalog   *style.Catalog
	notifier  StatusNotifier
	signedTTL time.Duration
}

func NewCompositionService(jobStore store.JobStore, storage client.StorageClient, catalog *style.Catalog, notifier StatusNotifier, signedTTL time.Duration) *CompositionService {
	if signedTTL <= 0 {
		signedTTL = defaultSignedURLTTL
	}
	return &CompositionService{
		store:     jobStore,
		storage:   storage,
		catalog:   catalog,
		notifier:  notifierOrNoop(notifier),
		signedTTL: signedTTL,
	}
}

// UpdateOverlay saves overlay edits without changing the job status.
func (s *CompositionService) UpdateOverlay(ctx context.Context, userID, jobID string, update model.OverlayUpdate) (*model.VideoJob, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, model.ErrJobNotFound
	}
	if !job.HasSegments() {
		return nil, model.JobErrorf(model.KindNotReady, "job %s has no generated scenes yet", jobID)
	}
	merged, err := s.mergeOverlay(userID, job, update)
	if err != nil {
		return nil, err
	}
	return s.store.SetOverlaySpec(ctx, jobID, merged, "")
}

// PrepareComposition merges overlay choices, marks the job ready to render
// and returns its timeline. Validation problems leave the job untouched.
// Resolution or persistence failures mark it failed.
func (s *CompositionService) PrepareComposition(ctx context.Context, userID, jobID string, update model.OverlayUpdate) *CompositionResult {
	logger := log.WithField("jobId", jobID)

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return s.reject(jobID, model.JobErrorf(model.KindNotFound, "job %s not found", jobID))
		}
		return s.reject(jobID, model.NewJobError(model.KindPersistenceFailure, err))
	}
	if job.UserID != userID {
		return s.reject(jobID, model.JobErrorf(model.KindNotFound, "job %s not found", jobID))
	}
	if !job.HasSegments() {
		return s.reject(jobID, model.JobErrorf(model.KindNotReady, "no video segments found, generate scenes first"))
	}

	merged, err := s.mergeOverlay(userID, job, update)
	if err != nil {
		return s.reject(jobID, asJobError(err, model.KindInvalidInput))
	}

	clips, resolved := s.resolveSlots(ctx, segmentRefs(job.Segments))
	if resolved == 0 {
		return s.fail(ctx, jobID, model.JobErrorf(model.KindNoPlayableMedia, "no valid video segment URLs found"))
	}

	spec := timeline.FromClips(clips, s.renderOverlay(ctx, merged), s.styleFor(job))
	if err := spec.Validate(); err != nil {
		return s.reject(jobID, model.NewJobError(model.KindInvalidInput, err))
	}
	cmd, err := spec.RenderCommand()
	if err != nil {
		return s.reject(jobID, model.NewJobError(model.KindInvalidInput, err))
	}

	job, err = s.store.SetOverlaySpec(ctx, jobID, merged, model.JobStatusReadyToRender)
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			return s.reject(jobID, model.NewJobError(model.KindConflict, err))
		}
		return s.fail(ctx, jobID, model.NewJobError(model.KindPersistenceFailure, err))
	}
	s.notifier.NotifyStatus(job)
	logger.WithField("scenes", resolved).Info("Composition ready to render")

	return &CompositionResult{JobID: jobID, Success: true, Timeline: &spec, RenderCommand: cmd}
}

// PreviewTimeline builds the timeline for the job as it stands, without
// writing anything. Jobs with no segments fall back to their still images.
func (s *CompositionService) PreviewTimeline(ctx context.Context, jobID string) (*timeline.Spec, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	rendered := s.renderOverlay(ctx, effectiveOverlay(job, nil))

	var spec timeline.Spec
	if len(job.Segments) > 0 {
		clips, resolved := s.resolveSlots(ctx, segmentRefs(job.Segments))
		if resolved == 0 {
			return nil, model.JobErrorf(model.KindNoPlayableMedia, "no valid video segment URLs found")
		}
		spec = timeline.FromClips(clips, rendered, s.styleFor(job))
	} else {
		images, resolved := s.resolveSlots(ctx, job.SourceImages)
		if resolved == 0 {
			return nil, model.JobErrorf(model.KindNoPlayableMedia, "no valid image URLs found")
		}
		spec = timeline.FromStills(images, rendered, s.styleFor(job))
	}
	if err := spec.Validate(); err != nil {
		return nil, model.NewJobError(model.KindInvalidInput, err)
	}
	return &spec, nil
}

// EvaluateFrame previews a single frame of the job's timeline.
func (s *CompositionService) EvaluateFrame(ctx context.Context, jobID string, frame int) (*timeline.VisualState, error) {
	spec, err := s.PreviewTimeline(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return timeline.Evaluate(*spec, frame)
}

// effectiveOverlay merges update onto the stored overlay. A job whose
// overlay was never saved starts from the logo it was created with.
func effectiveOverlay(job *model.VideoJob, update model.OverlayUpdate) model.OverlaySpec {
	stored := job.OverlaySpec
	if stored == nil {
		stored = &model.OverlaySpec{LogoRef: job.LogoRef}
	}
	return model.MergeOverlay(stored, update)
}

func (s *CompositionService) mergeOverlay(userID string, job *model.VideoJob, update model.OverlayUpdate) (model.OverlaySpec, error) {
	merged := effectiveOverlay(job, update)
	track, err := s.catalog.NormalizeMusicTrack(merged.MusicTrack)
	if err != nil {
		return model.OverlaySpec{}, model.NewJobError(model.KindInvalidInput, err)
	}
	merged.MusicTrack = track
	if err := merged.Validate(); err != nil {
		return model.OverlaySpec{}, model.NewJobError(model.KindInvalidInput, err)
	}
	if merged.LogoRef != "" && !ownsKey(userID, merged.LogoRef) {
		return model.OverlaySpec{}, model.JobErrorf(model.KindInvalidInput, "logo %q does not belong to the caller", merged.LogoRef)
	}
	return merged, nil
}

// renderOverlay swaps the stored logo key for a URL the renderer can fetch.
func (s *CompositionService) renderOverlay(ctx context.Context, overlay model.OverlaySpec) model.OverlaySpec {
	out := overlay.Clone()
	if out.LogoRef == "" {
		return out
	}
	urls, resolved := s.resolveSlots(ctx, []string{out.LogoRef})
	out.LogoRef = ""
	if resolved == 1 {
		out.LogoRef = urls[0]
	}
	return out
}

// resolveSlots turns storage keys into signed URLs. A key that does not
// resolve leaves an empty slot so later scenes keep their position.
func (s *CompositionService) resolveSlots(ctx context.Context, refs []string) ([]string, int) {
	urls := make([]string, len(refs))
	resolved := 0
	for i, ref := range refs {
		if ref == "" {
			continue
		}
		url, err := s.storage.GetSignedURL(ctx, ref, s.signedTTL)
		if err != nil {
			log.WithField("ref", ref).WithError(err).Warn("Dropping unresolvable media reference")
			continue
		}
		urls[i] = url
		resolved++
	}
	return urls, resolved
}

func (s *CompositionService) styleFor(job *model.VideoJob) string {
	if job.StyleID == "" {
		return s.catalog.DefaultStyleID()
	}
	return job.StyleID
}

func (s *CompositionService) fail(ctx context.Context, jobID string, jobErr *model.JobError) *CompositionResult {
	logger := log.WithFields(log.Fields{"jobId": jobID, "kind": jobErr.Kind})
	logger.WithError(jobErr).Error("Composition failed")

	job, err := s.store.SetStatus(context.WithoutCancel(ctx), jobID, model.JobStatusFailed, jobErr.Error())
	if err != nil {
		logger.WithError(err).Error("Failed to record composition failure")
	} else {
		s.notifier.NotifyStatus(job)
	}
	return &CompositionResult{JobID: jobID, Error: jobErr.Error(), Kind: jobErr.Kind}
}

func (s *CompositionService) reject(jobID string, jobErr *model.JobError) *CompositionResult {
	return &CompositionResult{JobID: jobID, Error: jobErr.Error(), Kind: jobErr.Kind}
}

func segmentRefs(segments []model.Segment) []string {
	refs := make([]string, len(segments))
	for i, seg := range segments {
		refs[i] = seg.ClipRef
	}
	return refs
}

func asJobError(err error, fallback model.ErrorKind) *model.JobError {
	var jobErr *model.JobError
	if errors.As(err, &jobErr) {
		return jobErr
	}
	return model.NewJobError(fallback, err)
}
