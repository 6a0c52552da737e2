package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/adreel/api/internal/client"
	"github.com/adreel/api/internal/model"
	"github.com/adreel/api/internal/store"
	"github.com/adreel/api/internal/style"
)

const (
	defaultLockTTL      = 15 * time.Minute
	defaultSceneTimeout = 10 * time.Minute
)

// GenerationOptions tunes a GenerationService
type GenerationOptions struct {
	LockTTL      time.Duration
	SceneTimeout time.Duration
}

// GenerationService drives one job from its source image to three stored
// scene clips. Scenes are generated concurrently and accepted all-or-nothing.
type GenerationService struct {
	store     store.JobStore
	locker    store.Locker
	storage   client.StorageClient
	generator SceneGenerator
	catalog   *style.Catalog
	notifier  StatusNotifier
	opts      GenerationOptions
}

func NewGenerationService(
	jobStore store.JobStore,
	locker store.Locker,
	storage client.StorageClient,
	generator SceneGenerator,
	catalog *style.Catalog,
	notifier StatusNotifier,
	opts GenerationOptions,
) *GenerationService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if opts.SceneTimeout <= 0 {
		opts.SceneTimeout = defaultSceneTimeout
	}
	return &GenerationService{
		store:     jobStore,
		locker:    locker,
		storage:   storage,
		generator: generator,
		catalog:   catalog,
		notifier:  notifierOrNoop(notifier),
		opts:      opts,
	}
}

func generationLockKey(jobID string) string {
	return "generate:" + jobID
}

// RunGeneration generates the three scenes for a job. It never returns an
// error: failures are recorded on the job and reported in the result.
func (s *GenerationService) RunGeneration(ctx context.Context, jobID string) *model.GenerationResult {
	logger := log.WithField("jobId", jobID)

	release, ok, err := s.locker.Acquire(ctx, generationLockKey(jobID), s.opts.LockTTL)
	if err != nil {
		return s.reject(jobID, model.NewJobError(model.KindPersistenceFailure, err))
	}
	if !ok {
		logger.Warn("Generation already running, rejecting concurrent run")
		return s.reject(jobID, model.JobErrorf(model.KindConflict, "generation already in progress for job %s", jobID))
	}
	defer release()

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return s.reject(jobID, model.JobErrorf(model.KindNotFound, "job %s not found", jobID))
		}
		return s.fail(ctx, jobID, model.NewJobError(model.KindPersistenceFailure, err))
	}

	if len(job.SourceImages) == 0 {
		return s.fail(ctx, jobID, model.JobErrorf(model.KindInvalidInput, "no input images found"))
	}

	job, err = s.store.SetStatus(ctx, jobID, model.JobStatusGenerating, "")
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			return s.reject(jobID, model.NewJobError(model.KindConflict, err))
		}
		return s.fail(ctx, jobID, model.NewJobError(model.KindPersistenceFailure, err))
	}
	s.notifier.NotifyStatus(job)
	logger.Info("Starting scene generation")

	image, mimeType, err := s.storage.Download(ctx, job.SourceImages[0])
	if err != nil {
		return s.fail(ctx, jobID, model.JobErrorf(model.KindNoPlayableMedia, "could not load source image: %v", err))
	}

	segments, err := s.generateScenes(ctx, job, image, mimeType)
	if err != nil {
		return s.fail(ctx, jobID, model.NewJobError(model.KindGenerationFailure, err))
	}

	job, err = s.store.SetSegments(ctx, jobID, segments, model.JobStatusEditing)
	if err != nil {
		return s.fail(ctx, jobID, model.NewJobError(model.KindPersistenceFailure, err))
	}
	s.notifier.NotifyStatus(job)
	logger.Info("Scene generation completed")

	return &model.GenerationResult{JobID: jobID, Success: true, Segments: job.Segments}
}

// generateScenes fans out one call per role. The first failure cancels the
// rest and no partial set is ever returned.
func (s *GenerationService) generateScenes(ctx context.Context, job *model.VideoJob, image []byte, mimeType string) ([]model.Segment, error) {
	subject := s.catalog.SubjectLabel(job.Prompt)
	results := make([]*model.Segment, len(model.SceneRoles))

	g, gctx := errgroup.WithContext(ctx)
	for i, role := range model.SceneRoles {
		i, role := i, role
		req := &SceneRequest{
			JobID:         job.ID,
			Role:          role,
			Prompt:        s.catalog.ScenePrompt(job.StyleID, role, subject),
			Image:         image,
			ImageMIMEType: mimeType,
		}
		g.Go(func() error {
			sceneCtx, cancel := context.WithTimeout(gctx, s.opts.SceneTimeout)
			defer cancel()

			seg, err := s.generator.Generate(sceneCtx, req)
			if err != nil {
				return err
			}
			if seg == nil || seg.ClipRef == "" {
				return fmt.Errorf("no video data in %s response", role)
			}
			seg.Role = role
			results[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	segments := make([]model.Segment, 0, len(results))
	for _, seg := range results {
		if seg != nil {
			segments = append(segments, *seg)
		}
	}
	if len(segments) != model.SegmentCount {
		return nil, fmt.Errorf("expected %d segments but got %d", model.SegmentCount, len(segments))
	}
	return segments, nil
}

// fail records the error on the job and reports it.
func (s *GenerationService) fail(ctx context.Context, jobID string, jobErr *model.JobError) *model.GenerationResult {
	logger := log.WithFields(log.Fields{"jobId": jobID, "kind": jobErr.Kind})
	logger.WithError(jobErr).Error("Generation failed")

	job, err := s.store.SetStatus(context.WithoutCancel(ctx), jobID, model.JobStatusFailed, jobErr.Error())
	if err != nil {
		logger.WithError(err).Error("Failed to record generation failure")
	} else {
		s.notifier.NotifyStatus(job)
	}
	return &model.GenerationResult{JobID: jobID, Error: jobErr.Error(), Kind: jobErr.Kind}
}

// reject reports an error without touching the job.
func (s *GenerationService) reject(jobID string, jobErr *model.JobError) *model.GenerationResult {
	return &model.GenerationResult{JobID: jobID, Error: jobErr.Error(), Kind: jobErr.Kind}
}
