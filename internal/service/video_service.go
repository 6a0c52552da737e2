package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"github.com/adreel/api/internal/client"
	"github.com/adreel/api/internal/model"
	"github.com/adreel/api/internal/store"
	"github.com/adreel/api/internal/style"
)

const (
	TaskTypeGenerate = "video:generate"
	QueueGeneration  = "generation"

	defaultRenderMaxBytes = 200 * 1024 * 1024
)

// TaskEnqueuer is the subset of *asynq.Client the service needs
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// VideoService manages job records on behalf of users
type VideoService struct {
	store          store.JobStore
	storage        client.StorageClient
	catalog        *style.Catalog
	queue          TaskEnqueuer
	notifier       StatusNotifier
	httpClient     *http.Client
	signedTTL      time.Duration
	renderMaxBytes int64
}

func NewVideoService(
	jobStore store.JobStore,
	storage client.StorageClient,
	catalog *style.Catalog,
	queue TaskEnqueuer,
	notifier StatusNotifier,
	signedTTL time.Duration,
	renderMaxBytes int64,
) *VideoService {
	if signedTTL <= 0 {
		signedTTL = defaultSignedURLTTL
	}
	if renderMaxBytes <= 0 {
		renderMaxBytes = defaultRenderMaxBytes
	}
	return &VideoService{
		store:          jobStore,
		storage:        storage,
		catalog:        catalog,
		queue:          queue,
		notifier:       notifierOrNoop(notifier),
		httpClient:     &http.Client{Timeout: 5 * time.Minute},
		signedTTL:      signedTTL,
		renderMaxBytes: renderMaxBytes,
	}
}

// CreateJob records a new queued job for userID.
func (s *VideoService) CreateJob(ctx context.Context, userID string, req *model.CreateVideoRequest) (*model.VideoJob, error) {
	styleID := req.StyleID
	if styleID == "" {
		styleID = s.catalog.DefaultStyleID()
	}
	if !s.catalog.Has(styleID) {
		return nil, model.JobErrorf(model.KindInvalidInput, "unknown style %q", styleID)
	}
	for _, ref := range append(append([]string{}, req.SourceImages...), req.LogoRef) {
		if ref != "" && !ownsKey(userID, ref) {
			return nil, model.JobErrorf(model.KindInvalidInput, "image %q does not belong to the caller", ref)
		}
	}

	now := time.Now().UTC()
	job := &model.VideoJob{
		ID:           uuid.New().String(),
		UserID:       userID,
		Prompt:       strings.TrimSpace(req.Prompt),
		StyleID:      styleID,
		Status:       model.JobStatusQueued,
		SourceImages: append([]string(nil), req.SourceImages...),
		LogoRef:      req.LogoRef,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	log.WithFields(log.Fields{"jobId": job.ID, "userId": userID, "styleId": styleID}).Info("Video job created")
	return job, nil
}

// GetJob returns the job if it belongs to userID. Other users' jobs look
// missing.
func (s *VideoService) GetJob(ctx context.Context, userID, jobID string) (*model.VideoJob, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, model.ErrJobNotFound
	}
	return job, nil
}

// GetJobView returns the job with signed media URLs.
func (s *VideoService) GetJobView(ctx context.Context, userID, jobID string) (*model.VideoJobView, error) {
	job, err := s.GetJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, job), nil
}

// ListJobs returns the user's jobs, newest first.
func (s *VideoService) ListJobs(ctx context.Context, userID string, limit int) (*model.VideoListResponse, error) {
	jobs, err := s.store.ListJobs(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	views := make([]*model.VideoJobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, s.view(ctx, job))
	}
	return &model.VideoListResponse{Videos: views}, nil
}

// StartGeneration queues a generation run for the job.
func (s *VideoService) StartGeneration(ctx context.Context, userID, jobID string) (*model.GenerateStartResponse, error) {
	job, err := s.GetJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if len(job.SourceImages) == 0 {
		return nil, model.JobErrorf(model.KindInvalidInput, "no input images found")
	}

	task, err := NewGenerateTask(jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	_, err = s.queue.Enqueue(task,
		asynq.Queue(QueueGeneration),
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.GenerateStartResponse{
		JobID:    jobID,
		Status:   job.Status,
		QueuedAt: time.Now().UTC(),
	}, nil
}

// AttachRenderedVideo copies a finished render into storage and completes
// the job.
func (s *VideoService) AttachRenderedVideo(ctx context.Context, userID, jobID, videoURL string) (*model.VideoJob, error) {
	job, err := s.GetJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	if !job.HasSegments() {
		return nil, model.JobErrorf(model.KindNotReady, "job has no generated segments")
	}
	if job.Status != model.JobStatusReadyToRender {
		return nil, model.JobErrorf(model.KindNotReady, "job must be composed before attaching a render, is %s", job.Status)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return nil, model.NewJobError(model.KindInvalidInput, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, model.JobErrorf(model.KindNoPlayableMedia, "failed to fetch rendered video: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, model.JobErrorf(model.KindNoPlayableMedia, "failed to fetch rendered video: status %d", resp.StatusCode)
	}

	if resp.ContentLength > s.renderMaxBytes {
		return nil, model.JobErrorf(model.KindInvalidInput, "rendered video is %d bytes, limit is %d", resp.ContentLength, s.renderMaxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.renderMaxBytes+1))
	if err != nil {
		return nil, model.JobErrorf(model.KindNoPlayableMedia, "failed to read rendered video: %v", err)
	}
	if int64(len(data)) > s.renderMaxBytes {
		return nil, model.JobErrorf(model.KindInvalidInput, "rendered video exceeds %d bytes", s.renderMaxBytes)
	}

	key := fmt.Sprintf("renders/%s/%s.mp4", jobID, uuid.New().String())
	if _, err := s.storage.Upload(ctx, key, bytes.NewReader(data), "video/mp4"); err != nil {
		return nil, model.NewJobError(model.KindPersistenceFailure, err)
	}

	job, err = s.store.SetFinalVideo(ctx, jobID, key)
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyStatus(job)
	log.WithFields(log.Fields{"jobId": jobID, "finalVideoRef": key}).Info("Rendered video attached")
	return job, nil
}

func (s *VideoService) view(ctx context.Context, job *model.VideoJob) *model.VideoJobView {
	v := &model.VideoJobView{VideoJob: job, SourceImageURLs: s.signAll(ctx, job.SourceImages)}
	if len(job.Segments) > 0 {
		v.SegmentURLs = s.signAll(ctx, segmentRefs(job.Segments))
	}
	if job.FinalVideoRef != "" {
		if url, err := s.storage.GetSignedURL(ctx, job.FinalVideoRef, s.signedTTL); err == nil {
			v.FinalVideoURL = url
		}
	}
	return v
}

func (s *VideoService) signAll(ctx context.Context, refs []string) []string {
	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		url, err := s.storage.GetSignedURL(ctx, ref, s.signedTTL)
		if err != nil {
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

// NewGenerateTask builds the queue task for a generation run.
func NewGenerateTask(jobID string) (*asynq.Task, error) {
	data, err := json.Marshal(model.GenerationTaskPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeGenerate, data), nil
}

// ParseGenerateTask reads the job id out of a generation task payload.
func ParseGenerateTask(payload []byte) (string, error) {
	var p model.GenerationTaskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", err
	}
	if p.JobID == "" {
		return "", errors.New("missing jobId")
	}
	return p.JobID, nil
}
