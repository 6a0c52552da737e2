package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adreel/api/internal/client"
	"github.com/adreel/api/internal/model"
	"github.com/adreel/api/internal/store"
	"github.com/adreel/api/internal/style"
	"github.com/adreel/api/internal/timeline"
)

const testUser = "user-1"

type fakeGenerator struct {
	storage client.StorageClient
	failOn  model.SceneRole

	mu       sync.Mutex
	requests []*SceneRequest
}

func (g *fakeGenerator) Generate(ctx context.Context, req *SceneRequest) (*model.Segment, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if req.Role == g.failOn {
		return nil, fmt.Errorf("no video data in %s response", req.Role)
	}
	key, err := g.storage.Upload(ctx, fmt.Sprintf("clips/%s/%s.mp4", req.JobID, req.Role), bytes.NewReader([]byte("clip")), "video/mp4")
	if err != nil {
		return nil, err
	}
	return &model.Segment{Role: req.Role, ClipRef: key, Prompt: req.Prompt}, nil
}

func (g *fakeGenerator) prompts() map[model.SceneRole]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[model.SceneRole]string, len(g.requests))
	for _, r := range g.requests {
		out[r.Role] = r.Prompt
	}
	return out
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []model.JobStatus
}

func (n *recordingNotifier) NotifyStatus(job *model.VideoJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, job.Status)
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(q.tasks)), Queue: QueueGeneration}, nil
}

type fixture struct {
	store     *store.MemoryStore
	locker    *store.MemoryLocker
	storage   *client.MemoryStorage
	catalog   *style.Catalog
	generator *fakeGenerator
	notifier  *recordingNotifier
	queue     *fakeQueue

	generation  *GenerationService
	composition *CompositionService
	videos      *VideoService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    store.NewMemoryStore(),
		locker:   store.NewMemoryLocker(),
		storage:  client.NewMemoryStorage("https://media.test"),
		catalog:  style.Default(),
		notifier: &recordingNotifier{},
		queue:    &fakeQueue{},
	}
	f.generator = &fakeGenerator{storage: f.storage}
	f.generation = NewGenerationService(f.store, f.locker, f.storage, f.generator, f.catalog, f.notifier, GenerationOptions{})
	f.composition = NewCompositionService(f.store, f.storage, f.catalog, f.notifier, time.Hour)
	f.videos = NewVideoService(f.store, f.storage, f.catalog, f.queue, f.notifier, time.Hour, 0)
	return f
}

func (f *fixture) uploadImage(t *testing.T, name string) string {
	t.Helper()
	key := fmt.Sprintf("images/%s/product/%s.jpg", testUser, name)
	_, err := f.storage.Upload(context.Background(), key, strings.NewReader("jpeg"), "image/jpeg")
	require.NoError(t, err)
	return key
}

func (f *fixture) createJob(t *testing.T, prompt string, images ...string) *model.VideoJob {
	t.Helper()
	job, err := f.videos.CreateJob(context.Background(), testUser, &model.CreateVideoRequest{
		Prompt:       prompt,
		StyleID:      "vibrant",
		SourceImages: images,
	})
	require.NoError(t, err)
	return job
}

func (f *fixture) generatedJob(t *testing.T) *model.VideoJob {
	t.Helper()
	job := f.createJob(t, "Spicy Ramen Bowl", f.uploadImage(t, "ramen"))
	result := f.generation.RunGeneration(context.Background(), job.ID)
	require.True(t, result.Success, result.Error)
	return job
}

func TestRunGeneration_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.createJob(t, "Spicy Ramen Bowl", f.uploadImage(t, "ramen"))

	result := f.generation.RunGeneration(ctx, job.ID)
	require.True(t, result.Success, result.Error)
	require.Len(t, result.Segments, 3)
	for i, seg := range result.Segments {
		assert.Equal(t, model.SceneRoles[i], seg.Role)
		assert.NotEmpty(t, seg.ClipRef)
	}

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusEditing, stored.Status)
	assert.Empty(t, stored.ErrorMessage)
	assert.Equal(t, []model.JobStatus{model.JobStatusGenerating, model.JobStatusEditing}, f.notifier.statuses)
}

func TestRunGeneration_ScenePrompts(t *testing.T) {
	f := newFixture(t)
	job := f.createJob(t, "Spicy Ramen Bowl with extra chili", f.uploadImage(t, "ramen"))

	result := f.generation.RunGeneration(context.Background(), job.ID)
	require.True(t, result.Success, result.Error)

	prompts := f.generator.prompts()
	require.Len(t, prompts, 3)
	suffix := f.catalog.BasePrompt("vibrant")
	assert.True(t, strings.HasPrefix(prompts[model.SceneRoleIntro], "Close-up hero shot of Spicy Ramen Bowl"))
	assert.True(t, strings.HasPrefix(prompts[model.SceneRoleMain], "Slow panning shot around Spicy Ramen Bowl"))
	assert.True(t, strings.HasPrefix(prompts[model.SceneRoleOutro], "Wide shot of Spicy Ramen Bowl"))
	for role, p := range prompts {
		assert.True(t, strings.HasSuffix(p, suffix), "role %s", role)
	}
}

func TestRunGeneration_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.generator.failOn = model.SceneRoleMain
	ctx := context.Background()
	job := f.createJob(t, "Spicy Ramen Bowl", f.uploadImage(t, "ramen"))

	result := f.generation.RunGeneration(ctx, job.ID)
	assert.False(t, result.Success)
	assert.Equal(t, model.KindGenerationFailure, result.Kind)
	assert.Contains(t, result.Error, "no video data in main response")

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, stored.Status)
	assert.Empty(t, stored.Segments)
	assert.Contains(t, stored.ErrorMessage, "no video data")
}

func TestRunGeneration_NoImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	job := &model.VideoJob{ID: "no-images", UserID: testUser, StyleID: "vibrant", Status: model.JobStatusQueued, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.CreateJob(ctx, job))

	result := f.generation.RunGeneration(ctx, job.ID)
	assert.False(t, result.Success)
	assert.Equal(t, model.KindInvalidInput, result.Kind)
	assert.Equal(t, "no input images found", result.Error)

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, stored.Status)
	assert.Equal(t, "no input images found", stored.ErrorMessage)
	assert.Empty(t, f.generator.prompts())
}

func TestRunGeneration_MissingSourceImage(t *testing.T) {
	f := newFixture(t)
	job := f.createJob(t, "Spicy Ramen Bowl", "images/"+testUser+"/product/missing.jpg")

	result := f.generation.RunGeneration(context.Background(), job.ID)
	assert.Equal(t, model.KindNoPlayableMedia, result.Kind)

	stored, err := f.store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, stored.Status)
}

func TestRunGeneration_ConcurrentRunRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.createJob(t, "Spicy Ramen Bowl", f.uploadImage(t, "ramen"))

	release, ok, err := f.locker.Acquire(ctx, generationLockKey(job.ID), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	result := f.generation.RunGeneration(ctx, job.ID)
	assert.False(t, result.Success)
	assert.Equal(t, model.KindConflict, result.Kind)

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, stored.Status)
	assert.Empty(t, f.notifier.statuses)
}

func TestRunGeneration_NotFound(t *testing.T) {
	f := newFixture(t)
	result := f.generation.RunGeneration(context.Background(), "missing")
	assert.False(t, result.Success)
	assert.Equal(t, model.KindNotFound, result.Kind)
}

func TestRunGeneration_RestartAfterFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generator.failOn = model.SceneRoleOutro
	job := f.createJob(t, "Spicy Ramen Bowl", f.uploadImage(t, "ramen"))
	require.False(t, f.generation.RunGeneration(ctx, job.ID).Success)

	f.generator.failOn = ""
	result := f.generation.RunGeneration(ctx, job.ID)
	require.True(t, result.Success, result.Error)

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusEditing, stored.Status)
	assert.Empty(t, stored.ErrorMessage)
}

func TestPrepareComposition_NotReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.createJob(t, "Spicy Ramen Bowl", f.uploadImage(t, "ramen"))

	result := f.composition.PrepareComposition(ctx, testUser, job.ID, nil)
	assert.False(t, result.Success)
	assert.Equal(t, model.KindNotReady, result.Kind)

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, stored.Status)
}

func TestPrepareComposition_ReadyToRender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.generatedJob(t)

	captions := []model.Caption{{Text: "Hot", StartFrame: 0, EndFrame: 90}}
	result := f.composition.PrepareComposition(ctx, testUser, job.ID, model.MergeFields{Captions: captions})
	require.True(t, result.Success, result.Error)
	require.NotNil(t, result.Timeline)

	spec := result.Timeline
	assert.Equal(t, timeline.SourceClip, spec.SceneKind)
	assert.Len(t, spec.Scenes, 3)
	assert.Equal(t, timeline.TotalDurationFrames, spec.TotalDurationFrames)
	assert.Equal(t, "vibrant", spec.StyleID)
	assert.Equal(t, captions, spec.Overlay.Captions)
	assert.Equal(t, model.DefaultPrimaryColor, spec.Overlay.PrimaryColor)
	assert.True(t, strings.HasPrefix(result.RenderCommand, "npm run video:render -- --props='"))

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusReadyToRender, stored.Status)
	require.NotNil(t, stored.OverlaySpec)
	assert.Equal(t, captions, stored.OverlaySpec.Captions)
}

func TestPrepareComposition_MergeKeepsPriorFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.generatedJob(t)

	color := "#123456"
	_, err := f.composition.UpdateOverlay(ctx, testUser, job.ID, model.MergeFields{PrimaryColor: &color})
	require.NoError(t, err)

	track := "chill"
	result := f.composition.PrepareComposition(ctx, testUser, job.ID, model.MergeFields{MusicTrack: &track})
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "#123456", result.Timeline.Overlay.PrimaryColor)
	assert.Equal(t, "chill", result.Timeline.Overlay.MusicTrack)
}

func TestPrepareComposition_InvalidInputLeavesJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.generatedJob(t)

	track := "polka"
	result := f.composition.PrepareComposition(ctx, testUser, job.ID, model.MergeFields{MusicTrack: &track})
	assert.Equal(t, model.KindInvalidInput, result.Kind)

	bad := []model.Caption{{Text: "x", StartFrame: 30, EndFrame: 30}}
	result = f.composition.PrepareComposition(ctx, testUser, job.ID, model.MergeFields{Captions: bad})
	assert.Equal(t, model.KindInvalidInput, result.Kind)

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusEditing, stored.Status)
	assert.Nil(t, stored.OverlaySpec)
}

func TestPrepareComposition_NoPlayableMedia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.generatedJob(t)

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	for _, seg := range stored.Segments {
		require.NoError(t, f.storage.Delete(ctx, seg.ClipRef))
	}

	result := f.composition.PrepareComposition(ctx, testUser, job.ID, nil)
	assert.Equal(t, model.KindNoPlayableMedia, result.Kind)
	assert.Equal(t, "no valid video segment URLs found", result.Error)

	stored, err = f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, stored.Status)
	assert.Len(t, stored.Segments, 3)
}

func TestPrepareComposition_DropsUnresolvableLogo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.generatedJob(t)

	logo := "images/" + testUser + "/logo/gone.png"
	result := f.composition.PrepareComposition(ctx, testUser, job.ID, model.MergeFields{LogoRef: &logo})
	require.True(t, result.Success, result.Error)
	assert.Empty(t, result.Timeline.Overlay.LogoRef)

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, logo, stored.OverlaySpec.LogoRef)
}

func TestUpdateOverlay_KeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.generatedJob(t)

	updated, err := f.composition.UpdateOverlay(ctx, testUser, job.ID, model.ReplaceAll{Spec: model.OverlaySpec{MusicTrack: "none"}})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusEditing, updated.Status)
	assert.Equal(t, "", updated.OverlaySpec.MusicTrack)
	assert.Equal(t, model.DefaultLogoPosition, updated.OverlaySpec.LogoPosition)
}

func TestPreviewTimeline_StillFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.createJob(t, "Spicy Ramen Bowl", f.uploadImage(t, "a"), f.uploadImage(t, "b"))

	spec, err := f.composition.PreviewTimeline(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, timeline.SourceStill, spec.SceneKind)
	assert.Len(t, spec.Scenes, 2)

	state, err := f.composition.EvaluateFrame(ctx, job.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, 1, state.SceneIndex)

	_, err = f.composition.EvaluateFrame(ctx, job.ID, timeline.TotalDurationFrames)
	assert.ErrorIs(t, err, timeline.ErrFrameOutOfRange)

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, stored.Status)
}

func TestVideoService_CreateAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.videos.CreateJob(ctx, testUser, &model.CreateVideoRequest{
		Prompt:       "  Spicy Ramen Bowl ",
		SourceImages: []string{f.uploadImage(t, "ramen")},
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, "vibrant", job.StyleID)
	assert.Equal(t, "Spicy Ramen Bowl", job.Prompt)

	_, err = f.videos.GetJob(ctx, "someone-else", job.ID)
	assert.ErrorIs(t, err, model.ErrJobNotFound)

	view, err := f.videos.GetJobView(ctx, testUser, job.ID)
	require.NoError(t, err)
	require.Len(t, view.SourceImageURLs, 1)
	assert.True(t, strings.HasPrefix(view.SourceImageURLs[0], "https://media.test/images/"))

	_, err = f.videos.CreateJob(ctx, testUser, &model.CreateVideoRequest{
		StyleID:      "baroque",
		SourceImages: []string{"images/" + testUser + "/product/x.jpg"},
	})
	assert.Equal(t, model.KindInvalidInput, model.KindOf(err))

	_, err = f.videos.CreateJob(ctx, testUser, &model.CreateVideoRequest{
		SourceImages: []string{"images/other/product/x.jpg"},
	})
	assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
}

func TestVideoService_ListNewestFirst(t *testing.T) {
	f := newFixture(t)
	img := f.uploadImage(t, "ramen")
	first := f.createJob(t, "first", img)
	time.Sleep(time.Millisecond)
	second := f.createJob(t, "second", img)

	list, err := f.videos.ListJobs(context.Background(), testUser, 0)
	require.NoError(t, err)
	require.Len(t, list.Videos, 2)
	assert.Equal(t, second.ID, list.Videos[0].ID)
	assert.Equal(t, first.ID, list.Videos[1].ID)
}

func TestVideoService_StartGeneration(t *testing.T) {
	f := newFixture(t)
	job := f.createJob(t, "Spicy Ramen Bowl", f.uploadImage(t, "ramen"))

	resp, err := f.videos.StartGeneration(context.Background(), testUser, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, resp.JobID)
	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, TaskTypeGenerate, f.queue.tasks[0].Type())

	id, err := ParseGenerateTask(f.queue.tasks[0].Payload())
	require.NoError(t, err)
	assert.Equal(t, job.ID, id)

	f.queue.err = errors.New("redis down")
	_, err = f.videos.StartGeneration(context.Background(), testUser, job.ID)
	assert.Error(t, err)
}

func TestParseGenerateTask_MissingJobID(t *testing.T) {
	_, err := ParseGenerateTask([]byte(`{}`))
	assert.Error(t, err)
	_, err = ParseGenerateTask([]byte(`not json`))
	assert.Error(t, err)
}

func TestVideoService_AttachRenderedNotReady(t *testing.T) {
	f := newFixture(t)
	job := f.generatedJob(t)

	_, err := f.videos.AttachRenderedVideo(context.Background(), testUser, job.ID, "http://127.0.0.1:1/video.mp4")
	assert.Equal(t, model.KindNotReady, model.KindOf(err))
}

func TestVideoService_AttachRenderedSizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		chunked bool
		wantErr bool
	}{
		{name: "declared length over limit", size: 100, wantErr: true},
		{name: "streamed body over limit", size: 100, chunked: true, wantErr: true},
		{name: "exactly at limit", size: 10, chunked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			job := f.generatedJob(t)
			result := f.composition.PrepareComposition(ctx, testUser, job.ID, nil)
			require.True(t, result.Success, result.Error)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body := bytes.Repeat([]byte("v"), tt.size)
				if tt.chunked {
					w.Write(body[:1])
					w.(http.Flusher).Flush()
					body = body[1:]
				}
				w.Write(body)
			}))
			defer srv.Close()

			videos := NewVideoService(f.store, f.storage, f.catalog, f.queue, f.notifier, time.Hour, 10)
			updated, err := videos.AttachRenderedVideo(ctx, testUser, job.ID, srv.URL+"/render.mp4")

			stored, getErr := f.store.GetJob(ctx, job.ID)
			require.NoError(t, getErr)
			if tt.wantErr {
				assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
				assert.Equal(t, model.JobStatusReadyToRender, stored.Status)
				assert.Empty(t, stored.FinalVideoRef)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.JobStatusCompleted, updated.Status)
			data, _, err := f.storage.Download(ctx, updated.FinalVideoRef)
			require.NoError(t, err)
			assert.Len(t, data, tt.size)
		})
	}
}

func TestPrepareComposition_RejectsForeignLogo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.generatedJob(t)

	foreign := "images/other-user/logo/secret.png"
	_, err := f.storage.Upload(ctx, foreign, strings.NewReader("png"), "image/png")
	require.NoError(t, err)

	result := f.composition.PrepareComposition(ctx, testUser, job.ID, model.MergeFields{LogoRef: &foreign})
	assert.False(t, result.Success)
	assert.Equal(t, model.KindInvalidInput, result.Kind)
	assert.Nil(t, result.Timeline)

	_, err = f.composition.UpdateOverlay(ctx, testUser, job.ID, model.ReplaceAll{Spec: model.OverlaySpec{LogoRef: foreign}})
	assert.Equal(t, model.KindInvalidInput, model.KindOf(err))

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusEditing, stored.Status)
	assert.Nil(t, stored.OverlaySpec)
}

func TestPrepareComposition_OtherUserJobNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.generatedJob(t)

	result := f.composition.PrepareComposition(ctx, "other-user", job.ID, nil)
	assert.Equal(t, model.KindNotFound, result.Kind)

	_, err := f.composition.UpdateOverlay(ctx, "other-user", job.ID, nil)
	assert.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestPrepareComposition_KeepsSceneSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := f.generatedJob(t)

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, model.SceneRoleIntro, stored.Segments[0].Role)
	require.NoError(t, f.storage.Delete(ctx, stored.Segments[0].ClipRef))

	result := f.composition.PrepareComposition(ctx, testUser, job.ID, nil)
	require.True(t, result.Success, result.Error)
	require.Len(t, result.Timeline.Scenes, 3)
	assert.Empty(t, result.Timeline.Scenes[0])
	assert.Contains(t, result.Timeline.Scenes[1], "/main.mp4")
	assert.Contains(t, result.Timeline.Scenes[2], "/outro.mp4")

	state, err := timeline.Evaluate(*result.Timeline, 0)
	require.NoError(t, err)
	assert.Nil(t, state.Scene)

	state, err = timeline.Evaluate(*result.Timeline, timeline.SceneDurationFrames)
	require.NoError(t, err)
	require.NotNil(t, state.Scene)
	assert.Contains(t, state.Scene.Source, "/main.mp4")
}

func TestPrepareComposition_JobLogo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	logo := fmt.Sprintf("images/%s/logo/brand.png", testUser)
	_, err := f.storage.Upload(ctx, logo, strings.NewReader("png"), "image/png")
	require.NoError(t, err)
	job, err := f.videos.CreateJob(ctx, testUser, &model.CreateVideoRequest{
		Prompt:       "Spicy Ramen Bowl",
		SourceImages: []string{f.uploadImage(t, "ramen")},
		LogoRef:      logo,
	})
	require.NoError(t, err)
	require.True(t, f.generation.RunGeneration(ctx, job.ID).Success)

	spec, err := f.composition.PreviewTimeline(ctx, job.ID)
	require.NoError(t, err)
	assert.Contains(t, spec.Overlay.LogoRef, "/images/"+testUser+"/logo/brand.png")

	result := f.composition.PrepareComposition(ctx, testUser, job.ID, nil)
	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Timeline.Overlay.LogoRef, "brand.png")

	cleared := ""
	result = f.composition.PrepareComposition(ctx, testUser, job.ID, model.MergeFields{LogoRef: &cleared})
	require.True(t, result.Success, result.Error)
	assert.Empty(t, result.Timeline.Overlay.LogoRef)

	stored, err := f.store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.OverlaySpec.LogoRef)

	spec, err = f.composition.PreviewTimeline(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, spec.Overlay.LogoRef)
}
