package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/adreel/api/internal/client"
	"github.com/adreel/api/internal/model"
)

// SceneRequest is everything needed to produce one scene clip
type SceneRequest struct {
	JobID         string
	Role          model.SceneRole
	Prompt        string
	Image         []byte
	ImageMIMEType string
}

// SceneGenerator turns one image and prompt into a stored clip
type SceneGenerator interface {
	Generate(ctx context.Context, req *SceneRequest) (*model.Segment, error)
}

// ModelSceneGenerator calls the video model and stores the result
type ModelSceneGenerator struct {
	model   client.VideoModel
	storage client.StorageClient
}

func NewModelSceneGenerator(videoModel client.VideoModel, storage client.StorageClient) *ModelSceneGenerator {
	return &ModelSceneGenerator{
		model:   videoModel,
		storage: storage,
	}
}

func clipKey(jobID string, role model.SceneRole) string {
	return fmt.Sprintf("clips/%s/%s-%s.mp4", jobID, role, uuid.New().String())
}

// Generate produces and stores one scene clip.
func (g *ModelSceneGenerator) Generate(ctx context.Context, req *SceneRequest) (*model.Segment, error) {
	if g.model == nil {
		return nil, fmt.Errorf("video model not configured")
	}
	logger := log.WithFields(log.Fields{"jobId": req.JobID, "role": req.Role})
	logger.Debugf("Generating scene with prompt: %s", req.Prompt)

	clip, err := g.model.GenerateClip(ctx, req.Image, req.ImageMIMEType, req.Prompt)
	if err != nil {
		if errors.Is(err, client.ErrNoVideoData) {
			return nil, fmt.Errorf("no video data in %s response", req.Role)
		}
		return nil, fmt.Errorf("%s scene: %w", req.Role, err)
	}
	if clip == nil || len(clip.Data) == 0 {
		return nil, fmt.Errorf("no video data in %s response", req.Role)
	}

	key, err := g.storage.Upload(ctx, clipKey(req.JobID, req.Role), bytes.NewReader(clip.Data), clip.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s scene: %w", req.Role, err)
	}
	logger.WithField("clipRef", key).Info("Scene stored")

	return &model.Segment{Role: req.Role, ClipRef: key, Prompt: req.Prompt}, nil
}
