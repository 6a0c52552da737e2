package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/adreel/api/internal/config"
)

// ErrNoVideoData means the model answered without any media part.
var ErrNoVideoData = errors.New("no video data in response")

// GeneratedClip is raw clip bytes returned by the video model
type GeneratedClip struct {
	Data     []byte
	MIMEType string
}

// VideoModel produces one short clip from a still image and a text prompt
type VideoModel interface {
	GenerateClip(ctx context.Context, image []byte, imageMIMEType, prompt string) (*GeneratedClip, error)
}

// VeoClient calls a Gemini video model
type VeoClient struct {
	client *genai.Client
	model  string
}

// NewVeoClient creates a client. Returns an error when no API key is set.
func NewVeoClient(ctx context.Context, cfg *config.GeminiConfig) (*VeoClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &VeoClient{client: client, model: cfg.VideoModel}, nil
}

// GenerateClip sends the image inline with the prompt and returns the clip
// the model answered with.
func (c *VeoClient) GenerateClip(ctx context.Context, image []byte, imageMIMEType, prompt string) (*GeneratedClip, error) {
	if imageMIMEType == "" {
		imageMIMEType = "image/jpeg"
	}
	model := c.client.GenerativeModel(c.model)

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: imageMIMEType, Data: image},
		genai.Text(prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("video model call failed: %w", err)
	}

	return clipFromResponse(resp)
}

// clipFromResponse returns the first non-empty media part of the first
// candidate that carries one.
func clipFromResponse(resp *genai.GenerateContentResponse) (*GeneratedClip, error) {
	if resp == nil {
		return nil, ErrNoVideoData
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			blob, ok := part.(genai.Blob)
			if !ok || len(blob.Data) == 0 {
				continue
			}
			mimeType := blob.MIMEType
			if mimeType == "" || !strings.HasPrefix(mimeType, "video/") {
				log.WithField("mimeType", mimeType).Debug("Treating model media part as mp4")
				mimeType = "video/mp4"
			}
			return &GeneratedClip{Data: blob.Data, MIMEType: mimeType}, nil
		}
	}
	return nil, ErrNoVideoData
}

// Close releases the underlying connection
func (c *VeoClient) Close() error {
	return c.client.Close()
}
