package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/adreel/api/internal/model"
	"github.com/adreel/api/internal/timeline"
)

const (
	CaptionSourceAI       = "ai"
	CaptionSourceTemplate = "template"

	captionSystemPrompt = `You write short on-screen captions for a vertical product video with three scenes: intro, main and outro.
Return JSON of the form {"captions": ["...", "...", "..."]} with exactly three captions, one per scene, each at most 40 characters.`
)

var templateCaptions = [timeline.SceneCount]string{
	"Welcome to Your Brand",
	"Amazing Features Await",
	"Get Started Today!",
}

// captionWindows are the frame ranges a suggested caption occupies, one per scene
var captionWindows = [timeline.SceneCount][2]int{
	{0, 150},
	{180, 330},
	{360, 540},
}

// ChatClient is the subset of the Groq client used for captions
type ChatClient interface {
	ChatJSON(ctx context.Context, system, user string) (string, error)
	IsConfigured() bool
}

// CaptionService suggests one caption per scene
type CaptionService struct {
	chat ChatClient
}

func NewCaptionService(chat ChatClient) *CaptionService {
	return &CaptionService{chat: chat}
}

// Suggest writes captions for the job. Without a configured AI client, or
// when the AI answer is unusable, template captions are returned.
func (s *CaptionService) Suggest(ctx context.Context, job *model.VideoJob, req *model.CaptionSuggestRequest) (*model.CaptionSuggestResponse, error) {
	if s.chat == nil || !s.chat.IsConfigured() {
		return templateResponse(), nil
	}

	user := fmt.Sprintf("Product description: %s\nVisual style: %s", job.Prompt, job.StyleID)
	if req != nil && req.Tone != "" {
		user += "\nTone: " + req.Tone
	}

	raw, err := s.chat.ChatJSON(ctx, captionSystemPrompt, user)
	if err != nil {
		log.WithError(err).WithField("jobId", job.ID).Warn("Caption suggestion failed, using templates")
		return templateResponse(), nil
	}
	texts, err := extractCaptions(raw)
	if err != nil {
		log.WithError(err).WithField("jobId", job.ID).Warn("Unusable caption suggestion, using templates")
		return templateResponse(), nil
	}

	return &model.CaptionSuggestResponse{Captions: placeCaptions(texts), Source: CaptionSourceAI}, nil
}

func templateResponse() *model.CaptionSuggestResponse {
	return &model.CaptionSuggestResponse{
		Captions: placeCaptions(templateCaptions[:]),
		Source:   CaptionSourceTemplate,
	}
}

func placeCaptions(texts []string) []model.Caption {
	captions := make([]model.Caption, 0, len(texts))
	for i, text := range texts {
		captions = append(captions, model.Caption{
			Text:       text,
			StartFrame: captionWindows[i][0],
			EndFrame:   captionWindows[i][1],
		})
	}
	return captions
}

// extractCaptions pulls exactly three non-empty captions out of a model reply,
// tolerating text around the JSON object.
func extractCaptions(raw string) ([]string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed struct {
		Captions []string `json:"captions"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse captions: %w", err)
	}
	if len(parsed.Captions) != timeline.SceneCount {
		return nil, fmt.Errorf("expected %d captions but got %d", timeline.SceneCount, len(parsed.Captions))
	}
	texts := make([]string, len(parsed.Captions))
	for i, c := range parsed.Captions {
		texts[i] = strings.TrimSpace(c)
		if texts[i] == "" {
			return nil, fmt.Errorf("caption %d is empty", i)
		}
	}
	return texts, nil
}
