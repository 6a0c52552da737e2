package timeline

import (
	"encoding/json"
	"fmt"

	"github.com/adreel/api/internal/model"
)

// RenderProps is the input document the video renderer project accepts
type RenderProps struct {
	SegmentURLs    []string        `json:"segmentUrls"`
	Images         []string        `json:"images"`
	LogoURL        *string         `json:"logoUrl"`
	Captions       []model.Caption `json:"captions"`
	MusicTrack     string          `json:"musicTrack"`
	LogoPosition   string          `json:"logoPosition"`
	PrimaryColor   string          `json:"primaryColor"`
	SecondaryColor string          `json:"secondaryColor"`
	StyleID        string          `json:"styleId"`
}

// Props converts the spec into renderer input.
func (s Spec) Props() RenderProps {
	overlay := s.Overlay.WithDefaults()
	props := RenderProps{
		SegmentURLs:    []string{},
		Images:         []string{},
		Captions:       overlay.Captions,
		MusicTrack:     overlay.MusicTrack,
		LogoPosition:   string(overlay.LogoPosition),
		PrimaryColor:   overlay.PrimaryColor,
		SecondaryColor: overlay.SecondaryColor,
		StyleID:        s.StyleID,
	}
	if s.SceneKind == SourceStill {
		props.Images = append(props.Images, s.Scenes...)
	} else {
		props.SegmentURLs = append(props.SegmentURLs, s.Scenes...)
	}
	if overlay.LogoRef != "" {
		logo := overlay.LogoRef
		props.LogoURL = &logo
	}
	return props
}

// RenderCommand is the shell command that renders the spec locally.
func (s Spec) RenderCommand() (string, error) {
	data, err := json.Marshal(s.Props())
	if err != nil {
		return "", fmt.Errorf("failed to marshal render props: %w", err)
	}
	return fmt.Sprintf("npm run video:render -- --props='%s'", data), nil
}
