package timeline

import (
	"errors"

	"github.com/adreel/api/internal/model"
)

// ErrFrameOutOfRange is returned for frames before 0 or at/after the end.
var ErrFrameOutOfRange = errors.New("frame outside timeline")

const (
	LogoPadding  = 40
	LogoSize     = 180
	BarHeight    = 8
	CornerInset  = 20
	CornerSize   = 40
	CornerStroke = 4

	kenBurnsEndScale      = 1.15
	kenBurnsEndTranslateX = 20.0
	captionSlideDistance  = 50.0
)

var (
	captionBreakpoints = []float64{0, 0.1, 0.9, 1}
	captionOffsets     = []float64{captionSlideDistance, 0, 0, -captionSlideDistance}
	captionOpacities   = []float64{0, 1, 1, 0}
)

// VisualState is everything visible on one frame
type VisualState struct {
	Frame      int            `json:"frame"`
	SceneIndex int            `json:"sceneIndex"`
	LocalFrame int            `json:"localFrame"`
	Background Background     `json:"background"`
	Scene      *SceneState    `json:"scene,omitempty"`
	Logo       *LogoState     `json:"logo,omitempty"`
	Captions   []CaptionState `json:"captions"`
	Chrome     Chrome         `json:"chrome"`
}

// SceneState is the active scene source and its camera transform
type SceneState struct {
	Kind       SourceKind `json:"kind"`
	Source     string     `json:"source"`
	Scale      float64    `json:"scale"`
	TranslateX float64    `json:"translateX"`
}

// LogoState places the logo relative to its anchor corner
type LogoState struct {
	Ref      string             `json:"ref"`
	Position model.LogoPosition `json:"position"`
	Padding  int                `json:"padding"`
	Size     int                `json:"size"`
}

// CaptionState is one visible caption
type CaptionState struct {
	Index   int     `json:"index"`
	Text    string  `json:"text"`
	OffsetY float64 `json:"offsetY"`
	Opacity float64 `json:"opacity"`
}

// Chrome is the fixed accent frame drawn on every frame
type Chrome struct {
	Color        string `json:"color"`
	BarHeight    int    `json:"barHeight"`
	CornerInset  int    `json:"cornerInset"`
	CornerSize   int    `json:"cornerSize"`
	CornerStroke int    `json:"cornerStroke"`
}

// SceneIndex maps a frame to its scene slot, clamped to the three slots.
func SceneIndex(frame, sceneDuration int) int {
	idx := frame / sceneDuration
	if idx < 0 {
		return 0
	}
	if idx > SceneCount-1 {
		return SceneCount - 1
	}
	return idx
}

// KenBurns returns the still-image camera move for a local frame.
func KenBurns(localFrame, sceneDuration int) (scale, translateX float64) {
	x := float64(localFrame)
	input := []float64{0, float64(sceneDuration)}
	scale = Interpolate(x, input, []float64{1, kenBurnsEndScale}, EaseInOut)
	translateX = Interpolate(x, input, []float64{0, kenBurnsEndTranslateX}, EaseInOut)
	return scale, translateX
}

// EvaluateCaption reports whether c is visible on frame and, if so, its
// vertical offset and opacity. Both range ends are visible.
func EvaluateCaption(c model.Caption, frame int) (offsetY, opacity float64, visible bool) {
	span := c.EndFrame - c.StartFrame
	if span <= 0 || frame < c.StartFrame || frame > c.EndFrame {
		return 0, 0, false
	}
	p := float64(frame-c.StartFrame) / float64(span)
	offsetY = Interpolate(p, captionBreakpoints, captionOffsets, nil)
	opacity = Interpolate(p, captionBreakpoints, captionOpacities, nil)
	return offsetY, opacity, true
}

// Evaluate computes the visual state of spec at frame.
func Evaluate(spec Spec, frame int) (*VisualState, error) {
	sceneDuration := spec.SceneDurationFrames
	if sceneDuration <= 0 {
		sceneDuration = SceneDurationFrames
	}
	total := spec.TotalDurationFrames
	if total <= 0 {
		total = SceneCount * sceneDuration
	}
	if frame < 0 || frame >= total {
		return nil, ErrFrameOutOfRange
	}

	overlay := spec.Overlay.WithDefaults()
	idx := SceneIndex(frame, sceneDuration)
	local := frame % sceneDuration

	state := &VisualState{
		Frame:      frame,
		SceneIndex: idx,
		LocalFrame: local,
		Background: BackgroundFor(spec.StyleID),
		Captions:   []CaptionState{},
		Chrome: Chrome{
			Color:        overlay.PrimaryColor,
			BarHeight:    BarHeight,
			CornerInset:  CornerInset,
			CornerSize:   CornerSize,
			CornerStroke: CornerStroke,
		},
	}

	if idx < len(spec.Scenes) && spec.Scenes[idx] != "" {
		scene := &SceneState{Kind: spec.SceneKind, Source: spec.Scenes[idx], Scale: 1}
		if spec.SceneKind == SourceStill {
			scene.Scale, scene.TranslateX = KenBurns(local, sceneDuration)
		}
		state.Scene = scene
	}

	if overlay.LogoRef != "" {
		position := overlay.LogoPosition
		if !position.Valid() {
			position = model.DefaultLogoPosition
		}
		state.Logo = &LogoState{Ref: overlay.LogoRef, Position: position, Padding: LogoPadding, Size: LogoSize}
	}

	for i, c := range overlay.Captions {
		offsetY, opacity, ok := EvaluateCaption(c, frame)
		if !ok {
			continue
		}
		state.Captions = append(state.Captions, CaptionState{Index: i, Text: c.Text, OffsetY: offsetY, Opacity: opacity})
	}

	return state, nil
}
