// Package timeline describes a composed video as data and evaluates it frame
// by frame. Everything here is pure: no I/O and no shared state.
package timeline

import (
	"fmt"

	"github.com/adreel/api/internal/model"
)

const (
	FPS                 = 30
	Width               = 1080
	Height              = 1920
	SceneCount          = 3
	SceneDurationFrames = 180
	TotalDurationFrames = SceneCount * SceneDurationFrames
)

// SourceKind tells the renderer whether scenes are moving clips or stills
type SourceKind string

const (
	SourceClip  SourceKind = "clip"
	SourceStill SourceKind = "still"
)

// Spec is the fully resolved description of what to render
type Spec struct {
	TotalDurationFrames int               `json:"totalDurationFrames"`
	SceneDurationFrames int               `json:"sceneDurationFrames"`
	FPS                 int               `json:"fps"`
	Width               int               `json:"width"`
	Height              int               `json:"height"`
	SceneKind           SourceKind        `json:"sceneKind"`
	Scenes              []string          `json:"scenes"`
	Overlay             model.OverlaySpec `json:"overlay"`
	StyleID             string            `json:"styleId"`
}

func newSpec(kind SourceKind, sources []string, overlay model.OverlaySpec, styleID string) Spec {
	if len(sources) > SceneCount {
		sources = sources[:SceneCount]
	}
	return Spec{
		TotalDurationFrames: TotalDurationFrames,
		SceneDurationFrames: SceneDurationFrames,
		FPS:                 FPS,
		Width:               Width,
		Height:              Height,
		SceneKind:           kind,
		Scenes:              append([]string(nil), sources...),
		Overlay:             overlay.Clone(),
		StyleID:             styleID,
	}
}

// FromClips builds a spec whose scenes are generated clips in role order.
func FromClips(clips []string, overlay model.OverlaySpec, styleID string) Spec {
	return newSpec(SourceClip, clips, overlay, styleID)
}

// FromStills builds a spec that animates still images. Used only when a job
// has no segments at all.
func FromStills(images []string, overlay model.OverlaySpec, styleID string) Spec {
	return newSpec(SourceStill, images, overlay, styleID)
}

// Validate checks the timing constants a backend relies on.
func (s Spec) Validate() error {
	if s.SceneDurationFrames <= 0 {
		return fmt.Errorf("scene duration must be positive, got %d", s.SceneDurationFrames)
	}
	if s.TotalDurationFrames != SceneCount*s.SceneDurationFrames {
		return fmt.Errorf("total duration %d does not match %d scenes of %d frames",
			s.TotalDurationFrames, SceneCount, s.SceneDurationFrames)
	}
	if len(s.Scenes) > SceneCount {
		return fmt.Errorf("at most %d scenes, got %d", SceneCount, len(s.Scenes))
	}
	if s.SceneKind != SourceClip && s.SceneKind != SourceStill {
		return fmt.Errorf("unknown scene kind %q", s.SceneKind)
	}
	return s.Overlay.Validate()
}
