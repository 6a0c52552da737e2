package model

import (
	"fmt"
	"regexp"
)

const (
	DefaultLogoPosition   = LogoPositionBottomRight
	DefaultPrimaryColor   = "#c72c41"
	DefaultSecondaryColor = "#FFFFFF"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Caption is a text overlay visible from StartFrame through EndFrame inclusive
type Caption struct {
	Text       string `json:"text" validate:"required,max=200"`
	StartFrame int    `json:"startFrame" validate:"min=0"`
	EndFrame   int    `json:"endFrame" validate:"gtfield=StartFrame"`
}

// OverlaySpec holds the user's editing choices layered over the scenes
type OverlaySpec struct {
	Captions       []Caption    `json:"captions"`
	LogoRef        string       `json:"logoRef,omitempty"`
	LogoPosition   LogoPosition `json:"logoPosition"`
	MusicTrack     string       `json:"musicTrack"`
	PrimaryColor   string       `json:"primaryColor"`
	SecondaryColor string       `json:"secondaryColor"`
}

// WithDefaults fills unset presentation fields.
func (s OverlaySpec) WithDefaults() OverlaySpec {
	if s.LogoPosition == "" {
		s.LogoPosition = DefaultLogoPosition
	}
	if s.PrimaryColor == "" {
		s.PrimaryColor = DefaultPrimaryColor
	}
	if s.SecondaryColor == "" {
		s.SecondaryColor = DefaultSecondaryColor
	}
	if s.Captions == nil {
		s.Captions = []Caption{}
	}
	return s
}

// Validate checks caption ranges, logo placement and colors.
func (s OverlaySpec) Validate() error {
	for i, c := range s.Captions {
		if c.StartFrame < 0 || c.EndFrame <= c.StartFrame {
			return fmt.Errorf("caption %d: invalid frame range [%d, %d]", i, c.StartFrame, c.EndFrame)
		}
	}
	if s.LogoPosition != "" && !s.LogoPosition.Valid() {
		return fmt.Errorf("unknown logo position %q", s.LogoPosition)
	}
	for _, color := range []string{s.PrimaryColor, s.SecondaryColor} {
		if color != "" && !hexColorPattern.MatchString(color) {
			return fmt.Errorf("invalid color %q", color)
		}
	}
	return nil
}

func (s OverlaySpec) Clone() OverlaySpec {
	if s.Captions != nil {
		s.Captions = append([]Caption(nil), s.Captions...)
	}
	return s
}

// OverlayUpdate describes how a new overlay is derived from the stored one.
// It is either ReplaceAll or MergeFields.
type OverlayUpdate interface {
	apply(prior OverlaySpec) OverlaySpec
}

// ReplaceAll discards the stored overlay entirely
type ReplaceAll struct {
	Spec OverlaySpec
}

func (u ReplaceAll) apply(OverlaySpec) OverlaySpec {
	return u.Spec.Clone()
}

// MergeFields overrides only the fields that are set. A nil Captions slice
// leaves captions untouched while an empty one clears them.
type MergeFields struct {
	Captions     []Caption
	LogoRef      *string
	LogoPosition *LogoPosition
	MusicTrack   *string
	PrimaryColor *string
}

func (u MergeFields) apply(prior OverlaySpec) OverlaySpec {
	next := prior.Clone()
	if u.Captions != nil {
		next.Captions = append([]Caption{}, u.Captions...)
	}
	if u.LogoRef != nil {
		next.LogoRef = *u.LogoRef
	}
	if u.LogoPosition != nil {
		next.LogoPosition = *u.LogoPosition
	}
	if u.MusicTrack != nil {
		next.MusicTrack = *u.MusicTrack
	}
	if u.PrimaryColor != nil {
		next.PrimaryColor = *u.PrimaryColor
	}
	return next
}

// MergeOverlay derives the effective overlay from the stored spec (which may
// be nil) and an update (which may be nil), then fills defaults.
func MergeOverlay(stored *OverlaySpec, update OverlayUpdate) OverlaySpec {
	var prior OverlaySpec
	if stored != nil {
		prior = stored.Clone()
	}
	if update != nil {
		prior = update.apply(prior)
	}
	return prior.WithDefaults()
}
