// Package style holds the visual presets, shot templates and music library
// that drive scene prompts and overlay validation.
package style

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adreel/api/internal/model"
)

//go:embed styles.yaml
var embeddedCatalog []byte

// NoMusic is the track id that selects silence.
const NoMusic = "none"

// Style is a visual preset
type Style struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Prompt      string `yaml:"prompt" json:"-"`
}

// MusicTrack is a selectable background track
type MusicTrack struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

type catalogFile struct {
	DefaultStyle   string            `yaml:"defaultStyle"`
	FallbackPrompt string            `yaml:"fallbackPrompt"`
	Styles         []Style           `yaml:"styles"`
	Roles          map[string]string `yaml:"roles"`
	Subject        struct {
		Words    int    `yaml:"words"`
		Fallback string `yaml:"fallback"`
	} `yaml:"subject"`
	MusicTracks []MusicTrack `yaml:"musicTracks"`
}

// Catalog is an immutable, validated view of a catalog file
type Catalog struct {
	defaultStyle    string
	fallbackPrompt  string
	styles          []Style
	byID            map[string]Style
	roles           map[model.SceneRole]string
	subjectWords    int
	subjectFallback string
	tracks          []MusicTrack
	trackIDs        map[string]bool
}

// Load reads a catalog from path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(embeddedCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style catalog: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in catalog. It panics if the embedded file is
// malformed, which only a broken build can cause.
func Default() *Catalog {
	c, err := Parse(embeddedCatalog)
	if err != nil {
		panic(fmt.Sprintf("style: embedded catalog: %v", err))
	}
	return c
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse style catalog: %w", err)
	}

	c := &Catalog{
		defaultStyle:    f.DefaultStyle,
		fallbackPrompt:  f.FallbackPrompt,
		styles:          f.Styles,
		byID:            make(map[string]Style, len(f.Styles)),
		roles:           make(map[model.SceneRole]string, len(f.Roles)),
		subjectWords:    f.Subject.Words,
		subjectFallback: f.Subject.Fallback,
		tracks:          f.MusicTracks,
		trackIDs:        make(map[string]bool, len(f.MusicTracks)),
	}
	for _, s := range f.Styles {
		if s.ID == "" || s.Prompt == "" {
			return nil, fmt.Errorf("style catalog: style %q needs an id and a prompt", s.ID)
		}
		c.byID[s.ID] = s
	}
	if _, ok := c.byID[c.defaultStyle]; !ok {
		return nil, fmt.Errorf("style catalog: default style %q is not defined", c.defaultStyle)
	}
	for _, role := range model.SceneRoles {
		tmpl, ok := f.Roles[string(role)]
		if !ok || !strings.Contains(tmpl, "{subject}") {
			return nil, fmt.Errorf("style catalog: role %s needs a template containing {subject}", role)
		}
		c.roles[role] = tmpl
	}
	if c.subjectWords <= 0 {
		c.subjectWords = 3
	}
	if c.subjectFallback == "" {
		c.subjectFallback = "product"
	}
	for _, t := range f.MusicTracks {
		c.trackIDs[t.ID] = true
	}
	return c, nil
}

// DefaultStyleID is applied to jobs created without a style.
func (c *Catalog) DefaultStyleID() string {
	return c.defaultStyle
}

// Styles lists the presets in catalog order.
func (c *Catalog) Styles() []Style {
	return append([]Style(nil), c.styles...)
}

// Has reports whether id names a known preset.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// BasePrompt returns the style-wide prompt suffix. Unknown ids get the
// generic cinematic prompt.
func (c *Catalog) BasePrompt(styleID string) string {
	if s, ok := c.byID[styleID]; ok {
		return s.Prompt
	}
	return c.fallbackPrompt
}

// SubjectLabel takes the leading words of the job prompt.
func (c *Catalog) SubjectLabel(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return c.subjectFallback
	}
	if len(words) > c.subjectWords {
		words = words[:c.subjectWords]
	}
	return strings.Join(words, " ")
}

// ScenePrompt composes the full model prompt for one scene: the role's shot
// description followed by the style suffix.
func (c *Catalog) ScenePrompt(styleID string, role model.SceneRole, subject string) string {
	return strings.ReplaceAll(c.roles[role], "{subject}", subject) + c.BasePrompt(styleID)
}

// MusicTracks lists the selectable tracks.
func (c *Catalog) MusicTracks() []MusicTrack {
	return append([]MusicTrack(nil), c.tracks...)
}

// NormalizeMusicTrack validates a track id. The silence track and the empty
// string both normalize to "".
func (c *Catalog) NormalizeMusicTrack(id string) (string, error) {
	if id == "" || id == NoMusic {
		return "", nil
	}
	if !c.trackIDs[id] {
		return "", fmt.Errorf("unknown music track %q", id)
	}
	return id, nil
}
