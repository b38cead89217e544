package internal

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/nocturnecity/image-formatter/pkg"
)

//go:embed assets/presets.yaml
var defaultPresets []byte

var ErrPresetNotFound = errors.New("preset not found")

// PresetCatalog is the read-only list of named presets. It is built once and never mutated.
type PresetCatalog struct {
	presets []pkg.Preset
	byName  map[string]int
}

type presetFile struct {
	Presets []pkg.Preset `yaml:"presets"`
}

func DefaultPresetCatalog() (*PresetCatalog, error) {
	return ParsePresetCatalog(defaultPresets)
}

// LoadPresetCatalog reads a catalog from path, or the embedded one when path is empty.
func LoadPresetCatalog(path string) (*PresetCatalog, error) {
	if path == "" {
		return DefaultPresetCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}
	return ParsePresetCatalog(data)
}

func ParsePresetCatalog(data []byte) (*PresetCatalog, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	return NewPresetCatalog(f.Presets)
}

func NewPresetCatalog(presets []pkg.Preset) (*PresetCatalog, error) {
	c := &PresetCatalog{
		presets: make([]pkg.Preset, 0, len(presets)),
		byName:  make(map[string]int, len(presets)),
	}
	for i, p := range presets {
		if err := validatePreset(p); err != nil {
			return nil, fmt.Errorf("presets[%d]: %w", i, err)
		}
		if _, ok := c.byName[p.Name]; ok {
			return nil, fmt.Errorf("presets[%d]: duplicated name %q", i, p.Name)
		}
		c.byName[p.Name] = len(c.presets)
		c.presets = append(c.presets, p)
	}
	return c, nil
}

func validatePreset(p pkg.Preset) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	prop := p.Property
	if prop.Width < 1 || prop.Height < 1 {
		return fmt.Errorf("%s: size %dx%d must be positive", p.Name, prop.Width, prop.Height)
	}
	if _, err := pkg.ParseOutputFormat(string(prop.Format)); err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	if _, err := pkg.ParseBackground(string(prop.Background)); err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	if err := validateDPI(prop.DPI); err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	if err := validateQuality(prop.Quality, prop.Format); err != nil {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	return nil
}

func (c *PresetCatalog) All() []pkg.Preset {
	out := make([]pkg.Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

func (c *PresetCatalog) Len() int { return len(c.presets) }

func (c *PresetCatalog) FindByName(name string) (pkg.Preset, bool) {
	i, ok := c.byName[name]
	if !ok {
		return pkg.Preset{}, false
	}
	return c.presets[i], true
}

// FindMatch returns the first preset equal to cfg in pixels, DPI, quality, format and
// background.
func (c *PresetCatalog) FindMatch(cfg pkg.FormatConfig) (pkg.Preset, bool) {
	for _, p := range c.presets {
		if Matches(p, cfg) {
			return p, true
		}
	}
	return pkg.Preset{}, false
}

func Matches(p pkg.Preset, cfg pkg.FormatConfig) bool {
	return p.Property.Width == cfg.WidthPx &&
		p.Property.Height == cfg.HeightPx &&
		p.Property.DPI == cfg.DPI &&
		p.Property.Quality == cfg.Quality &&
		p.Property.Format == cfg.Format &&
		p.Property.Background == cfg.Background
}

// Search ranks presets by fuzzy match of their names against query. An empty query
// returns the whole catalog in order.
func (c *PresetCatalog) Search(query string) []pkg.Preset {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.All()
	}
	matches := fuzzy.FindFrom(query, presetNames(c.presets))
	out := make([]pkg.Preset, 0, len(matches))
	for _, m := range matches {
		out = append(out, c.presets[m.Index])
	}
	return out
}

type presetNames []pkg.Preset

func (p presetNames) String(i int) string { return strings.ToLower(p[i].Name) }

func (p presetNames) Len() int { return len(p) }
