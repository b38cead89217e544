package pkg

type FormatConfig struct {
	Width      float64       `json:"width" yaml:"width"`
	Height     float64       `json:"height" yaml:"height"`
	WidthPx    int           `json:"width_px" yaml:"width_px"`
	HeightPx   int           `json:"height_px" yaml:"height_px"`
	AspectLock bool          `json:"aspect_lock" yaml:"aspect_lock"`
	Unit       DimensionUnit `json:"unit" yaml:"unit"`
	DPI        int           `json:"dpi" yaml:"dpi"`
	Quality    int           `json:"quality" yaml:"quality"`
	Format     OutputFormat  `json:"format" yaml:"format"`
	Background Background    `json:"background" yaml:"background"`
}

// AspectRatio is the source width over the source height, kept as integers so derived
// sides round from exact products.
type AspectRatio struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

func (a AspectRatio) Float() float64 {
	if a.Den == 0 {
		return 0
	}
	return float64(a.Num) / float64(a.Den)
}

type PresetProperty struct {
	Width      int          `json:"width" yaml:"width"`
	Height     int          `json:"height" yaml:"height"`
	DPI        int          `json:"dpi" yaml:"dpi"`
	Quality    int          `json:"quality" yaml:"quality"`
	Format     OutputFormat `json:"format" yaml:"format"`
	Background Background   `json:"background" yaml:"background"`
}

type Preset struct {
	Name     string         `json:"name" yaml:"name"`
	Property PresetProperty `json:"property" yaml:"property"`
}

// ProcessedImage records the configuration of one requested variant.
type ProcessedImage struct {
	Name       string       `json:"name"`
	SourcePath string       `json:"source_path"`
	WidthPx    int          `json:"width_px"`
	HeightPx   int          `json:"height_px"`
	DPI        int          `json:"dpi"`
	Quality    int          `json:"quality"`
	Format     OutputFormat `json:"format"`
	Background Background   `json:"background"`
}

func NewProcessedImage(name, sourcePath string, cfg FormatConfig) ProcessedImage {
	return ProcessedImage{
		Name:       name,
		SourcePath: sourcePath,
		WidthPx:    cfg.WidthPx,
		HeightPx:   cfg.HeightPx,
		DPI:        cfg.DPI,
		Quality:    cfg.Quality,
		Format:     cfg.Format,
		Background: cfg.Background,
	}
}

type EncodeOptions struct {
	WidthPx    int          `json:"width_px"`
	HeightPx   int          `json:"height_px"`
	Quality    int          `json:"quality"`
	Format     OutputFormat `json:"format"`
	Background Background   `json:"background"`
	Fit        Fit          `json:"fit"`
}

func EncodeOptionsFor(cfg FormatConfig, fit Fit) EncodeOptions {
	return EncodeOptions{
		WidthPx:    cfg.WidthPx,
		HeightPx:   cfg.HeightPx,
		Quality:    cfg.Quality,
		Format:     cfg.Format,
		Background: cfg.Background,
		Fit:        fit,
	}
}

type ResultSize struct {
	Path          string       `json:"path"`
	FileName      string       `json:"file_name"`
	Width         int          `json:"width"`
	Height        int          `json:"height"`
	Format        OutputFormat `json:"format"`
	Size          int64        `json:"size"`
	FormattedSize string       `json:"formatted_size"`
}
