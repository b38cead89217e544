package pkg

type ErrorResponse struct {
	Error string `json:"error"`
}

type PreviewInfo struct {
	URL           string `json:"url"`
	Size          int64  `json:"size"`
	FormattedSize string `json:"formatted_size"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	MIME          string `json:"mime"`
}

type SizeReport struct {
	Original   string `json:"original"`
	Current    string `json:"current"`
	Compressed string `json:"compressed"`
}

type SessionResponse struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	OriginalWidth  int          `json:"original_width"`
	OriginalHeight int          `json:"original_height"`
	AspectRatio    AspectRatio  `json:"aspect_ratio"`
	Config         FormatConfig `json:"config"`
	MatchedPreset  string       `json:"matched_preset,omitempty"`
	Preview        *PreviewInfo `json:"preview,omitempty"`
	Sizes          SizeReport   `json:"sizes"`
	LastError      string       `json:"last_error,omitempty"`
}

type VariantResponse struct {
	Image         ProcessedImage `json:"image"`
	TransformURL  string         `json:"transform_url"`
	FileName      string         `json:"file_name"`
	FormattedSize string         `json:"formatted_size"`
}

type ExportResponse struct {
	Sizes map[string]ResultSize `json:"sizes"`
}

type PresetsResponse struct {
	Presets []Preset `json:"presets"`
}
