package pkg

import "fmt"

// SourceRequest points a new session at an image kept in object storage.
type SourceRequest struct {
	Name       string `json:"name"`
	BucketName string `json:"bucket_name"`
	Key        string `json:"key"`
	Region     string `json:"region"`
}

func (req *SourceRequest) Validate() error {
	if req.BucketName == "" {
		return fmt.Errorf("bucket_name is required field")
	}

	if req.Key == "" {
		return fmt.Errorf("key is required field")
	}

	if req.Region == "" {
		return fmt.Errorf("AWS region is required field")
	}

	return nil
}

const (
	ActionReset      = "reset"
	ActionToggleLock = "toggle_lock"
)

const (
	FieldWidth      = "width"
	FieldHeight     = "height"
	FieldUnit       = "unit"
	FieldDPI        = "dpi"
	FieldQuality    = "quality"
	FieldFormat     = "format"
	FieldBackground = "background"
)

// EditRequest carries exactly one of Field, Action or Preset.
type EditRequest struct {
	Field  string        `json:"field,omitempty"`
	Value  string        `json:"value,omitempty"`
	Action string        `json:"action,omitempty"`
	Preset string        `json:"preset,omitempty"`
	Config *FormatConfig `json:"config,omitempty"`
}

func (req *EditRequest) Validate() error {
	set := 0
	for _, s := range []string{req.Field, req.Action, req.Preset} {
		if s != "" {
			set++
		}
	}
	if req.Config != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("exactly one of field, action, preset or config is required")
	}

	switch req.Field {
	case "", FieldWidth, FieldHeight, FieldUnit, FieldDPI, FieldQuality, FieldFormat, FieldBackground:
	default:
		return fmt.Errorf("unknown field %q", req.Field)
	}

	switch req.Action {
	case "", ActionReset, ActionToggleLock:
	default:
		return fmt.Errorf("unknown action %q", req.Action)
	}

	return nil
}

type Variant struct {
	Name   string `json:"name"`
	Preset string `json:"preset,omitempty"`
	Fit    Fit    `json:"fit,omitempty"`
}

type ExportRequest struct {
	Variants   []Variant `json:"variants"`
	BucketName string    `json:"bucket_name"`
	PathToSave string    `json:"path_to_save"`
	Region     string    `json:"region"`
}

func (req *ExportRequest) Validate() error {
	if len(req.Variants) <= 0 {
		return fmt.Errorf("at least 1 variant required")
	}

	if req.BucketName != "" && req.Region == "" {
		return fmt.Errorf("AWS region is required field when bucket_name is set")
	}

	names := map[string]struct{}{}
	for i, v := range req.Variants {
		if v.Name == "" {
			return fmt.Errorf("variants[%d].name is required field", i)
		}
		if _, ok := names[v.Name]; ok {
			return fmt.Errorf("variants[%d].name %q is duplicated", i, v.Name)
		}
		names[v.Name] = struct{}{}
		if _, err := ParseFit(string(v.Fit)); err != nil {
			return fmt.Errorf("variants[%d].fit: %w", i, err)
		}
	}

	return nil
}
