package internal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nocturnecity/image-formatter/pkg"
)

var ErrSessionClosed = errors.New("session closed")

type EditorConfig struct {
	DebounceWindow    time.Duration
	MaxPixelDimension int
	Fit               pkg.Fit
}

// RenderOutcome describes how one recompute ended.
type RenderOutcome struct {
	Seq     uint64
	Preview *Preview
	Err     error
	Stale   bool
}

type renderRequest struct {
	seq  uint64
	opts pkg.EncodeOptions
}

// Editor is one editing session over an uploaded image. Edits are applied one at a time;
// the preview is recomputed asynchronously once edits settle, and only the result of the
// newest request is ever installed.
type Editor struct {
	id       string
	source   *SourceImage
	state    *DimensionState
	presets  *PresetCatalog
	renderer Renderer
	preview  *PreviewSlot
	log      *StdLog
	fit      pkg.Fit

	editMu    sync.Mutex
	debouncer *Debouncer[renderRequest]

	mu         sync.Mutex
	seq        uint64
	lastOpts   pkg.EncodeOptions
	selected   string
	lastErr    error
	exported   int64
	closed     bool
	lastAccess time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	onRender   func(RenderOutcome)
}

func NewEditor(src *SourceImage, presets *PresetCatalog, renderer Renderer, blobs *BlobStore, log *StdLog, cfg EditorConfig) (*Editor, error) {
	if src == nil || src.Raster == nil {
		return nil, fmt.Errorf("%w: no source image", ErrInvalidInput)
	}
	state, err := NewDimensionState(src.Width, src.Height, WithMaxPixelDimension(cfg.MaxPixelDimension))
	if err != nil {
		return nil, fmt.Errorf("new editor: %w", err)
	}
	fit, err := pkg.ParseFit(string(cfg.Fit))
	if err != nil {
		return nil, fmt.Errorf("new editor: %w", err)
	}
	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	e := &Editor{
		id:         id,
		source:     src,
		state:      state,
		presets:    presets,
		renderer:   renderer,
		preview:    NewPreviewSlot(blobs),
		log:        log.Named("session " + id[:8]),
		fit:        fit,
		exported:   -1,
		lastAccess: time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}
	e.debouncer = NewDebouncer(cfg.DebounceWindow, e.recompute)
	state.OnChange(e.configChanged)
	liveSessions.Inc()

	e.configChanged(state.Config())
	return e, nil
}

func (e *Editor) ID() string { return e.id }

func (e *Editor) Source() *SourceImage { return e.source }

func (e *Editor) Config() pkg.FormatConfig { return e.state.Config() }

// OnRender registers a hook called after each recompute settles, including discarded ones.
func (e *Editor) OnRender(fn func(RenderOutcome)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRender = fn
}

// Do runs fn against the dimension state as one serialized edit.
func (e *Editor) Do(fn func(*DimensionState) error) error {
	e.editMu.Lock()
	defer e.editMu.Unlock()
	if e.isClosed() {
		return ErrSessionClosed
	}
	e.touch()
	return fn(e.state)
}

func (e *Editor) Apply(req pkg.EditRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	switch {
	case req.Config != nil:
		return e.Do(func(s *DimensionState) error { return s.LoadExternalConfig(*req.Config) })
	case req.Preset != "":
		return e.ApplyPreset(req.Preset)
	case req.Action == pkg.ActionReset:
		return e.Do(func(s *DimensionState) error { s.Reset(); return nil })
	case req.Action == pkg.ActionToggleLock:
		return e.Do(func(s *DimensionState) error { s.ToggleAspectLock(); return nil })
	}
	return e.Do(func(s *DimensionState) error { return applyField(s, req.Field, req.Value) })
}

func applyField(s *DimensionState, field, value string) error {
	switch field {
	case pkg.FieldWidth:
		return s.EditWidth(value)
	case pkg.FieldHeight:
		return s.EditHeight(value)
	case pkg.FieldUnit:
		u, err := pkg.ParseUnit(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return s.SetUnit(u)
	case pkg.FieldDPI:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: dpi %q", ErrInvalidInput, value)
		}
		return s.SetDPI(n)
	case pkg.FieldQuality:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: quality %q", ErrInvalidInput, value)
		}
		return s.SetQuality(n)
	case pkg.FieldFormat:
		f, err := pkg.ParseOutputFormat(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return s.SetFormat(f)
	case pkg.FieldBackground:
		b, err := pkg.ParseBackground(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return s.SetBackground(b)
	}
	return fmt.Errorf("%w: unknown field %q", ErrInvalidInput, field)
}

// ApplyPreset loads the named preset and marks it as the selected one.
func (e *Editor) ApplyPreset(name string) error {
	p, ok := e.presets.FindByName(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return e.Do(func(s *DimensionState) error {
		e.mu.Lock()
		prev := e.selected
		e.selected = p.Name
		e.mu.Unlock()
		if err := s.ApplyPreset(p); err != nil {
			e.mu.Lock()
			e.selected = prev
			e.mu.Unlock()
			return err
		}
		return nil
	})
}

// MatchedPreset is the name of the preset the current configuration equals, if any.
func (e *Editor) MatchedPreset() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

func (e *Editor) Preview() (Preview, bool) { return e.preview.Current() }

func (e *Editor) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Variant records the current configuration as a processed image request.
func (e *Editor) Variant() pkg.ProcessedImage {
	return pkg.NewProcessedImage(e.source.Name, e.source.Path, e.state.Config())
}

func (e *Editor) RecordExport(size int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exported = size
}

// FlushPreview starts the pending recompute without waiting for the quiet window.
func (e *Editor) FlushPreview() bool {
	return e.debouncer.Flush()
}

func (e *Editor) Snapshot() pkg.SessionResponse {
	cfg := e.state.Config()
	e.mu.Lock()
	selected, lastErr, exported := e.selected, e.lastErr, e.exported
	e.mu.Unlock()

	resp := pkg.SessionResponse{
		ID:             e.id,
		Name:           e.source.Name,
		OriginalWidth:  e.source.Width,
		OriginalHeight: e.source.Height,
		AspectRatio:    e.state.AspectRatio(),
		Config:         cfg,
		MatchedPreset:  selected,
		Sizes: pkg.SizeReport{
			Original:   pkg.FormatSize(e.source.Size),
			Current:    pkg.SizeUnavailable,
			Compressed: pkg.SizeUnavailable,
		},
	}
	if p, ok := e.preview.Current(); ok {
		resp.Preview = p.Info()
		resp.Sizes.Current = pkg.FormatSize(p.Size)
	}
	if exported >= 0 {
		resp.Sizes.Compressed = pkg.FormatSize(exported)
	}
	if lastErr != nil {
		resp.LastError = lastErr.Error()
	}
	return resp
}

// Close stops pending work, ignores in-flight encodes and releases the preview.
func (e *Editor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.cancel()
	e.mu.Unlock()

	e.debouncer.Stop()
	e.preview.Release()
	liveSessions.Dec()
	e.log.Debug("closed")
}

func (e *Editor) IdleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAccess
}

func (e *Editor) touch() {
	e.mu.Lock()
	e.lastAccess = time.Now()
	e.mu.Unlock()
}

func (e *Editor) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// configChanged runs synchronously inside a state transition.
func (e *Editor) configChanged(cfg pkg.FormatConfig) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.updateSelected(cfg)
	opts := pkg.EncodeOptionsFor(cfg, e.fit)
	if e.seq > 0 && opts == e.lastOpts {
		e.mu.Unlock()
		return
	}
	e.seq++
	e.lastOpts = opts
	req := renderRequest{seq: e.seq, opts: opts}
	e.mu.Unlock()

	e.debouncer.Push(req)
}

// updateSelected keeps an explicitly chosen preset while it still matches, otherwise
// falls back to the first matching one.
func (e *Editor) updateSelected(cfg pkg.FormatConfig) {
	if e.selected != "" {
		if p, ok := e.presets.FindByName(e.selected); ok && Matches(p, cfg) {
			return
		}
	}
	e.selected = ""
	if p, ok := e.presets.FindMatch(cfg); ok {
		e.selected = p.Name
	}
}

func (e *Editor) recompute(req renderRequest) {
	e.mu.Lock()
	if e.closed || req.seq != e.seq {
		e.mu.Unlock()
		return
	}
	ctx := e.ctx
	e.mu.Unlock()

	recomputes.Inc()
	go func() {
		res, err := e.renderer.ResizeAndEncode(ctx, e.source.Raster, req.opts)
		e.complete(req, res, err)
	}()
}

func (e *Editor) complete(req renderRequest, res *EncodedResult, err error) {
	if err == nil && (res == nil || res.Size == 0) {
		err = fmt.Errorf("%w: renderer returned no data", ErrEncodeFailed)
	}
	outcome := RenderOutcome{Seq: req.seq, Err: err}

	e.mu.Lock()
	switch {
	case e.closed || req.seq != e.seq:
		outcome.Stale = true
		staleCompletions.Inc()
		e.log.Debug("discarding stale render #%d", req.seq)
	case err != nil:
		e.lastErr = err
		e.log.Warn("render #%d failed, keeping previous preview: %v", req.seq, err)
	default:
		p := e.preview.Install(res, req.seq)
		e.lastErr = nil
		outcome.Preview = &p
	}
	hook := e.onRender
	e.mu.Unlock()

	if hook != nil {
		hook(outcome)
	}
}
