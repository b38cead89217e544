package internal

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nocturnecity/image-formatter/pkg"
)

const maxParallelVariants = 4

func NewExportHandler(request pkg.ExportRequest, editor *Editor, renderer Renderer, store ObjectStore, presets *PresetCatalog, stdLog *StdLog) *ExportHandler {
	return &ExportHandler{
		Request:  request,
		editor:   editor,
		renderer: renderer,
		store:    store,
		presets:  presets,
		log:      stdLog,
	}
}

// ExportHandler renders the variants of one export request and hands them to the object
// store when a bucket is given.
type ExportHandler struct {
	Request  pkg.ExportRequest
	editor   *Editor
	renderer Renderer
	store    ObjectStore
	presets  *PresetCatalog
	log      *StdLog

	mu       sync.Mutex
	uploaded []string
}

func (h *ExportHandler) ProcessRequest(ctx context.Context) (map[string]pkg.ResultSize, error) {
	h.log.Debug("Processing export %v", h.Request)
	results := make([]pkg.ResultSize, len(h.Request.Variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelVariants)
	for i, v := range h.Request.Variants {
		g.Go(func() error {
			res, err := h.processVariant(gctx, v)
			if err != nil {
				return fmt.Errorf("variant %q: %w", v.Name, err)
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("process request error: %w", err)
	}

	out := make(map[string]pkg.ResultSize, len(results))
	for i, v := range h.Request.Variants {
		out[v.Name] = results[i]
		if v.Preset == "" {
			h.editor.RecordExport(results[i].Size)
		}
	}
	return out, nil
}

func (h *ExportHandler) processVariant(ctx context.Context, v pkg.Variant) (*pkg.ResultSize, error) {
	opts, err := h.optionsFor(v)
	if err != nil {
		return nil, err
	}
	res, err := h.renderer.ResizeAndEncode(ctx, h.editor.Source().Raster, opts)
	if err != nil {
		return nil, err
	}

	fileName := pkg.DownloadFileName(h.editor.Source().Name, opts.WidthPx, opts.HeightPx, opts.Format)
	path := fileName
	if h.Request.PathToSave != "" {
		path = fmt.Sprintf("%s/%s/%s", strings.TrimRight(h.Request.PathToSave, "/"), v.Name, fileName)
	}
	if h.Request.BucketName != "" {
		if h.store == nil {
			return nil, fmt.Errorf("no object store configured")
		}
		err = h.store.Upload(ctx, h.Request.Region, h.Request.BucketName, path, res.MIME, bytes.NewReader(res.Bytes))
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.uploaded = append(h.uploaded, path)
		h.mu.Unlock()
	}

	return &pkg.ResultSize{
		Path:          path,
		FileName:      fileName,
		Width:         res.Width,
		Height:        res.Height,
		Format:        res.Format,
		Size:          res.Size,
		FormattedSize: pkg.FormatSize(res.Size),
	}, nil
}

func (h *ExportHandler) optionsFor(v pkg.Variant) (pkg.EncodeOptions, error) {
	fit, err := pkg.ParseFit(string(v.Fit))
	if err != nil {
		return pkg.EncodeOptions{}, err
	}
	if v.Preset == "" {
		return pkg.EncodeOptionsFor(h.editor.Config(), fit), nil
	}
	p, ok := h.presets.FindByName(v.Preset)
	if !ok {
		return pkg.EncodeOptions{}, fmt.Errorf("%w: %q", ErrPresetNotFound, v.Preset)
	}
	return pkg.EncodeOptions{
		WidthPx:    p.Property.Width,
		HeightPx:   p.Property.Height,
		Quality:    p.Property.Quality,
		Format:     p.Property.Format,
		Background: p.Property.Background,
		Fit:        fit,
	}, nil
}

// CleanupOnError removes whatever this export already uploaded.
func (h *ExportHandler) CleanupOnError(ctx context.Context) {
	h.mu.Lock()
	uploaded := h.uploaded
	h.uploaded = nil
	h.mu.Unlock()
	for _, path := range uploaded {
		if err := h.store.Delete(ctx, h.Request.Region, h.Request.BucketName, path); err != nil {
			h.log.Error("error clean up uploaded file %s: %v", path, err)
		}
	}
}
