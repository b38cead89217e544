package internal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nocturnecity/image-formatter/pkg"
)

const (
	SizeUnavailable   = "unavailable"
	DefaultCDNTimeout = 30 * time.Second
)

type SizeProbe struct {
	URL       string `json:"url"`
	Bytes     int64  `json:"bytes"`
	Formatted string `json:"formatted"`
	Available bool   `json:"available"`
}

// CDNClient talks to the remote transform API. It only builds request paths and reads
// what comes back.
type CDNClient struct {
	base   string
	client *http.Client
	group  singleflight.Group
	log    *StdLog
}

func NewCDNClient(base string, timeout time.Duration, log *StdLog) *CDNClient {
	if timeout <= 0 {
		timeout = DefaultCDNTimeout
	}
	return &CDNClient{
		base:   base,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

func (c *CDNClient) URL(img pkg.ProcessedImage) string {
	return pkg.TransformPath(c.base, img)
}

// ProbeSize fetches the transformed image and reports its byte size. Failures produce the
// unavailable placeholder instead of an error. Concurrent probes of one URL share a fetch
// that is bounded by the client timeout, not by any single caller's ctx.
func (c *CDNClient) ProbeSize(ctx context.Context, img pkg.ProcessedImage) SizeProbe {
	url := c.URL(img)
	ch := c.group.DoChan(url, func() (interface{}, error) {
		return c.fetchSize(context.WithoutCancel(ctx), url)
	})
	var (
		v      interface{}
		err    error
		shared bool
	)
	select {
	case res := <-ch:
		v, err, shared = res.Val, res.Err, res.Shared
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		sizeProbes.WithLabelValues("error").Inc()
		c.log.Warn("size probe %s: %v", url, err)
		return SizeProbe{URL: url, Formatted: SizeUnavailable}
	}
	sizeProbes.WithLabelValues("ok").Inc()
	n := v.(int64)
	c.log.Debug("size probe %s: %d bytes (shared=%t)", url, n, shared)
	return SizeProbe{URL: url, Bytes: n, Formatted: pkg.FormatSize(n), Available: true}
}

func (c *CDNClient) fetchSize(ctx context.Context, url string) (int64, error) {
	return c.Download(ctx, url, io.Discard)
}

// Download streams url into w and returns the number of bytes written.
func (c *CDNClient) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	response, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.log.Error("error closing CDN response body: %v", err)
		}
	}(response.Body)
	if response.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", response.StatusCode)
	}
	n, err := io.Copy(w, response.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read response body: %w", err)
	}
	return n, nil
}
