package bgremove

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	_ "image/png"

	"go.uber.org/zap"

	"github.com/workmate/imagevault/internal/config"
)

const defaultTimeout = 120 * time.Second

// maxResponseSize caps how much of the service response is read.
const maxResponseSize = 64 * 1024 * 1024

// ErrInvalidModel signals an unknown background removal model.
var ErrInvalidModel = fmt.Errorf("invalid background removal model")

// Model describes one removal model offered by the service.
type Model struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var availableModels = []Model{
	{Name: "u2net", Description: "General purpose model with good quality (recommended)"},
	{Name: "u2netp", Description: "Lighter version of u2net, faster processing"},
	{Name: "silueta", Description: "Optimized for people and portraits"},
	{Name: "isnet-general-use", Description: "High accuracy general use model"},
}

// AvailableModels lists the supported removal models.
func AvailableModels() []Model {
	out := make([]Model, len(availableModels))
	copy(out, availableModels)
	return out
}

// ValidModel reports whether name is a supported model.
func ValidModel(name string) bool {
	for _, m := range availableModels {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Options control a removal request.
type Options struct {
	Model         string
	EdgeSmoothing bool
}

// Metadata records what processing was applied. It is persisted in the
// upload's metadata sub-record.
type Metadata struct {
	OriginalSize     int     `json:"original_size"`
	ProcessedSize    int     `json:"processed_size"`
	CompressionRatio float64 `json:"compression_ratio"`
	ProcessedWidth   int     `json:"processed_width"`
	ProcessedHeight  int     `json:"processed_height"`
	Model            string  `json:"model_used"`
	EdgeSmoothing    bool    `json:"edge_smoothing_applied"`
	ProcessedFormat  string  `json:"processed_format"`
}

// Output bundles the processed PNG and its processing metadata.
type Output struct {
	Image    []byte
	Metadata Metadata
}

// Client calls an external background removal service. Unlike the
// enrichment clients, a failure here fails the whole operation: the
// caller asked for background removal, not a best-effort extra.
type Client struct {
	httpClient *http.Client
	url        string
	log        *zap.Logger
}

// NewClient builds a removal client from configuration.
func NewClient(cfg config.BgRemovalConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        cfg.URL,
		log:        log,
	}
}

// Remove submits the image for background removal and returns the
// processed PNG with transparency.
func (c *Client) Remove(ctx context.Context, img []byte, opts Options) (Output, error) {
	if len(img) == 0 {
		return Output{}, fmt.Errorf("empty image payload")
	}
	if opts.Model == "" {
		opts.Model = "u2net"
	}
	if !ValidModel(opts.Model) {
		return Output{}, fmt.Errorf("%w: %s", ErrInvalidModel, opts.Model)
	}

	endpoint, err := url.Parse(c.url)
	if err != nil {
		return Output{}, fmt.Errorf("parse removal service url: %w", err)
	}
	query := endpoint.Query()
	query.Set("model", opts.Model)
	query.Set("edge_smoothing", strconv.FormatBool(opts.EdgeSmoothing))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(img))
	if err != nil {
		return Output{}, fmt.Errorf("build removal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Output{}, fmt.Errorf("call removal service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Output{}, fmt.Errorf("removal service returned status %d", resp.StatusCode)
	}

	processed, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Output{}, fmt.Errorf("read removal response: %w", err)
	}
	if len(processed) == 0 {
		return Output{}, fmt.Errorf("removal service returned empty body")
	}

	meta := Metadata{
		OriginalSize:    len(img),
		ProcessedSize:   len(processed),
		Model:           opts.Model,
		EdgeSmoothing:   opts.EdgeSmoothing,
		ProcessedFormat: "PNG",
	}
	if meta.OriginalSize > 0 {
		meta.CompressionRatio = float64(meta.ProcessedSize) / float64(meta.OriginalSize)
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(processed)); err == nil {
		meta.ProcessedWidth = cfg.Width
		meta.ProcessedHeight = cfg.Height
	} else {
		c.log.Warn("could not decode processed image dimensions", zap.Error(err))
	}

	c.log.Info("background removal completed",
		zap.String("model", opts.Model),
		zap.Int("original_bytes", meta.OriginalSize),
		zap.Int("processed_bytes", meta.ProcessedSize),
	)

	return Output{Image: processed, Metadata: meta}, nil
}
