package interrogate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/workmate/imagevault/internal/config"
	"github.com/workmate/imagevault/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Client calls an external image interrogation service to caption an
// image. A missing caption is a normal outcome, never an error: every
// failure mode is logged and reported as "no caption".
type Client struct {
	httpClient *http.Client
	url        string
	model      string
	log        *zap.Logger
}

// NewClient builds a captioning client from configuration.
func NewClient(cfg config.InterrogateConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	model := cfg.Model
	if model == "" {
		model = "clip"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        cfg.URL,
		model:      model,
		log:        log,
	}
}

type interrogateRequest struct {
	Image string `json:"image"`
	Model string `json:"model"`
}

type interrogateResponse struct {
	Caption string `json:"caption"`
}

// Interrogate submits the image and returns the generated caption.
// The boolean is false when no caption was produced; the returned
// string is never empty when the boolean is true.
func (c *Client) Interrogate(ctx context.Context, image []byte) (string, bool) {
	if len(image) == 0 {
		c.log.Warn("interrogate called with empty image payload")
		return "", false
	}

	payload := interrogateRequest{
		Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
		Model: c.model,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("encode interrogate request", zap.Error(err))
		return "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		c.log.Error("build interrogate request", zap.String("url", c.url), zap.Error(err))
		return "", false
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.Warn("interrogation request timed out", zap.String("url", c.url))
			metrics.ObserveInterrogate("timeout")
		} else {
			c.log.Warn("could not connect to interrogation service", zap.String("url", c.url), zap.Error(err))
			metrics.ObserveInterrogate("connection_error")
		}
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("interrogation service returned non-success status",
			zap.String("url", c.url),
			zap.Int("status", resp.StatusCode),
		)
		metrics.ObserveInterrogate("bad_status")
		return "", false
	}

	var result interrogateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.log.Warn("decode interrogation response", zap.Error(err))
		metrics.ObserveInterrogate("bad_status")
		return "", false
	}

	caption := strings.TrimSpace(result.Caption)
	if caption == "" {
		c.log.Info("interrogation returned empty caption")
		metrics.ObserveInterrogate("empty")
		return "", false
	}

	c.log.Info("generated image caption", zap.String("caption", caption))
	metrics.ObserveInterrogate("ok")
	return caption, true
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
