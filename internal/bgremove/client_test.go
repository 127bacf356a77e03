package bgremove

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/workmate/imagevault/internal/config"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestClient(url string) *Client {
	return NewClient(config.BgRemovalConfig{URL: url, Timeout: 5 * time.Second}, zap.NewNop())
}

func TestRemoveReturnsProcessedImage(t *testing.T) {
	processed := encodePNG(t, 3, 2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("model"); got != "silueta" {
			t.Errorf("expected model silueta, got %q", got)
		}
		if got := r.URL.Query().Get("edge_smoothing"); got != "true" {
			t.Errorf("expected edge_smoothing=true, got %q", got)
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(processed)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	out, err := client.Remove(context.Background(), []byte("original-bytes"), Options{Model: "silueta", EdgeSmoothing: true})
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if !bytes.Equal(out.Image, processed) {
		t.Fatalf("processed bytes mismatch")
	}
	if out.Metadata.ProcessedWidth != 3 || out.Metadata.ProcessedHeight != 2 {
		t.Fatalf("unexpected dimensions %dx%d", out.Metadata.ProcessedWidth, out.Metadata.ProcessedHeight)
	}
	if out.Metadata.Model != "silueta" || !out.Metadata.EdgeSmoothing {
		t.Fatalf("metadata does not record processing options: %+v", out.Metadata)
	}
	if out.Metadata.OriginalSize != len("original-bytes") {
		t.Fatalf("unexpected original size %d", out.Metadata.OriginalSize)
	}
}

func TestRemoveRejectsUnknownModel(t *testing.T) {
	client := newTestClient("http://example.invalid")

	_, err := client.Remove(context.Background(), []byte("x"), Options{Model: "dall-e"})
	if !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
}

func TestRemoveServiceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if _, err := client.Remove(context.Background(), []byte("x"), Options{}); err == nil {
		t.Fatalf("expected error on 500 response")
	}
}

func TestValidModel(t *testing.T) {
	for _, m := range AvailableModels() {
		if !ValidModel(m.Name) {
			t.Fatalf("model %q should be valid", m.Name)
		}
	}
	if ValidModel("nope") {
		t.Fatalf("unknown model must be invalid")
	}
}
