package upload

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const maxFileSize = 10 * 1024 * 1024 // 10MB

var allowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/bmp":  {},
	"image/tiff": {},
}

// AllowedMimeTypes lists the accepted image content types.
func AllowedMimeTypes() []string {
	out := make([]string, 0, len(allowedMimeTypes))
	for t := range allowedMimeTypes {
		out = append(out, t)
	}
	return out
}

// validateImage checks type and size constraints and probes the image
// dimensions.
func validateImage(data []byte, contentType string) (width, height int, err error) {
	if _, ok := allowedMimeTypes[strings.ToLower(contentType)]; !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, contentType)
	}
	if int64(len(data)) > maxFileSize {
		return 0, 0, ErrFileTooLarge
	}
	if len(data) == 0 {
		return 0, 0, ErrInvalidImage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return cfg.Width, cfg.Height, nil
}

// buildObjectPath generates the storage key for a new upload:
// uploads/{user}/{type}/{year}/{month}/{timestamp}_{uuid}{ext}.
func buildObjectPath(userID uuid.UUID, imageType ImageType, originalName string, id uuid.UUID, now time.Time) (objectPath, fileName string) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}

	fileName = fmt.Sprintf("%s_%s%s", now.UTC().Format("20060102_150405"), id.String(), ext)
	objectPath = fmt.Sprintf("uploads/%s/%s/%d/%02d/%s",
		userID.String(), imageType, now.UTC().Year(), int(now.UTC().Month()), fileName)
	return objectPath, fileName
}

// buildProcessedObjectPath is buildObjectPath for background-removed
// output: always PNG, with a _nobg marker in the name.
func buildProcessedObjectPath(userID uuid.UUID, imageType ImageType, id uuid.UUID, now time.Time) (objectPath, fileName string) {
	fileName = fmt.Sprintf("%s_%s_nobg.png", now.UTC().Format("20060102_150405"), id.String())
	objectPath = fmt.Sprintf("uploads/%s/%s/%d/%02d/%s",
		userID.String(), imageType, now.UTC().Year(), int(now.UTC().Month()), fileName)
	return objectPath, fileName
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "upload"
	}
	return name
}
