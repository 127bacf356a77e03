package upload

import (
	"time"

	"github.com/google/uuid"

	"github.com/workmate/imagevault/internal/bgremove"
)

// ImageType categorizes a stored image.
type ImageType string

const (
	TypeProfile   ImageType = "profile"
	TypeGallery   ImageType = "gallery"
	TypeDocument  ImageType = "document"
	TypeThumbnail ImageType = "thumbnail"
)

// Valid reports whether the image type is one of the known categories.
func (t ImageType) Valid() bool {
	switch t {
	case TypeProfile, TypeGallery, TypeDocument, TypeThumbnail:
		return true
	}
	return false
}

// Status tracks an upload through its lifecycle.
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
	StatusDeleted    Status = "deleted"
)

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusUploading, StatusUploaded, StatusProcessing, StatusProcessed, StatusFailed, StatusDeleted:
		return true
	}
	return false
}

// OriginalFileInfo preserves details of the file as uploaded, before
// any processing.
type OriginalFileInfo struct {
	Size   int64  `json:"size"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Metadata is the audit sub-record stored alongside an upload. It
// records whether AI description generation occurred and the raw
// generated text, plus any processing applied.
type Metadata struct {
	ProcessingApplied      string             `json:"processing_applied,omitempty"`
	BackgroundRemoval      *bgremove.Metadata `json:"background_removal,omitempty"`
	OriginalFileInfo       *OriginalFileInfo  `json:"original_file_info,omitempty"`
	AIDescriptionGenerated bool               `json:"ai_description_generated"`
	AIDescription          *string            `json:"ai_description,omitempty"`
}

// Upload is a stored image record. FileURL and ThumbnailURL are
// recomputed on read paths (signed or canonical); the persisted values
// are only the canonical URLs from upload time.
type Upload struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"userId"`
	OriginalName  string     `json:"originalName"`
	FileName      string     `json:"fileName"`
	FilePath      string     `json:"filePath"`
	FileURL       string     `json:"fileUrl"`
	MimeType      string     `json:"mimeType"`
	FileSize      int64      `json:"fileSize"`
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	ImageType     ImageType  `json:"imageType"`
	Status        Status     `json:"status"`
	Description   *string    `json:"description"`
	Tags          []string   `json:"tags"`
	IsPublic      bool       `json:"isPublic"`
	ThumbnailPath *string    `json:"thumbnailPath,omitempty"`
	ThumbnailURL  *string    `json:"thumbnailUrl,omitempty"`
	Metadata      Metadata   `json:"metadata"`
	UploadedAt    time.Time  `json:"uploadedAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	DeletedAt     *time.Time `json:"-"`
}
