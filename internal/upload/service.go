package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/workmate/imagevault/internal/bgremove"
	"github.com/workmate/imagevault/internal/signer"
)

type metadataStore interface {
	Create(ctx context.Context, up Upload) (Upload, error)
	List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Upload, error)
	Get(ctx context.Context, userID, id uuid.UUID) (Upload, error)
	SoftDelete(ctx context.Context, userID, id uuid.UUID) (Upload, error)
}

type objectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type urlSigner interface {
	Sign(ctx context.Context, objectPath string, expiry time.Duration) signer.Result
	CanonicalURL(objectPath string) string
}

type captioner interface {
	Interrogate(ctx context.Context, image []byte) (string, bool)
}

type backgroundRemover interface {
	Remove(ctx context.Context, img []byte, opts bgremove.Options) (bgremove.Output, error)
}

// Service owns the upload lifecycle: validation, object storage,
// metadata persistence and response assembly with signed URLs.
type Service struct {
	repo      metadataStore
	objects   objectStore
	bucket    string
	signer    urlSigner
	captioner captioner
	remover   backgroundRemover
	log       *zap.Logger
	nowFunc   func() time.Time
	newID     func() uuid.UUID
}

// NewService constructs an upload service.
func NewService(repo metadataStore, objects objectStore, bucket string, urlSigner urlSigner, captioner captioner, remover backgroundRemover, log *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		objects:   objects,
		bucket:    bucket,
		signer:    urlSigner,
		captioner: captioner,
		remover:   remover,
		log:       log,
		nowFunc:   time.Now,
		newID:     uuid.New,
	}
}

// Input carries a validated multipart upload.
type Input struct {
	FileName    string
	ContentType string
	Data        []byte
	ImageType   ImageType
	Description *string
	Tags        []string
	IsPublic    bool
}

// RemoveBgInput extends Input with background removal options.
type RemoveBgInput struct {
	Input
	Model                 string
	EdgeSmoothing         bool
	GenerateAIDescription bool
}

// Upload validates and stores an image, then persists its metadata.
func (s *Service) Upload(ctx context.Context, userID uuid.UUID, input Input) (Upload, error) {
	imageType := input.ImageType
	if imageType == "" {
		imageType = TypeGallery
	}
	if !imageType.Valid() {
		return Upload{}, fmt.Errorf("%w: %s", ErrInvalidImageType, imageType)
	}

	width, height, err := validateImage(input.Data, input.ContentType)
	if err != nil {
		return Upload{}, err
	}

	id := s.newID()
	now := s.nowFunc()
	objectPath, fileName := buildObjectPath(userID, imageType, input.FileName, id, now)

	if err := s.putObject(ctx, objectPath, input.Data, input.ContentType, userID, input.FileName, now, nil); err != nil {
		return Upload{}, err
	}

	record := Upload{
		ID:           id,
		UserID:       userID,
		OriginalName: sanitizeFilename(input.FileName),
		FileName:     fileName,
		FilePath:     objectPath,
		FileURL:      s.signer.CanonicalURL(objectPath),
		MimeType:     input.ContentType,
		FileSize:     int64(len(input.Data)),
		Width:        width,
		Height:       height,
		ImageType:    imageType,
		Status:       StatusUploaded,
		Description:  normalizeDescription(input.Description),
		Tags:         input.Tags,
		IsPublic:     input.IsPublic,
	}

	stored, err := s.repo.Create(ctx, record)
	if err != nil {
		s.cleanupObject(ctx, objectPath)
		return Upload{}, fmt.Errorf("save upload record: %w", err)
	}

	s.log.Info("image uploaded",
		zap.String("upload_id", stored.ID.String()),
		zap.String("object", objectPath),
		zap.Int64("bytes", stored.FileSize),
	)
	return stored, nil
}

// UploadWithBackgroundRemoval stores a background-removed rendition of
// the image. When the caller supplied no description and AI generation
// is enabled, the processed image is sent to the captioning service;
// its absence never fails the upload.
func (s *Service) UploadWithBackgroundRemoval(ctx context.Context, userID uuid.UUID, input RemoveBgInput) (Upload, error) {
	imageType := input.ImageType
	if imageType == "" {
		imageType = TypeGallery
	}
	if !imageType.Valid() {
		return Upload{}, fmt.Errorf("%w: %s", ErrInvalidImageType, imageType)
	}

	width, height, err := validateImage(input.Data, input.ContentType)
	if err != nil {
		return Upload{}, err
	}

	out, err := s.remover.Remove(ctx, input.Data, bgremove.Options{
		Model:         input.Model,
		EdgeSmoothing: input.EdgeSmoothing,
	})
	if err != nil {
		return Upload{}, fmt.Errorf("background removal: %w", err)
	}

	id := s.newID()
	now := s.nowFunc()
	objectPath, fileName := buildProcessedObjectPath(userID, imageType, id, now)

	extraMeta := map[string]string{
		"background-removed": "true",
		"model-used":         out.Metadata.Model,
	}
	if err := s.putObject(ctx, objectPath, out.Image, "image/png", userID, input.FileName, now, extraMeta); err != nil {
		return Upload{}, err
	}

	meta := Metadata{
		ProcessingApplied: "background_removal",
		BackgroundRemoval: &out.Metadata,
		OriginalFileInfo: &OriginalFileInfo{
			Size:   int64(len(input.Data)),
			Width:  width,
			Height: height,
			Format: input.ContentType,
		},
	}

	description := normalizeDescription(input.Description)
	if description == nil && input.GenerateAIDescription {
		if caption, ok := s.captioner.Interrogate(ctx, out.Image); ok {
			description = &caption
			meta.AIDescriptionGenerated = true
			meta.AIDescription = &caption
			s.log.Info("using AI-generated description", zap.String("caption", caption))
		}
	}

	procWidth, procHeight := out.Metadata.ProcessedWidth, out.Metadata.ProcessedHeight
	if procWidth == 0 && procHeight == 0 {
		procWidth, procHeight = width, height
	}

	record := Upload{
		ID:           id,
		UserID:       userID,
		OriginalName: sanitizeFilename(input.FileName),
		FileName:     fileName,
		FilePath:     objectPath,
		FileURL:      s.signer.CanonicalURL(objectPath),
		MimeType:     "image/png", // transparency requires PNG
		FileSize:     int64(len(out.Image)),
		Width:        procWidth,
		Height:       procHeight,
		ImageType:    imageType,
		Status:       StatusProcessed,
		Description:  description,
		Tags:         input.Tags,
		IsPublic:     input.IsPublic,
		Metadata:     meta,
	}

	stored, err := s.repo.Create(ctx, record)
	if err != nil {
		s.cleanupObject(ctx, objectPath)
		return Upload{}, fmt.Errorf("save upload record: %w", err)
	}

	s.log.Info("image uploaded with background removed",
		zap.String("upload_id", stored.ID.String()),
		zap.String("model", out.Metadata.Model),
		zap.Bool("ai_description", meta.AIDescriptionGenerated),
	)
	return stored, nil
}

// List returns the user's uploads with URL fields signed for expiry.
func (s *Service) List(ctx context.Context, userID uuid.UUID, filter ListFilter, expiry time.Duration) ([]Upload, error) {
	uploads, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	for i := range uploads {
		s.signURLs(ctx, &uploads[i], expiry)
	}
	return uploads, nil
}

// Get returns one upload with signed URL fields.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID, expiry time.Duration) (Upload, error) {
	up, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return Upload{}, err
	}

	s.signURLs(ctx, &up, expiry)
	return up, nil
}

// Delete removes the object from storage and soft-deletes the record.
// A storage removal failure is logged but does not block the delete.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	up, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.objects.RemoveObject(ctx, s.bucket, up.FilePath, minio.RemoveObjectOptions{}); err != nil {
		s.log.Warn("failed to remove object from storage",
			zap.String("object", up.FilePath),
			zap.Error(err),
		)
	}

	if _, err := s.repo.SoftDelete(ctx, userID, id); err != nil {
		return err
	}
	return nil
}

// signURLs replaces the record's URL fields with signed (or fallback)
// URLs. The two fields are signed independently.
func (s *Service) signURLs(ctx context.Context, up *Upload, expiry time.Duration) {
	if up.FilePath != "" {
		up.FileURL = s.signer.Sign(ctx, up.FilePath, expiry).URL
	}
	if up.ThumbnailPath != nil && *up.ThumbnailPath != "" {
		signed := s.signer.Sign(ctx, *up.ThumbnailPath, expiry).URL
		up.ThumbnailURL = &signed
	}
}

func (s *Service) putObject(ctx context.Context, objectPath string, data []byte, contentType string, userID uuid.UUID, originalName string, now time.Time, extra map[string]string) error {
	userMeta := map[string]string{
		"original-filename": sanitizeFilename(originalName),
		"user-id":           userID.String(),
		"upload-timestamp":  now.UTC().Format(time.RFC3339),
	}
	for k, v := range extra {
		userMeta[k] = v
	}

	_, err := s.objects.PutObject(ctx, s.bucket, objectPath, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: userMeta,
	})
	if err != nil {
		return fmt.Errorf("store object: %w", err)
	}
	return nil
}

func (s *Service) cleanupObject(ctx context.Context, objectPath string) {
	if err := s.objects.RemoveObject(ctx, s.bucket, objectPath, minio.RemoveObjectOptions{}); err != nil {
		s.log.Warn("cleanup of stored object failed", zap.String("object", objectPath), zap.Error(err))
	}
}

func normalizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*desc)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
