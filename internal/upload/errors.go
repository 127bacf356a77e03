package upload

import "errors"

var (
	// ErrUploadNotFound signals that the upload could not be located.
	ErrUploadNotFound = errors.New("upload not found")
	// ErrFileTooLarge signals that the upload exceeds configured limits.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedMediaType is returned for non-image content types.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrInvalidImage signals a corrupt or undecodable image payload.
	ErrInvalidImage = errors.New("invalid or corrupted image")
	// ErrInvalidImageType is returned for an unknown image category.
	ErrInvalidImageType = errors.New("invalid image type")
)
