package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

const uploadColumns = `id, user_id, original_name, file_name, file_path, file_url, mime_type, file_size,
width, height, image_type, status, description, tags, is_public, thumbnail_path, thumbnail_url,
metadata, uploaded_at, updated_at, deleted_at`

// ListFilter narrows and paginates List queries.
type ListFilter struct {
	Status    *Status
	ImageType *ImageType
	Limit     int
	Skip      int
}

// Repository provides access to upload metadata storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new upload repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new upload record.
func (r *Repository) Create(ctx context.Context, up Upload) (Upload, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	metaJSON, err := json.Marshal(up.Metadata)
	if err != nil {
		return Upload{}, fmt.Errorf("encode upload metadata: %w", err)
	}

	query := `
INSERT INTO uploads (id, user_id, original_name, file_name, file_path, file_url, mime_type, file_size,
                     width, height, image_type, status, description, tags, is_public,
                     thumbnail_path, thumbnail_url, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING ` + uploadColumns + `;`

	row := r.pool.QueryRow(ctx, query,
		up.ID,
		up.UserID,
		up.OriginalName,
		up.FileName,
		up.FilePath,
		up.FileURL,
		up.MimeType,
		up.FileSize,
		up.Width,
		up.Height,
		string(up.ImageType),
		string(up.Status),
		up.Description,
		up.Tags,
		up.IsPublic,
		up.ThumbnailPath,
		up.ThumbnailURL,
		metaJSON,
	)

	stored, err := scanUpload(row)
	if err != nil {
		return Upload{}, fmt.Errorf("create upload record: %w", err)
	}
	return stored, nil
}

// List returns non-deleted uploads for a user, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]Upload, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString(`SELECT ` + uploadColumns + ` FROM uploads WHERE user_id = $1 AND deleted_at IS NULL`)

	args := []interface{}{userID}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		sb.WriteString(" AND status = $" + strconv.Itoa(len(args)))
	}
	if filter.ImageType != nil {
		args = append(args, string(*filter.ImageType))
		sb.WriteString(" AND image_type = $" + strconv.Itoa(len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}
	args = append(args, limit, skip)
	sb.WriteString(fmt.Sprintf(" ORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d;", len(args)-1, len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		up, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		uploads = append(uploads, up)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate uploads: %w", err)
	}
	return uploads, nil
}

// Get fetches one non-deleted upload owned by the user.
func (r *Repository) Get(ctx context.Context, userID, id uuid.UUID) (Upload, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL;`

	up, err := scanUpload(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Upload{}, ErrUploadNotFound
		}
		return Upload{}, fmt.Errorf("get upload: %w", err)
	}
	return up, nil
}

// SoftDelete marks the upload deleted and returns the affected record.
func (r *Repository) SoftDelete(ctx context.Context, userID, id uuid.UUID) (Upload, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
UPDATE uploads
SET deleted_at = now(), updated_at = now(), status = $3
WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
RETURNING ` + uploadColumns + `;`

	up, err := scanUpload(r.pool.QueryRow(ctx, query, id, userID, string(StatusDeleted)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Upload{}, ErrUploadNotFound
		}
		return Upload{}, fmt.Errorf("soft delete upload: %w", err)
	}
	return up, nil
}

func scanUpload(row pgx.Row) (Upload, error) {
	var (
		up        Upload
		imageType string
		status    string
		metaJSON  []byte
	)

	err := row.Scan(
		&up.ID,
		&up.UserID,
		&up.OriginalName,
		&up.FileName,
		&up.FilePath,
		&up.FileURL,
		&up.MimeType,
		&up.FileSize,
		&up.Width,
		&up.Height,
		&imageType,
		&status,
		&up.Description,
		&up.Tags,
		&up.IsPublic,
		&up.ThumbnailPath,
		&up.ThumbnailURL,
		&metaJSON,
		&up.UploadedAt,
		&up.UpdatedAt,
		&up.DeletedAt,
	)
	if err != nil {
		return Upload{}, err
	}

	up.ImageType = ImageType(imageType)
	up.Status = Status(status)
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &up.Metadata); err != nil {
			return Upload{}, fmt.Errorf("decode upload metadata: %w", err)
		}
	}
	if up.Tags == nil {
		up.Tags = []string{}
	}
	return up, nil
}
