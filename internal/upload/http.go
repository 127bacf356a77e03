package upload

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/workmate/imagevault/internal/auth"
	"github.com/workmate/imagevault/internal/bgremove"
)

const defaultURLExpiration = 3600 // seconds

// RegisterRoutes mounts upload operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/upload", handler.upload)
	group.POST("/upload-remove-bg", handler.uploadRemoveBg)
	group.GET("/uploads", handler.listUploads)
	group.GET("/uploads/:uploadID", handler.getUpload)
	group.DELETE("/uploads/:uploadID", handler.deleteUpload)
	group.GET("/bg-removal-models", handler.listModels)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) upload(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	input, ok := h.readUploadForm(c)
	if !ok {
		return
	}

	stored, err := h.service.Upload(c.Request.Context(), userID, input)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Image uploaded successfully",
		"upload":  stored,
	})
}

func (h *httpHandler) uploadRemoveBg(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	input, ok := h.readUploadForm(c)
	if !ok {
		return
	}

	model := c.DefaultPostForm("model", "u2net")
	if !bgremove.ValidModel(model) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model", "available_models": bgremove.AvailableModels()})
		return
	}

	stored, err := h.service.UploadWithBackgroundRemoval(c.Request.Context(), userID, RemoveBgInput{
		Input:                 input,
		Model:                 model,
		EdgeSmoothing:         formBool(c, "edge_smoothing", true),
		GenerateAIDescription: formBool(c, "generate_ai_description", true),
	})
	if err != nil {
		respondUploadError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Image uploaded successfully with background removed",
		"upload":  stored,
	})
}

func (h *httpHandler) listUploads(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	filter := ListFilter{
		Limit: queryInt(c, "limit", 50),
		Skip:  queryInt(c, "skip", 0),
	}

	if raw := c.Query("status_filter"); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("image_type"); raw != "" {
		imageType := ImageType(raw)
		if !imageType.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image type"})
			return
		}
		filter.ImageType = &imageType
	}

	expiry := urlExpiration(c)

	uploads, err := h.service.List(c.Request.Context(), userID, filter, expiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch uploads"})
		return
	}
	if uploads == nil {
		uploads = []Upload{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"uploads": uploads,
		"count":   len(uploads),
		"limit":   filter.Limit,
		"skip":    filter.Skip,
	})
}

func (h *httpHandler) getUpload(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("uploadID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
		return
	}

	up, err := h.service.Get(c.Request.Context(), userID, id, urlExpiration(c))
	if err != nil {
		if errors.Is(err, ErrUploadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch upload details"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "upload": up})
}

func (h *httpHandler) deleteUpload(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("uploadID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, ErrUploadNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete upload"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Upload deleted successfully",
		"uploadId": id.String(),
	})
}

func (h *httpHandler) listModels(c *gin.Context) {
	models := bgremove.AvailableModels()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"models":  models,
		"count":   len(models),
	})
}

// readUploadForm extracts the shared multipart fields. It writes the
// error response itself and returns ok=false on failure.
func (h *httpHandler) readUploadForm(c *gin.Context) (Input, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return Input{}, false
	}
	if fileHeader.Size > maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
		return Input{}, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return Input{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxFileSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return Input{}, false
	}
	if int64(len(data)) > maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
		return Input{}, false
	}

	input := Input{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
		ImageType:   ImageType(c.DefaultPostForm("image_type", string(TypeGallery))),
		IsPublic:    formBool(c, "is_public", false),
	}

	if desc := strings.TrimSpace(c.PostForm("description")); desc != "" {
		input.Description = &desc
	}
	if rawTags := c.PostForm("tags"); rawTags != "" {
		for _, tag := range strings.Split(rawTags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				input.Tags = append(input.Tags, tag)
			}
		}
	}

	if !input.ImageType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image type"})
		return Input{}, false
	}

	return input, true
}

func respondUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnsupportedMediaType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file type", "allowed_types": AllowedMimeTypes()})
	case errors.Is(err, ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
	case errors.Is(err, ErrInvalidImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image file or corrupted image"})
	case errors.Is(err, ErrInvalidImageType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image type"})
	case errors.Is(err, bgremove.ErrInvalidModel):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model", "available_models": bgremove.AvailableModels()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
	}
}

func urlExpiration(c *gin.Context) time.Duration {
	seconds := queryInt(c, "url_expiration", defaultURLExpiration)
	if seconds <= 0 {
		seconds = defaultURLExpiration
	}
	return time.Duration(seconds) * time.Second
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func formBool(c *gin.Context, key string, fallback bool) bool {
	raw := c.PostForm(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
