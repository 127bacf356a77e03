package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadRecord struct {
	ID          string  `json:"id"`
	FileName    string  `json:"fileName"`
	FilePath    string  `json:"filePath"`
	FileURL     string  `json:"fileUrl"`
	MimeType    string  `json:"mimeType"`
	Status      string  `json:"status"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Description *string `json:"description"`
}

func TestUploadLifecycle(t *testing.T) {
	skipUnlessLive(t)
	client := &http.Client{Timeout: 30 * time.Second}
	token := SetupFreshUser(t, client)

	// 1. Upload an image.
	body, contentType := multipartUpload(t, "bike.png", "image/png", testPNG(t, 16, 12), map[string]string{
		"image_type":  "gallery",
		"description": "my test bike",
		"tags":        "bikes, test",
	})
	req, _ := http.NewRequest("POST", baseURL+"/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var uploadResp struct {
		Success bool         `json:"success"`
		Upload  uploadRecord `json:"upload"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploadResp))
	resp.Body.Close()

	assert.True(t, uploadResp.Success)
	assert.Equal(t, "uploaded", uploadResp.Upload.Status)
	assert.Equal(t, 16, uploadResp.Upload.Width)
	assert.Equal(t, 12, uploadResp.Upload.Height)
	require.NotEmpty(t, uploadResp.Upload.ID)
	require.NotEmpty(t, uploadResp.Upload.FileURL)

	uploadID := uploadResp.Upload.ID

	// 2. List uploads with a short signing window.
	req, _ = http.NewRequest("GET", baseURL+"/v1/uploads?url_expiration=60", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listResp struct {
		Success bool           `json:"success"`
		Uploads []uploadRecord `json:"uploads"`
		Count   int            `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listResp))
	resp.Body.Close()

	assert.True(t, listResp.Success)
	require.Equal(t, 1, listResp.Count)
	assert.Equal(t, uploadID, listResp.Uploads[0].ID)
	assert.NotEmpty(t, listResp.Uploads[0].FileURL)

	// 3. Fetch the single record.
	req, _ = http.NewRequest("GET", fmt.Sprintf("%s/v1/uploads/%s", baseURL, uploadID), nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var getResp struct {
		Success bool         `json:"success"`
		Upload  uploadRecord `json:"upload"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&getResp))
	resp.Body.Close()

	require.NotNil(t, getResp.Upload.Description)
	assert.Equal(t, "my test bike", *getResp.Upload.Description)

	// 4. The signed URL should serve the object.
	resp, err = client.Get(getResp.Upload.FileURL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// 5. Delete and verify the record is gone.
	req, _ = http.NewRequest("DELETE", fmt.Sprintf("%s/v1/uploads/%s", baseURL, uploadID), nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req, _ = http.NewRequest("GET", fmt.Sprintf("%s/v1/uploads/%s", baseURL, uploadID), nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUploadRejectsNonImage(t *testing.T) {
	skipUnlessLive(t)
	client := &http.Client{Timeout: 10 * time.Second}
	token := SetupFreshUser(t, client)

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", []byte("just text"), nil)
	req, _ := http.NewRequest("POST", baseURL+"/v1/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUploadRequiresAuth(t *testing.T) {
	skipUnlessLive(t)
	client := &http.Client{Timeout: 10 * time.Second}

	body, contentType := multipartUpload(t, "bike.png", "image/png", testPNG(t, 4, 4), nil)
	req, _ := http.NewRequest("POST", baseURL+"/v1/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestBackgroundRemovalModels(t *testing.T) {
	skipUnlessLive(t)
	client := &http.Client{Timeout: 10 * time.Second}
	token := SetupFreshUser(t, client)

	req, _ := http.NewRequest("GET", baseURL+"/v1/bg-removal-models", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var modelsResp struct {
		Success bool `json:"success"`
		Models  []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"models"`
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&modelsResp))
	resp.Body.Close()

	assert.True(t, modelsResp.Success)
	require.Equal(t, 4, modelsResp.Count)

	names := make([]string, 0, len(modelsResp.Models))
	for _, m := range modelsResp.Models {
		names = append(names, m.Name)
	}
	assert.Contains(t, strings.Join(names, ","), "u2net")
}
