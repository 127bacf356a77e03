package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var baseURL = envOrDefault("IMAGEVAULT_TEST_BASE_URL", "http://localhost:8080")

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// skipUnlessLive skips the test when no running API is configured.
func skipUnlessLive(t *testing.T) {
	t.Helper()
	if os.Getenv("IMAGEVAULT_TEST_BASE_URL") == "" {
		t.Skip("set IMAGEVAULT_TEST_BASE_URL to run integration tests against a live API")
	}
}

// SetupTestUser registers a fresh user and returns its access token.
func SetupTestUser(client *http.Client, email, password string) (string, error) {
	payload := map[string]string{
		"email":    email,
		"password": password,
	}

	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", baseURL+"/v1/auth/register", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("failed to register user: %d", resp.StatusCode)
	}

	var authResp struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", err
	}

	return authResp.Tokens.AccessToken, nil
}

// SetupFreshUser registers a random user and returns its access token.
func SetupFreshUser(t *testing.T, client *http.Client) string {
	t.Helper()
	email := fmt.Sprintf("test_%s@example.com", uuid.NewString())

	token, err := SetupTestUser(client, email, "password123")
	require.NoError(t, err)
	return token
}

// testPNG returns an encoded PNG of the given dimensions.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// multipartUpload builds a multipart body with a typed file part plus
// extra form fields.
func multipartUpload(t *testing.T, fileName, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}
