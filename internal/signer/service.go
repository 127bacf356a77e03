package signer

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/workmate/imagevault/internal/metrics"
)

// Result is the outcome of a signing attempt. Signed distinguishes a
// presigned URL from the unsigned canonical fallback so callers can
// tell degraded success apart without inspecting the URL.
type Result struct {
	URL       string
	Signed    bool
	ExpiresAt time.Time
}

type presigner interface {
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// Service produces time-limited GET URLs for stored objects. Every call
// computes a fresh signature; nothing is cached.
type Service struct {
	client        presigner
	bucket        string
	canonicalBase string
	defaultExpiry time.Duration
	log           *zap.Logger
	nowFunc       func() time.Time
}

// NewService constructs a signing service. canonicalBase is the
// unsigned public base URL for the bucket, used as the fallback.
func NewService(client presigner, bucket, canonicalBase string, defaultExpiry time.Duration, log *zap.Logger) *Service {
	if defaultExpiry <= 0 {
		defaultExpiry = time.Hour
	}
	return &Service{
		client:        client,
		bucket:        bucket,
		canonicalBase: strings.TrimRight(canonicalBase, "/"),
		defaultExpiry: defaultExpiry,
		log:           log,
		nowFunc:       time.Now,
	}
}

// Sign returns a presigned URL for objectPath valid for expiry, or the
// unsigned canonical URL when signing fails for any reason. It never
// returns an error; a non-positive expiry selects the default.
func (s *Service) Sign(ctx context.Context, objectPath string, expiry time.Duration) Result {
	if expiry <= 0 {
		expiry = s.defaultExpiry
	}

	objectPath = strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	if objectPath == "" {
		s.log.Error("sign requested for empty object path")
		metrics.ObserveSignFallback()
		return Result{URL: s.canonicalBase, Signed: false}
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectPath, expiry, url.Values{})
	if err != nil {
		s.log.Error("presign failed, falling back to canonical URL",
			zap.String("object", objectPath),
			zap.Duration("expiry", expiry),
			zap.Error(err),
		)
		metrics.ObserveSignFallback()
		return Result{URL: s.CanonicalURL(objectPath), Signed: false}
	}

	return Result{
		URL:       u.String(),
		Signed:    true,
		ExpiresAt: s.nowFunc().Add(expiry),
	}
}

// CanonicalURL returns the unsigned public URL for objectPath.
func (s *Service) CanonicalURL(objectPath string) string {
	return s.canonicalBase + "/" + strings.TrimLeft(objectPath, "/")
}
