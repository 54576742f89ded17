// Package photos keeps provider pictures in S3.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrDisabled = errors.New("photo storage is not configured")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Store struct {
	client        S3API
	bucket        string
	publicBaseURL string
	logger        *zap.Logger
}

// NewStore returns a store that refuses uploads when bucket is empty.
// publicBaseURL defaults to the bucket's virtual-hosted S3 address.
func NewStore(client S3API, bucket, publicBaseURL string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publicBaseURL == "" && bucket != "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger,
	}
}

func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.client != nil
}

// ProviderPhotoKey names a new object for a provider's picture. The key is
// fresh on every upload so cached copies of the old picture never linger.
func ProviderPhotoKey(providerID uuid.UUID, contentType string) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	return fmt.Sprintf("providers/%s/%s%s", providerID, uuid.NewString(), ext), nil
}

// Upload stores body under key and returns its public URL.
func (s *Store) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=86400"),
	})
	if err != nil {
		s.logger.Error("s3 put failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}

	s.logger.Info("photo uploaded", zap.String("key", key))
	return s.publicBaseURL + "/" + key, nil
}
