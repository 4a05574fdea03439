package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ImageStore persists uploaded diagnosis images and hands out retrievable
// references.
type ImageStore interface {
	// Store writes the image under a fresh unique key and returns the key.
	Store(ctx context.Context, userID string, data []byte, mimeType string) (string, error)
	// PresignedURL returns a short-lived download URL for a stored image.
	PresignedURL(ctx context.Context, storagePath string) (string, error)
}

type s3ImageStore struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	logger        zerolog.Logger
}

// NewS3ImageStore creates an ImageStore backed by an S3-compatible bucket.
func NewS3ImageStore(client *s3.Client, bucketName string, logger zerolog.Logger) ImageStore {
	return &s3ImageStore{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucketName:    bucketName,
		logger:        logger.With().Str("service", "ImageStore").Logger(),
	}
}

func extensionFor(mimeType string) string {
	if mimeType == "image/png" {
		return ".png"
	}
	return ".jpg"
}

func (s *s3ImageStore) Store(ctx context.Context, userID string, data []byte, mimeType string) (string, error) {
	storagePath := fmt.Sprintf("diagnoses/%s/%s%s", userID, uuid.New().String(), extensionFor(mimeType))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(storagePath),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("storage_path", storagePath).Msg("Failed to upload image")
		return "", fmt.Errorf("upload image to storage: %w", err)
	}
	return storagePath, nil
}

func (s *s3ImageStore) PresignedURL(ctx context.Context, storagePath string) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(storagePath),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("presign image URL for %s: %w", storagePath, err)
	}
	return req.URL, nil
}
