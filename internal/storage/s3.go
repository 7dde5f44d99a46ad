// Package storage provides the S3-compatible object store adapter. Binary
// content is addressed by opaque keys recorded on photo and board rows; the
// relational store remains the sole source of truth.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"visionboard-backend/internal/config"
)

// Store wraps an S3 client bound to a single bucket. Works against AWS or
// any S3-compatible backend (MinIO in development) via a custom endpoint.
type Store struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

// New builds a Store from config, using static credentials and a custom
// base endpoint with path-style addressing.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("unable to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &Store{
		client:     client,
		bucket:     cfg.S3Bucket,
		publicBase: cfg.S3PublicBase,
	}, nil
}

// Upload writes an object and returns its public URL. Keys are generated
// unique per upload (see keys.go), so an existing object is never
// overwritten.
func (s *Store) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=3600"),
	})
	if err != nil {
		return "", fmt.Errorf("storage upload failed for %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// Delete removes a single object.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage delete failed for %s: %w", key, err)
	}
	return nil
}

// DeleteMany removes a batch of objects in one call.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
	}
	_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("storage batch delete failed: %w", err)
	}
	return nil
}

// PublicURL returns the publicly reachable URL for a key.
func (s *Store) PublicURL(key string) string {
	return s.publicBase + "/" + key
}
