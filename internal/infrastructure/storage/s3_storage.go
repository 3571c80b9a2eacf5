// Package storage archives faulted notifications to object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pricesync/backend/internal/application/pricingsync"
	infraconfig "github.com/pricesync/backend/internal/infrastructure/config"
)

var _ pricingsync.DeadLetterSink = (*S3DeadLetterArchive)(nil)

// S3DeadLetterArchive writes one JSON object per faulted run to an S3-compatible bucket
// under <prefix>/<shop>/<yyyy>/<mm>/<dd>/<uuid>.json
type S3DeadLetterArchive struct {
	client *s3.Client
	bucket string
	prefix string
	newID  func() uuid.UUID
	logger *zap.Logger
}

// S3DeadLetterArchiveOption is a functional option for configuring S3DeadLetterArchive
type S3DeadLetterArchiveOption func(*S3DeadLetterArchive)

// WithLogger sets a custom logger for S3DeadLetterArchive
func WithLogger(logger *zap.Logger) S3DeadLetterArchiveOption {
	return func(s *S3DeadLetterArchive) {
		s.logger = logger
	}
}

// NewS3DeadLetterArchive creates an archive from configuration.
// Without an access key the default AWS credential chain is used.
func NewS3DeadLetterArchive(ctx context.Context, cfg *infraconfig.DeadLetterConfig, opts ...S3DeadLetterArchiveOption) (*S3DeadLetterArchive, error) {
	if cfg == nil {
		return nil, errors.New("dead letter configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("dead letter bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		if cfg.SecretKey == "" {
			return nil, errors.New("dead letter secret key is required with an access key")
		}
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint *string
	if cfg.Endpoint != "" {
		if u, err := url.Parse(cfg.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid dead letter endpoint %q", cfg.Endpoint)
		}
		endpoint = aws.String(cfg.Endpoint)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})

	archive := &S3DeadLetterArchive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		newID:  uuid.New,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	return archive, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup.
func (s *S3DeadLetterArchive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating dead letter bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Archive stores letter as JSON
func (s *S3DeadLetterArchive) Archive(ctx context.Context, letter pricingsync.DeadLetter) error {
	body, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}

	key := s.ObjectKey(letter)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload dead letter: %w", err)
	}

	s.logger.Debug("archived dead letter",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.String("reason", letter.Reason))
	return nil
}

// ObjectKey returns the key letter is stored under
func (s *S3DeadLetterArchive) ObjectKey(letter pricingsync.DeadLetter) string {
	failedAt := letter.FailedAt
	if failedAt.IsZero() {
		failedAt = time.Now()
	}
	shop := letter.Shop
	if shop == "" {
		shop = "unknown"
	}
	return path.Join(s.prefix, shop, failedAt.UTC().Format("2006/01/02"), s.newID().String()+".json")
}

// GetBucket returns the bucket name
func (s *S3DeadLetterArchive) GetBucket() string {
	return s.bucket
}
