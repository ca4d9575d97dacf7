package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
	"github.com/asterisksounds/asterisk-sound-bot/internal/logger"
)

// s3API is the part of *s3.Client the store needs.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store reads objects from Amazon S3 or an S3-compatible service.
// Credentials come from the default AWS chain.
type S3Store struct {
	client s3API
}

// NewS3Store loads the shared AWS configuration and creates the S3 client.
func NewS3Store(ctx context.Context, settings *conf.S3Settings) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if settings.Region != "" {
		opts = append(opts, awsconfig.WithRegion(settings.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("s3: failed to load AWS configuration: %w", err)).
			Component("storage").
			Category(errors.CategoryConfiguration).
			Build()
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
		}
		o.UsePathStyle = settings.UsePathStyle
	})

	return &S3Store{client: client}, nil
}

// Get downloads bucket/key.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	start := time.Now()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			err = notFound(err, key)
		} else {
			err = fmt.Errorf("s3: get object failed: %w", err)
		}
		return nil, fetchError(err, "s3", bucket, key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxObjectSize+1))
	if err != nil {
		return nil, fetchError(fmt.Errorf("s3: failed to read object body: %w", err), "s3", bucket, key)
	}
	if len(data) > MaxObjectSize {
		return nil, fetchError(fmt.Errorf("s3: object exceeds %d bytes", MaxObjectSize), "s3", bucket, key)
	}

	GetLogger().Debug("Fetched object",
		logger.String("backend", "s3"),
		logger.String("bucket", bucket),
		logger.String("key", key),
		logger.Int("bytes", len(data)),
		logger.Duration("elapsed", time.Since(start)))

	return data, nil
}

// isS3NotFound matches the typed NoSuchKey error and the bare NotFound code
// some S3-compatible services return instead.
func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
