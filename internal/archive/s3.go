// Package archive persists export snapshots to S3 so a full contact dump
// survives database loss and can be pulled without hitting the service.
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/contact-webhook/internal/pkg/logger"
)

// S3Archiver uploads export snapshots to an S3 bucket.
type S3Archiver struct {
	client   *s3.Client
	bucket   string
	prefix   string
	compress bool
}

// Config contains the archiver settings.
type Config struct {
	Bucket   string
	Prefix   string // e.g. "contact-webhook/exports/"
	Region   string
	Compress bool // gzip snapshots before upload
}

// NewS3Archiver creates an archiver using the default AWS credential chain.
func NewS3Archiver(ctx context.Context, cfg Config) (*S3Archiver, error) {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
		if region == "" {
			region = "us-east-1"
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	a := &S3Archiver{
		client:   s3.NewFromConfig(awsCfg),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		compress: cfg.Compress,
	}

	// Verify bucket access up front so misconfiguration shows at startup,
	// not on the first export.
	if _, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	}); err != nil {
		logger.Warn("archive bucket access check failed", "bucket", cfg.Bucket, "error", err)
	}
	return a, nil
}

// StoreSnapshot uploads one export snapshot. The key embeds the timestamp
// so snapshots never overwrite each other.
func (a *S3Archiver) StoreSnapshot(ctx context.Context, data []byte, now time.Time) (string, error) {
	key := path.Join(a.prefix, fmt.Sprintf("contacts_%s.json", now.UTC().Format("20060102_150405")))
	contentType := "application/json"
	var encoding *string

	if a.compress {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return "", fmt.Errorf("gzip snapshot: %w", err)
		}
		if err := gz.Close(); err != nil {
			return "", fmt.Errorf("gzip snapshot: %w", err)
		}
		data = buf.Bytes()
		key += ".gz"
		encoding = aws.String("gzip")
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(data),
		ContentType:     aws.String(contentType),
		ContentEncoding: encoding,
	})
	if err != nil {
		return "", fmt.Errorf("put snapshot %s: %w", key, err)
	}

	logger.Info("export snapshot archived", "bucket", a.bucket, "key", key, "bytes", len(data))
	return key, nil
}
