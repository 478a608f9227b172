package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
)

// S3Config contains configuration for result archiving.
type S3Config struct {
	Bucket      string // S3 bucket name
	Region      string // AWS region
	AccessKeyID string // optional; default credential chain when empty
	SecretKey   string // optional
	Endpoint    string // custom endpoint (MinIO etc.)
	PathPrefix  string // key prefix, e.g. "raglens/runs"
}

// DefaultS3Config pulls credentials and endpoint from the environment.
func DefaultS3Config() S3Config {
	return S3Config{
		Region:      os.Getenv("AWS_REGION"),
		AccessKeyID: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Endpoint:    os.Getenv("S3_ENDPOINT"),
	}
}

// S3Uploader archives run reports to S3 so CI runs leave a durable,
// date-partitioned trail.
type S3Uploader struct {
	cfg    S3Config
	client *s3.Client
}

// NewS3Uploader creates an uploader.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load AWS config: %w", err)
	}

	s3Opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Uploader{
		cfg:    cfg,
		client: s3.NewFromConfig(awsCfg, s3Opts...),
	}, nil
}

// Upload writes a report under a date-partitioned key and returns the
// key.
func (u *S3Uploader) Upload(ctx context.Context, runID string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("s3: marshal report: %w", err)
	}

	key := u.generateKey(runID, time.Now().UTC())
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3: upload report: %w", err)
	}
	return key, nil
}

func (u *S3Uploader) generateKey(runID string, t time.Time) string {
	datePrefix := fmt.Sprintf("year=%d/month=%02d/day=%02d",
		t.Year(), t.Month(), t.Day())
	filename := fmt.Sprintf("run_%s.json", runID)

	if u.cfg.PathPrefix != "" {
		return path.Join(u.cfg.PathPrefix, datePrefix, filename)
	}
	return path.Join(datePrefix, filename)
}
