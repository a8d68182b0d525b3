package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Scheme prefixes result locations stored in S3 or a compatible service
const S3Scheme = "s3://"

// S3Config configures access to s3:// locations
type S3Config struct {
	Region       string
	Endpoint     string // For S3-compatible services (MinIO, etc.)
	UsePathStyle bool
}

// Sources reads and writes raw bytes of result files on the local
// filesystem or in S3. The S3 client is created on first use.
type Sources struct {
	cfg S3Config

	mu     sync.Mutex
	client *s3.Client
}

// NewSources creates a source set
func NewSources(cfg S3Config) *Sources {
	return &Sources{cfg: cfg}
}

// ParseS3Location splits s3://bucket/key
func ParseS3Location(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, S3Scheme)
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// ReadAll returns the content stored at location
func (s *Sources) ReadAll(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, S3Scheme) {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", location, err)
		}
		return data, nil
	}

	bucket, key, ok := ParseS3Location(location)
	if !ok {
		return nil, fmt.Errorf("invalid S3 location %q", location)
	}
	client, err := s.s3Client(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("S3 get object failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("S3 read body failed: %w", err)
	}
	return data, nil
}

// WriteAll stores data at location, replacing what was there
func (s *Sources) WriteAll(ctx context.Context, location string, data []byte) error {
	if !strings.HasPrefix(location, S3Scheme) {
		if err := os.WriteFile(location, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", location, err)
		}
		return nil
	}

	bucket, key, ok := ParseS3Location(location)
	if !ok {
		return fmt.Errorf("invalid S3 location %q", location)
	}
	client, err := s.s3Client(ctx)
	if err != nil {
		return err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("S3 put object failed: %w", err)
	}
	return nil
}

func (s *Sources) s3Client(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	var opts []func(*config.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, config.WithRegion(s.cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if awsCfg.Region == "" {
		return nil, errors.New("no AWS region configured for S3 sources")
	}

	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.cfg.Endpoint)
			o.UsePathStyle = s.cfg.UsePathStyle
		})
	}

	s.client = s3.NewFromConfig(awsCfg, s3Opts...)
	return s.client, nil
}
