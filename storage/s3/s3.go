// Package s3 provides an Amazon S3 (or S3-compatible) storage backend.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderS3, func(ctx context.Context, cfg storage.Config, _ *logger.Logger) (storage.Storage, error) {
		return NewStorage(ctx, cfg.S3)
	})
}

// API is the subset of the S3 client the backend uses.
type API interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, opts ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, opts ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, opts ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
}

// Storage implements storage.Storage on an S3 bucket.
type Storage struct {
	client   API
	bucket   string
	prefix   string
	endpoint string
	region   string
	tempDir  string
}

var (
	_ storage.Storage      = (*Storage)(nil)
	_ storage.PathResolver = (*Storage)(nil)
	_ storage.Pinger       = (*Storage)(nil)
)

// NewStorage creates an S3 client from cfg. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewStorage(ctx context.Context, cfg storage.S3Config) (*Storage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg), nil
}

// NewWithClient builds the backend on an existing client.
func NewWithClient(client API, cfg storage.S3Config) *Storage {
	return &Storage{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		endpoint: cfg.Endpoint,
		region:   cfg.Region,
		tempDir:  os.TempDir(),
	}
}

func (s *Storage) objectKey(key string) (*string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	return aws.String(s.prefix + key), nil
}

// Upload writes data from reader to S3.
func (s *Storage) Upload(ctx context.Context, key string, reader io.Reader) error {
	k, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.PutObject(ctx, &awss3.PutObjectInput{Bucket: aws.String(s.bucket), Key: k, Body: reader}); err != nil {
		return fmt.Errorf("storage: s3 upload: %w", err)
	}
	return nil
}

// Download returns a reader for the object.
func (s *Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{Bucket: aws.String(s.bucket), Key: k})
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound("audio file", key)
		}
		return nil, fmt.Errorf("storage: s3 download: %w", err)
	}
	return out.Body, nil
}

// Delete removes the object. S3 reports success for missing keys.
func (s *Storage) Delete(ctx context.Context, key string) error {
	k, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: k}); err != nil {
		return fmt.Errorf("storage: s3 delete: %w", err)
	}
	return nil
}

// Exists checks whether the object exists. Errors other than "not found"
// are returned rather than read as absence.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.head(ctx, key)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Size returns the object's content length.
func (s *Storage) Size(ctx context.Context, key string) (int64, error) {
	out, err := s.head(ctx, key)
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *Storage) head(ctx context.Context, key string) (*awss3.HeadObjectOutput, error) {
	k, err := s.objectKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: k})
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NotFound("audio file", key)
		}
		return nil, fmt.Errorf("storage: s3 head: %w", err)
	}
	return out, nil
}

// URL returns the object URL.
func (s *Storage) URL(_ context.Context, key string) (string, error) {
	k, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, *k), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, *k), nil
}

// ResolvePath downloads the object to a temporary file keeping its
// extension. release removes the file.
func (s *Storage) ResolvePath(ctx context.Context, key string) (string, func(), error) {
	body, err := s.Download(ctx, key)
	if err != nil {
		return "", nil, err
	}
	defer body.Close() //nolint:errcheck // read-only

	f, err := os.CreateTemp(s.tempDir, "stenopro-*"+filepath.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("storage: create temp file: %w", err)
	}
	release := func() { _ = os.Remove(f.Name()) }
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		release()
		return "", nil, fmt.Errorf("storage: s3 download: %w", err)
	}
	if err := f.Close(); err != nil {
		release()
		return "", nil, fmt.Errorf("storage: close temp file: %w", err)
	}
	return f.Name(), release, nil
}

// Ping checks that the bucket is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}
