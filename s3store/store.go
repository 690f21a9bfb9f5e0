// Package s3store stores the vault's blobs in an S3 bucket (AWS or any
// S3-compatible endpoint such as MinIO) and hands out presigned GET URLs.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/sagarc03/pinvault"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// API is the subset of the S3 client the store uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Presigner issues presigned GET requests.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Config holds the bucket location and credentials.
type Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`          // Custom endpoint, e.g. http://127.0.0.1:9000 for MinIO
	AccessKeyID     string `mapstructure:"access_key_id"`     // Empty uses the default credential chain
	SecretAccessKey string `mapstructure:"secret_access_key"` //nolint:gosec // config field, not a secret literal
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// Store implements pinvault.ObjectStore on S3.
type Store struct {
	api       API
	presigner Presigner
	bucket    string
}

// New builds a Store from cfg. Static credentials are used when both keys are
// set; otherwise the SDK's default chain (env, shared config, IMDS) applies.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("new s3 store: bucket is required")
	}

	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("new s3 store: load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewWithClient(client, s3.NewPresignClient(client), cfg.Bucket), nil
}

// NewWithClient builds a Store over an existing client.
func NewWithClient(api API, presigner Presigner, bucket string) *Store {
	return &Store{api: api, presigner: presigner, bucket: bucket}
}

// Put uploads content under key. The SDK needs a seekable body to sign the
// request, so other readers are buffered in memory first.
func (s *Store) Put(ctx context.Context, key, contentType string, content io.Reader) (pinvault.SaveResult, error) {
	body, ok := content.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(content)
		if err != nil {
			return pinvault.SaveResult{}, fmt.Errorf("put %q: read content: %w", key, err)
		}
		body = bytes.NewReader(data)
	}

	size, err := body.Seek(0, io.SeekEnd)
	if err != nil {
		return pinvault.SaveResult{}, fmt.Errorf("put %q: %w", key, err)
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return pinvault.SaveResult{}, fmt.Errorf("put %q: %w", key, err)
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := s.api.PutObject(ctx, in); err != nil {
		return pinvault.SaveResult{}, fmt.Errorf("put %q: %w", key, err)
	}

	return pinvault.SaveResult{BytesWritten: size}, nil
}

// Delete removes key. S3 deletes are idempotent, so the object is looked up
// first to report pinvault.ErrNotFound for a missing key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return pinvault.ErrNotFound
		}
		return fmt.Errorf("delete %q: head: %w", key, err)
	}

	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}

	return nil
}

// SignedURL presigns a GET for key. A non-empty ContentDisposition is passed
// as ResponseContentDisposition so S3 serves the object as an attachment;
// ContentType overrides the stored type the same way.
func (s *Store) SignedURL(ctx context.Context, key string, opts pinvault.SignOptions) (string, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if opts.ContentDisposition != "" {
		in.ResponseContentDisposition = aws.String(opts.ContentDisposition)
	}
	if opts.ContentType != "" {
		in.ResponseContentType = aws.String(opts.ContentType)
	}

	req, err := s.presigner.PresignGetObject(ctx, in, s3.WithPresignExpires(opts.Expires))
	if err != nil {
		return "", fmt.Errorf("sign %q: %w", key, err)
	}

	return req.URL, nil
}

// List returns every key beginning with prefix, following continuation tokens.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}

	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}

	return keys, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
