// Package s3 implements storage.Backend on Amazon S3 and S3-compatible
// services.
package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bazaarhub/integrations/pkg/integration"
	"github.com/bazaarhub/integrations/pkg/storage"
)

// Config holds S3 configuration.
type Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // optional, for S3-compatible services
	UsePathStyle    bool
	Timeout         time.Duration
}

// API is the subset of the S3 client the backend uses.
type API interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

// Backend stores objects in a single bucket.
type Backend struct {
	api    API
	bucket string
}

// New creates a Backend with static credentials.
func New(cfg Config) (*Backend, error) {
	if err := integration.RequireCredentials("Storage",
		integration.Credential{Env: "STORAGE_REGION", Value: cfg.Region},
		integration.Credential{Env: "STORAGE_BUCKET", Value: cfg.Bucket},
		integration.Credential{Env: "STORAGE_ACCESS_KEY_ID", Value: cfg.AccessKeyID},
		integration.Credential{Env: "STORAGE_SECRET_ACCESS_KEY", Value: cfg.SecretAccessKey},
	); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = integration.DefaultTimeout
	}

	client := awss3.New(awss3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: cfg.UsePathStyle,
		HTTPClient:   integration.NewHTTPClient(timeout),
	}, func(o *awss3.Options) {
		// Single attempt; the store owns the one ACL fallback retry.
		o.RetryMaxAttempts = 1
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithAPI(client, cfg.Bucket), nil
}

// NewWithAPI creates a Backend over a custom API implementation.
func NewWithAPI(api API, bucket string) *Backend {
	return &Backend{api: api, bucket: bucket}
}

// Put writes an object, attaching the canned ACL when one is given.
func (b *Backend) Put(ctx context.Context, in *storage.PutInput) error {
	input := &awss3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(in.Key),
		Body:          in.Body,
		ContentLength: aws.Int64(in.Size),
		ContentType:   aws.String(in.ContentType),
	}
	if in.CacheControl != "" {
		input.CacheControl = aws.String(in.CacheControl)
	}
	if in.ACL != "" {
		input.ACL = types.ObjectCannedACL(in.ACL)
	}

	if _, err := b.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s: %w", in.Key, err)
	}
	return nil
}

// Get opens an object.
func (b *Backend) Get(ctx context.Context, key string) (*storage.Object, error) {
	out, err := b.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrap("get object", key, err)
	}
	return &storage.Object{
		Body: out.Body,
		Meta: meta(out.ContentType, out.ContentLength, out.ETag, out.LastModified),
	}, nil
}

// Head returns object metadata.
func (b *Backend) Head(ctx context.Context, key string) (*storage.Meta, error) {
	out, err := b.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrap("head object", key, err)
	}
	m := meta(out.ContentType, out.ContentLength, out.ETag, out.LastModified)
	return &m, nil
}

// Delete removes an object. S3 reports success for absent keys.
func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return wrap("delete object", key, err)
	}
	return nil
}

func meta(contentType *string, length *int64, etag *string, modified *time.Time) storage.Meta {
	m := storage.Meta{
		ContentType:   aws.ToString(contentType),
		ContentLength: -1,
		ETag:          aws.ToString(etag),
	}
	if length != nil {
		m.ContentLength = *length
	}
	if modified != nil {
		m.LastModified = *modified
	}
	return m
}

func wrap(op, key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s %s: %w", op, key, integration.ErrObjectNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
