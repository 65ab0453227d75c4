package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ObjectAPI is the subset of the S3 client the provider calls. *s3.Client
// satisfies it.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3FileProvider stores files as objects in one bucket under an optional
// key prefix.
type S3FileProvider struct {
	client ObjectAPI
	bucket string
	prefix string
}

// NewS3FileProvider creates a provider over bucket.
func NewS3FileProvider(client ObjectAPI, bucket, prefix string) *S3FileProvider {
	return &S3FileProvider{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (p *S3FileProvider) key(name string) (string, error) {
	clean, err := cleanPath(name)
	if err != nil {
		return "", err
	}
	if p.prefix == "" {
		return clean, nil
	}
	if clean == "" {
		return p.prefix + "/", nil
	}
	return p.prefix + "/" + clean, nil
}

// isNotFound reports whether err is an S3 missing-object error.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// Read downloads an object.
func (p *S3FileProvider) Read(ctx context.Context, name string) ([]byte, error) {
	key, err := p.key(name)
	if err != nil {
		return nil, err
	}
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, p.bucket, key)
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", p.bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// Write uploads an object.
func (p *S3FileProvider) Write(ctx context.Context, name string, data []byte) error {
	key, err := p.key(name)
	if err != nil {
		return err
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", p.bucket, key, err)
	}
	return nil
}

// Exists checks an object with HEAD. Only a not-found answer yields false
// without an error.
func (p *S3FileProvider) Exists(ctx context.Context, name string) (bool, error) {
	key, err := p.key(name)
	if err != nil {
		return false, err
	}
	_, err = p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head s3://%s/%s: %w", p.bucket, key, err)
	}
	return true, nil
}

// Delete removes an object.
func (p *S3FileProvider) Delete(ctx context.Context, name string) error {
	key, err := p.key(name)
	if err != nil {
		return err
	}
	_, err = p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", p.bucket, key, err)
	}
	return nil
}

// List returns the object keys under prefix, relative to the provider
// prefix. A missing bucket lists as empty.
func (p *S3FileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	keyPrefix, err := p.key(prefix)
	if err != nil {
		return nil, err
	}
	root := ""
	if p.prefix != "" {
		root = p.prefix + "/"
	}

	result := []string{}
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var noSuchBucket *types.NoSuchBucket
			if errors.As(err, &noSuchBucket) || isNotFound(err) {
				return []string{}, nil
			}
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", p.bucket, keyPrefix, err)
		}
		for _, obj := range page.Contents {
			if rel, ok := strings.CutPrefix(aws.ToString(obj.Key), root); ok && rel != "" {
				result = append(result, rel)
			}
		}
	}
	return result, nil
}
