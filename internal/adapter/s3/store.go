// Package s3 stores uploaded photos in an AWS S3 bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/couchcryptid/deal-discovery/internal/domain"
)

// API is the subset of the S3 client the store uses.
type API interface {
	PutObject(ctx context.Context, in *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
}

// Store writes photos to a single bucket.
// It implements pipeline.ObjectStore.
type Store struct {
	client API
	bucket string
}

// NewStore creates a Store for bucket. Pass awss3.NewFromConfig(cfg) as client.
func NewStore(client API, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Put uploads data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (domain.ImageRef, error) {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return domain.ImageRef{}, fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return domain.ImageRef{Bucket: s.bucket, Key: key}, nil
}

// CheckReadiness reports whether the bucket is reachable.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}
	return nil
}
