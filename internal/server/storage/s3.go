// Package storage keeps collection avatar images in an S3-compatible bucket.
// Clients upload and download through presigned URLs; the server only signs
// requests and removes objects when a collection is deleted.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) error {
		_, err := c.DeleteObject(ctx, in)
		return err
	}
)

// Options configures the S3 client.
type Options struct {
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	BaseEndpoint  string
	PresignExpiry time.Duration
}

type S3AvatarStore struct {
	opts Options
}

func NewS3AvatarStore(opts Options) *S3AvatarStore {
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = 15 * time.Minute
	}
	return &S3AvatarStore{opts: opts}
}

// AvatarKey is the object key of a collection's avatar image.
func AvatarKey(ownerID, collectionID string) string {
	return fmt.Sprintf("collection_avatars/%s/%s/avatar.png", ownerID, collectionID)
}

func (s *S3AvatarStore) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.opts.AccessKey,
			s.opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.opts.BaseEndpoint)
		}
		// MinIO and other self-hosted endpoints need path-style addressing
		o.UsePathStyle = true
	}), nil
}

// PresignAvatarUpload returns the object key and a presigned PUT URL for the
// avatar of collectionID.
func (s *S3AvatarStore) PresignAvatarUpload(ctx context.Context, ownerID, collectionID string) (string, string, error) {
	c, err := s.client(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.opts.Bucket
	key := AvatarKey(ownerID, collectionID)
	contentType := "image/png"

	req, err := presignPutObject(newS3PresignClient(c), ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(s.opts.PresignExpiry))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// PresignAvatarDownload returns a presigned GET URL for key.
func (s *S3AvatarStore) PresignAvatarDownload(ctx context.Context, key string) (string, error) {
	c, err := s.client(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.opts.Bucket
	req, err := presignGetObject(newS3PresignClient(c), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.opts.PresignExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// DeleteAvatar removes the avatar object of collectionID. S3 reports success
// for keys that do not exist.
func (s *S3AvatarStore) DeleteAvatar(ctx context.Context, ownerID, collectionID string) error {
	c, err := s.client(ctx)
	if err != nil {
		return err
	}

	bucket := s.opts.Bucket
	key := AvatarKey(ownerID, collectionID)
	return deleteObject(c, ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
}
