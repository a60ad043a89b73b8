package infrastructure

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vitovidale/video-manager-service/domain"
	"github.com/vitovidale/video-manager-service/logging"
)

// S3API is the subset of the S3 client used by S3FileStorage.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3FileStorage stores video files as objects in a bucket.
type S3FileStorage struct {
	client     S3API
	bucketName string
}

var _ domain.FileStorage = (*S3FileStorage)(nil)

// NewS3FileStorage loads AWS configuration from the environment.
func NewS3FileStorage(ctx context.Context, bucketName string) (*S3FileStorage, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewS3FileStorageWithClient(s3.NewFromConfig(cfg), bucketName), nil
}

func NewS3FileStorageWithClient(client S3API, bucketName string) *S3FileStorage {
	return &S3FileStorage{client: client, bucketName: bucketName}
}

func (s *S3FileStorage) Save(ctx context.Context, src io.Reader, key string) (string, error) {
	body, size, cleanup, err := sizedBody(src)
	if err != nil {
		return "", err
	}
	defer cleanup()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	logging.Debug("Uploaded s3://%s/%s (%d bytes)", s.bucketName, key, size)
	return key, nil
}

// sizedBody returns a seekable reader over the rest of src and its length, as
// PutObject requires. Readers that cannot seek are spooled to a temporary file.
func sizedBody(src io.Reader) (io.ReadSeeker, int64, func(), error) {
	if rs, ok := src.(io.ReadSeeker); ok {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err == nil {
			var end int64
			if end, err = rs.Seek(0, io.SeekEnd); err == nil {
				_, err = rs.Seek(start, io.SeekStart)
			}
			if err == nil {
				return rs, end - start, func() {}, nil
			}
		}
	}

	tmp, err := os.CreateTemp("", "s3-upload-*")
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	size, err := io.Copy(tmp, src)
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	return tmp, size, cleanup, nil
}
func (s *S3FileStorage) Size(ctx context.Context, key string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to stat s3://%s/%s: %w", s.bucketName, key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (s *S3FileStorage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", s.bucketName, key, err)
	}
	return nil
}
