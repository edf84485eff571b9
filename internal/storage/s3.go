package storage

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3 struct {
	bucket   string
	prefix   string
	s3Client *s3.Client
}

func NewS3(bucket, prefix string, s3Client *s3.Client) *S3 {
	return &S3{
		bucket:   bucket,
		prefix:   prefix,
		s3Client: s3Client,
	}
}

func (s *S3) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *S3) WriteFile(ctx context.Context, name string, data []byte) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/plain"),
	})
	return err
}

func (s *S3) ReadFile(ctx context.Context, name string) ([]byte, error) {
	res, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	return io.ReadAll(res.Body)
}

func (s *S3) Close() error {
	// No-op: the client holds no connections of its own
	return nil
}
