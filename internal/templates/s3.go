package templates

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Store serves templates from an S3 (or compatible) bucket. Credentials
// come from the default AWS chain.
type S3Store struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// NewS3Store creates a store over bucket/prefix.
func NewS3Store(bucket, prefix, region, endpoint string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 template store: bucket is required")
	}

	cfg := aws.Config{}
	if region != "" {
		cfg.Region = aws.String(region)
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("create AWS session: %w", err)
	}

	return newS3Store(s3.New(sess), bucket, prefix), nil
}

func newS3Store(client s3iface.S3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Exists implements Store.
func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("s3 head %s: %w", s.key(name), err)
}

// Read implements Store.
func (s *S3Store) Read(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("s3 get %s: %w", s.key(name), fs.ErrNotExist)
		}
		return nil, fmt.Errorf("s3 get %s: %w", s.key(name), err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// String returns the store location.
func (s *S3Store) String() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}

func isS3NotFound(err error) bool {
	if reqErr, ok := err.(awserr.RequestFailure); ok && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
