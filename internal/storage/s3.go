package storage

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"restorable.io/restorectl/internal/config"
	"restorable.io/restorectl/internal/model"
)

// S3Digester reads digests from S3-compatible object metadata. Single-part
// ETags are MD5 digests and stored SHA-256 checksums are returned as is; any
// other case falls back to streaming the object.
type S3Digester struct {
	client   *s3.Client
	bucket   string
	prefix   string
	endpoint string
}

// NewS3Digester creates a digester from provider configuration.
func NewS3Digester(cfg *config.S3) (*S3Digester, error) {
	accessKey := os.Getenv(cfg.AccessKeyEnv)
	if accessKey == "" {
		return nil, fmt.Errorf("S3 access key environment variable %s is not set", cfg.AccessKeyEnv)
	}

	secretKey := os.Getenv(cfg.SecretKeyEnv)
	if secretKey == "" {
		return nil, fmt.Errorf("S3 secret key environment variable %s is not set", cfg.SecretKeyEnv)
	}

	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.Region
			o.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
		},
	}

	// S3-compatible services (DigitalOcean Spaces, MinIO) need path-style addressing.
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Digester{
		client:   s3.New(s3.Options{}, opts...),
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		endpoint: cfg.Endpoint,
	}, nil
}

func (s *S3Digester) key(snap model.Snapshot) string {
	return strings.TrimPrefix(path.Join(s.prefix, snap.Path), "/")
}

// Digest returns the object digest.
func (s *S3Digester) Digest(ctx context.Context, snap model.Snapshot, algorithm string) (string, error) {
	key := s.key(snap)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		ChecksumMode: types.ChecksumModeEnabled,
	})
	if err != nil {
		return "", s.mapError(key, err)
	}

	switch algorithm {
	case AlgorithmMD5:
		if etag := strings.Trim(aws.ToString(head.ETag), `"`); etag != "" && !strings.Contains(etag, "-") {
			return strings.ToLower(etag), nil
		}
	case AlgorithmSHA256:
		if sum := aws.ToString(head.ChecksumSHA256); sum != "" && !strings.Contains(sum, "-") {
			raw, err := base64.StdEncoding.DecodeString(sum)
			if err == nil {
				return hex.EncodeToString(raw), nil
			}
		}
	}

	return s.stream(ctx, key, algorithm)
}

func (s *S3Digester) stream(ctx context.Context, key, algorithm string) (string, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", s.mapError(key, err)
	}
	defer result.Body.Close()

	return HashReader(ctx, algorithm, result.Body)
}

func (s *S3Digester) mapError(key string, err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: s3://%s/%s", ErrArtifactNotFound, s.bucket, key)
	}
	return fmt.Errorf("failed to read object s3://%s/%s: %w", s.bucket, key, err)
}

// Identifier returns the bucket URI for traceability.
func (s *S3Digester) Identifier() string {
	if s.endpoint != "" {
		return fmt.Sprintf("s3://%s/%s (endpoint: %s)", s.bucket, s.prefix, s.endpoint)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}
