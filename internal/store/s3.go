package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"platelog/internal/config"
	"platelog/internal/review"
)

// S3 is an artifact store backed by an S3 bucket, for setups that keep
// media out of the Git repository. References carry the s3:// scheme so
// records remain self-describing next to repository-path references.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	logger   review.Logger
}

var _ review.ArtifactStore = (*S3)(nil)

// NewS3 creates an S3 artifact store from configuration. A configured
// static key pair takes precedence over the ambient credential chain.
func NewS3(ctx context.Context, cfg config.ArtifactConfig, logger review.Logger) (*S3, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 artifact store requires s3_bucket to be set")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.S3Bucket,
		prefix:   strings.Trim(cfg.S3Prefix, "/"),
		logger:   logger,
	}, nil
}

// Put uploads the artifact under a timestamped key. If-None-Match keeps
// the upload create-only, matching the never-overwrite contract.
func (s *S3) Put(ctx context.Context, art *review.Artifact, when time.Time, _ review.Credential) (string, error) {
	key := path.Join(s.prefix, "images", fmt.Sprintf("%d_%s", when.UnixMilli(), SanitizeName(art.Name)))

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(art.Bytes),
		ContentType: aws.String(art.ContentType),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading artifact to s3: %w", err)
	}

	ref := "s3://" + s.bucket + "/" + key
	s.logger.Debug("artifact uploaded", "ref", ref, "bytes", len(art.Bytes))
	return ref, nil
}

// Get retrieves an artifact by its s3:// reference. A bare key is resolved
// against the configured bucket.
func (s *S3) Get(ctx context.Context, ref string, _ review.Credential) ([]byte, error) {
	bucket, key := s.bucket, ref
	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		b, k, found := strings.Cut(rest, "/")
		if !found {
			return nil, fmt.Errorf("malformed artifact reference: %s", ref)
		}
		bucket, key = b, k
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%s: %w", ref, review.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching artifact from s3: %w", err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}
