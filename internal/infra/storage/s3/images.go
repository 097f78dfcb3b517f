package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"carrental/internal/app/policies"
)

var ErrEmptyFilename = errors.New("s3: image filename is empty")

type Options struct {
	Endpoint      string
	UseSSL        bool
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	PublicBaseURL string
	// PresignTTL switches to presigned GET URLs when positive.
	PresignTTL time.Duration
}

// ImageResolver turns stored car image filenames into fetchable URLs.
type ImageResolver struct {
	bucket        string
	publicBaseURL string
	presignTTL    time.Duration
	client        *minio.Client
	logger        *slog.Logger
}

func NewImageResolver(opts Options, logger *slog.Logger) (*ImageResolver, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "us-east-1"
	}
	// a fixed region keeps presigning local, no bucket-location round trip
	client, err := minio.New(parseEndpoint(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	base := strings.TrimSpace(opts.PublicBaseURL)
	if base == "" {
		scheme := "http://"
		if opts.UseSSL {
			scheme = "https://"
		}
		base = endpoint
		if !strings.Contains(base, "://") {
			base = scheme + base
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageResolver{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		presignTTL:    opts.PresignTTL,
		client:        client,
		logger:        logger,
	}, nil
}

func (r *ImageResolver) ImageURL(ctx context.Context, filename string) (string, error) {
	key := strings.Trim(strings.TrimSpace(filename), "/")
	if key == "" {
		return "", ErrEmptyFilename
	}
	if r.presignTTL <= 0 {
		return r.objectURL(key), nil
	}
	u, err := r.client.PresignedGetObject(ctx, r.bucket, key, r.presignTTL, url.Values{})
	if err != nil {
		r.logger.Warn("s3 presign failed", "bucket", r.bucket, "key", key, "error", err)
		return "", fmt.Errorf("s3: presign: %w", err)
	}
	return u.String(), nil
}

func (r *ImageResolver) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", r.publicBaseURL, r.bucket, key)
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ policies.ImageResolver = (*ImageResolver)(nil)
