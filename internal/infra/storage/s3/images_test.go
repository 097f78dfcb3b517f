package s3

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublicImageURL(t *testing.T) {
	r, err := NewImageResolver(Options{Endpoint: "http://localhost:9000", Bucket: "cars", AccessKey: "k", SecretKey: "s"}, nil)
	require.NoError(t, err)

	u, err := r.ImageURL(context.Background(), "/front/swift.jpg")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/cars/front/swift.jpg", u)

	_, err = r.ImageURL(context.Background(), "  ")
	require.ErrorIs(t, err, ErrEmptyFilename)
}

func TestPresignedImageURL(t *testing.T) {
	r, err := NewImageResolver(Options{
		Endpoint:   "localhost:9000",
		Bucket:     "cars",
		AccessKey:  "minio",
		SecretKey:  "minio-secret",
		PresignTTL: 15 * time.Minute,
	}, nil)
	require.NoError(t, err)

	raw, err := r.ImageURL(context.Background(), "swift.jpg")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "localhost:9000", u.Host)
	require.Equal(t, "/cars/swift.jpg", u.Path)
	require.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	require.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestResolverRequiresBucket(t *testing.T) {
	_, err := NewImageResolver(Options{Endpoint: "localhost:9000"}, nil)
	require.Error(t, err)
}
