package policies

import "context"

// ImageResolver turns a stored image filename into a URL clients can fetch.
type ImageResolver interface {
	ImageURL(ctx context.Context, filename string) (string, error)
}
