package storage

import (
	"context"

	"golang.org/x/xerrors"
)

// Router sends s3:// URLs to Remote and everything else to Local.
type Router struct {
	Local  Reader
	Remote Reader
}

func NewRouter(local Reader, remote Reader) *Router {
	return &Router{
		Local:  local,
		Remote: remote,
	}
}

func (r *Router) backend(url string) (Reader, error) {
	if !IsS3(url) {
		return r.Local, nil
	}
	if r.Remote == nil {
		return nil, xerrors.Errorf("no S3 backend configured for %s", url)
	}
	return r.Remote, nil
}

func (r *Router) Exists(ctx context.Context, url string) (bool, error) {
	b, err := r.backend(url)
	if err != nil {
		return false, err
	}
	return b.Exists(ctx, url)
}

func (r *Router) Get(ctx context.Context, url string) ([]byte, error) {
	b, err := r.backend(url)
	if err != nil {
		return nil, err
	}
	return b.Get(ctx, url)
}
