package scraper

import (
	"context"
	"io"
)

// Client defines the HTTP operations the scraper needs
type Client interface {
	GetPage(ctx context.Context, url string) ([]byte, error)
	Download(ctx context.Context, url string, sink func(io.Reader) (int64, error)) (int64, error)
}
