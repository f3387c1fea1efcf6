package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/listing-watch/internal/api"
	"github.com/rickgao/listing-watch/internal/model"
)

const (
	defaultCatalogID = 48 // New Cryptocurrency Listing
	defaultPageSize  = 20
	articlePath      = "/en/support/announcement/"
)

// CMSFetcher reads an exchange's CMS article list.
type CMSFetcher struct {
	cfg    Config
	client *api.Client
}

// NewCMS creates a CMSFetcher. cfg.URL is the API origin.
func NewCMS(cfg Config, logger *slog.Logger) *CMSFetcher {
	if cfg.CatalogID == 0 {
		cfg.CatalogID = defaultCatalogID
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &CMSFetcher{
		cfg:    cfg,
		client: newClient(strings.TrimRight(cfg.URL, "/"), cfg, logger),
	}
}

// FetchSnapshot implements Fetcher.
func (f *CMSFetcher) FetchSnapshot(ctx context.Context) ([]model.Announcement, error) {
	articles, err := f.client.ListArticles(ctx, f.cfg.CatalogID, f.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	items := make([]model.Announcement, 0, len(articles))
	for _, a := range articles {
		if a.Code == "" {
			continue
		}
		items = append(items, model.Announcement{Title: a.Title, Href: articlePath + a.Code})
	}
	return finalize(items, f.cfg.BaseURL, f.cfg.TitleFilter), nil
}

// Close implements io.Closer.
func (f *CMSFetcher) Close() error {
	return f.client.Close()
}
