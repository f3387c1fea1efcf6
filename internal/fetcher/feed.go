package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/mmcdole/gofeed"

	"github.com/rickgao/listing-watch/internal/model"
)

// FeedFetcher reads an RSS or Atom feed.
type FeedFetcher struct {
	cfg    Config
	parser *gofeed.Parser
	client *http.Client
}

// NewFeed creates a FeedFetcher for the feed at cfg.URL.
func NewFeed(cfg Config) *FeedFetcher {
	client := &http.Client{Timeout: cfg.Timeout}
	if len(cfg.Headers) > 0 {
		client.Transport = headerTransport{base: http.DefaultTransport, headers: cfg.Headers}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	if cfg.UserAgent != "" {
		parser.UserAgent = cfg.UserAgent
	}
	return &FeedFetcher{
		cfg:    cfg,
		parser: parser,
		client: client,
	}
}

// FetchSnapshot implements Fetcher. Items with publish dates are ordered
// newest first; if any item is undated, feed order is kept.
func (f *FeedFetcher) FetchSnapshot(ctx context.Context) ([]model.Announcement, error) {
	feed, err := f.parser.ParseURLWithContext(f.cfg.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := feed.Items
	dated := !slices.ContainsFunc(items, func(it *gofeed.Item) bool {
		return it.PublishedParsed == nil
	})
	if dated {
		slices.SortStableFunc(items, func(a, b *gofeed.Item) int {
			return b.PublishedParsed.Compare(*a.PublishedParsed)
		})
	}

	out := make([]model.Announcement, 0, len(items))
	for _, it := range items {
		out = append(out, model.Announcement{Title: it.Title, Href: it.Link})
	}
	return finalize(out, f.cfg.BaseURL, f.cfg.TitleFilter), nil
}

// Close implements io.Closer.
func (f *FeedFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
