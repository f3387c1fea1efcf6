// Package fetcher provides SnapshotFetcher implementations for polled sources.
//
// Supported kinds:
//   - cms:  exchange CMS JSON article list (Binance)
//   - html: announcement page scraped for anchors (Kraken blog, Binance site)
//   - rss:  RSS/Atom feed
//
// Every fetcher returns announcements newest first, keeps only titles that
// contain the configured filter phrase, resolves relative hrefs against the
// base URL and drops duplicate hrefs.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/rickgao/listing-watch/internal/api"
	"github.com/rickgao/listing-watch/internal/model"
)

// Kind selects a fetcher implementation.
type Kind string

const (
	KindCMS  Kind = "cms"
	KindHTML Kind = "html"
	KindRSS  Kind = "rss"
)

var (
	ErrUnknownKind = errors.New("unknown fetcher kind")
	ErrNoURL       = errors.New("fetcher url is required")
)

// Fetcher returns a source's current announcements, newest first.
type Fetcher interface {
	FetchSnapshot(ctx context.Context) ([]model.Announcement, error)
	io.Closer
}

// Config holds the settings shared by all fetcher kinds.
type Config struct {
	Kind         Kind
	URL          string        // Page, feed or API origin
	BaseURL      string        // Resolves relative hrefs (default: URL)
	TitleFilter  string        // Case-insensitive phrase a title must contain (empty keeps all)
	LinkContains string        // html only: substring an anchor href must contain
	CatalogID    int           // cms only: announcement catalog (default: 48)
	PageSize     int           // cms only: articles per request (default: 20)
	Timeout      time.Duration // HTTP timeout (default: 10s)
	UserAgent    string
	Headers      map[string]string // Sent on every request
}

// New builds the fetcher for cfg.Kind.
func New(cfg Config, logger *slog.Logger) (Fetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = cfg.URL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	switch cfg.Kind {
	case KindCMS:
		return NewCMS(cfg, logger), nil
	case KindHTML:
		return NewHTML(cfg, logger), nil
	case KindRSS:
		return NewFeed(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

func newClient(baseURL string, cfg Config, logger *slog.Logger) *api.Client {
	opts := []api.ClientOption{
		api.WithTimeout(cfg.Timeout),
		api.WithRetries(1, 500*time.Millisecond),
		api.WithUserAgent(cfg.UserAgent),
		api.WithLogger(logger),
	}
	for k, v := range cfg.Headers {
		opts = append(opts, api.WithHeader(k, v))
	}
	return api.NewClient(baseURL, opts...)
}

// finalize applies the title filter, resolves hrefs and drops duplicate hrefs,
// preserving order.
func finalize(items []model.Announcement, baseURL, titleFilter string) []model.Announcement {
	base, _ := url.Parse(baseURL)
	filter := model.Normalize(titleFilter)

	seen := make(map[string]struct{}, len(items))
	out := make([]model.Announcement, 0, len(items))
	for _, it := range items {
		title := strings.Join(strings.Fields(it.Title), " ")
		if title == "" || it.Href == "" {
			continue
		}
		if filter != "" && !strings.Contains(model.Normalize(title), filter) {
			continue
		}

		href := resolve(base, it.Href)
		if _, dup := seen[href]; dup {
			continue
		}
		seen[href] = struct{}{}
		out = append(out, model.NewAnnouncement(title, href))
	}
	return out
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
