package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/rickgao/listing-watch/internal/api"
	"github.com/rickgao/listing-watch/internal/model"
)

// HTMLFetcher scrapes anchors from an announcement page.
type HTMLFetcher struct {
	cfg    Config
	client *api.Client
}

// NewHTML creates an HTMLFetcher for the page at cfg.URL.
func NewHTML(cfg Config, logger *slog.Logger) *HTMLFetcher {
	return &HTMLFetcher{
		cfg:    cfg,
		client: newClient(cfg.URL, cfg, logger),
	}
}

// FetchSnapshot implements Fetcher. Anchors are returned in document order,
// which announcement pages list newest first.
func (f *HTMLFetcher) FetchSnapshot(ctx context.Context) ([]model.Announcement, error) {
	body, err := f.client.GetBytes(ctx, "", nil)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}

	items, err := ParseAnchors(bytes.NewReader(body), f.cfg.LinkContains)
	if err != nil {
		return nil, err
	}
	return finalize(items, f.cfg.BaseURL, f.cfg.TitleFilter), nil
}

// Close implements io.Closer.
func (f *HTMLFetcher) Close() error {
	return f.client.Close()
}

// ParseAnchors returns every <a href> whose href contains linkContains (any
// href when empty), titled by the anchor's text.
func ParseAnchors(r io.Reader, linkContains string) ([]model.Announcement, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var items []model.Announcement
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := attr(n, "href")
			if href != "" && strings.Contains(href, linkContains) {
				items = append(items, model.Announcement{Title: textContent(n), Href: href})
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return items, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
