package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ArticleListPath is the CMS article listing endpoint.
const ArticleListPath = "/bapi/composite/v1/public/cms/article/list/query"

// ArticleListResponse from GET ArticleListPath.
type ArticleListResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    ArticleData `json:"data"`
	Success bool        `json:"success"`
}

// ArticleData wraps the catalogs in an article list response.
type ArticleData struct {
	Catalogs []Catalog `json:"catalogs"`
}

// Catalog is one announcement category.
type Catalog struct {
	CatalogID   int       `json:"catalogId"`
	CatalogName string    `json:"catalogName"`
	Articles    []Article `json:"articles"`
	Total       int       `json:"total"`
}

// Article is one announcement. Articles are listed newest first.
type Article struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	ReleaseDate int64  `json:"releaseDate"` // Unix millis
}

// ListArticles returns the first page of a catalog's articles, newest first.
func (c *Client) ListArticles(ctx context.Context, catalogID, pageSize int) ([]Article, error) {
	query := url.Values{}
	query.Set("type", "1")
	query.Set("catalogId", strconv.Itoa(catalogID))
	query.Set("pageNo", "1")
	query.Set("pageSize", strconv.Itoa(pageSize))

	var resp ArticleListResponse
	if err := c.GetJSON(ctx, ArticleListPath, query, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "" && resp.Code != "000000" {
		return nil, fmt.Errorf("cms error %s: %s", resp.Code, resp.Message)
	}

	for _, cat := range resp.Data.Catalogs {
		if cat.CatalogID == catalogID {
			return cat.Articles, nil
		}
	}
	if len(resp.Data.Catalogs) == 1 {
		return resp.Data.Catalogs[0].Articles, nil
	}
	return nil, nil
}
