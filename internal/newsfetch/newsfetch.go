// Package newsfetch supplies headline context for persona prompts by
// scraping Google News. Everything here is best effort: a failed fetch
// means the debate runs without news, nothing more.
package newsfetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Headline is one scraped news item.
type Headline struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Snippet string `json:"snippet,omitempty"`
}

// Client scrapes stock headlines.
type Client struct {
	http *resty.Client
}

func NewClient() *Client {
	client := resty.New().
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	return &Client{http: client}
}

// Headlines fetches up to limit recent headlines for a ticker and
// renders them as a markdown list suitable for prompt context.
func (c *Client) Headlines(ctx context.Context, ticker string, limit int) (string, error) {
	if limit <= 0 {
		limit = 5
	}

	items, err := c.search(ctx, fmt.Sprintf("%s stock news analysis", ticker), limit)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, h := range items {
		line := h.Title
		if h.Source != "" {
			line = fmt.Sprintf("%s (%s)", line, h.Source)
		}
		if h.Snippet != "" {
			line = fmt.Sprintf("%s: %s", line, h.Snippet)
		}
		fmt.Fprintf(&b, "- %s\n", line)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]Headline, error) {
	searchURL := fmt.Sprintf("https://news.google.com/search?q=%s&hl=en&gl=US&ceid=US:en",
		url.QueryEscape(query))

	resp, err := c.http.R().SetContext(ctx).Get(searchURL)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP error %d when fetching news", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parse news HTML: %w", err)
	}

	return parseArticles(doc, limit), nil
}

func parseArticles(doc *goquery.Document, limit int) []Headline {
	var items []Headline
	doc.Find("article").Each(func(_ int, s *goquery.Selection) {
		if len(items) >= limit {
			return
		}

		title := strings.TrimSpace(s.Find("h3").Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("h4").Text())
		}
		if title == "" {
			return
		}

		items = append(items, Headline{
			Title:   title,
			Source:  strings.TrimSpace(s.Find("div[data-n-tid]").Text()),
			Snippet: strings.TrimSpace(s.Find("span").Last().Text()),
		})
	})
	return items
}
