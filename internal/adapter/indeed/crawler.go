// Package indeed scrapes job listings from Indeed's public search pages by
// emulating the URL grammar of its search form.
package indeed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/vitaehq/vitae/internal/domain"
)

const (
	maxListings   = 10
	serverRetries = 3
	// only postings from the last three days
	recencyFilter = "&fromage=3"

	defaultHTTPTimeout = 15 * time.Second
)

var (
	// ErrClientRejected is returned for 4xx and 300 responses; the query
	// itself is malformed or blocked and retrying cannot help.
	ErrClientRejected = errors.New("indeed: request rejected")
	// ErrServerUnavailable is returned when retries against a 5xx response
	// are exhausted.
	ErrServerUnavailable = errors.New("indeed: server unavailable")
)

// Config configures a Crawler.
type Config struct {
	// BaseURL is where searches are fetched from.
	BaseURL string
	// LinkBaseURL is prefixed to scraped hrefs to form listing URLs.
	// Defaults to BaseURL.
	LinkBaseURL string
	HTTPClient  *http.Client
}

// Crawler fetches and parses Indeed search result pages. It implements
// domain.ListingSource.
type Crawler struct {
	baseURL     string
	linkBaseURL string
	client      *http.Client
}

// NewCrawler constructs a Crawler.
func NewCrawler(cfg Config) *Crawler {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.indeed.com"
	}
	linkBaseURL := strings.TrimSuffix(cfg.LinkBaseURL, "/")
	if linkBaseURL == "" {
		linkBaseURL = baseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Crawler{baseURL: baseURL, linkBaseURL: linkBaseURL, client: client}
}

// Scrape searches for position near location and returns up to ten listings,
// deduplicated by title in discovery order. Both inputs blank is not an
// error: no request is made and the result is empty.
func (c *Crawler) Scrape(ctx context.Context, position, location string) ([]domain.Listing, error) {
	position = strings.TrimSpace(position)
	location = strings.TrimSpace(location)
	if position == "" && location == "" {
		return nil, nil
	}

	body, err := c.fetch(ctx, c.baseURL+"/"+buildQuery(position, location))
	if err != nil {
		return nil, err
	}
	return c.extract(body)
}

// buildQuery reproduces the search form's URL grammar: position words joined
// with "+" under q=, the location's first token as the city under l= with
// later tokens appended as "+word" when longer than two characters and as a
// "%2C+" state code otherwise, plus the recency filter.
func buildQuery(position, location string) string {
	var b strings.Builder
	b.WriteString("jobs?")

	if position != "" {
		b.WriteString("q=")
		for _, word := range strings.Fields(position) {
			b.WriteString(word)
			b.WriteString("+")
		}
	}

	if location != "" {
		b.WriteString("&l=")
		tokens := strings.FieldsFunc(location, func(r rune) bool {
			return r == ',' || r == ' '
		})
		for i, token := range tokens {
			switch {
			case i == 0:
				b.WriteString(token)
			case len(token) > 2:
				b.WriteString("+" + token)
			default:
				b.WriteString("%2C+" + token)
			}
		}
	}

	b.WriteString(recencyFilter)
	return b.String()
}

func (c *Crawler) fetch(ctx context.Context, url string) ([]byte, error) {
	status, body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	if status == http.StatusMultipleChoices || (status >= 400 && status < 500) {
		return nil, fmt.Errorf("%w: status %d", ErrClientRejected, status)
	}

	// 5xx gets up to three immediate retries at the same URL.
	for retries := 0; retries < serverRetries && status >= 500 && status < 600; retries++ {
		status, body, err = c.get(ctx, url)
		if err != nil {
			return nil, err
		}
	}
	if status >= 500 && status < 600 {
		return nil, fmt.Errorf("%w: status %d", ErrServerUnavailable, status)
	}
	if status == http.StatusMultipleChoices || (status >= 400 && status < 500) {
		return nil, fmt.Errorf("%w: status %d", ErrClientRejected, status)
	}

	return body, nil
}

func (c *Crawler) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("indeed: build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("indeed: http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("indeed: read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// extract scans the markup's anchors for sponsored ("/pagead/") and organic
// ("/rc/") job posting links. A document without anchors yields an empty
// result.
func (c *Crawler) extract(body []byte) ([]domain.Listing, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("indeed: parse markup: %w", err)
	}

	var listings []domain.Listing
	seen := make(map[string]bool)

	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := attrValue(n, "href"); ok && isJobLink(href) {
				title := strings.TrimSpace(textContent(n))
				if !seen[title] {
					seen[title] = true
					listings = append(listings, domain.Listing{
						Title: title,
						URL:   c.linkBaseURL + href,
					})
					if len(listings) == maxListings {
						return true
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if walk(child) {
				return true
			}
		}
		return false
	}
	walk(doc)

	return listings, nil
}

func isJobLink(href string) bool {
	return strings.Contains(href, "/pagead/") || strings.Contains(href, "/rc/")
}

func attrValue(n *html.Node, name string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(n)
	return b.String()
}
