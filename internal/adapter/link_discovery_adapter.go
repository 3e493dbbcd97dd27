package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrInvalidPageURL is returned for page URLs without a scheme or host.
var ErrInvalidPageURL = errors.New("invalid page url")

// LinkDiscoverer finds the scripts a page loads.
type LinkDiscoverer interface {
	// DiscoverLinks returns the absolute URLs of every <script src> element
	// on the page, deduplicated in document order.
	DiscoverLinks(ctx context.Context, pageURL string) ([]string, error)
}

// PageLinkDiscoverer fetches a page with a Fetcher and parses it with goquery.
type PageLinkDiscoverer struct {
	fetcher Fetcher
}

// NewPageLinkDiscoverer constructs a PageLinkDiscoverer.
func NewPageLinkDiscoverer(fetcher Fetcher) *PageLinkDiscoverer {
	return &PageLinkDiscoverer{fetcher: fetcher}
}

// DiscoverLinks implements LinkDiscoverer.
func (d *PageLinkDiscoverer) DiscoverLinks(ctx context.Context, pageURL string) ([]string, error) {
	page, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || page.Scheme == "" || page.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPageURL, pageURL)
	}

	resp, err := d.fetcher.Fetch(ctx, page.String())
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", page, err)
	}

	if !resp.OK() {
		return nil, fmt.Errorf("fetch page %s: status %d", page, resp.StatusCode)
	}

	return ExtractScriptLinks(page, resp.Body)
}

// ExtractScriptLinks parses an HTML document and returns its script sources
// resolved against page, honouring a <base href> element.
func ExtractScriptLinks(page *url.URL, html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	base := page

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if parsed, err := page.Parse(strings.TrimSpace(href)); err == nil {
			base = parsed
		}
	}

	var links []string

	seen := make(map[string]struct{})

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			return
		}

		resolved, err := base.Parse(src)
		if err != nil {
			slog.Debug("skipping unparsable script src", "src", src, "error", err)
			return
		}

		link := resolved.String()
		if _, dup := seen[link]; dup {
			return
		}

		seen[link] = struct{}{}
		links = append(links, link)
	})

	slog.Info("discovered scripts", "page", page.String(), "count", len(links))

	return links, nil
}
