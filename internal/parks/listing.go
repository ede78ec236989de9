// Package parks walks the parks listing, builds one set of features per park
// page and assembles the harvest.
package parks

import (
	"bytes"
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PageGetter returns page bodies, from cache or network.
type PageGetter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// ListingOptions configures a Walker.
type ListingOptions struct {
	BaseURL     *url.URL
	ListingPath string
	Pages       int
	LinkSelect  string
}

// Walker visits the paginated park listing.
type Walker struct {
	pages PageGetter
	opts  ListingOptions
	log   *zap.Logger
}

// NewWalker creates a listing walker.
func NewWalker(pages PageGetter, opts ListingOptions) *Walker {
	if opts.Pages < 1 {
		opts.Pages = 1
	}
	return &Walker{
		pages: pages,
		opts:  opts,
		log:   zap.L().With(zap.String("component", "listing")),
	}
}

// PageURL returns the URL of listing page n. Page 0 carries no query.
func (w *Walker) PageURL(n int) string {
	ref := &url.URL{Path: w.opts.ListingPath}
	if n > 0 {
		ref.RawQuery = "page=" + strconv.Itoa(n)
	}
	return w.opts.BaseURL.ResolveReference(ref).String()
}

// Walk fetches listing pages 0..Pages-1 in order and calls fn with the park
// links of each page in document order. A fetch failure or an error from fn
// stops the walk.
func (w *Walker) Walk(ctx context.Context, fn func(page int, links []string) error) error {
	for n := range w.opts.Pages {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "listing: walk cancelled")
		}

		pageURL := w.PageURL(n)
		body, err := w.pages.Get(ctx, pageURL)
		if err != nil {
			return eris.Wrapf(err, "listing: fetch page %d", n)
		}

		links, err := w.links(body)
		if err != nil {
			return eris.Wrapf(err, "listing: parse page %d", n)
		}
		w.log.Info("listing page parsed",
			zap.Int("page", n),
			zap.String("url", pageURL),
			zap.Int("links", len(links)),
		)

		if err := fn(n, links); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) links(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "listing: parse html")
	}
	var links []string
	doc.Find(w.opts.LinkSelect).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		links = append(links, href)
	})
	return links, nil
}
