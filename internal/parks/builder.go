package parks

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/parkmap/internal/geometry"
	"github.com/sells-group/parkmap/internal/mapconfig"
	"github.com/sells-group/parkmap/internal/model"
)

// PageSource is a PageGetter that also names the cache key of a URL, so the
// settings artifact lands beside the cached page.
type PageSource interface {
	PageGetter
	Key(url string) (string, error)
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	BaseURL        *url.URL
	DescriptionSel string
	GallerySel     string
}

// ParkResult is the outcome of building one park page.
type ParkResult struct {
	URL      string
	Features []model.Feature
	// Skipped counts map records dropped as malformed.
	Skipped int
	HasMap  bool
}

// Builder turns a park page into features.
type Builder struct {
	pages     PageSource
	extractor *mapconfig.Extractor
	opts      BuilderOptions
	log       *zap.Logger
}

// NewBuilder creates a park feature builder.
func NewBuilder(pages PageSource, extractor *mapconfig.Extractor, opts BuilderOptions) *Builder {
	return &Builder{
		pages:     pages,
		extractor: extractor,
		opts:      opts,
		log:       zap.L().With(zap.String("component", "builder")),
	}
}

// Build fetches the park page behind link and returns one feature per usable
// map record, in layer order. Malformed records are logged and skipped; only
// fetch and artifact failures are returned.
func (b *Builder) Build(ctx context.Context, link string) (ParkResult, error) {
	ref, err := url.Parse(link)
	if err != nil {
		return ParkResult{}, eris.Wrapf(err, "builder: parse link %q", link)
	}
	pageURL := b.opts.BaseURL.ResolveReference(ref).String()
	log := b.log.With(zap.String("url", pageURL))

	body, err := b.pages.Get(ctx, pageURL)
	if err != nil {
		return ParkResult{}, eris.Wrapf(err, "builder: fetch %s", pageURL)
	}
	key, err := b.pages.Key(pageURL)
	if err != nil {
		return ParkResult{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ParkResult{}, eris.Wrapf(err, "builder: parse %s", pageURL)
	}

	description := b.description(doc)
	images := b.images(doc, log)

	mc, err := b.extractor.Extract(doc, key)
	if err != nil {
		return ParkResult{}, err
	}

	res := ParkResult{URL: pageURL, HasMap: mc.Found()}
	for i, raw := range mc.Features {
		rf, err := model.DecodeRawFeature(raw)
		if err != nil {
			log.Warn("skipping map record", zap.Int("index", i), zap.Error(err))
			res.Skipped++
			continue
		}
		g, err := geometry.Normalize(rf.Geometry)
		if err != nil {
			log.Warn("skipping map record", zap.Int("index", i), zap.Error(err))
			res.Skipped++
			continue
		}
		wire, err := geometry.EncodeKind(rf.Kind, g)
		if err != nil {
			log.Warn("skipping map record", zap.Int("index", i), zap.Error(err))
			res.Skipped++
			continue
		}

		props := model.ParkProperties{
			URL:         pageURL,
			Description: description,
			Images:      images,
		}
		if rf.HasTitle {
			title := StripHTML(rf.Title)
			props.Title = &title
		}

		f, err := model.NewParkFeature(model.FeatureID(pageURL, i), wire, props)
		if err != nil {
			return ParkResult{}, err
		}
		res.Features = append(res.Features, f)
	}

	log.Debug("park built",
		zap.Int("features", len(res.Features)),
		zap.Int("skipped", res.Skipped),
		zap.Int("images", len(images)),
	)
	return res, nil
}

func (b *Builder) description(doc *goquery.Document) string {
	sel := doc.Find(b.opts.DescriptionSel).First()
	if sel.Length() == 0 {
		return ""
	}
	return norm.NFC.String(strings.TrimSpace(sel.Text()))
}

func (b *Builder) images(doc *goquery.Document, log *zap.Logger) []model.Image {
	images := []model.Image{}
	gallery := doc.Find(b.opts.GallerySel).First()
	gallery.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			log.Warn("skipping gallery image without src")
			return
		}
		ref, err := url.Parse(src)
		if err != nil {
			log.Warn("skipping gallery image with bad src", zap.String("src", src), zap.Error(err))
			return
		}
		images = append(images, model.Image{
			Src:   b.opts.BaseURL.ResolveReference(ref).String(),
			Title: img.AttrOr("title", ""),
		})
	})
	return images
}

// StripHTML returns the text content of an HTML fragment.
func StripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}
