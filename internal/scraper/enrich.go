package scraper

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"land-tracker/internal/models"
	"land-tracker/internal/normalize"
)

// Enricher fills in listing fields the search page did not carry by
// visiting the detail page. Only missing fields are filled; values the
// list page already provided are never overwritten.
type Enricher struct {
	fetcher  *Fetcher
	limit    int
	headless bool
}

func NewEnricher(fetcher *Fetcher, limit int, headless bool) *Enricher {
	return &Enricher{
		fetcher:  fetcher,
		limit:    limit,
		headless: headless,
	}
}

// ShouldEnrich reports whether the listing is worth a detail-page visit
func (e *Enricher) ShouldEnrich(raw models.RawListing) bool {
	return normalize.IsBadTitle(raw.Title) ||
		raw.ThumbnailURL == "" ||
		raw.Status == models.StatusUnknown ||
		raw.Price == nil
}

// EnrichBatch visits detail pages for listings that need it, up to the
// per-run limit. Enrichment failures are logged and skipped; the listing
// keeps its list-page fields.
func (e *Enricher) EnrichBatch(ctx context.Context, batch []models.RawListing) []models.RawListing {
	enriched := 0
	for i := range batch {
		if enriched >= e.limit {
			log.Printf("[Enrich] Detail page limit %d reached, %d listings left unenriched", e.limit, len(batch)-i)
			break
		}
		if !e.ShouldEnrich(batch[i]) {
			continue
		}

		if err := e.enrichOne(ctx, &batch[i]); err != nil {
			log.Printf("[Enrich] %s: %v", batch[i].URL, err)
			continue
		}
		enriched++
	}

	if enriched > 0 {
		log.Printf("[Enrich] Enriched %d listings from detail pages", enriched)
	}
	return batch
}

func (e *Enricher) enrichOne(ctx context.Context, raw *models.RawListing) error {
	html, err := e.fetcher.FetchHTML(ctx, raw.URL)
	if err != nil {
		if !e.headless {
			return err
		}
		// Some detail pages are rendered client side; fall back to a
		// headless browser when plain HTTP fails
		html, err = fetchHeadless(ctx, raw.URL)
		if err != nil {
			return err
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return err
	}

	applyDetailPage(raw, doc)
	return nil
}

// applyDetailPage merges detail-page fields into the raw listing,
// touching only what the list page left missing
func applyDetailPage(raw *models.RawListing, doc *goquery.Document) {
	if normalize.IsBadTitle(raw.Title) {
		if title := detailTitle(doc); title != "" {
			raw.Title = title
		}
	}

	if raw.ThumbnailURL == "" {
		raw.ThumbnailURL = metaContent(doc, `meta[property="og:image"]`)
	}

	// Status comes from the widest text pool available: meta description
	// plus visible body text
	statusText := metaContent(doc, `meta[property="og:description"]`) + " " +
		metaContent(doc, `meta[name="description"]`) + " " +
		doc.Find("body").Text()
	if st := normalize.DetectStatus(statusText); st != models.StatusUnknown {
		raw.Status = st
	}

	for _, block := range jsonLDBlocks(doc) {
		walkMaps(block, func(d map[string]any) {
			if raw.Price == nil {
				if p := normalize.ParseMoney(priceText(d)); p != nil {
					raw.Price = p
				}
			}
			if raw.Acreage == nil {
				if a := normalize.ParseAcres(firstText(d, "acres", "acreage", "lotSizeAcres", "lotSize")); a != nil {
					raw.Acreage = a
				}
			}
		})
	}

	if raw.Price == nil {
		raw.Price = normalize.ParseMoney(doc.Find("body").Text())
	}
}

func detailTitle(doc *goquery.Document) string {
	for _, sel := range []string{`meta[property="og:title"]`, `meta[name="twitter:title"]`} {
		if c := metaContent(doc, sel); c != "" && !normalize.IsBadTitle(c) {
			return c
		}
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" && !normalize.IsBadTitle(h1) {
		return h1
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" && !normalize.IsBadTitle(t) {
		return t
	}
	return ""
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// fetchHeadless renders the page in a headless browser and returns the
// final DOM. Used only when the HTTP fetch path fails.
func fetchHeadless(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, 45*time.Second)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}
