// Package news fetches news articles from an RSS feed and reduces each entry
// to plain text suitable for reading practice.
package news

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"
)

const (
	// DefaultLimit is how many top entries are considered per refresh.
	DefaultLimit = 20
	// PlaceholderImageURL is used when an entry carries no image.
	PlaceholderImageURL = "https://static.nrk.no/nrk-gfx/nrk-logo-white-720.png"
	// DefaultSource labels articles from the default feed.
	DefaultSource = "NRK"
)

// Article is one cleaned feed entry.
type Article struct {
	Title     string
	Summary   string
	Link      string
	ImageURL  string
	Source    string
	Published *time.Time
}

// Config holds the fetcher configuration.
type Config struct {
	URL    string
	Source string
	Limit  int
	Client *http.Client
}

// Fetcher downloads and cleans a feed.
type Fetcher struct {
	parser *gofeed.Parser
	config Config
}

// NewFetcher creates a new feed fetcher.
func NewFetcher(config Config) *Fetcher {
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	if config.Source == "" {
		config.Source = DefaultSource
	}
	parser := gofeed.NewParser()
	if config.Client != nil {
		parser.Client = config.Client
	}
	return &Fetcher{parser: parser, config: config}
}

// Fetch returns up to Limit cleaned articles in feed order. Entries without a
// link are skipped.
func (f *Fetcher) Fetch(ctx context.Context) ([]*Article, error) {
	if f.config.URL == "" {
		return nil, errors.New("feed url is required")
	}
	feed, err := f.parser.ParseURLWithContext(f.config.URL, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse feed %s", f.config.URL)
	}

	items := feed.Items
	if len(items) > f.config.Limit {
		items = items[:f.config.Limit]
	}

	articles := make([]*Article, 0, len(items))
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "No Title"
		}
		articles = append(articles, &Article{
			Title:     title,
			Summary:   CleanSummary(item.Description),
			Link:      link,
			ImageURL:  ExtractImage(item),
			Source:    f.config.Source,
			Published: item.PublishedParsed,
		})
	}
	return articles, nil
}

// CleanSummary strips markup from an HTML fragment and collapses whitespace.
func CleanSummary(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// ExtractImage picks the widest media:content image, then an image enclosure
// or the feed item image, then the first <img> in the summary, then a placeholder.
func ExtractImage(item *gofeed.Item) string {
	if url := widestMediaContent(item); url != "" {
		return url
	}
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && strings.HasPrefix(enclosure.Type, "image/") && enclosure.URL != "" {
			return enclosure.URL
		}
	}
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	if item.Description != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description)); err == nil {
			if src, ok := doc.Find("img").First().Attr("src"); ok && src != "" {
				return src
			}
		}
	}
	return PlaceholderImageURL
}

func widestMediaContent(item *gofeed.Item) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}

	best, bestWidth := "", -1
	for _, content := range media["content"] {
		url := content.Attrs["url"]
		if url == "" {
			continue
		}
		width, _ := strconv.Atoi(content.Attrs["width"])
		if width > bestWidth {
			best, bestWidth = url, width
		}
	}
	return best
}
