package provider

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	defaultFeedItems = 40
	maxTitleLen      = 300
	maxExcerptLen    = 420
	maxAuthorLen     = 120
	maxURLLen        = 500
)

type rssDocument struct {
	Channel struct {
		Title string    `xml:"title"`
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Creator     string `xml:"creator"`
	Author      string `xml:"author"`
}

// RSSProvider pulls crypto news headlines for sentiment scoring.
type RSSProvider struct {
	client *http.Client
	tracer trace.Tracer
}

func NewRSSProvider(tracer trace.Tracer) *RSSProvider {
	return &RSSProvider{
		client: &http.Client{Timeout: 20 * time.Second},
		tracer: tracer,
	}
}

// FetchFeed downloads and normalizes one RSS feed, in feed order.
func (p *RSSProvider) FetchFeed(ctx context.Context, feedURL string, maxItems int) ([]ContentItem, error) {
	_, span := p.tracer.Start(ctx, "rss.fetch-feed")
	defer span.End()

	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return nil, fmt.Errorf("feed url is required")
	}
	if maxItems <= 0 {
		maxItems = defaultFeedItems
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rss fetch error %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode rss payload: %w", err)
	}

	channel := sanitizeText(doc.Channel.Title, maxAuthorLen)
	items := make([]ContentItem, 0, min(maxItems, len(doc.Channel.Items)))
	for i, row := range doc.Channel.Items {
		if i >= maxItems {
			break
		}
		item, ok := row.toContentItem(feedURL, channel)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (r rssItem) toContentItem(feedURL, channel string) (ContentItem, bool) {
	title := sanitizeText(r.Title, maxTitleLen)
	if title == "" {
		return ContentItem{}, false
	}

	publishedAt := parseFeedTime(r.PubDate)
	if publishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	author := sanitizeText(r.Creator, maxAuthorLen)
	if author == "" {
		author = sanitizeText(r.Author, maxAuthorLen)
	}

	// GUID, then link, then a content hash as a last resort so repeat
	// fetches stay deduplicatable.
	sourceID := sanitizeText(r.GUID, 250)
	if sourceID == "" {
		sourceID = sanitizeText(r.Link, 250)
	}
	if sourceID == "" {
		h := sha1.Sum([]byte(title + "|" + publishedAt.Format(time.RFC3339Nano)))
		sourceID = hex.EncodeToString(h[:])
	}

	return ContentItem{
		Source:       "news",
		SourceItemID: sourceID,
		Title:        title,
		URL:          sanitizeText(r.Link, maxURLLen),
		Excerpt:      sanitizeText(stripHTMLTags(r.Description), maxExcerptLen),
		Author:       author,
		PublishedAt:  publishedAt.UTC(),
		Metadata: map[string]any{
			"feed_url": feedURL,
			"channel":  channel,
		},
	}, true
}

var feedTimeLayouts = []string{
	time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339,
}

func parseFeedTime(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func stripHTMLTags(in string) string {
	if strings.TrimSpace(in) == "" {
		return ""
	}
	var b strings.Builder
	inside := false
	for _, r := range in {
		switch r {
		case '<':
			inside = true
			continue
		case '>':
			inside = false
			continue
		}
		if !inside {
			b.WriteRune(r)
		}
	}
	return b.String()
}
