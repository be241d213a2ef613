package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	redditBaseURL     = "https://www.reddit.com"
	defaultRedditUA   = "cautious-pancake/1.0 (+https://github.com/scaryPonens/cautious-pancake)"
	defaultRedditSize = 40
	maxRedditSize     = 100
)

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Score       float64 `json:"score"`
	NumComments float64 `json:"num_comments"`
}

// RedditProvider pulls hot posts from crypto subreddits for sentiment
// scoring.
type RedditProvider struct {
	client    *http.Client
	baseURL   string
	userAgent string
	tracer    trace.Tracer
}

func NewRedditProvider(tracer trace.Tracer) *RedditProvider {
	return &RedditProvider{
		client:    &http.Client{Timeout: 20 * time.Second},
		baseURL:   redditBaseURL,
		userAgent: defaultRedditUA,
		tracer:    tracer,
	}
}

// FetchHot returns normalized hot posts from one subreddit.
func (p *RedditProvider) FetchHot(ctx context.Context, subreddit string, limit int) ([]ContentItem, error) {
	_, span := p.tracer.Start(ctx, "reddit.fetch-hot")
	defer span.End()

	subreddit = strings.TrimSpace(subreddit)
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit is required")
	}
	if limit <= 0 {
		limit = defaultRedditSize
	}
	if limit > maxRedditSize {
		limit = maxRedditSize
	}

	base := strings.TrimRight(p.baseURL, "/")
	endpoint := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", base, url.PathEscape(subreddit), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reddit API error %d: %s", resp.StatusCode, string(body))
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode reddit response: %w", err)
	}

	items := make([]ContentItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		item, ok := child.Data.toContentItem(base)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (d redditPost) toContentItem(base string) (ContentItem, bool) {
	if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.Title) == "" {
		return ContentItem{}, false
	}

	itemURL := strings.TrimSpace(d.URL)
	if permalink := strings.TrimSpace(d.Permalink); permalink != "" {
		itemURL = base + permalink
	}

	return ContentItem{
		Source:       "reddit",
		SourceItemID: d.ID,
		Title:        sanitizeText(d.Title, maxTitleLen),
		URL:          itemURL,
		Excerpt:      sanitizeText(d.SelfText, maxExcerptLen),
		Author:       sanitizeText(d.Author, maxAuthorLen),
		PublishedAt:  time.Unix(int64(d.CreatedUTC), 0).UTC(),
		Metadata: map[string]any{
			"subreddit":    strings.TrimSpace(d.Subreddit),
			"score":        d.Score,
			"num_comments": d.NumComments,
		},
	}, true
}

func sanitizeText(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	in = strings.ReplaceAll(in, "\n", " ")
	in = strings.ReplaceAll(in, "\r", " ")
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && len(in) > maxLen {
		in = in[:maxLen]
	}
	return in
}
