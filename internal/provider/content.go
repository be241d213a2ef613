package provider

import "time"

// ContentItem is a normalized news or social post consumed by the sentiment
// provider.
type ContentItem struct {
	Source       string
	SourceItemID string
	Title        string
	URL          string
	Excerpt      string
	Author       string
	PublishedAt  time.Time
	Metadata     map[string]any
}
