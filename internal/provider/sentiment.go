package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"cautious-pancake/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ContentSource supplies normalized news or social items for scoring.
type ContentSource interface {
	Fetch(ctx context.Context) ([]ContentItem, error)
}

// RSSSource adapts RSSProvider to a fixed feed list.
type RSSSource struct {
	provider *RSSProvider
	feedURLs []string
}

func NewRSSSource(provider *RSSProvider, feedURLs []string) *RSSSource {
	return &RSSSource{provider: provider, feedURLs: feedURLs}
}

func (s *RSSSource) Fetch(ctx context.Context) ([]ContentItem, error) {
	var items []ContentItem
	for _, u := range s.feedURLs {
		fetched, err := s.provider.FetchFeed(ctx, u, 40)
		if err != nil {
			log.Printf("rss feed %s unavailable: %v", u, err)
			continue
		}
		items = append(items, fetched...)
	}
	return items, nil
}

// RedditSource adapts RedditProvider to a fixed subreddit list.
type RedditSource struct {
	provider   *RedditProvider
	subreddits []string
}

func NewRedditSource(provider *RedditProvider, subreddits []string) *RedditSource {
	return &RedditSource{provider: provider, subreddits: subreddits}
}

func (s *RedditSource) Fetch(ctx context.Context) ([]ContentItem, error) {
	var items []ContentItem
	for _, sub := range s.subreddits {
		fetched, err := s.provider.FetchHot(ctx, sub, 40)
		if err != nil {
			log.Printf("subreddit %s unavailable: %v", sub, err)
			continue
		}
		items = append(items, fetched...)
	}
	return items, nil
}

// ItemScore is one scored content item.
type ItemScore struct {
	Index      int
	Score      float64 // -1 bearish .. 1 bullish
	Confidence float64
	Label      string
}

// LLMScorer refines heuristic scores for a batch of items.
type LLMScorer interface {
	ScoreBatch(ctx context.Context, items []ContentItem) ([]ItemScore, error)
}

// assetKeywords filter content down to items about one base asset.
var assetKeywords = map[string][]string{
	"BTC":  {"btc", "bitcoin"},
	"ETH":  {"eth", "ethereum"},
	"BNB":  {"bnb", "binance coin"},
	"SOL":  {"sol", "solana"},
	"XRP":  {"xrp", "ripple"},
	"ADA":  {"ada", "cardano"},
	"DOGE": {"doge", "dogecoin"},
	"DOT":  {"dot", "polkadot"},
	"AVAX": {"avax", "avalanche"},
	"LINK": {"link", "chainlink"},
}

const llmScoreBatchSize = 24

// SentimentProvider scores recent news and social chatter about a symbol.
// Heuristic keyword scoring always runs; an LLM scorer, when configured,
// refines the per-item scores. Empty or unreachable sources degrade to a
// weak neutral reading rather than an error.
type SentimentProvider struct {
	tracer  trace.Tracer
	sources []ContentSource
	llm     LLMScorer
}

func NewSentimentProvider(tracer trace.Tracer, sources []ContentSource, llm LLMScorer) *SentimentProvider {
	return &SentimentProvider{tracer: tracer, sources: sources, llm: llm}
}

// GetSentiment aggregates per-item scores for a symbol into one reading on
// the [0,1] scale the generators expect, 0.5 being neutral.
func (p *SentimentProvider) GetSentiment(ctx context.Context, symbol string) (domain.SentimentReading, error) {
	ctx, span := p.tracer.Start(ctx, "sentiment.get-sentiment")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	var items []ContentItem
	for _, source := range p.sources {
		fetched, err := source.Fetch(ctx)
		if err != nil {
			log.Printf("content source unavailable: %v", err)
			continue
		}
		items = append(items, fetched...)
	}

	relevant := filterByAsset(items, domain.BaseAsset(symbol))
	span.SetAttributes(attribute.Int("items", len(relevant)))
	if len(relevant) == 0 {
		return domain.SentimentReading{Score: 0.5, Confidence: 0.3}, nil
	}

	scores := make([]ItemScore, len(relevant))
	for i, item := range relevant {
		s, c, label, _ := HeuristicSentiment(item.Title, item.Excerpt)
		scores[i] = ItemScore{Index: i, Score: s, Confidence: c, Label: label}
	}

	if p.llm != nil {
		batch := relevant
		if len(batch) > llmScoreBatchSize {
			batch = batch[:llmScoreBatchSize]
		}
		refined, err := p.llm.ScoreBatch(ctx, batch)
		if err != nil {
			log.Printf("llm sentiment refinement failed, keeping heuristic scores: %v", err)
		} else {
			for _, row := range refined {
				if row.Index < 0 || row.Index >= len(scores) {
					continue
				}
				scores[row.Index].Score = clamp(row.Score, -1, 1)
				scores[row.Index].Confidence = clamp(row.Confidence, 0, 1)
			}
		}
	}

	var scoreSum, confSum float64
	for _, s := range scores {
		scoreSum += s.Score
		confSum += s.Confidence
	}
	mean := scoreSum / float64(len(scores))
	confidence := confSum/float64(len(scores)) + 0.05*math.Min(float64(len(scores)), 6)

	return domain.SentimentReading{
		Score:      clamp((mean+1)/2, 0, 1),
		Confidence: clamp(confidence, 0, 0.95),
	}, nil
}

func filterByAsset(items []ContentItem, base string) []ContentItem {
	keywords, ok := assetKeywords[base]
	if !ok {
		keywords = []string{strings.ToLower(base)}
	}
	var out []ContentItem
	for _, item := range items {
		text := strings.ToLower(item.Title + " " + item.Excerpt)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// HeuristicSentiment scores one text by keyword counting. Score is in
// [-1,1], confidence grows with the keyword imbalance.
func HeuristicSentiment(title, excerpt string) (float64, float64, string, string) {
	text := strings.ToLower(strings.TrimSpace(title + " " + excerpt))
	if text == "" {
		return 0, 0.25, "neutral", "empty-text"
	}

	bullish := []string{"bull", "breakout", "surge", "rally", "adoption", "outflow", "growth", "buy", "uptrend", "recover"}
	bearish := []string{"bear", "dump", "sell", "crash", "hack", "lawsuit", "ban", "inflow", "decline", "downtrend", "liquidation"}

	bullCount := countMatches(text, bullish)
	bearCount := countMatches(text, bearish)

	raw := float64(bullCount-bearCount) / float64(bullCount+bearCount+1)
	score := clamp(raw, -1, 1)
	confidence := clamp(0.35+(0.1*float64(absInt(bullCount-bearCount))), 0.25, 0.70)

	label := "neutral"
	if score > 0.2 {
		label = "bullish"
	} else if score < -0.2 {
		label = "bearish"
	}
	reason := fmt.Sprintf("heuristic keywords bull=%d bear=%d", bullCount, bearCount)
	return score, confidence, label, reason
}

func countMatches(text string, tokens []string) int {
	count := 0
	for _, token := range tokens {
		if strings.Contains(text, token) {
			count++
		}
	}
	return count
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type openAIChatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// OpenAIScorer refines sentiment scores through a chat model that answers
// strict JSON.
type OpenAIScorer struct {
	client openAIChatClient
	model  string
}

func NewOpenAIScorer(apiKey string, model string) *OpenAIScorer {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIScorer{
		client: &openAIClient{client: client},
		model:  model,
	}
}

func (s *OpenAIScorer) ScoreBatch(ctx context.Context, items []ContentItem) ([]ItemScore, error) {
	if s == nil || s.client == nil || len(items) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("id=%d\n", i))
		sb.WriteString(fmt.Sprintf("title=%s\n", strings.TrimSpace(item.Title)))
		sb.WriteString(fmt.Sprintf("excerpt=%s\n\n", strings.TrimSpace(item.Excerpt)))
	}

	systemPrompt := "You score crypto sentiment. Return ONLY JSON array. Each object requires: id (int), score (-1..1), confidence (0..1), label (bullish|neutral|bearish). No markdown."
	userPrompt := "Items:\n" + sb.String()

	completion, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty scorer completion")
	}

	raw := trimCodeFence(strings.TrimSpace(completion.Choices[0].Message.Content))

	var parsed []struct {
		ID         int     `json:"id"`
		Score      float64 `json:"score"`
		Confidence float64 `json:"confidence"`
		Label      string  `json:"label"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse scorer json: %w", err)
	}

	out := make([]ItemScore, 0, len(parsed))
	for _, row := range parsed {
		if row.ID < 0 || row.ID >= len(items) {
			continue
		}
		out = append(out, ItemScore{
			Index:      row.ID,
			Score:      clamp(row.Score, -1, 1),
			Confidence: clamp(row.Confidence, 0, 1),
			Label:      row.Label,
		})
	}
	return out, nil
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "```") {
		v = strings.TrimPrefix(v, "```")
		v = strings.TrimSpace(v)
		if strings.HasPrefix(strings.ToLower(v), "json") {
			v = strings.TrimSpace(v[4:])
		}
		v = strings.TrimSuffix(v, "```")
		v = strings.TrimSpace(v)
	}
	return v
}

type openAIClient struct {
	client openai.Client
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
