package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voxlane/voxlane/internal/crawling"
	"github.com/voxlane/voxlane/internal/knowledge"
	"github.com/voxlane/voxlane/internal/llm"
	"github.com/voxlane/voxlane/internal/prompts"
)

// maxCorpusChars bounds how much crawled text goes into one extraction prompt.
const maxCorpusChars = 60000

// CrawlerSource extracts knowledge by crawling the business site and running
// LLM extraction over the page corpus. It is the generic free-text source and
// loses merge ties to structured sources.
type CrawlerSource struct {
	client    llm.Client
	crawlOpts *crawling.Options
}

// NewCrawlerSource creates a crawler-backed extraction source.
func NewCrawlerSource(client llm.Client, opts *crawling.Options) *CrawlerSource {
	if opts == nil {
		opts = crawling.DefaultOptions()
	}
	return &CrawlerSource{client: client, crawlOpts: opts}
}

// Name identifies the source.
func (s *CrawlerSource) Name() string { return "crawler" }

// categoryEntry is the per-category shape the extraction prompt asks for.
type categoryEntry struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Keywords   []string `json:"keywords"`
	Confidence float64  `json:"confidence"`
}

// Extract crawls the site and maps the corpus onto the knowledge categories.
func (s *CrawlerSource) Extract(ctx context.Context, businessURL, industry string) (*knowledge.Snapshot, error) {
	corpus, err := crawling.Crawl(ctx, businessURL, s.crawlOpts)
	if err != nil {
		return nil, fmt.Errorf("site crawl failed: %w", err)
	}

	corpusText := corpus.Text()
	if len(corpusText) > maxCorpusChars {
		corpusText = corpusText[:maxCorpusChars]
	}

	template := prompts.MustGet("extraction.json", "extract-categories")
	prompt := prompts.Format(template, map[string]string{
		"Industry":   industry,
		"Categories": strings.Join(knowledge.Categories, ", "),
		"Pages":      corpusText,
	})

	responseText, err := s.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("knowledge extraction request failed: %w", err)
	}

	var extracted map[string]categoryEntry
	if err := json.Unmarshal([]byte(responseText), &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	pageURLs := make([]string, 0, len(corpus.Pages))
	for _, p := range corpus.Pages {
		pageURLs = append(pageURLs, p.URL)
	}

	snapshot := knowledge.NewEmptySnapshot()
	for name, entry := range extracted {
		if !knowledge.ValidCategory(name) || entry.Content == "" {
			continue
		}
		confidence := entry.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		snapshot.Categories[name] = knowledge.CategoryData{
			Title:      entry.Title,
			Content:    entry.Content,
			Keywords:   entry.Keywords,
			Confidence: confidence,
			Provenance: knowledge.ProvenanceCrawler,
			SourceURLs: pageURLs,
		}
	}

	return snapshot, nil
}
