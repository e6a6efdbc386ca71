// Package crawling builds a text corpus from a business website: the
// homepage plus a bounded set of same-host pages most likely to hold
// knowledge-base content.
package crawling

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/voxlane/voxlane/internal/fetch"
)

// DefaultMaxPages bounds how many pages one crawl may fetch, homepage included.
const DefaultMaxPages = 8

// Page is one crawled page with its extracted text.
type Page struct {
	URL      string `json:"url"`
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Corpus is the output of a site crawl.
type Corpus struct {
	SeedURL string `json:"seed_url"`
	Pages   []Page `json:"pages"`
}

// Options configures a crawl.
type Options struct {
	MaxPages   int
	UseBrowser bool
	Timeout    time.Duration
}

// DefaultOptions returns sensible crawl defaults.
func DefaultOptions() *Options {
	return &Options{
		MaxPages: DefaultMaxPages,
		Timeout:  fetch.DefaultTimeout,
	}
}

// pathCategories maps URL path keywords to the page category most likely to
// contain matching content. Earlier entries win when several match.
var pathCategories = []struct {
	keyword  string
	category string
}{
	{"contact", "contact"},
	{"about", "about"},
	{"pricing", "pricing"},
	{"price", "pricing"},
	{"plans", "pricing"},
	{"menu", "products"},
	{"product", "products"},
	{"service", "products"},
	{"shop", "products"},
	{"hours", "hours"},
	{"location", "location"},
	{"directions", "location"},
	{"team", "team"},
	{"staff", "team"},
	{"faq", "faq"},
	{"support", "faq"},
	{"help", "faq"},
	{"review", "reviews"},
	{"testimonial", "reviews"},
	{"booking", "booking"},
	{"appointment", "booking"},
	{"reservation", "booking"},
	{"shipping", "shipping"},
	{"delivery", "shipping"},
	{"returns", "returns"},
	{"warranty", "returns"},
	{"terms", "policies"},
	{"privacy", "policies"},
	{"policy", "policies"},
	{"news", "news"},
	{"blog", "news"},
	{"offers", "offers"},
	{"deals", "offers"},
	{"promo", "offers"},
}

// priorityCategories are fetched before anything else when the page budget is
// tight.
var priorityCategories = map[string]bool{
	"contact":  true,
	"about":    true,
	"products": true,
	"pricing":  true,
	"hours":    true,
}

// CategorizeLink assigns a page category from the URL path, or "other".
func CategorizeLink(link string) string {
	lower := strings.ToLower(link)
	for _, pc := range pathCategories {
		if strings.Contains(lower, pc.keyword) {
			return pc.category
		}
	}
	return "other"
}

// selectLinks orders candidate links so priority categories come first and
// truncates to the page budget. The seed URL is never selected; it is always
// fetched separately.
func selectLinks(links []string, maxPages int, seedURL string) []string {
	budget := maxPages - 1 // homepage takes one slot
	if budget <= 0 {
		return nil
	}

	var prioritized, rest []string
	seenCategory := make(map[string]bool)
	for _, link := range links {
		if link == seedURL || strings.TrimSuffix(link, "/") == strings.TrimSuffix(seedURL, "/") {
			continue
		}
		category := CategorizeLink(link)
		// One page per priority category is enough; duplicates add little.
		if priorityCategories[category] && !seenCategory[category] {
			seenCategory[category] = true
			prioritized = append(prioritized, link)
		} else {
			rest = append(rest, link)
		}
	}

	selected := append(prioritized, rest...)
	if len(selected) > budget {
		selected = selected[:budget]
	}
	return selected
}

// normalizeOptions copies opts and fills unset fields. A zero Timeout must
// never pass through, or every page fetch runs with an unbounded HTTP client.
func normalizeOptions(opts *Options) *Options {
	if opts == nil {
		return DefaultOptions()
	}
	o := *opts
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.Timeout <= 0 {
		o.Timeout = fetch.DefaultTimeout
	}
	return &o
}

// Crawl fetches the seed URL, discovers same-host links, and builds a corpus
// of up to MaxPages pages. Individual page failures after the homepage are
// tolerated; the homepage itself must be fetchable.
func Crawl(ctx context.Context, seedURL string, opts *Options) (*Corpus, error) {
	opts = normalizeOptions(opts)

	fetchOpts := &fetch.Options{Timeout: opts.Timeout, UserAgent: fetch.DefaultUserAgent}

	home, err := fetch.URL(ctx, seedURL, fetchOpts)
	if err != nil {
		return nil, err
	}

	homeHTML := home.HTML
	homeText, err := fetch.ExtractText(homeHTML)
	if err != nil {
		return nil, err
	}

	if opts.UseBrowser && fetch.ShouldUseBrowser(homeText) {
		rendered, berr := fetch.WithBrowser(ctx, seedURL, opts.Timeout)
		if berr != nil {
			log.Printf("[crawl] browser fallback failed for %s: %v", seedURL, berr)
		} else {
			homeHTML = rendered
			if text, terr := fetch.ExtractText(rendered); terr == nil {
				homeText = text
			}
		}
	}

	corpus := &Corpus{
		SeedURL: seedURL,
		Pages:   []Page{{URL: seedURL, Category: "about", Text: homeText}},
	}

	links, err := fetch.ExtractLinks(homeHTML, seedURL)
	if err != nil {
		log.Printf("[crawl] link extraction failed for %s: %v", seedURL, err)
		return corpus, nil
	}

	for _, link := range selectLinks(links, opts.MaxPages, seedURL) {
		page, err := fetch.URL(ctx, link, fetchOpts)
		if err != nil {
			log.Printf("[crawl] skipping %s: %v", link, err)
			continue
		}
		text, err := fetch.ExtractText(page.HTML)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		corpus.Pages = append(corpus.Pages, Page{
			URL:      link,
			Category: CategorizeLink(link),
			Text:     text,
		})
	}

	return corpus, nil
}

// Text flattens the corpus into one labeled document for LLM prompts.
func (c *Corpus) Text() string {
	var sb strings.Builder
	for _, p := range c.Pages {
		sb.WriteString("=== PAGE: ")
		sb.WriteString(p.URL)
		sb.WriteString(" (")
		sb.WriteString(p.Category)
		sb.WriteString(") ===\n")
		sb.WriteString(p.Text)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
