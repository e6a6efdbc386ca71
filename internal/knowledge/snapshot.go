// Package knowledge defines the category-keyed business knowledge produced by
// extraction and refined during human validation.
package knowledge

import (
	"fmt"
	"time"
)

// Categories is the fixed set of knowledge categories every snapshot carries.
// The set is closed: extraction may leave a category empty but never omits it.
var Categories = []string{
	"company_overview",
	"products_services",
	"pricing_packages",
	"contact_information",
	"business_hours",
	"location_directions",
	"team_staff",
	"testimonials_reviews",
	"faq_support",
	"policies_terms",
	"appointment_booking",
	"payment_methods",
	"shipping_delivery",
	"warranty_returns",
	"technical_specs",
	"news_updates",
	"social_media",
	"special_offers",
}

// Provenance values for category entries.
const (
	ProvenanceCrawler      = "crawler"
	ProvenanceDirectory    = "business-directory"
	ProvenanceUserVerified = "user-verified"
)

// CategoryData holds the extracted content for a single category.
type CategoryData struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Keywords   []string `json:"keywords,omitempty"`
	Confidence float64  `json:"confidence"`
	Provenance string   `json:"provenance,omitempty"`
	SourceURLs []string `json:"source_urls,omitempty"`
}

// Empty reports whether the entry carries no extracted content.
func (d CategoryData) Empty() bool {
	return d.Content == ""
}

// Snapshot is a complete 18-category knowledge base. Every category key is
// always present; absence of data is an explicit empty entry with confidence 0.
type Snapshot struct {
	Categories  map[string]CategoryData `json:"categories"`
	ExtractedAt time.Time               `json:"extracted_at"`
}

// NewEmptySnapshot returns a snapshot with every category present and empty.
func NewEmptySnapshot() *Snapshot {
	s := &Snapshot{
		Categories:  make(map[string]CategoryData, len(Categories)),
		ExtractedAt: time.Now().UTC(),
	}
	for _, c := range Categories {
		s.Categories[c] = CategoryData{Confidence: 0}
	}
	return s
}

// ValidCategory reports whether name is one of the fixed categories.
func ValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Complete reports whether every category key is present.
func (s *Snapshot) Complete() bool {
	if s == nil || len(s.Categories) != len(Categories) {
		return false
	}
	for _, c := range Categories {
		if _, ok := s.Categories[c]; !ok {
			return false
		}
	}
	return true
}

// PopulatedCategories returns the category names that carry content, in
// canonical order.
func (s *Snapshot) PopulatedCategories() []string {
	var populated []string
	for _, c := range Categories {
		if d, ok := s.Categories[c]; ok && !d.Empty() {
			populated = append(populated, c)
		}
	}
	return populated
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Categories:  make(map[string]CategoryData, len(s.Categories)),
		ExtractedAt: s.ExtractedAt,
	}
	for name, data := range s.Categories {
		data.Keywords = append([]string(nil), data.Keywords...)
		data.SourceURLs = append([]string(nil), data.SourceURLs...)
		out.Categories[name] = data
	}
	return out
}

// structuredProvenance reports whether the provenance tag names a structured
// source. Structured sources outrank the generic crawler on confidence ties.
func structuredProvenance(p string) bool {
	return p != "" && p != ProvenanceCrawler
}

// Merge folds src into dst category by category. Highest confidence wins;
// ties prefer the entry whose provenance is not the generic crawler.
func Merge(dst, src *Snapshot) {
	for _, c := range Categories {
		cur := dst.Categories[c]
		cand, ok := src.Categories[c]
		if !ok || cand.Empty() {
			continue
		}
		if cur.Empty() || cand.Confidence > cur.Confidence ||
			(cand.Confidence == cur.Confidence && structuredProvenance(cand.Provenance) && !structuredProvenance(cur.Provenance)) {
			dst.Categories[c] = cand
		}
	}
}

// ApplyCorrections overwrites categories present in corrections, marking each
// corrected entry as user-verified with full confidence. Unknown category
// names are rejected.
func (s *Snapshot) ApplyCorrections(corrections map[string]CategoryData) error {
	for name := range corrections {
		if !ValidCategory(name) {
			return fmt.Errorf("unknown knowledge category: %s", name)
		}
	}
	for name, data := range corrections {
		data.Confidence = 1.0
		data.Provenance = ProvenanceUserVerified
		s.Categories[name] = data
	}
	return nil
}
