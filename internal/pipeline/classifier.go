package pipeline

import (
	"regexp"
	"strings"

	"github.com/brightpath-consulting/kmap/internal/taxonomy"
)

const (
	maxKeywords = 10
	maxConcepts = 5

	// hintConfidence is used when a caller-supplied category hint matches
	// a taxonomy display name and classification is skipped.
	hintConfidence = 0.8
)

// domainVocabulary is the fixed keyword list chunks are annotated with.
// Substring matching, capped at maxKeywords, in vocabulary order.
var domainVocabulary = []string{
	"manufacturing", "production", "quality", "maintenance", "automation",
	"machine learning", "artificial intelligence", "inspection", "efficiency",
	"revenue", "cost", "safety", "training", "inventory", "supply chain",
	"equipment", "process", "analytics", "compliance", "customer",
}

var (
	conceptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:implement|implementing)\s+([a-zA-Z][a-zA-Z0-9 -]{2,40})`),
		regexp.MustCompile(`(?i)\b(?:improve|improving)\s+([a-zA-Z][a-zA-Z0-9 -]{2,40})`),
	}

	markdownHeading = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	numberedHeading = regexp.MustCompile(`^\d+\.\s+(.+)$`)
)

// Classification is the per-chunk enrichment result.
type Classification struct {
	Category   string
	Confidence float64
	Keywords   []string
	Concepts   []string
	Section    string
}

// Classify annotates one chunk of text. A non-empty hint that matches a
// taxonomy display name short-circuits rule scoring; otherwise every rule
// is scored as matched_keywords/rule_keywords times the rule weight and
// the highest score wins. Text matching no rule falls back to the
// general category with zero confidence.
func Classify(text, hint string, tax taxonomy.Taxonomy) Classification {
	c := Classification{
		Keywords: extractKeywords(text),
		Concepts: extractConcepts(text),
		Section:  detectSection(text),
	}
	c.Category, c.Confidence = classifyCategory(text, hint, tax)
	return c
}

func classifyCategory(text, hint string, tax taxonomy.Taxonomy) (string, float64) {
	if h := strings.ToLower(strings.TrimSpace(hint)); h != "" {
		for _, rule := range tax.Rules {
			display := strings.ToLower(rule.DisplayName)
			if display == "" {
				continue
			}
			if strings.Contains(display, h) || strings.Contains(h, display) {
				return rule.Name, hintConfidence
			}
		}
	}

	lower := strings.ToLower(text)

	best := taxonomy.CategoryGeneral
	bestScore := 0.0
	for _, rule := range tax.Rules {
		matched := 0
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				matched++
			}
		}
		if matched == 0 || len(rule.Keywords) == 0 {
			continue
		}

		score := float64(matched) / float64(len(rule.Keywords)) * rule.Weight
		if score > bestScore {
			bestScore = score
			best = rule.Name
		}
	}

	return best, bestScore
}

func extractKeywords(text string) []string {
	lower := strings.ToLower(text)

	var keywords []string
	for _, term := range domainVocabulary {
		if strings.Contains(lower, term) {
			keywords = append(keywords, term)
			if len(keywords) == maxKeywords {
				break
			}
		}
	}
	return keywords
}

func extractConcepts(text string) []string {
	seen := make(map[string]bool)

	var concepts []string
	for _, pattern := range conceptPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			concept := strings.ToLower(strings.TrimSpace(match[1]))
			if concept == "" || seen[concept] {
				continue
			}
			seen[concept] = true
			concepts = append(concepts, concept)
			if len(concepts) == maxConcepts {
				return concepts
			}
		}
	}
	return concepts
}

// detectSection returns the heading of the chunk's first heading-like
// line: a markdown heading or a numbered heading such as "3. Results".
// Chunk content may have lost its line breaks to whitespace splitting,
// so the captured heading is clipped at the first sentence boundary.
func detectSection(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := markdownHeading.FindStringSubmatch(trimmed); m != nil {
			return clipHeading(m[1])
		}
		if m := numberedHeading.FindStringSubmatch(trimmed); m != nil {
			return clipHeading(m[1])
		}
	}
	return ""
}

func clipHeading(heading string) string {
	if i := strings.IndexAny(heading, ".!?\n"); i > 0 {
		heading = heading[:i]
	}

	runes := []rune(heading)
	if len(runes) > 80 {
		heading = string(runes[:80])
	}
	return strings.TrimSpace(heading)
}
