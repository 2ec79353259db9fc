package pipeline

import (
	"strings"
	"testing"

	"github.com/brightpath-consulting/kmap/internal/taxonomy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_HintMatchesDisplayName(t *testing.T) {
	c := Classify("some unrelated text", "Manufacturing Knowledge", taxonomy.Default())

	assert.Equal(t, "manufacturing-knowledge", c.Category)
	assert.Equal(t, 0.8, c.Confidence)
}

func TestClassify_HintSubstringMatch(t *testing.T) {
	// A partial hint still resolves against the display name.
	c := Classify("text", "manufacturing", taxonomy.Default())

	assert.Equal(t, "manufacturing-knowledge", c.Category)
	assert.Equal(t, 0.8, c.Confidence)
}

func TestClassify_WeightedRuleScoring(t *testing.T) {
	text := "We deployed predictive maintenance and condition monitoring across the plant."
	c := Classify(text, "", taxonomy.Default())

	assert.Equal(t, "ai-applications", c.Category)

	// Two of the eight rule keywords match; score is matchRatio x weight.
	expected := 2.0 / 8.0 * 0.95
	assert.InDelta(t, expected, c.Confidence, 1e-9)
	assert.Greater(t, c.Confidence, 0.0)
}

func TestClassify_NoMatchFallsBackToGeneral(t *testing.T) {
	c := Classify("zebra giraffe elephant", "", taxonomy.Default())

	assert.Equal(t, taxonomy.CategoryGeneral, c.Category)
	assert.Equal(t, 0.0, c.Confidence)
}

func TestClassify_UnknownHintFallsThroughToScoring(t *testing.T) {
	text := "lean manufacturing and production scheduling on the assembly line"
	c := Classify(text, "No Such Category", taxonomy.Default())

	assert.Equal(t, "manufacturing-knowledge", c.Category)
	assert.Greater(t, c.Confidence, 0.0)
}

func TestExtractKeywords(t *testing.T) {
	text := "Quality inspection with machine learning improved production efficiency."
	keywords := extractKeywords(text)

	assert.Contains(t, keywords, "quality")
	assert.Contains(t, keywords, "inspection")
	assert.Contains(t, keywords, "machine learning")
	assert.Contains(t, keywords, "production")
	assert.Contains(t, keywords, "efficiency")
}

func TestExtractKeywords_CappedAtTen(t *testing.T) {
	text := strings.Join(domainVocabulary, " ")
	keywords := extractKeywords(text)

	assert.Len(t, keywords, 10)
	// Vocabulary order is preserved.
	assert.Equal(t, domainVocabulary[:10], keywords)
}

func TestExtractConcepts(t *testing.T) {
	text := "The team is implementing automated inspection. We plan on improving cycle times. " +
		"Later we will implement vendor scorecards."
	concepts := extractConcepts(text)

	require.NotEmpty(t, concepts)
	assert.Contains(t, concepts, "automated inspection")
	assert.Contains(t, concepts, "cycle times")
	assert.Contains(t, concepts, "vendor scorecards")
}

func TestExtractConcepts_DeduplicatedAndCapped(t *testing.T) {
	text := strings.Repeat("implementing quality gates. ", 3) +
		"implementing alpha beta. implementing gamma one. implementing delta two. " +
		"implementing epsilon three. implementing zeta four."
	concepts := extractConcepts(text)

	assert.Len(t, concepts, maxConcepts)

	seen := make(map[string]bool)
	for _, concept := range concepts {
		assert.False(t, seen[concept], "concept %q duplicated", concept)
		seen[concept] = true
	}
}

func TestDetectSection(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"markdown heading", "## Quarterly Review\nbody text", "Quarterly Review"},
		{"deep markdown heading", "#### Findings\nmore", "Findings"},
		{"numbered heading", "3. Results and Discussion\nbody", "Results and Discussion"},
		{"no heading", "plain paragraph text", ""},
		{"heading after blank line", "\n\n# Overview\nrest", "Overview"},
		{"heading clipped at sentence", "# Overview. The rest of the chunk follows here", "Overview"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectSection(tt.text))
		})
	}
}

func TestClassify_PopulatesAllFields(t *testing.T) {
	text := "# Maintenance Plan\nWe are implementing predictive maintenance for production equipment."
	c := Classify(text, "", taxonomy.Default())

	assert.NotEmpty(t, c.Category)
	assert.NotEmpty(t, c.Keywords)
	assert.NotEmpty(t, c.Concepts)
	assert.Equal(t, "Maintenance Plan", c.Section)
}
