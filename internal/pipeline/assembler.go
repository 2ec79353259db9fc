package pipeline

import (
	"regexp"
	"strings"

	"github.com/brightpath-consulting/kmap/internal/domain"
)

const (
	maxSummaryLength    = 300
	maxSummarySentences = 3
	minSentenceLength   = 20
	maxKeyTopics        = 5
)

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+\s*`)

	topicPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:topic|subject):\s*([^\n.,;]{3,60})`),
		regexp.MustCompile(`(?i)\b(?:covers|discusses)\s+([a-zA-Z][a-zA-Z0-9 -]{2,60})`),
	}

	highComplexityTerms   = []string{"algorithm", "programming", "api"}
	mediumComplexityTerms = []string{"implementation", "configuration", "automation"}

	audienceRoles = []struct {
		role  string
		terms []string
	}{
		{"operations-managers", []string{"operations", "production", "workflow", "scheduling"}},
		{"quality-staff", []string{"quality", "inspection", "defect", "compliance"}},
		{"executives", []string{"strategy", "revenue", "investment", "growth"}},
		{"general-workforce", []string{"training", "safety", "onboarding"}},
	}
)

// AssembleInput carries everything the assembler needs to build the
// document-level aggregate.
type AssembleInput struct {
	File     *domain.SourceFile
	Analysis *domain.AnalysisRecord
	Text     string
}

// Assemble builds the document-level knowledge summary from the extracted
// text and the analysis signals.
func Assemble(in AssembleInput) *domain.DocumentKnowledge {
	payload := in.Analysis.Data

	fileName := payload.FileNameProcessed
	if fileName == "" {
		fileName = in.File.FileName
	}
	contentType := payload.ContentType
	if contentType == "" {
		contentType = in.File.ContentType
	}

	doc := domain.NewDocumentKnowledge(in.File.ID, fileName, contentType, in.Analysis.GeneratedAt)
	doc.Summary = buildSummary(in.Text)
	doc.KeyTopics = extractKeyTopics(in.Text)
	doc.BusinessValue = deriveBusinessValue(in.File, payload, in.Text)
	doc.ImplementationComplexity = assessComplexity(in.Text)
	doc.TargetAudience = identifyAudience(in.Text)
	return doc
}

// buildSummary joins the first three sentences longer than 20 characters,
// truncated to 300 characters with an ellipsis.
func buildSummary(text string) string {
	var picked []string
	for _, sentence := range sentenceSplit.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) <= minSentenceLength {
			continue
		}
		picked = append(picked, sentence)
		if len(picked) == maxSummarySentences {
			break
		}
	}

	summary := strings.Join(picked, ". ")
	if len(summary) > maxSummaryLength {
		summary = summary[:maxSummaryLength] + "..."
	}
	return summary
}

func extractKeyTopics(text string) []string {
	seen := make(map[string]bool)

	var topics []string
	for _, pattern := range topicPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			topic := strings.ToLower(strings.TrimSpace(match[1]))
			if topic == "" || seen[topic] {
				continue
			}
			seen[topic] = true
			topics = append(topics, topic)
			if len(topics) == maxKeyTopics {
				return topics
			}
		}
	}
	return topics
}

// deriveBusinessValue prefers a file-level priority override, then analysis
// signals, then keyword heuristics on the extracted text.
func deriveBusinessValue(file *domain.SourceFile, payload domain.AnalysisPayload, text string) string {
	switch file.Priority {
	case domain.FilePriorityCritical:
		return "Critical business priority"
	case domain.FilePriorityHigh:
		return "High priority initiative"
	}

	if strings.EqualFold(payload.SMBRelevance, "high") {
		return "High SMB business value"
	}

	switch payload.DocumentType {
	case "financial_document":
		return "Financial impact potential"
	case "operational_document":
		return "Operational improvement potential"
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "revenue"):
		return "Financial impact potential"
	case strings.Contains(lower, "efficiency"):
		return "Operational improvement potential"
	case strings.Contains(lower, "training"):
		return "Capability-building potential"
	}

	return "Standard business value"
}

func assessComplexity(text string) domain.Complexity {
	lower := strings.ToLower(text)

	high := 0
	for _, term := range highComplexityTerms {
		if strings.Contains(lower, term) {
			high++
		}
	}

	medium := 0
	for _, term := range mediumComplexityTerms {
		if strings.Contains(lower, term) {
			medium++
		}
	}

	switch {
	case high >= 2:
		return domain.ComplexityHigh
	case medium >= 2 || high >= 1:
		return domain.ComplexityMedium
	default:
		return domain.ComplexityLow
	}
}

func identifyAudience(text string) []string {
	lower := strings.ToLower(text)

	var audience []string
	for _, mapping := range audienceRoles {
		for _, term := range mapping.terms {
			if strings.Contains(lower, term) {
				audience = append(audience, mapping.role)
				break
			}
		}
	}

	if len(audience) == 0 {
		audience = []string{"general-workforce"}
	}
	return audience
}
