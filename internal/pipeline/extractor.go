// Package pipeline contains the pure text-processing stages of the
// knowledge extraction pipeline: content extraction, chunking,
// classification, and document assembly. Nothing in this package
// performs I/O.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/brightpath-consulting/kmap/internal/domain"
)

// ExtractText normalizes an analysis payload into a single text blob.
// Parts are concatenated in priority order: summary, full-text annotation,
// numbered sub-chunk analyses, then a trailing block of metadata lines so
// file facts stay searchable even when the free text is thin.
//
// An empty result means the payload carried no free text at all; callers
// treat that as a terminal outcome, not an error.
func ExtractText(p domain.AnalysisPayload) string {
	var parts []string

	if s := strings.TrimSpace(p.Summary); s != "" {
		parts = append(parts, s)
	}

	if a := strings.TrimSpace(p.FullTextAnnotation); a != "" {
		parts = append(parts, a)
	}

	for i, c := range p.Chunks {
		if t := strings.TrimSpace(c.Analysis); t != "" {
			parts = append(parts, fmt.Sprintf("Chunk %d: %s", i+1, t))
		}
	}

	if len(parts) == 0 {
		return ""
	}

	parts = append(parts, metadataBlock(p))
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

func metadataBlock(p domain.AnalysisPayload) string {
	var lines []string

	if p.FileNameProcessed != "" {
		lines = append(lines, "File: "+p.FileNameProcessed)
	}
	if p.ContentType != "" {
		lines = append(lines, "Content type: "+p.ContentType)
	}
	if p.SizeBytes > 0 {
		lines = append(lines, fmt.Sprintf("Size: %d bytes", p.SizeBytes))
	}
	if p.DocumentType != "" {
		lines = append(lines, "Document type: "+p.DocumentType)
	}
	if p.BusinessCategory != "" {
		lines = append(lines, "Business category: "+p.BusinessCategory)
	}

	return strings.Join(lines, "\n")
}
