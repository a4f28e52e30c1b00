package llm

import (
	"strings"
	"testing"
)

func TestBuildAnalysisPromptIncludesQueryAndSections(t *testing.T) {
	prompt := BuildAnalysisPrompt(AnalyzeInput{
		Query:        "Is this company solvent?",
		DocumentText: "[Page 1]\nRevenue: $10M",
	})

	for _, want := range []string{
		"Is this company solvent?",
		"Revenue: $10M",
		"EXECUTIVE SUMMARY",
		"DOCUMENT VERIFICATION",
		"KEY FINANCIAL METRICS",
		"FINANCIAL HEALTH ASSESSMENT",
		"ANSWER TO USER QUERY",
		"RECOMMENDATIONS",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestBuildAnalysisPromptTruncatesLongDocuments(t *testing.T) {
	prompt := BuildAnalysisPrompt(AnalyzeInput{
		Query:        "q",
		DocumentText: strings.Repeat("x", maxDocumentChars+1000),
	})
	if !strings.Contains(prompt, "(truncated)") {
		t.Fatal("expected truncation marker for oversized document")
	}
	if len(prompt) > maxDocumentChars+len(analysisPromptTemplate)+100 {
		t.Fatalf("prompt not truncated: %d chars", len(prompt))
	}
}
