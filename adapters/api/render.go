package api

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"cropadvisor/domain/agronomy"
)

// ReportMarkdown formats a report for people: the current-crop actions
// first, then the recommended crop when one is attached. Request-derived
// text is backslash-escaped so markdown and inline HTML in it stay literal.
func ReportMarkdown(report agronomy.RecommendationReport) string {
	var b strings.Builder

	if report.CurrentCrop.IsEmpty() {
		b.WriteString("# Field recommendations\n\n")
	} else {
		fmt.Fprintf(&b, "# Recommendations for %s\n\n", escape(report.CurrentCrop.String()))
	}
	if report.CurrentYield != nil {
		fmt.Fprintf(&b, "**Estimated current yield:** %.2f units\n\n", *report.CurrentYield)
	}

	b.WriteString("## Actions\n\n")
	if len(report.Recommendations) == 0 {
		b.WriteString("No action needed.\n")
	}
	for _, rec := range report.Recommendations {
		fmt.Fprintf(&b, "- %s\n", escape(rec))
	}

	if sel := report.RecommendedCrop; sel != nil {
		b.WriteString("\n## Best-fit crop\n\n")
		fmt.Fprintf(&b, "| Crop | ML confidence | Compatibility |\n|---|---|---|\n| %s | %.1f%% | %.1f |\n",
			escape(sel.Crop.String()), sel.Confidence*100, sel.CompatibilityScore)
		if sel.Fallback {
			b.WriteString("\n_The crop model was unavailable; this is the default suggestion._\n")
		}
		if sel.Comparison != nil {
			fmt.Fprintf(&b, "\nExpected yield versus %s: **%s**\n", escape(sel.CurrentCrop.String()), *sel.Comparison)
		}
	}
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	for _, r := range strings.ReplaceAll(s, "\n", " ") {
		if r < 128 && strings.IndexByte(string(parser.EscapeChars), byte(r)) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RenderHTML converts markdown to an HTML fragment. Raw HTML in the input is
// dropped and links are limited to safe protocols.
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML | html.Safelink})
	return markdown.ToHTML([]byte(md), p, renderer)
}
