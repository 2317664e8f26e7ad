package pipeline

import (
	"sort"
	"strings"

	"github.com/dgallion1/chartmate/internal/ocr"
)

// PageResult is the OCR output for one page. Page indexes are 0-based and
// stable; a result is produced once and never mutated.
type PageResult struct {
	Page       int
	Text       string
	Confidence float64
}

// PageFromLines builds a PageResult from detected lines. Line texts are
// joined with single spaces (trailing separator included) and confidence is
// the arithmetic mean of the line confidences, 0 when nothing was detected.
func PageFromLines(page int, lines []ocr.Line) PageResult {
	if len(lines) == 0 {
		return PageResult{Page: page}
	}

	var sb strings.Builder
	var sum float64
	for _, l := range lines {
		sb.WriteString(l.Text)
		sb.WriteString(" ")
		sum += l.Confidence
	}
	return PageResult{
		Page:       page,
		Text:       sb.String(),
		Confidence: sum / float64(len(lines)),
	}
}

// AggregatedText is a job's full extracted text with its overall confidence.
// This is the shape persisted as the aggregated-text artifact.
type AggregatedText struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Pages      int     `json:"pages"`
}

// AssemblePages merges page results into document text. Ordering is by page
// index ascending regardless of the order results arrived in; confidence is
// the mean over the given pages (failed pages are excluded before this point,
// so they count toward neither text nor confidence).
func AssemblePages(pages []PageResult) AggregatedText {
	if len(pages) == 0 {
		return AggregatedText{}
	}

	sorted := make([]PageResult, len(pages))
	copy(sorted, pages)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Page < sorted[b].Page })

	var sb strings.Builder
	var sum float64
	for _, p := range sorted {
		sb.WriteString(p.Text)
		sum += p.Confidence
	}
	return AggregatedText{
		Text:       sb.String(),
		Confidence: sum / float64(len(sorted)),
		Pages:      len(sorted),
	}
}

// Append combines a prior artifact with newly extracted text: old text
// precedes new, and confidence becomes the page-weighted mean across both.
func (a AggregatedText) Append(more AggregatedText) AggregatedText {
	if more.Pages == 0 {
		return a
	}
	if a.Pages == 0 {
		return more
	}
	total := a.Pages + more.Pages
	return AggregatedText{
		Text:       a.Text + more.Text,
		Confidence: (a.Confidence*float64(a.Pages) + more.Confidence*float64(more.Pages)) / float64(total),
		Pages:      total,
	}
}
