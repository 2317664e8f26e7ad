// Package ocr defines the optical character recognition capability used by
// the extraction pipeline and an HTTP client for a line-detection service.
package ocr

import "context"

// Line is one detected line of text with its recognition confidence (0-100).
type Line struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text in a single page image.
type Engine interface {
	DetectText(ctx context.Context, image []byte) ([]Line, error)
}
