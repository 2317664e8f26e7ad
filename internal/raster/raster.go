// Package raster turns document bytes into per-page images for OCR.
package raster

import "context"

// Rasterizer exposes page-level access to a document. Implementations must
// tolerate concurrent RenderPage calls for distinct page indexes on the same
// document bytes.
type Rasterizer interface {
	PageCount(doc []byte) (int, error)
	RenderPage(ctx context.Context, doc []byte, page int) ([]byte, error)
}
