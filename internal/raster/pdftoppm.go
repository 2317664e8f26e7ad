package raster

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFToPPM rasterizes PDF pages by shelling out to pdftoppm (poppler-utils).
// Page counting uses the pure-Go PDF reader so malformed documents fail fast
// without spawning a process.
type PDFToPPM struct {
	// DPI for rendered pages. Zero means 150.
	DPI int
}

func (p *PDFToPPM) PageCount(doc []byte) (int, error) {
	r, err := pdflib.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	return r.NumPage(), nil
}

// RenderPage renders the 0-based page index to a PNG. Each call works in its
// own temp directory, so concurrent renders of the same document never share
// state.
func (p *PDFToPPM) RenderPage(ctx context.Context, doc []byte, page int) ([]byte, error) {
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 150
	}

	dir, err := os.MkdirTemp("", "chartmate-raster-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(pdfPath, doc, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	// pdftoppm pages are 1-based.
	n := strconv.Itoa(page + 1)
	outPrefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png", "-r", strconv.Itoa(dpi), "-f", n, "-l", n,
		pdfPath, outPrefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, stderr.String())
	}

	// pdftoppm names output page-N.png with zero padding that depends on the
	// document's page count, so glob rather than guess.
	matches, err := filepath.Glob(outPrefix + "-*.png")
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm page %d: no output produced", page)
	}

	img, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	return img, nil
}
