package index

import (
	"strings"
	"unicode/utf8"
)

// Split breaks text into chunks of at most size characters with the given
// overlap between consecutive chunks. Boundaries snap back to the nearest
// whitespace so words are never cut. The output is deterministic: the same
// text and config always produce the same chunks.
func Split(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}

		// Snap the cut back to a whitespace boundary when one is close.
		cut := end
		for cut > start && !isSpace(text[cut]) {
			cut--
		}
		if cut == start {
			// No whitespace in range; cut at size, but never inside a rune.
			cut = end
			for cut < len(text) && !utf8.RuneStart(text[cut]) {
				cut++
			}
		}

		chunk := strings.TrimSpace(text[start:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			next = cut
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
	}
	return chunks
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
