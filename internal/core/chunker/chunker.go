package chunker

import (
	"strings"
)

// Default chunking parameters, tuned for precise retrieval matches while
// keeping enough context inside each passage.
const (
	DefaultMaxSize = 800
	DefaultOverlap = 200
)

// Split cuts text into passages of at most maxSize runes. Cut points
// prefer paragraph breaks, then sentence ends, then a hard cut. Every
// passage except the last shares its trailing overlap runes with the next
// passage's leading runes, so a concept spanning a boundary survives
// intact in at least one passage.
//
// Passages are contiguous slices of the input; they are not trimmed, since
// trimming would break the exact overlap guarantee.
func Split(text string, maxSize, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxSize <= 0 || overlap < 0 || overlap >= maxSize {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= maxSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + maxSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}

		// The cut must land past the overlap region or the window would
		// never advance.
		cut := cutPoint(runes, start, end, start+overlap+1)
		chunks = append(chunks, string(runes[start:cut]))
		start = cut - overlap
	}
}

// cutPoint picks the best boundary in (minCut, end]: the last paragraph
// break, else the last sentence end, else the hard limit.
func cutPoint(runes []rune, start, end, minCut int) int {
	for i := end; i > minCut; i-- {
		if runes[i-1] == '\n' && i-2 >= start && runes[i-2] == '\n' {
			return i
		}
	}
	for i := end; i > minCut; i-- {
		c := runes[i-1]
		if (c == ' ' || c == '\n') && i-2 >= start && isSentenceEnd(runes[i-2]) {
			return i
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
