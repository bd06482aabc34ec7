package textmerge

import (
	"regexp"
	"strings"
	"unicode"
)

// Merge combines a page's native text layer with its OCR text into one
// cleaned string. OCR lines that merely repeat the native layer are
// dropped; genuinely new lines (figure labels, diagram text) are appended
// after the primary text. When the OCR output dwarfs the native layer the
// page is treated as image-based and the OCR text wins outright.
func Merge(primary, ocr string) string {
	primary = strings.TrimSpace(primary)
	ocr = strings.TrimSpace(ocr)

	if primary == "" && ocr == "" {
		return ""
	}
	if primary == "" {
		return Clean(ocr)
	}
	if ocr == "" {
		return Clean(primary)
	}

	// A much longer OCR result means the native layer caught only scraps
	// of a largely image-based page.
	if float64(len(ocr)) > 1.5*float64(len(primary)) {
		return Clean(ocr)
	}

	cleaned := Clean(primary)
	lowerPrimary := strings.ToLower(cleaned)

	var extra []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(Clean(ocr), "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) <= 5 || !hasLetter(line) {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lowerPrimary, lower) || strings.Contains(lower, lowerPrimary) {
			continue
		}
		if seen[lower] {
			continue
		}
		seen[lower] = true
		extra = append(extra, line)
	}

	if len(extra) == 0 {
		return cleaned
	}
	return cleaned + "\n\n" + strings.Join(extra, "\n")
}

var (
	blankRunRe = regexp.MustCompile(`\n{4,}`)

	// Keyword glued to the next token, e.g. "returnNewClient" or
	// "public(void". Requiring an uppercase letter, digit or paren after
	// the keyword avoids mangling ordinary words like "returns".
	gluedKeywordRe = regexp.MustCompile(`\b(return|public|private|static|class|def|func|var|const|import)([A-Z0-9(])`)

	// Compound operator with no surrounding spaces, e.g. "a==b".
	gluedOperatorRe = regexp.MustCompile(`([A-Za-z0-9])(==|!=|<=|>=|&&|\|\|)([A-Za-z0-9])`)
)

var codeIndicators = []string{"{", ";", "public ", "def ", "return ", "func ", "import ", "=>"}

// Clean normalizes line endings, collapses runs of three or more blank
// lines to a single blank line, and, for text that looks like source code,
// re-inserts whitespace the OCR pass tends to swallow. The code respacing
// is lossy for prose, so it only runs when enough code indicators appear.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")

	if looksLikeCode(text) {
		text = gluedKeywordRe.ReplaceAllString(text, "$1 $2")
		text = gluedOperatorRe.ReplaceAllString(text, "$1 $2 $3")
	}
	return strings.TrimSpace(text)
}

func looksLikeCode(text string) bool {
	hits := 0
	for _, ind := range codeIndicators {
		if strings.Contains(text, ind) {
			hits++
		}
	}
	return hits >= 3
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
