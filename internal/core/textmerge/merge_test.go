package textmerge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeBothEmpty(t *testing.T) {
	require.Empty(t, Merge("", ""))
	require.Empty(t, Merge("   ", "\n\n"))
}

func TestMergeEmptyOCRIsClean(t *testing.T) {
	text := "First paragraph.\r\n\r\nSecond paragraph."
	require.Equal(t, Clean(text), Merge(text, ""))
}

func TestMergeEmptyPrimaryUsesOCR(t *testing.T) {
	ocr := "Recovered from a scanned page."
	require.Equal(t, Clean(ocr), Merge("", ocr))
}

func TestMergeFullOverlapAddsNothing(t *testing.T) {
	text := "The quarterly report covers revenue.\nIt also covers expenses."
	merged := Merge(text, text)
	require.Equal(t, Clean(text), merged)
}

func TestMergeKeepsNovelOCRLines(t *testing.T) {
	primary := "Chapter 3 discusses the architecture of the system in detail. The components communicate over a message bus."
	ocr := "Chapter 3 discusses the architecture of the system in detail.\nFigure 3.1: deployment diagram"
	merged := Merge(primary, ocr)
	require.Contains(t, merged, "Figure 3.1: deployment diagram")
	require.Equal(t, 1, strings.Count(merged, "Chapter 3 discusses"))
}

func TestMergeDropsShortAndNonAlphaLines(t *testing.T) {
	primary := "A page about infrastructure costs and capacity planning."
	ocr := "ab\n12345 678\n---\nA genuinely new observation about cooling."
	merged := Merge(primary, ocr)
	require.Contains(t, merged, "A genuinely new observation about cooling.")
	require.NotContains(t, merged, "12345 678")
	require.NotContains(t, merged, "---")
	require.NotContains(t, merged, "\nab")
}

func TestMergePrefersMuchLongerOCR(t *testing.T) {
	primary := "stub"
	ocr := strings.Repeat("This page is a scan with lots of recognized text. ", 10)
	require.Equal(t, Clean(ocr), Merge(primary, ocr))
}

func TestMergeDedupesRepeatedOCRLines(t *testing.T) {
	primary := "Main body of the page."
	ocr := "Sidebar annotation text\nSidebar annotation text"
	merged := Merge(primary, ocr)
	require.Equal(t, 1, strings.Count(merged, "Sidebar annotation text"))
}

func TestCleanNormalizesLineEndings(t *testing.T) {
	require.Equal(t, "a\nb\nc", Clean("a\r\nb\rc"))
}

func TestCleanCollapsesBlankRuns(t *testing.T) {
	in := "para one\n\n\n\n\n\npara two"
	require.Equal(t, "para one\n\npara two", Clean(in))

	// A single blank line is left alone.
	require.Equal(t, "para one\n\npara two", Clean("para one\n\npara two"))
}

func TestCleanRespacesGluedCode(t *testing.T) {
	in := "func main() {\n\tx := compute();\n\treturnResult(x);\n\tif x==y {\n\t\treturn\n\t}\n}"
	out := Clean(in)
	require.Contains(t, out, "return Result(x)")
	require.Contains(t, out, "x == y")
}

func TestCleanLeavesProseAlone(t *testing.T) {
	in := "The program returnsEarly when the user cancels. Nothing here looks like code."
	require.Equal(t, in, Clean(in))
}
