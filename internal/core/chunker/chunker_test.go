package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	require.Nil(t, Split("", DefaultMaxSize, DefaultOverlap))
	require.Nil(t, Split("   \n\n  ", DefaultMaxSize, DefaultOverlap))
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	text := "A short page that fits in one passage."
	chunks := Split(text, DefaultMaxSize, DefaultOverlap)
	require.Equal(t, []string{text}, chunks)
}

func TestSplitOverlapInvariant(t *testing.T) {
	text := strings.Repeat("The system indexes passages for retrieval. ", 120)
	chunks := Split(text, DefaultMaxSize, DefaultOverlap)
	require.Greater(t, len(chunks), 1)

	for i := 0; i < len(chunks)-1; i++ {
		tail := []rune(chunks[i])
		head := []rune(chunks[i+1])
		require.GreaterOrEqual(t, len(tail), DefaultOverlap)
		require.GreaterOrEqual(t, len(head), DefaultOverlap)
		require.Equal(t,
			string(tail[len(tail)-DefaultOverlap:]),
			string(head[:DefaultOverlap]),
			"chunk %d tail must equal chunk %d head", i, i+1)
	}
}

func TestSplitSizeBound(t *testing.T) {
	text := strings.Repeat("Sentences of moderate length fill the page. ", 200)
	for _, c := range Split(text, DefaultMaxSize, DefaultOverlap) {
		require.LessOrEqual(t, len([]rune(c)), DefaultMaxSize)
	}
}

func TestSplitCoversWholeInput(t *testing.T) {
	text := strings.Repeat("No byte of the input may be lost between chunks. ", 100)
	chunks := Split(text, DefaultMaxSize, DefaultOverlap)

	rebuilt := chunks[0]
	for _, c := range chunks[1:] {
		rebuilt += c[DefaultOverlap:]
	}
	// Each chunk after the first repeats the previous overlap; removing it
	// must reconstruct the original text exactly.
	require.Equal(t, text, rebuilt)
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("word ", 60) // ~300 runes
	text := para + "\n\n" + para + "\n\n" + para

	chunks := Split(text, 700, 100)
	require.Greater(t, len(chunks), 1)
	// The first cut should land on the paragraph break inside the window,
	// not at the 700-rune hard limit.
	require.True(t, strings.HasSuffix(chunks[0], "\n\n"), "expected paragraph-aligned cut, got %q tail", chunks[0][len(chunks[0])-10:])
	require.Less(t, len([]rune(chunks[0])), 700)
}

func TestSplitHardCutWhenNoBoundary(t *testing.T) {
	text := strings.Repeat("x", 2000)
	chunks := Split(text, 800, 200)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 800)
	}
	require.Len(t, chunks[0], 800)
}
