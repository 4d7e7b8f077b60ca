// Package textmodel holds the text-side data the aligner binds time
// intervals to: transcript fragments and the hierarchical transcript
// tree that holds them. Parsing raw transcript formats (plain/subtitles/
// XHTML/...) is an external collaborator; this package only stores and
// sums lines it is handed.
package textmodel

import "strings"

// TextFragment is one unit of transcript text to be aligned.
type TextFragment struct {
	Identifier     string
	Language       string
	Lines          []string
	FilteredLines  []string
}

// Chars is the total character count of Lines.
func (f TextFragment) Chars() int {
	return sumLineLengths(f.Lines)
}

// FilteredChars is the total character count of FilteredLines, the
// post-regex/transliteration variant used for rate calculations and
// synthesis. If FilteredLines is unset, it falls back to Lines.
func (f TextFragment) FilteredChars() int {
	if f.FilteredLines == nil {
		return f.Chars()
	}
	return sumLineLengths(f.FilteredLines)
}

func sumLineLengths(lines []string) int {
	total := 0
	for _, line := range lines {
		total += len([]rune(line))
	}
	return total
}

// Text joins Lines with newlines, for synthesis requests and debugging.
func (f TextFragment) Text() string {
	return strings.Join(f.Lines, "\n")
}
