package pdfprim

import (
	"unicode"
	"unicode/utf8"
)

// Quality captures how much usable text the extractor recovered.
type Quality struct {
	PageCount       int     `json:"page_count"`
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	WordlikeRatio   float64 `json:"wordlike_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
}

// Thresholds of NeedsOCR.
const (
	scannedCharsPerPage = 50
	minPrintableRatio   = 0.85
	// Below this share of plausible words, a text layer with enough
	// characters is glyph soup: missing spaces or one glyph per token.
	minWordlikeRatio = 0.4
)

// NeedsOCR reports whether the document looks scanned or has an unusable
// text layer (CID fonts without ToUnicode, broken spacing).
func (q *Quality) NeedsOCR() bool {
	switch {
	case q.CharsPerPage < scannedCharsPerPage && q.HasImageStreams:
		return true
	case q.PrintableRatio < minPrintableRatio:
		return true
	case q.CharsPerPage >= scannedCharsPerPage && q.WordlikeRatio < minWordlikeRatio:
		return true
	}
	return false
}

func computeQuality(pageCount int, prims []Primitive, hasImages bool) *Quality {
	var ts textScan
	for _, p := range prims {
		switch p.Kind {
		case KindText:
			ts.add(p.Text)
		case KindTable:
			ts.add(p.CellText)
		case KindImage:
			hasImages = true
		}
	}
	q := &Quality{
		PageCount:       pageCount,
		PrintableRatio:  ts.printableRatio(),
		WordlikeRatio:   ts.wordlikeRatio(),
		HasImageStreams: hasImages,
	}
	if pageCount > 0 {
		q.CharsPerPage = float64(ts.visible) / float64(pageCount)
	}
	return q
}

// textScan tallies rune and token statistics over every run in one pass.
// Whitespace separates tokens and is neither garbage nor visible.
type textScan struct {
	runes, garbage, visible int
	tokens, wordlike        int
}

func (t *textScan) add(s string) {
	tokenLen := 0
	endToken := func() {
		if tokenLen == 0 {
			return
		}
		t.tokens++
		if tokenLen >= 2 && tokenLen <= 15 {
			t.wordlike++
		}
		tokenLen = 0
	}
	for _, r := range s {
		t.runes++
		if unicode.IsSpace(r) {
			endToken()
			continue
		}
		tokenLen++
		if garbageRune(r) {
			t.garbage++
			continue
		}
		t.visible++
	}
	endToken()
}

// printableRatio is 1 for empty input.
func (t *textScan) printableRatio() float64 {
	if t.runes == 0 {
		return 1
	}
	return float64(t.runes-t.garbage) / float64(t.runes)
}

// wordlikeRatio is the share of tokens 2 to 15 runes long, 0 without tokens.
func (t *textScan) wordlikeRatio() float64 {
	if t.tokens == 0 {
		return 0
	}
	return float64(t.wordlike) / float64(t.tokens)
}

// garbageRune flags what a broken text layer decodes to: private-use
// codepoints, U+FFFD and non-printing characters.
func garbageRune(r rune) bool {
	return r == utf8.RuneError || unicode.Is(unicode.Co, r) || !unicode.IsPrint(r)
}
