package classify

import "github.com/hazyhaar/pdfstruct/pdfprim"

// Thresholds are the typographic cut-offs of the heading rules.
type Thresholds struct {
	TitleSize       float64 `yaml:"title_size" json:"title_size"`
	SubtitleSize    float64 `yaml:"subtitle_size" json:"subtitle_size"`
	SectionBoldSize float64 `yaml:"section_bold_size" json:"section_bold_size"`
	SectionSize     float64 `yaml:"section_size" json:"section_size"`
	SectionMaxWords int     `yaml:"section_max_words" json:"section_max_words"`
}

// DefaultThresholds returns 16/14/12/13 pt and 20 words.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TitleSize:       16,
		SubtitleSize:    14,
		SectionBoldSize: 12,
		SectionSize:     13,
		SectionMaxWords: 20,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.TitleSize <= 0 {
		t.TitleSize = d.TitleSize
	}
	if t.SubtitleSize <= 0 {
		t.SubtitleSize = d.SubtitleSize
	}
	if t.SectionBoldSize <= 0 {
		t.SectionBoldSize = d.SectionBoldSize
	}
	if t.SectionSize <= 0 {
		t.SectionSize = d.SectionSize
	}
	if t.SectionMaxWords <= 0 {
		t.SectionMaxWords = d.SectionMaxWords
	}
	return t
}

// features is what the rules look at for one text run.
type features struct {
	text    string
	size    float64
	bold    bool
	words   int
	hasFont bool
}

type rule struct {
	typ   ElementType
	match func(Thresholds, features) bool
	// next maps the carried depth to the new one; the element takes the result.
	next func(depth int) int
}

func keepDepth(d int) int { return d }

// rules is evaluated top to bottom; the first match wins.
var rules = []rule{
	{
		typ:   Title,
		match: func(th Thresholds, f features) bool { return f.size >= th.TitleSize && f.bold },
		next:  func(int) int { return 0 },
	},
	{
		typ:   Subtitle,
		match: func(th Thresholds, f features) bool { return f.size >= th.SubtitleSize && f.bold },
		next:  func(int) int { return 1 },
	},
	{
		typ:   Section,
		match: func(th Thresholds, f features) bool {
			return (f.size >= th.SectionBoldSize && f.bold) ||
				(f.size >= th.SectionSize && f.words <= th.SectionMaxWords)
		},
		next: func(d int) int { return d + 1 },
	},
	{
		typ:   ListItem,
		match: func(_ Thresholds, f features) bool { return pdfprim.HasListMarker(f.text) },
		next:  keepDepth,
	},
	{
		typ:   Paragraph,
		match: func(Thresholds, features) bool { return true },
		next:  keepDepth,
	},
}

// step classifies one text run given the carried depth and returns its type
// and the depth after it, which is also the element's own depth. A run
// without font metadata matches no rule and is a paragraph.
func step(th Thresholds, depth int, f features) (ElementType, int) {
	if !f.hasFont {
		return Paragraph, depth
	}
	for _, r := range rules {
		if r.match(th, f) {
			return r.typ, max(r.next(depth), 0)
		}
	}
	return Paragraph, depth
}
