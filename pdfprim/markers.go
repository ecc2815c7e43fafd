package pdfprim

import (
	"regexp"
	"strings"
)

// listMarkers are the accepted list-item openings: a bullet glyph, "12. ",
// "a) " and "- ".
var listMarkers = []*regexp.Regexp{
	regexp.MustCompile(`^[•·▪▫‣⁃◦●○■□►▸▶➢✓✔]`),
	regexp.MustCompile(`^\d+\.(\s|$)`),
	regexp.MustCompile(`^[A-Za-z]\)(\s|$)`),
	regexp.MustCompile(`^-\s`),
}

// HasListMarker reports whether text opens with a list marker.
// Leading whitespace is ignored.
func HasListMarker(text string) bool {
	text = strings.TrimLeft(text, " \t\r\n")
	for _, re := range listMarkers {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
