package pdfprim

import "testing"

func TestHasListMarker(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"• first point", true},
		{"● filled", true},
		{"1. Introduction", true},
		{"12. Twelfth", true},
		{"3.", true},
		{"a) option", true},
		{"B) option", true},
		{"- dash item", true},
		{"   - indented dash", true},
		{"3.14 is pi", false},
		{"-dash without space", false},
		{"ab) two letters", false},
		{"Plain paragraph text", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := HasListMarker(tt.text); got != tt.want {
			t.Errorf("HasListMarker(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
