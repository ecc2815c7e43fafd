// Package pdftest assembles small, valid PDF files for tests.
package pdftest

import (
	"fmt"
	"strconv"
	"strings"
)

// Corrupt, passed as a stream to Build, yields a page whose content stream
// claims /FlateDecode but holds bytes that are not zlib data.
const Corrupt = "\x00corrupt-flate"

// Build returns a PDF with one page per content stream. Every page shares
// font /F1 (a Type1 font named baseFont) and image /Im1 (1x1 RGB).
func Build(baseFont string, streams ...string) []byte {
	const fixed = 4 // catalog, pages, font, image
	n := fixed + 2*len(streams)
	offsets := make([]int, n+1)

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	obj := func(num int, body string) {
		offsets[num] = b.Len()
		b.WriteString(strconv.Itoa(num) + " 0 obj\n" + body + "\nendobj\n")
	}

	var kids []string
	for i := range streams {
		kids = append(kids, strconv.Itoa(fixed+1+2*i)+" 0 R")
	}
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(streams)))
	obj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /"+baseFont+" >>")
	img := "\xff\x00\x00"
	obj(4, "<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Length "+
		strconv.Itoa(len(img))+" >>\nstream\n"+img+"\nendstream")

	for i, s := range streams {
		page, content := fixed+1+2*i, fixed+2+2*i
		obj(page, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R "+
			"/Resources << /Font << /F1 3 0 R >> /XObject << /Im1 4 0 R >> >> >>", content))
		if s == Corrupt {
			junk := "this is not a zlib stream"
			obj(content, "<< /Length "+strconv.Itoa(len(junk))+" /Filter /FlateDecode >>\nstream\n"+junk+"\nendstream")
			continue
		}
		obj(content, "<< /Length "+strconv.Itoa(len(s))+" >>\nstream\n"+s+"\nendstream")
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", n+1)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", n+1, xref)
	return []byte(b.String())
}

// Text is a content stream showing s at (x, y) in /F1 at size pt.
func Text(size float64, x, y float64, s string) string {
	return fmt.Sprintf("BT /F1 %g Tf %g %g Td (%s) Tj ET", size, x, y, escape(s))
}

var escaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

func escape(s string) string { return escaper.Replace(s) }
