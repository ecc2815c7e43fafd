package pdfprim

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// forceBoldFlag is bit 19 of the FontDescriptor /Flags entry.
const forceBoldFlag = 1 << 18

// boldTokens are BaseFont name fragments that denote a heavy weight.
var boldTokens = []string{"bold", "black", "heavy", "semibold", "demi", "extrabold", "ultrabold"}

// fontInfo is the subset of a PDF font dictionary the interpreter needs.
type fontInfo struct {
	baseFont string
	bold     bool
	twoByte  bool // composite (Type0) font: 2-byte character codes
	toUni    *cmap
}

// boldFromMetadata derives the bold flag from font metadata only: the
// BaseFont name, the FontDescriptor weight and the ForceBold flag.
func boldFromMetadata(baseFont string, weight float64, flags int) bool {
	if flags&forceBoldFlag != 0 {
		return true
	}
	if weight >= 600 {
		return true
	}
	name := strings.ToLower(baseFont)
	// Subset prefix "ABCDEF+" carries no style information.
	if i := strings.IndexByte(name, '+'); i == 6 {
		name = name[i+1:]
	}
	for _, tok := range boldTokens {
		if strings.Contains(name, tok) {
			return true
		}
	}
	return false
}

// decode turns the raw bytes of a shown string into text.
func (f *fontInfo) decode(raw []byte) string {
	if f == nil {
		return decodeWinAnsi(raw)
	}
	if f.toUni != nil {
		return f.toUni.lookupString(raw, f.twoByte)
	}
	if f.twoByte {
		// Identity-encoded CIDs without a ToUnicode map are not recoverable.
		return ""
	}
	return decodeWinAnsi(raw)
}

// decodeWinAnsi builds a fresh decoder per call: decoders carry state and
// pages of different documents are decoded concurrently.
func decodeWinAnsi(raw []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// cmap is a parsed ToUnicode CMap: source code -> unicode text.
type cmap struct {
	chars  map[uint32]string
	ranges []cmapRange
}

type cmapRange struct {
	lo, hi uint32
	base   []rune   // destination of lo; following codes increment the last rune
	list   []string // explicit per-code destinations, when given as an array
}

func (m *cmap) lookup(code uint32) (string, bool) {
	if s, ok := m.chars[code]; ok {
		return s, true
	}
	for _, r := range m.ranges {
		if code < r.lo || code > r.hi {
			continue
		}
		off := code - r.lo
		if r.list != nil {
			if int(off) < len(r.list) {
				return r.list[off], true
			}
			return "", false
		}
		if len(r.base) == 0 {
			return "", false
		}
		out := append([]rune(nil), r.base...)
		out[len(out)-1] += rune(off)
		return string(out), true
	}
	return "", false
}

func (m *cmap) lookupString(raw []byte, twoByte bool) string {
	var sb strings.Builder
	step := 1
	if twoByte {
		step = 2
	}
	for i := 0; i+step <= len(raw); i += step {
		code := uint32(raw[i])
		if twoByte {
			code = code<<8 | uint32(raw[i+1])
		}
		if s, ok := m.lookup(code); ok {
			sb.WriteString(s)
		} else if !twoByte {
			sb.WriteString(decodeWinAnsi(raw[i : i+1]))
		}
	}
	return sb.String()
}

// parseCMap reads the bfchar and bfrange sections of a ToUnicode stream.
// Malformed lines are skipped.
func parseCMap(data []byte) *cmap {
	m := &cmap{chars: make(map[uint32]string)}
	ops, _ := tokenize(data)

	// The CMap syntax is PostScript; the tokenizer yields "beginbfchar" /
	// "endbfchar" as operators whose operands are the hex strings between them.
	for _, o := range ops {
		switch o.name {
		case "endbfchar":
			for i := 0; i+1 < len(o.args); i += 2 {
				src, dst := o.args[i], o.args[i+1]
				if src.kind != opString || dst.kind != opString {
					continue
				}
				m.chars[codeOf(src.str)] = utf16BE(dst.str)
			}
		case "endbfrange":
			for i := 0; i+2 < len(o.args); i += 3 {
				lo, hi, dst := o.args[i], o.args[i+1], o.args[i+2]
				if lo.kind != opString || hi.kind != opString {
					continue
				}
				r := cmapRange{lo: codeOf(lo.str), hi: codeOf(hi.str)}
				switch dst.kind {
				case opString:
					r.base = []rune(utf16BE(dst.str))
				case opArray:
					for _, d := range dst.arr {
						r.list = append(r.list, utf16BE(d.str))
					}
				default:
					continue
				}
				m.ranges = append(m.ranges, r)
			}
		}
	}
	if len(m.chars) == 0 && len(m.ranges) == 0 {
		return nil
	}
	return m
}

func codeOf(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func utf16BE(b []byte) string {
	if len(b)%2 == 1 {
		b = append(b, 0)
	}
	u := make([]uint16, len(b)/2)
	for i := range u {
		u[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return string(utf16.Decode(u))
}
