package pdfprim

import (
	"bytes"
	"fmt"
	"strconv"
)

// operand is a single content stream operand. Exactly one field is meaningful,
// selected by kind.
type operand struct {
	kind operandKind
	num  float64
	name string
	str  []byte
	arr  []operand
}

type operandKind uint8

const (
	opNumber operandKind = iota
	opName
	opString
	opArray
	opOther // booleans, null, dictionaries: carried but never interpreted
)

// op is one operator together with the operands that preceded it.
type op struct {
	name string
	args []operand
}

func (o op) number(i int) float64 {
	if i < 0 || i >= len(o.args) || o.args[i].kind != opNumber {
		return 0
	}
	return o.args[i].num
}

func (o op) nameArg(i int) string {
	if i < 0 || i >= len(o.args) || o.args[i].kind != opName {
		return ""
	}
	return o.args[i].name
}

// lexer turns a decoded page content stream into a flat list of operations.
// It is tolerant: unknown bytes are skipped and an unterminated construct
// ends the stream instead of failing the page.
type lexer struct {
	data []byte
	pos  int
}

func tokenize(data []byte) ([]op, error) {
	l := &lexer{data: data}
	var ops []op
	var stack []operand

	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			break
		}
		c := l.data[l.pos]

		switch {
		case isRegular(c) && !isNumberStart(c):
			word := l.readWord()
			switch word {
			case "true", "false", "null":
				stack = append(stack, operand{kind: opOther})
				continue
			case "BI":
				// Inline image: dictionary entries up to ID, then raw bytes up to EI.
				if err := l.skipInlineImage(); err != nil {
					return ops, err
				}
				ops = append(ops, op{name: "BI"})
				stack = stack[:0]
				continue
			}
			ops = append(ops, op{name: word, args: append([]operand(nil), stack...)})
			stack = stack[:0]
		default:
			v, err := l.readOperand()
			if err != nil {
				return ops, err
			}
			stack = append(stack, v)
		}
	}
	return ops, nil
}

func (l *lexer) readOperand() (operand, error) {
	c := l.data[l.pos]
	switch {
	case isNumberStart(c):
		return l.readNumber(), nil
	case c == '/':
		l.pos++
		return operand{kind: opName, name: l.readWord()}, nil
	case c == '(':
		s, err := l.readLiteral()
		return operand{kind: opString, str: s}, err
	case c == '<' && l.peek(1) == '<':
		l.skipDict()
		return operand{kind: opOther}, nil
	case c == '<':
		return operand{kind: opString, str: l.readHex()}, nil
	case c == '[':
		l.pos++
		var arr []operand
		for {
			l.skipSpace()
			if l.pos >= len(l.data) {
				return operand{kind: opArray, arr: arr}, fmt.Errorf("unterminated array")
			}
			if l.data[l.pos] == ']' {
				l.pos++
				return operand{kind: opArray, arr: arr}, nil
			}
			if isRegular(l.data[l.pos]) && !isNumberStart(l.data[l.pos]) {
				// Bare keywords inside arrays (true/false/null).
				l.readWord()
				arr = append(arr, operand{kind: opOther})
				continue
			}
			v, err := l.readOperand()
			if err != nil {
				return operand{kind: opArray, arr: arr}, err
			}
			arr = append(arr, v)
		}
	default:
		// Stray delimiter such as ')' '>' ']' '{' '}': skip it.
		l.pos++
		return operand{kind: opOther}, nil
	}
}

func (l *lexer) readNumber() operand {
	start := l.pos
	l.pos++
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			l.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(string(l.data[start:l.pos]), 64)
	if err != nil {
		return operand{kind: opNumber}
	}
	return operand{kind: opNumber, num: v}
}

func (l *lexer) readWord() string {
	start := l.pos
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// readLiteral reads a (balanced) literal string and resolves escapes.
func (l *lexer) readLiteral() ([]byte, error) {
	l.pos++ // (
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return out, fmt.Errorf("unterminated string")
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for k := 0; k < 2 && l.pos < len(l.data); k++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						val = val*8 + int(d-'0')
						l.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out, nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out, fmt.Errorf("unterminated string")
}

func (l *lexer) readHex() []byte {
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; isHexDigit(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++ // >
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexVal(digits[2*i])<<4 | hexVal(digits[2*i+1])
	}
	return out
}

func (l *lexer) skipDict() {
	depth := 0
	for l.pos < len(l.data) {
		if l.data[l.pos] == '<' && l.peek(1) == '<' {
			depth++
			l.pos += 2
			continue
		}
		if l.data[l.pos] == '>' && l.peek(1) == '>' {
			depth--
			l.pos += 2
			if depth == 0 {
				return
			}
			continue
		}
		l.pos++
	}
}

// skipInlineImage advances past "... ID <binary> EI".
func (l *lexer) skipInlineImage() error {
	idx := bytes.Index(l.data[l.pos:], []byte("ID"))
	if idx < 0 {
		l.pos = len(l.data)
		return fmt.Errorf("inline image without ID")
	}
	l.pos += idx + 2
	if l.pos < len(l.data) && isSpace(l.data[l.pos]) {
		l.pos++
	}
	for l.pos+1 < len(l.data) {
		if l.data[l.pos] == 'E' && l.data[l.pos+1] == 'I' &&
			(l.pos == 0 || isSpace(l.data[l.pos-1])) &&
			(l.pos+2 >= len(l.data) || !isRegular(l.data[l.pos+2])) {
			l.pos += 2
			return nil
		}
		l.pos++
	}
	l.pos = len(l.data)
	return fmt.Errorf("inline image without EI")
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isSpace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *lexer) peek(n int) byte {
	if l.pos+n < len(l.data) {
		return l.data[l.pos+n]
	}
	return 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool { return !isSpace(c) && !isDelimiter(c) }

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
