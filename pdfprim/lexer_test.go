package pdfprim

import (
	"reflect"
	"testing"
)

func opNames(ops []op) []string {
	var names []string
	for _, o := range ops {
		names = append(names, o.name)
	}
	return names
}

func TestTokenize_TextObject(t *testing.T) {
	// WHAT: A basic text object yields its operators with operands attached.
	// WHY: Every later stage reads operands through op.number / op.nameArg.
	ops, err := tokenize([]byte("BT\n/F1 12 Tf\n72 720 Td\n(Hello) Tj\nET"))
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	want := []string{"BT", "Tf", "Td", "Tj", "ET"}
	if got := opNames(ops); !reflect.DeepEqual(got, want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	if ops[1].nameArg(0) != "F1" || ops[1].number(1) != 12 {
		t.Errorf("Tf args = %+v", ops[1].args)
	}
	if ops[2].number(0) != 72 || ops[2].number(1) != 720 {
		t.Errorf("Td args = %+v", ops[2].args)
	}
	if string(ops[3].args[0].str) != "Hello" {
		t.Errorf("Tj string = %q", ops[3].args[0].str)
	}
}

func TestTokenize_LiteralEscapes(t *testing.T) {
	// WHAT: Escapes, octal codes and nested parentheses are resolved.
	// WHY: Literal strings are the main carrier of page text.
	ops, err := tokenize([]byte(`(a\(b\)c\101 (nested)) Tj`))
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("ops = %d, want 1", len(ops))
	}
	if got := string(ops[0].args[0].str); got != "a(b)cA (nested)" {
		t.Errorf("string = %q", got)
	}
}

func TestTokenize_HexAndArray(t *testing.T) {
	// WHAT: Hex strings decode and TJ arrays keep strings and numbers in order.
	ops, err := tokenize([]byte(`[<48656C6C6F> -250 (World)] TJ`))
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	arr := ops[0].args[0]
	if arr.kind != opArray || len(arr.arr) != 3 {
		t.Fatalf("array = %+v", arr)
	}
	if string(arr.arr[0].str) != "Hello" || arr.arr[1].num != -250 || string(arr.arr[2].str) != "World" {
		t.Errorf("array = %+v", arr.arr)
	}
}

func TestTokenize_InlineImageAndComments(t *testing.T) {
	// WHAT: Inline image data is skipped as one BI op; comments are ignored.
	// WHY: Binary image bytes must not be misread as operators.
	data := []byte("q % save\nBI /W 1 /H 1 /BPC 8 /CS /G ID \x00\x01Tj\xff EI Q")
	ops, err := tokenize(data)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	want := []string{"q", "BI", "Q"}
	if got := opNames(ops); !reflect.DeepEqual(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestTokenize_Unterminated(t *testing.T) {
	// WHAT: An unterminated string returns the ops read so far and an error.
	// WHY: A truncated stream keeps what could be read instead of losing the page.
	ops, err := tokenize([]byte("BT (broken"))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := opNames(ops); !reflect.DeepEqual(got, []string{"BT"}) {
		t.Errorf("ops = %v, want [BT]", got)
	}
}
