package giffiscript

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func mustContain(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Fatalf("expected output to contain %q\n--- output ---\n%s", sub, s)
	}
}

func Test_Error_Format(t *testing.T) {
	e := &Error{Kind: TypeMismatch, Phase: PhaseRuntime, Msg: "bad operands", Line: 2, Col: 3, Name: "a.giffi"}
	if got, want := e.Error(), "RUNTIME ERROR in a.giffi at 2:3: TypeMismatch: bad operands"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
	e = &Error{Kind: UnexpectedToken, Phase: PhaseParse, Msg: "oops"}
	if got, want := e.Error(), "PARSE ERROR: UnexpectedToken: oops"; got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
	if got := ErrorKind(99).String(); got != "ErrorKind(99)" {
		t.Fatalf("unknown kind renders as %q", got)
	}
}

func Test_ErrorWrap_Parse_ShowsCaretAndContext(t *testing.T) {
	src := "let x = 1;\nlet y = }\nprint(y);"
	_, err := ParseSource(src)
	if err == nil {
		t.Fatalf("expected parse error, got nil")
	}
	wrapped := WrapErrorWithSource(err, "main.giffi", src)
	msg := wrapped.Error()

	mustContain(t, msg, "PARSE ERROR in main.giffi at 2:9: UnexpectedToken")
	mustContain(t, msg, "   1 | let x = 1;")
	mustContain(t, msg, "   2 | let y = }")
	mustContain(t, msg, "     |         ^")
	mustContain(t, msg, "   3 | print(y);")

	var e *Error
	if !errors.As(wrapped, &e) || e.Kind != UnexpectedToken {
		t.Fatalf("wrapped error should still expose *Error, got %v", wrapped)
	}
}

func Test_ErrorWrap_Runtime_UsesErrorName(t *testing.T) {
	src := "let a = 1;\nlet b = a / 0;"
	ip, _ := newTestInterpreter()
	_, err := ip.RunSource("calc.giffi", src)
	msg := WrapErrorWithSource(err, "", src).Error()
	mustContain(t, msg, "RUNTIME ERROR in calc.giffi at 2:11: DivisionByZero")
	mustContain(t, msg, "     |           ^")
}

func Test_ErrorWrap_PassesThroughUnpositioned(t *testing.T) {
	plain := errors.New("plain")
	if got := WrapErrorWithSource(plain, "x", "src"); got != plain {
		t.Fatalf("non-*Error should pass through, got %v", got)
	}
	unpos := rtErr(ImportError, "nothing to point at")
	if got := WrapErrorWithSource(unpos, "x", "src"); got != error(unpos) {
		t.Fatalf("unpositioned *Error should pass through, got %v", got)
	}
}

func Test_ErrorWrap_ClampsPosition(t *testing.T) {
	e := &Error{Kind: UnexpectedEndOfInput, Phase: PhaseParse, Msg: "eof", Line: 10, Col: 4}
	msg := WrapErrorWithSource(e, "s", "only line").Error()
	mustContain(t, msg, "at 1:4")
	mustContain(t, msg, "   1 | only line")
}

func Test_Error_IsIncomplete(t *testing.T) {
	incomplete := []string{"while true {", "let x = (1 + 2", `let s = "abc`, "fn f(a,"}
	for _, src := range incomplete {
		_, err := ParseSource(src)
		if !IsIncomplete(err) {
			t.Fatalf("%q should be incomplete, got %v", src, err)
		}
		if !IsIncomplete(fmt.Errorf("wrapped: %w", err)) {
			t.Fatalf("wrapping should keep %q incomplete", src)
		}
	}
	complete := []string{"let = 1;", "1 2", "}"}
	for _, src := range complete {
		_, err := ParseSource(src)
		if err == nil || IsIncomplete(err) {
			t.Fatalf("%q should be a hard error, got %v", src, err)
		}
	}
	if IsIncomplete(errors.New("unterminated")) {
		t.Fatalf("plain errors are never incomplete")
	}
}

func Test_Error_IsKind_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", rtErr(IndexError, "x"))
	if !IsKind(err, IndexError) || IsKind(err, TypeMismatch) {
		t.Fatalf("IsKind should see through wrapping")
	}
	if IsKind(nil, IndexError) {
		t.Fatalf("nil is no kind")
	}
}
