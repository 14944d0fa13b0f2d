// errors.go: typed diagnostics and caret-snippet rendering
//
// Every stage of the pipeline reports failures as *Error. An Error carries a
// Kind from the closed taxonomy below, the 1-based position of the token or
// instruction that failed, and the phase it came from (lexing, parsing or
// execution). Nothing in the core recovers from an Error: the first one stops
// the run and is returned to the embedder, which decides whether to print the
// diagnostic dump (diagnostic.go) and exit.
//
// WrapErrorWithSource turns an *Error into a Python-style snippet:
//
//	PARSE ERROR in main.giffi at 2:9: UnexpectedToken: expected ';', got Symbol(})
//
//	   1 | let x = 1;
//	   2 | let y = }
//	     |         ^
//
// The snippet shows one line of context on each side when available.
package giffiscript

import (
	"errors"
	"fmt"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////
//                                  PUBLIC API
////////////////////////////////////////////////////////////////////////////////

// ErrorKind classifies an Error.
type ErrorKind int

const (
	ParsingError         ErrorKind = iota // malformed literal
	UnexpectedToken                       // parser saw the wrong token
	UnexpectedEndOfInput                  // parser ran out of tokens
	DuplicateBinding                      // name already bound in the innermost scope / function table
	UnboundVariable                       // name not found in the scope chain
	UnknownFunction                       // call target not in the function table
	TypeMismatch                          // operand types not accepted by an operation
	UnknownOperation                      // operator symbol not implemented
	DivisionByZero                        // '/' or '%' by zero
	IndexError                            // out-of-range or non-integer index
	ImportError                           // import could not be resolved or failed
	StackUnderflow                        // pop on an empty stack or below a call frame
	StackOverflow                         // nesting deeper than the configured limit
	Panic                                 // script called panic()
	NativeError                           // a native callback failed
	IllegalDeclaration                    // function declared outside the top level
)

var kindNames = [...]string{
	ParsingError:         "ParsingError",
	UnexpectedToken:      "UnexpectedToken",
	UnexpectedEndOfInput: "UnexpectedEndOfInput",
	DuplicateBinding:     "DuplicateBinding",
	UnboundVariable:      "UnboundVariable",
	UnknownFunction:      "UnknownFunction",
	TypeMismatch:         "TypeMismatch",
	UnknownOperation:     "UnknownOperation",
	DivisionByZero:       "DivisionByZero",
	IndexError:           "IndexError",
	ImportError:          "ImportError",
	StackUnderflow:       "StackUnderflow",
	StackOverflow:        "StackOverflow",
	Panic:                "Panic",
	NativeError:          "NativeError",
	IllegalDeclaration:   "IllegalDeclaration",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Phase tells which stage produced an Error.
type Phase int

const (
	PhaseLex Phase = iota
	PhaseParse
	PhaseRuntime
)

func (p Phase) header() string {
	switch p {
	case PhaseLex:
		return "LEXICAL ERROR"
	case PhaseParse:
		return "PARSE ERROR"
	default:
		return "RUNTIME ERROR"
	}
}

// Error is the single error type returned by the core.
// Line and Col are 1-based; zero means "no position known".
type Error struct {
	Kind  ErrorKind
	Phase Phase
	Msg   string
	Line  int
	Col   int
	Name  string // source name (file path, "<repl>", ...) when known
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Phase.header())
	if e.Name != "" {
		fmt.Fprintf(&b, " in %s", e.Name)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at %d:%d", e.Line, e.Col)
	}
	fmt.Fprintf(&b, ": %s: %s", e.Kind, e.Msg)
	return b.String()
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind k.
func IsKind(err error, k ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsIncomplete reports whether err means "the input stopped in the middle of
// a construct". The REPL uses it to ask for a continuation line.
func IsIncomplete(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Kind == UnexpectedEndOfInput {
		return true
	}
	return e.Kind == ParsingError && strings.HasPrefix(e.Msg, "unterminated")
}

// WrapErrorWithSource returns an error whose message is a caret snippet of
// src when err is an *Error with a position. Other errors are returned as-is.
func WrapErrorWithSource(err error, name, src string) error {
	var e *Error
	if !errors.As(err, &e) || e.Line <= 0 {
		return err
	}
	if name == "" {
		name = e.Name
	}
	return &snippetError{err: e, text: prettyErrorString(src, name, e)}
}

//// END_OF_PUBLIC

/* ===========================
   PRIVATE: constructors & rendering
   =========================== */

func lexErr(line, col int, format string, args ...any) *Error {
	return &Error{Kind: ParsingError, Phase: PhaseLex, Msg: fmt.Sprintf(format, args...), Line: line, Col: col}
}

func parseErr(kind ErrorKind, tok Token, format string, args ...any) *Error {
	return &Error{Kind: kind, Phase: PhaseParse, Msg: fmt.Sprintf(format, args...), Line: tok.Line, Col: tok.Col}
}

func rtErr(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Phase: PhaseRuntime, Msg: fmt.Sprintf(format, args...)}
}

// snippetError keeps the typed *Error reachable through errors.As while
// printing the rendered snippet.
type snippetError struct {
	err  *Error
	text string
}

func (s *snippetError) Error() string { return s.text }
func (s *snippetError) Unwrap() error { return s.err }

// prettyErrorString builds the header, up to one line of context on each
// side, and a caret under the column. Coordinates are clamped to src.
func prettyErrorString(src, name string, e *Error) string {
	lines := strings.Split(src, "\n")
	line, col := e.Line, e.Col
	if line < 1 {
		line = 1
	}
	if col < 1 {
		col = 1
	}
	if line > len(lines) {
		line = len(lines)
	}

	var b strings.Builder
	b.WriteString(e.Phase.header())
	if name != "" {
		fmt.Fprintf(&b, " in %s", name)
	}
	fmt.Fprintf(&b, " at %d:%d: %s: %s\n\n", line, col, e.Kind, e.Msg)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
