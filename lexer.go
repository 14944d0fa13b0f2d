// lexer.go: GiffiScript tokenizer
//
// The lexer is word based: it accumulates characters into a pending word and
// flushes the word into a token whenever it meets a boundary (whitespace, a
// structural symbol, an operator character, a quote or a comment). A flushed
// word is classified, in order, as a number, a boolean/null literal, an
// operator, a keyword, and finally an identifier.
//
// Notable rules:
//   - Symbols are single structural characters: { } , : ; [ ]
//   - Operator characters peek one character ahead so that ==, !=, <<, >>,
//     && and || come out as single OPERATOR tokens.
//   - '-' immediately followed by a digit starts a negative number literal,
//     unless the previous token ends an operand (then it is subtraction).
//   - "..." collects every character verbatim (no escapes). An unterminated
//     literal is the only lexical error besides malformed numbers.
//   - // line comments and /* block */ comments are dropped.
//   - Positions are 1-based and count characters (runes), not bytes.
package giffiscript

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// TokenType represents the kind of token.
type TokenType int

const (
	EOF TokenType = iota
	KEYWORD
	VALUE
	SYMBOL
	OPERATOR
	IDENT
	NEWLINE
)

var tokenTypeNames = [...]string{
	EOF:      "EndOfInput",
	KEYWORD:  "Keyword",
	VALUE:    "Value",
	SYMBOL:   "Symbol",
	OPERATOR: "Operator",
	IDENT:    "Identifier",
	NEWLINE:  "NewLine",
}

func (t TokenType) String() string {
	if int(t) >= 0 && int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a classified lexical unit.
//
// Text holds the keyword name, symbol character, operator text or identifier
// name; for VALUE tokens it holds the raw source text and Literal the parsed
// Value.
type Token struct {
	Type    TokenType
	Text    string
	Literal Value
	Line    int
	Col     int
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "EndOfInput"
	case NEWLINE:
		return "NewLine"
	case VALUE:
		return fmt.Sprintf("Value(%s)", FormatValue(t.Literal))
	default:
		return fmt.Sprintf("%s(%s)", t.Type, t.Text)
	}
}

// Is reports whether t has type tt and text s.
func (t Token) Is(tt TokenType, s string) bool { return t.Type == tt && t.Text == s }

var keywords = map[string]bool{
	"let":      true,
	"return":   true,
	"fn":       true,
	"if":       true,
	"else":     true,
	"while":    true,
	"import":   true,
	"break":    true,
	"continue": true,
}

var operators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"(": true, ")": true, "=": true, "!": true,
	"<": true, ">": true, "&": true, "|": true,
	"==": true, "!=": true, "<<": true, ">>": true, "&&": true, "||": true,
}

func isSymbol(r rune) bool {
	switch r {
	case '{', '}', ',', ':', ';', '[', ']':
		return true
	}
	return false
}

func isOperatorChar(r rune) bool { return operators[string(r)] }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// Lexer scans a GiffiScript source string into tokens.
type Lexer struct {
	src  []rune
	cur  int
	line int // 1-based
	col  int // 1-based

	word      strings.Builder
	wordLine  int
	wordCol   int
	tokens    []Token
	keepLines bool
}

// NewLexer creates a lexer for src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1}
}

// KeepNewlines makes the lexer emit NEWLINE tokens (used by tooling that
// wants to show line structure; the parser never needs them).
func (l *Lexer) KeepNewlines() *Lexer {
	l.keepLines = true
	return l
}

// Tokenize is shorthand for NewLexer(src).Scan().
func Tokenize(src string) ([]Token, error) { return NewLexer(src).Scan() }

// Scan tokenizes the entire source and returns the tokens, EOF included.
func (l *Lexer) Scan() ([]Token, error) {
	for !l.atEnd() {
		r := l.peek()
		switch {
		case r == '\n':
			if err := l.flush(); err != nil {
				return nil, err
			}
			if l.keepLines {
				l.emit(Token{Type: NEWLINE, Text: "\n", Line: l.line, Col: l.col})
			}
			l.advance()

		case unicode.IsSpace(r):
			if err := l.flush(); err != nil {
				return nil, err
			}
			l.advance()

		case r == '"':
			if err := l.flush(); err != nil {
				return nil, err
			}
			if err := l.scanText(); err != nil {
				return nil, err
			}

		case r == '/' && l.peekN(1) == '/':
			if err := l.flush(); err != nil {
				return nil, err
			}
			l.skipLineComment()

		case r == '/' && l.peekN(1) == '*':
			if err := l.flush(); err != nil {
				return nil, err
			}
			l.skipBlockComment()

		case isSymbol(r):
			if err := l.flush(); err != nil {
				return nil, err
			}
			l.emit(Token{Type: SYMBOL, Text: string(r), Line: l.line, Col: l.col})
			l.advance()

		case isOperatorChar(r):
			if err := l.flush(); err != nil {
				return nil, err
			}
			// decided after the flush so "a-1" sees IDENT(a) first
			if r == '-' && isDigit(l.peekN(1)) && !l.prevEndsOperand() {
				l.startWord()
				l.word.WriteRune(r)
				l.advance()
				continue
			}
			l.scanOperator()

		default:
			if l.word.Len() == 0 {
				l.startWord()
			}
			l.word.WriteRune(r)
			l.advance()
		}
	}
	if err := l.flush(); err != nil {
		return nil, err
	}
	l.emit(Token{Type: EOF, Line: l.line, Col: l.col})
	return l.tokens, nil
}

// ----- cursor -----

func (l *Lexer) atEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() rune { return l.peekN(0) }

func (l *Lexer) peekN(n int) rune {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *Lexer) advance() rune {
	r := l.src[l.cur]
	l.cur++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) emit(t Token) { l.tokens = append(l.tokens, t) }

func (l *Lexer) startWord() { l.wordLine, l.wordCol = l.line, l.col }

// prevEndsOperand reports whether the last emitted token can be the left
// operand of a binary operator.
func (l *Lexer) prevEndsOperand() bool {
	if len(l.tokens) == 0 {
		return false
	}
	p := l.tokens[len(l.tokens)-1]
	switch p.Type {
	case VALUE, IDENT:
		return true
	case OPERATOR:
		return p.Text == ")"
	case SYMBOL:
		return p.Text == "]"
	}
	return false
}

// ----- scanners -----

func (l *Lexer) scanOperator() {
	line, col := l.line, l.col
	first := l.advance()
	if !l.atEnd() {
		pair := string([]rune{first, l.peek()})
		if operators[pair] {
			l.advance()
			l.emit(Token{Type: OPERATOR, Text: pair, Line: line, Col: col})
			return
		}
	}
	l.emit(Token{Type: OPERATOR, Text: string(first), Line: line, Col: col})
}

// scanText collects everything between double quotes verbatim.
func (l *Lexer) scanText() error {
	line, col := l.line, l.col
	l.advance() // opening quote
	var b strings.Builder
	for !l.atEnd() {
		r := l.advance()
		if r == '"' {
			s := b.String()
			l.emit(Token{Type: VALUE, Text: `"` + s + `"`, Literal: Text(s), Line: line, Col: col})
			return nil
		}
		b.WriteRune(r)
	}
	return lexErr(line, col, "unterminated text literal")
}

func (l *Lexer) skipLineComment() {
	for !l.atEnd() && l.peek() != '\n' {
		l.advance()
	}
}

// skipBlockComment drops everything up to and including the first "*/".
func (l *Lexer) skipBlockComment() {
	l.advance()
	l.advance()
	for !l.atEnd() {
		if l.peek() == '*' && l.peekN(1) == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
}

// flush classifies the pending word, if any, and emits it.
func (l *Lexer) flush() error {
	if l.word.Len() == 0 {
		return nil
	}
	word := l.word.String()
	l.word.Reset()
	tok, err := classifyWord(word, l.wordLine, l.wordCol)
	if err != nil {
		return err
	}
	l.emit(tok)
	return nil
}

func classifyWord(word string, line, col int) (Token, error) {
	tok := Token{Text: word, Line: line, Col: col}
	if looksNumeric(word) {
		if n, err := strconv.ParseInt(word, 10, 64); err == nil {
			tok.Type, tok.Literal = VALUE, Int(n)
			return tok, nil
		}
		if f, err := strconv.ParseFloat(word, 64); err == nil {
			tok.Type, tok.Literal = VALUE, Float(f)
			return tok, nil
		}
		return Token{}, lexErr(line, col, "malformed number literal %q", word)
	}
	switch word {
	case "true":
		tok.Type, tok.Literal = VALUE, Bool(true)
		return tok, nil
	case "false":
		tok.Type, tok.Literal = VALUE, Bool(false)
		return tok, nil
	case "null":
		tok.Type, tok.Literal = VALUE, Null
		return tok, nil
	}
	if operators[word] {
		tok.Type = OPERATOR
		return tok, nil
	}
	if keywords[word] {
		tok.Type = KEYWORD
		return tok, nil
	}
	tok.Type = IDENT
	return tok, nil
}

// looksNumeric: digit, '-' digit, '.' digit or "-." digit at the start.
func looksNumeric(w string) bool {
	s := strings.TrimPrefix(w, "-")
	s = strings.TrimPrefix(s, ".")
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
