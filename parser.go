// parser.go: recursive-descent statement parser.
//
// OVERVIEW
// --------
// The parser walks the token stream statement by statement and produces one
// linear instruction sequence per program or block. Expressions are never
// parsed here: the parser cuts the token run of each expression at its
// terminator and hands it to the expression compiler (expr.go).
//
// Statement forms and the code they compile to:
//
//	let x = e;                 e  BindVariable(x)
//	x = e;                     e  AssignVariable(x)
//	x[i] = e;                  i  e  AssignVariableIndex(x)
//	fn f(a, b) { body }        DefineFunction(f, [BindVariable(b) BindVariable(a) body...])
//	return e; / return;        e | PushConstant(null)  Return
//	if e { A } else { B }      e  If(A, B)            (else if nests another If in B)
//	while e { A }              While(e, A)
//	import "name";             Import(name)
//	break; / continue;         Break / Continue
//	e;                         e  Pop                 (the final top-level one keeps its value)
//
// Parameters are bound in reverse declaration order because call arguments
// are pushed left to right and therefore popped last-argument-first.
//
// Terminators are only recognised at bracket depth zero, so a ';' or '{'
// nested inside (), [] or {} never ends the enclosing run early. At the top
// level the final statement may omit its ';' (REPL input).
//
// Function declarations are accepted only in the program's top-level
// sequence; duplicates among them are rejected here. Arity is not checked:
// missing or extra arguments only show up at run time.
package giffiscript

////////////////////////////////////////////////////////////////////////////////
//                                  PUBLIC API
////////////////////////////////////////////////////////////////////////////////

// Parse compiles a token sequence (as produced by Tokenize) into a program.
func Parse(toks []Token) ([]Instruction, error) {
	if len(toks) == 0 || toks[len(toks)-1].Type != EOF {
		line, col := 1, 1
		if len(toks) > 0 {
			line, col = toks[len(toks)-1].Line, toks[len(toks)-1].Col
		}
		toks = append(toks, Token{Type: EOF, Line: line, Col: col})
	}
	p := &parser{toks: toks, funcs: map[string]bool{}}
	return p.program()
}

// ParseSource tokenizes and parses src.
func ParseSource(src string) ([]Instruction, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	return Parse(toks)
}

//// END_OF_PUBLIC

////////////////////////////////////////////////////////////////////////////////
///////////////////////////// PRIVATE IMPLEMENTATION ///////////////////////////
////////////////////////////////////////////////////////////////////////////////

type parser struct {
	toks  []Token
	i     int
	depth int             // block nesting; 0 = top level
	loops int             // enclosing while bodies
	funcs map[string]bool // top-level function names seen so far
}

// ─────────────────────────── token basics & helpers ─────────────────────────

func (p *parser) peek() Token {
	if p.i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i]
}

func (p *parser) peekN(n int) Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) advance() Token {
	t := p.peek()
	if t.Type != EOF {
		p.i++
	}
	return t
}

func (p *parser) atEnd() bool { return p.peek().Type == EOF }

// need consumes a token of the given type (and text, when non-empty).
func (p *parser) need(tt TokenType, text, what string) (Token, error) {
	t := p.peek()
	if t.Type == tt && (text == "" || t.Text == text) {
		return p.advance(), nil
	}
	if t.Type == EOF {
		return Token{}, parseErr(UnexpectedEndOfInput, t, "expected %s, got end of input", what)
	}
	return Token{}, parseErr(UnexpectedToken, t, "expected %s, got %s", what, t)
}

// endStatement consumes the ';' that closes a simple statement. At the top
// level, end of input also closes it.
func (p *parser) endStatement() error {
	t := p.peek()
	if t.Is(SYMBOL, ";") {
		p.advance()
		return nil
	}
	if t.Type == EOF && p.depth == 0 {
		return nil
	}
	_, err := p.need(SYMBOL, ";", "';'")
	return err
}

// run collects the tokens of one expression, stopping before the first
// symbol in stops found at bracket depth zero. The stopping token is
// returned but not consumed. End of input stops a run only when allowEOF.
func (p *parser) run(allowEOF bool, stops ...string) ([]Token, Token, error) {
	start := p.i
	depth := 0
	for {
		t := p.peek()
		switch {
		case t.Type == EOF:
			if allowEOF && depth == 0 {
				return p.toks[start:p.i], t, nil
			}
			return nil, t, parseErr(UnexpectedEndOfInput, t, "expected %s, got end of input", quoteAll(stops))
		case t.Type == NEWLINE:
			// never part of an expression
		case depth == 0 && t.Type == SYMBOL && contains(stops, t.Text):
			return p.toks[start:p.i], t, nil
		case t.Is(OPERATOR, "(") || t.Is(SYMBOL, "[") || t.Is(SYMBOL, "{"):
			depth++
		case t.Is(OPERATOR, ")") || t.Is(SYMBOL, "]") || t.Is(SYMBOL, "}"):
			if depth == 0 {
				if t.Is(OPERATOR, ")") {
					return nil, t, parseErr(UnexpectedToken, t, "unmatched ')'")
				}
				return nil, t, parseErr(UnexpectedToken, t, "expected %s, got %s", quoteAll(stops), t)
			}
			depth--
		}
		p.i++
	}
}

// expr compiles the run terminated by one of stops.
func (p *parser) expr(allowEOF bool, stops ...string) ([]Instruction, error) {
	toks, end, err := p.run(allowEOF, stops...)
	if err != nil {
		return nil, err
	}
	return compileRun(withoutNewlines(toks), end)
}

func withoutNewlines(toks []Token) []Token {
	for _, t := range toks {
		if t.Type == NEWLINE {
			out := make([]Token, 0, len(toks))
			for _, t := range toks {
				if t.Type != NEWLINE {
					out = append(out, t)
				}
			}
			return out
		}
	}
	return toks
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func quoteAll(xs []string) string {
	out := ""
	for i, x := range xs {
		if i > 0 {
			out += " or "
		}
		out += "'" + x + "'"
	}
	return out
}

// ───────────────────────────────── blocks ───────────────────────────────────

func (p *parser) program() ([]Instruction, error) {
	var out []Instruction
	lastWasExpr := false
	for !p.atEnd() {
		code, isExpr, err := p.statement()
		if err != nil {
			return nil, err
		}
		if code == nil {
			continue
		}
		out = append(out, code...)
		lastWasExpr = isExpr
	}
	// the program's value is its final expression statement
	if lastWasExpr && len(out) > 0 && out[len(out)-1].Op == OpPop {
		out = out[:len(out)-1]
	}
	return out, nil
}

// block parses "{ statements }".
func (p *parser) block() ([]Instruction, error) {
	if _, err := p.need(SYMBOL, "{", "'{'"); err != nil {
		return nil, err
	}
	p.depth++
	defer func() { p.depth-- }()

	out := []Instruction{}
	for {
		t := p.peek()
		if t.Is(SYMBOL, "}") {
			p.advance()
			return out, nil
		}
		if t.Type == EOF {
			return nil, parseErr(UnexpectedEndOfInput, t, "expected '}', got end of input")
		}
		code, _, err := p.statement()
		if err != nil {
			return nil, err
		}
		out = append(out, code...)
	}
}

// ─────────────────────────────── statements ─────────────────────────────────

// statement parses one statement. isExpr reports a bare expression statement.
func (p *parser) statement() (code []Instruction, isExpr bool, err error) {
	t := p.peek()
	switch {
	case t.Type == NEWLINE || t.Is(SYMBOL, ";"):
		p.advance()
		return nil, false, nil

	case t.Type == KEYWORD:
		code, err = p.keywordStatement(t)
		return code, false, err

	case t.Type == IDENT:
		nt := p.peekN(1)
		if nt.Is(OPERATOR, "=") {
			code, err = p.assignment()
			return code, false, err
		}
		if nt.Is(SYMBOL, "[") && p.isIndexAssignment() {
			code, err = p.indexAssignment()
			return code, false, err
		}
	}

	code, err = p.exprStatement()
	return code, err == nil, err
}

func (p *parser) keywordStatement(t Token) ([]Instruction, error) {
	switch t.Text {
	case "let":
		return p.letStatement()
	case "fn":
		return p.fnStatement()
	case "return":
		return p.returnStatement()
	case "if":
		return p.ifStatement()
	case "while":
		return p.whileStatement()
	case "import":
		return p.importStatement()
	case "else":
		return nil, parseErr(UnexpectedToken, t, "'else' without 'if'")
	case "break", "continue":
		p.advance()
		if p.loops == 0 {
			return nil, parseErr(UnexpectedToken, t, "'%s' outside of a loop", t.Text)
		}
		op := OpBreak
		if t.Text == "continue" {
			op = OpContinue
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		return []Instruction{{Op: op, Line: t.Line, Col: t.Col}}, nil
	}
	return nil, parseErr(UnexpectedToken, t, "unexpected keyword '%s'", t.Text)
}

func (p *parser) letStatement() ([]Instruction, error) {
	p.advance() // let
	name, err := p.need(IDENT, "", "identifier after 'let'")
	if err != nil {
		return nil, err
	}
	if _, err := p.need(OPERATOR, "=", "'='"); err != nil {
		return nil, err
	}
	code, err := p.expr(p.depth == 0, ";")
	if err != nil {
		return nil, err
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return append(code, named(OpBindVariable, name.Text, name)), nil
}

func (p *parser) assignment() ([]Instruction, error) {
	name := p.advance()
	p.advance() // =
	code, err := p.expr(p.depth == 0, ";")
	if err != nil {
		return nil, err
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return append(code, named(OpAssignVariable, name.Text, name)), nil
}

// isIndexAssignment looks past "name[ ... ]" for an '='.
func (p *parser) isIndexAssignment() bool {
	depth := 0
	for j := p.i + 1; j < len(p.toks); j++ {
		t := p.toks[j]
		switch {
		case t.Type == EOF:
			return false
		case t.Is(SYMBOL, "[") || t.Is(OPERATOR, "("):
			depth++
		case t.Is(SYMBOL, "]") || t.Is(OPERATOR, ")"):
			depth--
			if depth == 0 {
				return j+1 < len(p.toks) && p.toks[j+1].Is(OPERATOR, "=")
			}
		case t.Is(SYMBOL, ";") || t.Is(SYMBOL, "{") || t.Is(SYMBOL, "}"):
			return false
		}
	}
	return false
}

func (p *parser) indexAssignment() ([]Instruction, error) {
	name := p.advance()
	p.advance() // [
	idx, err := p.expr(false, "]")
	if err != nil {
		return nil, err
	}
	p.advance() // ]
	if _, err := p.need(OPERATOR, "=", "'='"); err != nil {
		return nil, err
	}
	val, err := p.expr(p.depth == 0, ";")
	if err != nil {
		return nil, err
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	code := append(idx, val...)
	return append(code, named(OpAssignVariableIndex, name.Text, name)), nil
}

func (p *parser) fnStatement() ([]Instruction, error) {
	kw := p.advance() // fn
	if p.depth > 0 {
		return nil, parseErr(UnexpectedToken, kw, "function declarations are only allowed at top level")
	}
	name, err := p.need(IDENT, "", "function name after 'fn'")
	if err != nil {
		return nil, err
	}
	if p.funcs[name.Text] {
		return nil, parseErr(DuplicateBinding, name, "function '%s' is already declared", name.Text)
	}
	if _, err := p.need(OPERATOR, "(", "'(' after function name"); err != nil {
		return nil, err
	}

	var params []string
	var paramToks []Token
	if p.peek().Is(OPERATOR, ")") {
		p.advance()
	} else {
		for {
			pt, err := p.need(IDENT, "", "parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, pt.Text)
			paramToks = append(paramToks, pt)
			if p.peek().Is(SYMBOL, ",") {
				p.advance()
				continue
			}
			if _, err := p.need(OPERATOR, ")", "',' or ')'"); err != nil {
				return nil, err
			}
			break
		}
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}
	code := make([]Instruction, 0, len(params)+len(body))
	for i := len(params) - 1; i >= 0; i-- {
		code = append(code, named(OpBindVariable, params[i], paramToks[i]))
	}
	code = append(code, body...)

	p.funcs[name.Text] = true
	return []Instruction{{
		Op:     OpDefineFunction,
		Name:   name.Text,
		Params: params,
		Body:   code,
		Line:   name.Line,
		Col:    name.Col,
	}}, nil
}

func (p *parser) returnStatement() ([]Instruction, error) {
	kw := p.advance()
	var code []Instruction
	if nt := p.peek(); nt.Is(SYMBOL, ";") || (nt.Type == EOF && p.depth == 0) {
		code = []Instruction{pushConst(Null, kw)}
	} else {
		c, err := p.expr(p.depth == 0, ";")
		if err != nil {
			return nil, err
		}
		code = c
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return append(code, Instruction{Op: OpReturn, Line: kw.Line, Col: kw.Col}), nil
}

func (p *parser) ifStatement() ([]Instruction, error) {
	kw := p.advance() // if
	cond, err := p.expr(false, "{")
	if err != nil {
		return nil, err
	}
	then, err := p.block()
	if err != nil {
		return nil, err
	}

	var alt []Instruction
	if p.peek().Is(KEYWORD, "else") {
		p.advance()
		if p.peek().Is(KEYWORD, "if") {
			alt, err = p.ifStatement()
		} else {
			alt, err = p.block()
		}
		if err != nil {
			return nil, err
		}
	}
	return append(cond, Instruction{Op: OpIf, Body: then, Alt: alt, Line: kw.Line, Col: kw.Col}), nil
}

func (p *parser) whileStatement() ([]Instruction, error) {
	kw := p.advance() // while
	cond, err := p.expr(false, "{")
	if err != nil {
		return nil, err
	}
	p.loops++
	body, err := p.block()
	p.loops--
	if err != nil {
		return nil, err
	}
	return []Instruction{{Op: OpWhile, Body: cond, Alt: body, Line: kw.Line, Col: kw.Col}}, nil
}

func (p *parser) importStatement() ([]Instruction, error) {
	kw := p.advance() // import
	t := p.peek()
	var name string
	switch {
	case t.Type == VALUE && t.Literal.Tag == VTText:
		name = t.Literal.AsText()
	case t.Type == IDENT:
		name = t.Text
	case t.Type == EOF:
		return nil, parseErr(UnexpectedEndOfInput, t, "expected module name after 'import', got end of input")
	default:
		return nil, parseErr(UnexpectedToken, t, "expected module name after 'import', got %s", t)
	}
	p.advance()
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return []Instruction{named(OpImport, name, kw)}, nil
}

func (p *parser) exprStatement() ([]Instruction, error) {
	t := p.peek()
	code, err := p.expr(p.depth == 0, ";")
	if err != nil {
		return nil, err
	}
	if err := p.endStatement(); err != nil {
		return nil, err
	}
	return append(code, Instruction{Op: OpPop, Line: t.Line, Col: t.Col}), nil
}
