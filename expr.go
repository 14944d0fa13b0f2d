// expr.go: expression compiler (token run → binary tree → instructions).
//
// The statement parser cuts an expression out of the token stream at its
// terminator (';', ',', a closing bracket, a '{' that opens a block, ...) and
// hands the isolated run to CompileExpr. The run is first turned into a small
// binary tree by precedence climbing and the tree is then flattened
// post-order, so operands always precede their operator on the value stack:
//
//	1 + 2 * 3   →   (+ 1 (* 2 3))   →   Push(1) Push(2) Push(3) Op(*) Op(+)
//
// Binding power table (0 binds loosest):
//
//	0  && ||
//	1  << >>
//	2  < >
//	3  == !=
//	4  + -
//	5  * / %
//	6  prefix ! and prefix -
//	7  primaries ( literals, names, calls, indexing, [arrays], ( groups ) )
//
// Operators of the same level associate to the left: 8/4/2 is (8/4)/2.
package giffiscript

// bindingPower maps operator text to its table level. Anything not listed
// (including '(' and ')') sits at primaryLevel and never acts as an infix
// operator.
var bindingPower = map[string]int{
	"&&": 0, "||": 0,
	"<<": 1, ">>": 1,
	"<": 2, ">": 2,
	"==": 3, "!=": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "%": 5,
	"!": 6,
}

const (
	prefixLevel  = 6
	primaryLevel = 7
)

func levelOf(t Token) int {
	if t.Type != OPERATOR {
		return primaryLevel
	}
	if l, ok := bindingPower[t.Text]; ok {
		return l
	}
	return primaryLevel
}

type nodeKind int

const (
	nodeLeaf nodeKind = iota
	nodeUnary
	nodeBinary
	nodeIndex // left is the indexed expression, leaf holds the index code
)

// exprNode is the intermediate tree. Leaves carry their already compiled
// instructions (a call leaf, for instance, owns its argument code).
type exprNode struct {
	kind  nodeKind
	tok   Token
	leaf  []Instruction
	left  *exprNode
	right *exprNode
}

// flatten emits left subtree, right subtree, then the node itself.
func (n *exprNode) flatten(out []Instruction) []Instruction {
	switch n.kind {
	case nodeLeaf:
		return append(out, n.leaf...)
	case nodeUnary:
		out = n.left.flatten(out)
		return append(out, named(OpUnary, n.tok.Text, n.tok))
	case nodeBinary:
		out = n.left.flatten(out)
		out = n.right.flatten(out)
		return append(out, named(OpBinary, n.tok.Text, n.tok))
	case nodeIndex:
		out = n.left.flatten(out)
		return append(out, withBody(OpReadIndex, "", n.leaf, n.tok))
	}
	return out
}

// CompileExpr compiles one isolated expression run.
func CompileExpr(run []Token) ([]Instruction, error) {
	end := Token{Type: EOF}
	if len(run) > 0 {
		last := run[len(run)-1]
		end.Line, end.Col = last.Line, last.Col+len([]rune(last.Text))
	}
	return compileRun(run, end)
}

// compileRun compiles run; end is the token that terminated it and is used
// as the error position when the run stops short.
func compileRun(run []Token, end Token) ([]Instruction, error) {
	c := &exprCompiler{toks: run, end: end}
	n, err := c.level(0)
	if err != nil {
		return nil, err
	}
	if t, ok := c.peek(); ok {
		if t.Is(OPERATOR, ")") {
			return nil, parseErr(UnexpectedToken, t, "unmatched ')'")
		}
		return nil, parseErr(UnexpectedToken, t, "unexpected %s in expression", t)
	}
	return n.flatten(nil), nil
}

type exprCompiler struct {
	toks []Token
	i    int
	end  Token
}

func (c *exprCompiler) peek() (Token, bool) {
	if c.i >= len(c.toks) {
		return Token{}, false
	}
	return c.toks[c.i], true
}

func (c *exprCompiler) next() (Token, bool) {
	t, ok := c.peek()
	if ok {
		c.i++
	}
	return t, ok
}

// endErr reports a run that stopped short. Only a run cut off by the end of
// input is incomplete; one cut off by a terminator is just wrong.
func (c *exprCompiler) endErr(what string) error {
	if c.end.Type != EOF {
		return parseErr(UnexpectedToken, c.end, "expected %s, got %s", what, c.end)
	}
	return parseErr(UnexpectedEndOfInput, c.end, "expected %s, got end of expression", what)
}

// expect consumes the next token if it has the given type and text.
func (c *exprCompiler) expect(tt TokenType, text string) (Token, error) {
	t, ok := c.next()
	if !ok {
		return Token{}, c.endErr("'" + text + "'")
	}
	if !t.Is(tt, text) {
		return Token{}, parseErr(UnexpectedToken, t, "expected '%s', got %s", text, t)
	}
	return t, nil
}

// level parses everything binding at least as tightly as l.
func (c *exprCompiler) level(l int) (*exprNode, error) {
	if l >= primaryLevel {
		return c.primary()
	}
	if l == prefixLevel {
		if t, ok := c.peek(); ok && (t.Is(OPERATOR, "!") || t.Is(OPERATOR, "-")) {
			c.i++
			operand, err := c.level(prefixLevel)
			if err != nil {
				return nil, err
			}
			return &exprNode{kind: nodeUnary, tok: t, left: operand}, nil
		}
		return c.level(primaryLevel)
	}

	left, err := c.level(l + 1)
	if err != nil {
		return nil, err
	}
	for {
		t, ok := c.peek()
		if !ok || t.Type != OPERATOR || levelOf(t) != l {
			return left, nil
		}
		c.i++
		right, err := c.level(l + 1)
		if err != nil {
			return nil, err
		}
		left = &exprNode{kind: nodeBinary, tok: t, left: left, right: right}
	}
}

func (c *exprCompiler) primary() (*exprNode, error) {
	t, ok := c.next()
	if !ok {
		return nil, c.endErr("expression")
	}

	var n *exprNode
	switch {
	case t.Type == VALUE:
		n = &exprNode{tok: t, leaf: []Instruction{pushConst(t.Literal, t)}}

	case t.Type == IDENT:
		nt, _ := c.peek()
		switch {
		case nt.Is(OPERATOR, "("):
			c.i++
			args, err := c.list(OPERATOR, ")")
			if err != nil {
				return nil, err
			}
			n = &exprNode{tok: t, leaf: []Instruction{withBody(OpCall, t.Text, concat(args), t)}}
		case nt.Is(SYMBOL, "["):
			c.i++
			idx, err := c.index()
			if err != nil {
				return nil, err
			}
			n = &exprNode{tok: t, leaf: []Instruction{withBody(OpReadVariableIndex, t.Text, idx, t)}}
		default:
			n = &exprNode{tok: t, leaf: []Instruction{named(OpReadVariable, t.Text, t)}}
		}

	case t.Is(SYMBOL, "["):
		elems, err := c.list(SYMBOL, "]")
		if err != nil {
			return nil, err
		}
		code := concat(elems)
		code = append(code, Instruction{Op: OpBuildArray, Count: len(elems), Line: t.Line, Col: t.Col})
		n = &exprNode{tok: t, leaf: code}

	case t.Is(OPERATOR, "("):
		inner, err := c.level(0)
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(OPERATOR, ")"); err != nil {
			return nil, err
		}
		n = inner

	case t.Is(OPERATOR, ")"):
		return nil, parseErr(UnexpectedToken, t, "unmatched ')'")

	default:
		return nil, parseErr(UnexpectedToken, t, "expected expression, got %s", t)
	}

	// postfix indexing: expr[i][j]...
	for {
		nt, ok := c.peek()
		if !ok || !nt.Is(SYMBOL, "[") {
			return n, nil
		}
		c.i++
		idx, err := c.index()
		if err != nil {
			return nil, err
		}
		n = &exprNode{kind: nodeIndex, tok: nt, left: n, leaf: idx}
	}
}

// index parses "<expr> ]" after an opening '['.
func (c *exprCompiler) index() ([]Instruction, error) {
	n, err := c.level(0)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(SYMBOL, "]"); err != nil {
		return nil, err
	}
	return n.flatten(nil), nil
}

// list parses comma separated expressions up to and including the closing
// token; each element is compiled on its own.
func (c *exprCompiler) list(closeType TokenType, closeText string) ([][]Instruction, error) {
	var out [][]Instruction
	if t, ok := c.peek(); ok && t.Is(closeType, closeText) {
		c.i++
		return out, nil
	}
	for {
		n, err := c.level(0)
		if err != nil {
			return nil, err
		}
		out = append(out, n.flatten(nil))
		t, ok := c.next()
		if !ok {
			return nil, c.endErr("',' or '" + closeText + "'")
		}
		if t.Is(closeType, closeText) {
			return out, nil
		}
		if !t.Is(SYMBOL, ",") {
			return nil, parseErr(UnexpectedToken, t, "expected ',' or '%s', got %s", closeText, t)
		}
	}
}

func concat(groups [][]Instruction) []Instruction {
	var out []Instruction
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
