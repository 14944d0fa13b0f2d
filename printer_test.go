// printer_test.go
package giffiscript

import "testing"

func listing(t *testing.T, src string) string {
	t.Helper()
	return FormatInstructions(mustParse(t, src))
}

func eq(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("\n--- want ---\n%s\n--- got ---\n%s", want, got)
	}
}

func Test_Printer_Flat(t *testing.T) {
	eq(t, listing(t, `let s = "hi" + 1;`),
		"0000  PushConstant(\"hi\")\n"+
			"0001  PushConstant(1)\n"+
			"0002  BinaryOp(+)\n"+
			"0003  BindVariable(s)\n")
}

func Test_Printer_If_With_Call(t *testing.T) {
	eq(t, listing(t, "let x = 1; if x < 2 { f(x); }"),
		"0000  PushConstant(1)\n"+
			"0001  BindVariable(x)\n"+
			"0002  ReadVariable(x)\n"+
			"0003  PushConstant(2)\n"+
			"0004  BinaryOp(<)\n"+
			"0005  If\n"+
			"        then:\n"+
			"        0000  Call(f)\n"+
			"                args:\n"+
			"                0000  ReadVariable(x)\n"+
			"        0001  Pop\n")
}

func Test_Printer_Function(t *testing.T) {
	eq(t, listing(t, "fn add(a, b) { return a + b; }"),
		"0000  DefineFunction(add(a, b))\n"+
			"        body:\n"+
			"        0000  BindVariable(b)\n"+
			"        0001  BindVariable(a)\n"+
			"        0002  ReadVariable(a)\n"+
			"        0003  ReadVariable(b)\n"+
			"        0004  BinaryOp(+)\n"+
			"        0005  Return\n")
}

func Test_Printer_While_And_Index(t *testing.T) {
	eq(t, listing(t, "while i { xs[0] = xs[i][1]; }"),
		"0000  While\n"+
			"        cond:\n"+
			"        0000  ReadVariable(i)\n"+
			"        body:\n"+
			"        0000  PushConstant(0)\n"+
			"        0001  ReadVariableIndex(xs)\n"+
			"                index:\n"+
			"                0000  ReadVariable(i)\n"+
			"        0002  ReadIndex\n"+
			"                index:\n"+
			"                0000  PushConstant(1)\n"+
			"        0003  AssignVariableIndex(xs)\n")
}

func Test_Printer_Empty(t *testing.T) {
	eq(t, FormatInstructions(nil), "")
}
