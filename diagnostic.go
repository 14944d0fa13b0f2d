// diagnostic.go: the fatal diagnostic dump.
//
// Dump prints, in this order:
//
//	STACK (top first)
//	SCOPES (innermost first, with every binding)
//	LAST INSTRUCTION
//	ERROR
//
// The CLI prints it to stderr after a failed run and exits with status 1.
package giffiscript

import (
	"fmt"
	"io"
)

// Dump writes the interpreter state and err to w.
func (ip *Interpreter) Dump(w io.Writer, err error) {
	fmt.Fprintf(w, "STACK (%d values, top first)\n", len(ip.stack))
	if len(ip.stack) == 0 {
		fmt.Fprintln(w, "  <empty>")
	}
	for i := len(ip.stack) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "  %4d  %s\n", i, FormatValue(ip.stack[i]))
	}

	scopes := ip.Scopes()
	fmt.Fprintf(w, "SCOPES (%d frames, innermost first)\n", len(scopes))
	for i, s := range scopes {
		fmt.Fprintf(w, "  #%d %s\n", i, s.Name)
		for _, name := range s.Names() {
			v, _ := s.Lookup(name)
			fmt.Fprintf(w, "      %s = %s\n", name, FormatValue(v))
		}
	}

	fmt.Fprintln(w, "LAST INSTRUCTION")
	if in, ok := ip.LastInstruction(); ok {
		if in.Line > 0 {
			fmt.Fprintf(w, "  %s at %d:%d\n", in, in.Line, in.Col)
		} else {
			fmt.Fprintf(w, "  %s\n", in)
		}
	} else {
		fmt.Fprintln(w, "  <none>")
	}

	fmt.Fprintln(w, "ERROR")
	if err != nil {
		fmt.Fprintf(w, "  %v\n", err)
	} else {
		fmt.Fprintln(w, "  <none>")
	}
}
