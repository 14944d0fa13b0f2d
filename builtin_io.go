// builtin_io.go
//
// Builtins surfaced by `import "io";`:
//  1. print(v)      -> Null   writes v without a newline (texts unquoted)
//  2. println(v?)   -> Null   writes v followed by a newline
//  3. input()       -> Text?  one line from stdin, null at end of input
//  4. to_text(v)    -> Text   the text print would write
package giffiscript

import (
	"fmt"
	"io"
)

func registerIOBuiltins(ip *Interpreter) error {
	return nativeTable{
		{"print", func(m Machine) error {
			v, err := m.Pop()
			if err != nil {
				return err
			}
			return write(m.Stdout(), v.String())
		}},
		{"println", func(m Machine) error {
			if m.Argc() == 0 {
				return write(m.Stdout(), "\n")
			}
			v, err := m.Pop()
			if err != nil {
				return err
			}
			return write(m.Stdout(), v.String()+"\n")
		}},
		{"input", func(m Machine) error {
			line, ok, err := m.ReadLine()
			if err != nil {
				return m.Errorf("input: %v", err)
			}
			if !ok {
				m.Push(Null)
				return nil
			}
			m.Push(Text(line))
			return nil
		}},
		{"to_text", func(m Machine) error {
			v, err := m.Pop()
			if err != nil {
				return err
			}
			m.Push(Text(v.String()))
			return nil
		}},
	}.define(ip)
}

func write(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write stdout: %w", err)
	}
	return nil
}
