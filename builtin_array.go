// builtin_array.go
//
// Builtins surfaced by `import "array";`:
//  1. len(x: Array|Text)   -> Int     elements, or characters of a text
//  2. push(a: Array, v)    -> Array   a copy of a with v appended
//  3. pop(a: Array)        -> Array   a copy of a without its last element
//  4. range(n: Int)        -> Array   [0, 1, ..., n-1]; empty for n <= 0
//
// Arrays are values: push and pop never modify their argument, so the usual
// pattern is `xs = push(xs, 4);`.
package giffiscript

import "unicode/utf8"

func registerArrayBuiltins(ip *Interpreter) error {
	return nativeTable{
		{"len", func(m Machine) error {
			v, err := m.Pop()
			if err != nil {
				return err
			}
			switch v.Tag {
			case VTArray:
				m.Push(Int(int64(len(v.AsArray()))))
			case VTText:
				m.Push(Int(int64(utf8.RuneCountInString(v.AsText()))))
			default:
				return rtErr(TypeMismatch, "len: expected Array or Text, got %s", v.Tag)
			}
			return nil
		}},
		{"push", func(m Machine) error {
			v, err := m.Pop()
			if err != nil {
				return err
			}
			xs, err := m.PopArray()
			if err != nil {
				return err
			}
			out := make([]Value, len(xs), len(xs)+1)
			copy(out, xs)
			m.Push(Arr(append(out, v)))
			return nil
		}},
		{"pop", func(m Machine) error {
			xs, err := m.PopArray()
			if err != nil {
				return err
			}
			if len(xs) == 0 {
				return rtErr(IndexError, "pop: array is empty")
			}
			m.Push(Arr(xs[:len(xs)-1]))
			return nil
		}},
		{"range", func(m Machine) error {
			n, err := m.PopInt()
			if err != nil {
				return err
			}
			if n < 0 {
				n = 0
			}
			out := make([]Value, n)
			for i := range out {
				out[i] = Int(int64(i))
			}
			m.Push(Arr(out))
			return nil
		}},
	}.define(ip)
}
