// builtin_math.go
//
// Builtins surfaced by `import "math";`:
//  1. sum(a, b)   -> Num    a + b (same coercion as the '+' operator)
//  2. abs(x)      -> Num
//  3. min(a, b)   -> Num    the smaller operand, unchanged
//  4. max(a, b)   -> Num
//  5. pow(a, b)   -> Num    Int when both are Int and b >= 0, else Float
//  6. sqrt(x)     -> Float  fails on negative x
//  7. floor(x)    -> Int
//  8. ceil(x)     -> Int
//  9. int(x)      -> Int    from Int, Float (truncates), Bool or Text
// 10. float(x)    -> Float  from Int, Float, Bool or Text
package giffiscript

import (
	"math"
	"strconv"
	"strings"
)

func registerMathBuiltins(ip *Interpreter) error {
	return nativeTable{
		{"sum", func(m Machine) error {
			a, b, err := popPair(m)
			if err != nil {
				return err
			}
			v, err := arith("+", a, b)
			if err != nil {
				return err
			}
			m.Push(v)
			return nil
		}},
		{"abs", func(m Machine) error {
			x, err := m.PopNumber()
			if err != nil {
				return err
			}
			if x.Tag == VTInt {
				n := x.AsInt()
				if n < 0 {
					n = -n
				}
				m.Push(Int(n))
				return nil
			}
			m.Push(Float(math.Abs(x.AsFloat())))
			return nil
		}},
		{"min", func(m Machine) error { return pick(m, true) }},
		{"max", func(m Machine) error { return pick(m, false) }},
		{"pow", func(m Machine) error {
			a, b, err := popPair(m)
			if err != nil {
				return err
			}
			if a.Tag == VTInt && b.Tag == VTInt && b.AsInt() >= 0 {
				m.Push(Int(ipow(a.AsInt(), b.AsInt())))
				return nil
			}
			m.Push(Float(math.Pow(toFloat(a), toFloat(b))))
			return nil
		}},
		{"sqrt", func(m Machine) error {
			x, err := m.PopNumber()
			if err != nil {
				return err
			}
			f := toFloat(x)
			if f < 0 {
				return m.Errorf("sqrt of negative number %s", FormatValue(x))
			}
			m.Push(Float(math.Sqrt(f)))
			return nil
		}},
		{"floor", func(m Machine) error { return round(m, math.Floor) }},
		{"ceil", func(m Machine) error { return round(m, math.Ceil) }},
		{"int", func(m Machine) error {
			v, err := m.Pop()
			if err != nil {
				return err
			}
			switch v.Tag {
			case VTInt:
				m.Push(v)
			case VTFloat:
				m.Push(Int(int64(v.AsFloat())))
			case VTBool:
				if v.AsBool() {
					m.Push(Int(1))
				} else {
					m.Push(Int(0))
				}
			case VTText:
				n, err := strconv.ParseInt(strings.TrimSpace(v.AsText()), 10, 64)
				if err != nil {
					return m.Errorf("int: cannot convert %q", v.AsText())
				}
				m.Push(Int(n))
			default:
				return rtErr(TypeMismatch, "int: cannot convert %s", v.Tag)
			}
			return nil
		}},
		{"float", func(m Machine) error {
			v, err := m.Pop()
			if err != nil {
				return err
			}
			switch v.Tag {
			case VTInt, VTFloat:
				m.Push(Float(toFloat(v)))
			case VTBool:
				if v.AsBool() {
					m.Push(Float(1))
				} else {
					m.Push(Float(0))
				}
			case VTText:
				f, err := strconv.ParseFloat(strings.TrimSpace(v.AsText()), 64)
				if err != nil {
					return m.Errorf("float: cannot convert %q", v.AsText())
				}
				m.Push(Float(f))
			default:
				return rtErr(TypeMismatch, "float: cannot convert %s", v.Tag)
			}
			return nil
		}},
	}.define(ip)
}

// popPair pops two numeric arguments and returns them in call order.
func popPair(m Machine) (Value, Value, error) {
	b, err := m.PopNumber()
	if err != nil {
		return Null, Null, err
	}
	a, err := m.PopNumber()
	if err != nil {
		return Null, Null, err
	}
	return a, b, nil
}

func pick(m Machine, smaller bool) error {
	a, b, err := popPair(m)
	if err != nil {
		return err
	}
	less := toFloat(b) < toFloat(a)
	if a.Tag == VTInt && b.Tag == VTInt {
		less = b.AsInt() < a.AsInt()
	}
	if less == smaller {
		m.Push(b)
	} else {
		m.Push(a)
	}
	return nil
}

func round(m Machine, f func(float64) float64) error {
	x, err := m.PopNumber()
	if err != nil {
		return err
	}
	if x.Tag == VTInt {
		m.Push(x)
		return nil
	}
	m.Push(Int(int64(f(x.AsFloat()))))
	return nil
}

func ipow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}
