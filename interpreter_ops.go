// interpreter_ops.go: PRIVATE operator semantics and indexing.
//
// Arithmetic on mixed Int/Float operands converts the right operand to the
// left operand's type (1 + 2.5 gives 3, 2.5 + 1 gives 3.5). Division and
// modulo check the right operand for zero before that conversion. Int
// arithmetic wraps on overflow. '+' joins texts only when both sides are Text.
// Equality is by tag and value, so 1 == 1.0 is false.
package giffiscript

import (
	"math"
)

func binaryOp(op string, l, r Value) (Value, error) {
	switch op {
	case "+":
		if l.Tag == VTText || r.Tag == VTText {
			if l.Tag != r.Tag {
				return Null, rtErr(TypeMismatch, "cannot apply '+' to %s and %s", l.Tag, r.Tag)
			}
			return Text(l.AsText() + r.AsText()), nil
		}
		return arith(op, l, r)
	case "-", "*", "/", "%":
		return arith(op, l, r)
	case "<<", ">>":
		return shift(op, l, r)
	case "<", ">":
		return compare(op, l, r)
	case "==":
		return Bool(l.Equal(r)), nil
	case "!=":
		return Bool(!l.Equal(r)), nil
	case "&&":
		return Bool(l.Truthy() && r.Truthy()), nil
	case "||":
		return Bool(l.Truthy() || r.Truthy()), nil
	}
	return Null, rtErr(UnknownOperation, "unknown operator '%s'", op)
}

func unaryOp(op string, x Value) (Value, error) {
	switch op {
	case "!":
		return Bool(!x.Truthy()), nil
	case "-":
		switch x.Tag {
		case VTInt:
			return Int(-x.AsInt()), nil
		case VTFloat:
			return Float(-x.AsFloat()), nil
		}
		return Null, rtErr(TypeMismatch, "cannot negate %s", x.Tag)
	}
	return Null, rtErr(UnknownOperation, "unknown prefix operator '%s'", op)
}

func arith(op string, l, r Value) (Value, error) {
	if !l.IsNumber() || !r.IsNumber() {
		return Null, rtErr(TypeMismatch, "cannot apply '%s' to %s and %s", op, l.Tag, r.Tag)
	}
	if (op == "/" || op == "%") && isZero(r) {
		return Null, rtErr(DivisionByZero, "division by zero")
	}

	if l.Tag == VTInt {
		a := l.AsInt()
		var b int64
		if r.Tag == VTInt {
			b = r.AsInt()
		} else {
			b = int64(r.AsFloat())
			if (op == "/" || op == "%") && b == 0 {
				// 0.5 truncates to 0
				return Null, rtErr(DivisionByZero, "division by zero")
			}
		}
		switch op {
		case "+":
			return Int(a + b), nil
		case "-":
			return Int(a - b), nil
		case "*":
			return Int(a * b), nil
		case "/":
			return Int(a / b), nil
		case "%":
			return Int(a % b), nil
		}
	}

	a, b := l.AsFloat(), toFloat(r)
	switch op {
	case "+":
		return Float(a + b), nil
	case "-":
		return Float(a - b), nil
	case "*":
		return Float(a * b), nil
	case "/":
		return Float(a / b), nil
	case "%":
		return Float(math.Mod(a, b)), nil
	}
	return Null, rtErr(UnknownOperation, "unknown operator '%s'", op)
}

func isZero(v Value) bool {
	if v.Tag == VTInt {
		return v.AsInt() == 0
	}
	return v.AsFloat() == 0
}

func shift(op string, l, r Value) (Value, error) {
	if l.Tag != VTInt || r.Tag != VTInt {
		return Null, rtErr(TypeMismatch, "cannot apply '%s' to %s and %s", op, l.Tag, r.Tag)
	}
	n := r.AsInt()
	if n < 0 {
		return Null, rtErr(TypeMismatch, "negative shift count %d", n)
	}
	if op == "<<" {
		return Int(l.AsInt() << uint64(n)), nil
	}
	return Int(l.AsInt() >> uint64(n)), nil
}

func compare(op string, l, r Value) (Value, error) {
	if !l.IsNumber() || !r.IsNumber() {
		return Null, rtErr(TypeMismatch, "cannot compare %s and %s with '%s'", l.Tag, r.Tag, op)
	}
	var less, greater bool
	if l.Tag == VTInt && r.Tag == VTInt {
		less, greater = l.AsInt() < r.AsInt(), l.AsInt() > r.AsInt()
	} else {
		a, b := toFloat(l), toFloat(r)
		less, greater = a < b, a > b
	}
	if op == "<" {
		return Bool(less), nil
	}
	return Bool(greater), nil
}

// checkIndex validates idx against an array target and returns it as int.
func checkIndex(target, idx Value) (int, error) {
	if target.Tag != VTArray {
		return 0, rtErr(IndexError, "cannot index %s", target.Tag)
	}
	if idx.Tag != VTInt {
		return 0, rtErr(IndexError, "index must be Int, got %s", idx.Tag)
	}
	n := int64(len(target.AsArray()))
	i := idx.AsInt()
	if i < 0 || i >= n {
		return 0, rtErr(IndexError, "index %d out of range for array of length %d", i, n)
	}
	return int(i), nil
}

func indexValue(target, idx Value) (Value, error) {
	i, err := checkIndex(target, idx)
	if err != nil {
		return Null, err
	}
	return target.AsArray()[i].Clone(), nil
}
