// builtin_core.go
//
// Reserved native modules available to every interpreter:
//
//	import "io";     print, println, input, to_text
//	import "math";   sum, abs, min, max, pow, sqrt, floor, ceil, int, float
//	import "time";   sleep, now_millis, timer, elapsed
//	import "array";  len, push, pop, range
//
// `panic(message?)` needs no import: the interpreter handles that name
// itself and fails the run with a Panic error.
//
// Conventions:
//   - Arguments are popped last-first; a missing argument surfaces as
//     StackUnderflow from the call frame.
//   - Functions push at most one result. A function that pushes nothing
//     returns null.
package giffiscript

func registerBuiltinModules(ip *Interpreter) {
	ip.RegisterNativeModule("io", registerIOBuiltins)
	ip.RegisterNativeModule("math", registerMathBuiltins)
	ip.RegisterNativeModule("time", registerTimeBuiltins)
	ip.RegisterNativeModule("array", registerArrayBuiltins)
}

// nativeTable is the list form modules use to declare their functions.
type nativeTable []struct {
	name string
	fn   NativeFunc
}

func (t nativeTable) define(ip *Interpreter) error {
	for _, e := range t {
		if err := ip.DefineNative(e.name, e.fn); err != nil {
			return err
		}
	}
	return nil
}
