package giffiscript

import (
	"strings"
	"testing"
)

func ints(ns ...int64) Value {
	xs := make([]Value, len(ns))
	for i, n := range ns {
		xs[i] = Int(n)
	}
	return Arr(xs)
}

func Test_Builtin_Core_RequiresImport(t *testing.T) {
	for _, name := range []string{"print", "sqrt", "sleep", "len"} {
		evalErr(t, name+"(1)", UnknownFunction)
	}
}

func Test_Builtin_Core_ReservedNames(t *testing.T) {
	ip, _ := newTestInterpreter(WithReader(memReader{}))
	mustEvalPersistent(t, ip, "import io; import math; import time; import array;")
	for _, name := range []string{"println", "pow", "timer", "range"} {
		if f, ok := ip.Function(name); !ok || !f.IsNative() {
			t.Fatalf("%s should be a native function after import", name)
		}
	}
}

func Test_Builtin_IO_Print_And_Input(t *testing.T) {
	ip, out := newTestInterpreter(WithStdin(strings.NewReader("alice\r\nbob")))
	v := mustEvalPersistent(t, ip, `
import io;
let a = input();
let b = input();
let c = input();
print(a);
println();
println(b);
println([1, "x"]);
print(2.0);
[c == null, to_text(3.0), to_text("raw")]`)

	if got, want := out.String(), "alice\nbob\n[1, \"x\"]\n2.0"; got != want {
		t.Fatalf("output:\nwant %q\ngot  %q", want, got)
	}
	wantValue(t, v, Arr([]Value{Bool(true), Text("3.0"), Text("raw")}))
}

func Test_Builtin_IO_MissingArgument(t *testing.T) {
	evalErr(t, "import io; print()", StackUnderflow)
}

func Test_Builtin_Math(t *testing.T) {
	v := evalSrc(t, `
import math;
[sum(1, 2.5), abs(-3), abs(-2.5), min(3, 1.5), max(2, 7), pow(2, 10), pow(2, -1),
 sqrt(16), floor(2.7), ceil(2.1), int("42"), int(3.9), float(2), int(true)]`)
	want := Arr([]Value{
		Int(3), Int(3), Float(2.5), Float(1.5), Int(7), Int(1024), Float(0.5),
		Float(4), Int(2), Int(3), Int(42), Int(3), Float(2), Int(1),
	})
	got := v.AsArray()
	for i, w := range want.AsArray() {
		if got[i].Tag != w.Tag || !got[i].Equal(w) {
			t.Fatalf("element %d: want %s, got %s", i, FormatValue(w), FormatValue(got[i]))
		}
	}
}

func Test_Builtin_Math_Errors(t *testing.T) {
	evalErr(t, "import math; sqrt(-1)", NativeError)
	evalErr(t, `import math; int("x")`, NativeError)
	evalErr(t, `import math; abs("x")`, TypeMismatch)
	evalErr(t, "import math; sum(1)", StackUnderflow)
}

func Test_Builtin_Time_Timer(t *testing.T) {
	v := evalSrc(t, `
import time;
let t = timer();
sleep(5);
let e = elapsed(t);
[e > 4, now_millis() > 0]`)
	wantValue(t, v, Arr([]Value{Bool(true), Bool(true)}))
}

func Test_Builtin_Time_Errors(t *testing.T) {
	evalErr(t, "import time; elapsed(5)", TypeMismatch)
	evalErr(t, "import time; sleep(-1)", NativeError)

	ip, _ := newTestInterpreter(WithNativeModule("other", func(ip *Interpreter) error {
		return ip.DefineNative("handle", func(m Machine) error {
			m.Push(HandleVal("socket", nil))
			return nil
		})
	}))
	_, err := ip.RunLine("import time; import other; elapsed(handle())")
	if !IsKind(err, TypeMismatch) || !strings.Contains(err.Error(), "timer handle") {
		t.Fatalf("want handle kind mismatch, got %v", err)
	}
}

func Test_Builtin_Array(t *testing.T) {
	v := evalSrc(t, `
import array;
let xs = [1, 2];
let ys = push(xs, 3);
[len(xs), len(ys), len("äö"), pop(ys), range(3), range(-2)]`)
	wantValue(t, v, Arr([]Value{Int(2), Int(3), Int(2), ints(1, 2), ints(0, 1, 2), ints()}))
}

func Test_Builtin_Array_Errors(t *testing.T) {
	evalErr(t, "import array; pop([])", IndexError)
	evalErr(t, "import array; len(5)", TypeMismatch)
	evalErr(t, "import array; push(1, 2)", TypeMismatch)
}
