// interpreter.go: public API surface of the GiffiScript interpreter.
//
// OVERVIEW
// ========
// An Interpreter owns three pieces of state that persist across runs:
//
//   - a value stack ([]Value), the only data channel between instructions;
//   - a scope chain (scope.go), innermost-first, with one "global" frame at
//     the tail that is never popped;
//   - a write-once function table mapping names to source-defined or native
//     functions.
//
// Entry points:
//
//   - RunSource(name, src): tokenize, parse and execute a whole program.
//   - RunLine(line): the same, named "<repl>"; state persists between calls so
//     a REPL can feed one line at a time.
//   - Run(instrs): execute an already compiled program.
//
// Every entry point returns the program's result (its final expression
// statement, or null) and a typed *Error on failure. The first error stops
// execution; the stack and scope chain are left as they were at the failure
// point so the host can print Dump before deciding what to do. The next
// entry point (or an explicit Recover) unwinds that state first.
//
// NATIVES
// -------
// Host code extends the language with NativeFunc callbacks registered through
// DefineNative. A callback sees only the Machine capability: push/pop on the
// value stack, typed pops, the output and input streams, and an error
// constructor. Natives are grouped into modules registered under reserved
// import names (RegisterNativeModule); `import "io";` runs the module's entry
// point once.
//
// CONFIGURATION
// -------------
// NewInterpreter takes functional options (WithStdout, WithStdin, WithReader,
// WithBlockLocalReturn, WithMaxDepth). A project manifest converts into the
// same options (manifest.go).
package giffiscript

import (
	"bufio"
	"io"
	"os"
	"sort"

	"fortio.org/log"
)

////////////////////////////////////////////////////////////////////////////////
//                                  PUBLIC API
////////////////////////////////////////////////////////////////////////////////

// NativeFunc is a host callback. Arguments arrive on the stack (last argument
// on top); the callback pushes its result, if any.
type NativeFunc func(m Machine) error

// NativeModule is the entry point of a reserved import name. It typically
// calls DefineNative for every function the module provides.
type NativeModule func(ip *Interpreter) error

// Machine is the narrow view of the interpreter a native callback gets.
type Machine interface {
	// Push places a copy of v on the stack.
	Push(v Value)
	// Pop removes the top value. Popping below the current call frame fails
	// with StackUnderflow.
	Pop() (Value, error)
	// Argc is the number of values the current call frame holds.
	Argc() int

	PopInt() (int64, error)
	PopNumber() (Value, error)
	PopText() (string, error)
	PopArray() ([]Value, error)
	// PopHandle pops a handle created by HandleVal with the same kind.
	PopHandle(kind string) (*Handle, error)

	Stdout() io.Writer
	// ReadLine reads one line from stdin without the line terminator.
	// ok is false at end of input.
	ReadLine() (line string, ok bool, err error)

	// Errorf builds a NativeError.
	Errorf(format string, args ...any) error
}

// Function is an entry of the function table: either a compiled body or a
// native callback (Native != nil, Body holds a single CallNative).
type Function struct {
	Name   string
	Params []string
	Body   []Instruction
	Native NativeFunc
	Source string // source name the function was declared in
}

// IsNative reports whether f is implemented by the host.
func (f *Function) IsNative() bool { return f.Native != nil }

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithStdout sets the writer used by print and friends (default os.Stdout).
func WithStdout(w io.Writer) Option {
	return func(ip *Interpreter) { ip.stdout = w }
}

// WithStdin sets the reader used by input() (default os.Stdin).
func WithStdin(r io.Reader) Option {
	return func(ip *Interpreter) { ip.stdin = bufio.NewReader(r) }
}

// WithReader sets the collaborator that resolves non-native imports.
func WithReader(r SourceReader) Option {
	return func(ip *Interpreter) { ip.reader = r }
}

// WithBlockLocalReturn restores the legacy semantics where `return` only
// stops the instruction sequence it appears in; a return inside an if or
// while body does not leave the enclosing function.
func WithBlockLocalReturn(on bool) Option {
	return func(ip *Interpreter) { ip.blockLocalReturn = on }
}

// WithMaxDepth bounds the nesting of calls and blocks. Exceeding it fails
// with StackOverflow. Zero means unlimited.
func WithMaxDepth(n int) Option {
	return func(ip *Interpreter) { ip.maxDepth = n }
}

// WithNativeModule registers an additional reserved import name.
func WithNativeModule(name string, entry NativeModule) Option {
	return func(ip *Interpreter) { ip.modules[name] = entry }
}

// Interpreter executes GiffiScript programs. It is not safe for concurrent
// use.
type Interpreter struct {
	stack     []Value
	frames    []int // stack height at entry of each active call
	scopes    *scopeChain
	functions map[string]*Function

	modules  map[string]NativeModule
	imported map[string]bool
	reader   SourceReader

	stdout io.Writer
	stdin  *bufio.Reader

	blockLocalReturn bool
	maxDepth         int
	depth            int

	last    *Instruction
	srcName string
	failed  bool // the last run stopped on an error and has not been unwound
}

// NewInterpreter returns an interpreter with an empty global scope and the
// built-in native modules (io, math, time, array) available for import.
func NewInterpreter(opts ...Option) *Interpreter {
	ip := &Interpreter{
		scopes:    newScopeChain(),
		functions: make(map[string]*Function),
		modules:   make(map[string]NativeModule),
		imported:  make(map[string]bool),
		stdout:    os.Stdout,
		stdin:     bufio.NewReader(os.Stdin),
	}
	registerBuiltinModules(ip)
	for _, opt := range opts {
		opt(ip)
	}
	return ip
}

// Run executes instrs in the interpreter's current state and returns the
// program's result: the top value the program left on the stack, or null.
// Values the program left behind are removed from the stack. If the previous
// run failed, its leftovers are dropped first (see Recover).
func (ip *Interpreter) Run(instrs []Instruction) (Value, error) {
	ip.unwindFailed()
	base := len(ip.stack)
	if _, err := ip.exec(instrs); err != nil {
		ip.failed = true
		return Null, err
	}
	return ip.collect(base), nil
}

// RunSource compiles and runs src. name is used in diagnostics.
func (ip *Interpreter) RunSource(name, src string) (Value, error) {
	instrs, err := ParseSource(src)
	if err != nil {
		return Null, withName(err, name)
	}
	prev := ip.srcName
	ip.srcName = name
	defer func() { ip.srcName = prev }()
	return ip.Run(instrs)
}

// RunLine runs one REPL entry against the persistent state.
func (ip *Interpreter) RunLine(line string) (Value, error) {
	return ip.RunSource("<repl>", line)
}

// Recover drops everything a failed run left behind: stack values, call
// frames and non-global scopes. Bindings, functions and imports are kept.
// Run, RunSource, RunLine and Import call it themselves after a failure, so
// hosts only need it to discard the state before doing something else.
func (ip *Interpreter) Recover() {
	ip.failed = false
	ip.stack = ip.stack[:0]
	ip.frames = ip.frames[:0]
	for ip.scopes.depth() > 1 {
		ip.scopes.pop()
	}
	ip.depth = 0
}

// DefineNative adds a host function to the function table. Names are
// write-once: redefining one is a DuplicateBinding error.
func (ip *Interpreter) DefineNative(name string, fn NativeFunc) error {
	if _, ok := ip.functions[name]; ok {
		return rtErr(DuplicateBinding, "function '%s' is already defined", name)
	}
	ip.functions[name] = &Function{
		Name:   name,
		Body:   []Instruction{{Op: OpCallNative, Name: name, Native: fn}},
		Native: fn,
	}
	return nil
}

// RegisterNativeModule makes name a reserved import: `import "name";` runs
// entry once instead of asking the SourceReader.
func (ip *Interpreter) RegisterNativeModule(name string, entry NativeModule) {
	ip.modules[name] = entry
}

// Function returns the table entry for name.
func (ip *Interpreter) Function(name string) (*Function, bool) {
	f, ok := ip.functions[name]
	return f, ok
}

// Functions returns the sorted names of all defined functions.
func (ip *Interpreter) Functions() []string {
	names := make([]string, 0, len(ip.functions))
	for n := range ip.functions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup reads a variable through the scope chain.
func (ip *Interpreter) Lookup(name string) (Value, bool) {
	v, ok := ip.scopes.get(name)
	if !ok {
		return Null, false
	}
	return v.Clone(), true
}

// Push places a copy of v on the stack.
func (ip *Interpreter) Push(v Value) { ip.push(v.Clone()) }

// Pop removes the top of the stack.
func (ip *Interpreter) Pop() (Value, error) { return ip.pop() }

// Peek returns the top of the stack without removing it.
func (ip *Interpreter) Peek() (Value, bool) {
	if len(ip.stack) == 0 {
		return Null, false
	}
	return ip.stack[len(ip.stack)-1], true
}

// Stack returns a copy of the value stack, bottom first.
func (ip *Interpreter) Stack() []Value {
	out := make([]Value, len(ip.stack))
	copy(out, ip.stack)
	return out
}

// Scopes returns the scope chain, innermost first.
func (ip *Interpreter) Scopes() []*Scope { return ip.scopes.innermostFirst() }

// LastInstruction returns the most recently dispatched instruction.
func (ip *Interpreter) LastInstruction() (Instruction, bool) {
	if ip.last == nil {
		return Instruction{}, false
	}
	return *ip.last, true
}

//// END_OF_PUBLIC

// withName stamps the source name on an *Error that has none.
func withName(err error, name string) error {
	if e, ok := err.(*Error); ok && e.Name == "" {
		e.Name = name
	}
	return err
}

func (ip *Interpreter) unwindFailed() {
	if ip.failed {
		log.Debugf("unwinding state left by the failed run")
		ip.Recover()
	}
}

// collect removes everything above base and returns the topmost removed
// value (null when nothing was left).
func (ip *Interpreter) collect(base int) Value {
	result := Null
	if len(ip.stack) > base {
		result = ip.stack[len(ip.stack)-1]
	}
	ip.stack = ip.stack[:base]
	return result
}
