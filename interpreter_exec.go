// interpreter_exec.go: PRIVATE execution engine.
//
// exec runs one instruction sequence and reports how it ended:
//
//	sigNone      fell off the end
//	sigReturn    a Return ran; its value is on top of the stack
//	sigBreak     a Break ran inside a loop body
//	sigContinue  a Continue ran inside a loop body
//
// If and While run their sub-sequences through exec and hand non-normal
// signals to their own caller, so `return` inside nested blocks leaves the
// whole function. A call consumes sigReturn; a loop consumes sigBreak and
// sigContinue. With blockLocalReturn set, If and While swallow sigReturn
// instead and the function keeps running after the block.
//
// Call frames: a call remembers the stack height before its arguments were
// pushed. Nothing inside the call may pop below that height (missing
// arguments surface as StackUnderflow), and when the body finishes exactly
// one value is left in the frame: the return value, else the top value the
// body produced, else null.
//
// Errors are positioned at the innermost instruction that failed; outer
// frames leave the position alone.
package giffiscript

import (
	"fmt"
	"io"
	"strings"

	"fortio.org/log"
)

type signal uint8

const (
	sigNone signal = iota
	sigReturn
	sigBreak
	sigContinue
)

func (ip *Interpreter) exec(code []Instruction) (signal, error) {
	for i := range code {
		in := &code[i]
		ip.last = in
		if log.LogVerbose() {
			log.LogVf("exec %s (stack %d, scopes %d)", in, len(ip.stack), ip.scopes.depth())
		}
		sig, err := ip.step(in)
		if err != nil {
			return sigNone, ip.position(err, in)
		}
		if sig != sigNone {
			return sig, nil
		}
	}
	return sigNone, nil
}

// position stamps in's location (and the current source name) on an
// unpositioned runtime error.
func (ip *Interpreter) position(err error, in *Instruction) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	if e.Line == 0 && in.Line > 0 {
		e.Line, e.Col = in.Line, in.Col
		if e.Name == "" {
			e.Name = ip.srcName
		}
	}
	return e
}

func (ip *Interpreter) step(in *Instruction) (signal, error) {
	switch in.Op {
	case OpPushConstant:
		ip.push(in.Value.Clone())

	case OpPop:
		if _, err := ip.pop(); err != nil {
			return sigNone, err
		}

	case OpReadVariable:
		v, ok := ip.scopes.get(in.Name)
		if !ok {
			return sigNone, rtErr(UnboundVariable, "variable '%s' is not defined", in.Name)
		}
		ip.push(v.Clone())

	case OpBindVariable:
		v, err := ip.pop()
		if err != nil {
			return sigNone, err
		}
		if !ip.scopes.bind(in.Name, v) {
			return sigNone, rtErr(DuplicateBinding, "variable '%s' is already defined in this scope", in.Name)
		}

	case OpAssignVariable:
		v, err := ip.pop()
		if err != nil {
			return sigNone, err
		}
		if !ip.scopes.set(in.Name, v) {
			return sigNone, rtErr(UnboundVariable, "cannot assign to undefined variable '%s'", in.Name)
		}

	case OpBuildArray:
		if in.Count > len(ip.stack)-ip.floor() {
			return sigNone, rtErr(StackUnderflow, "array literal needs %d values, stack frame has %d", in.Count, len(ip.stack)-ip.floor())
		}
		top := len(ip.stack) - in.Count
		xs := make([]Value, in.Count)
		copy(xs, ip.stack[top:])
		ip.stack = ip.stack[:top]
		ip.push(Arr(xs))

	case OpReadIndex:
		idx, err := ip.evalIndex(in.Body)
		if err != nil {
			return sigNone, err
		}
		target, err := ip.pop()
		if err != nil {
			return sigNone, err
		}
		v, err := indexValue(target, idx)
		if err != nil {
			return sigNone, err
		}
		ip.push(v)

	case OpReadVariableIndex:
		idx, err := ip.evalIndex(in.Body)
		if err != nil {
			return sigNone, err
		}
		target, ok := ip.scopes.get(in.Name)
		if !ok {
			return sigNone, rtErr(UnboundVariable, "variable '%s' is not defined", in.Name)
		}
		v, err := indexValue(target, idx)
		if err != nil {
			return sigNone, err
		}
		ip.push(v)

	case OpAssignVariableIndex:
		return sigNone, ip.assignIndex(in.Name)

	case OpBinary:
		r, err := ip.pop()
		if err != nil {
			return sigNone, err
		}
		l, err := ip.pop()
		if err != nil {
			return sigNone, err
		}
		v, err := binaryOp(in.Name, l, r)
		if err != nil {
			return sigNone, err
		}
		ip.push(v)

	case OpUnary:
		x, err := ip.pop()
		if err != nil {
			return sigNone, err
		}
		v, err := unaryOp(in.Name, x)
		if err != nil {
			return sigNone, err
		}
		ip.push(v)

	case OpDefineFunction:
		return sigNone, ip.defineFunction(in)

	case OpCall:
		return sigNone, ip.call(in)

	case OpCallNative:
		return sigNone, ip.callNative(in)

	case OpIf:
		cond, err := ip.pop()
		if err != nil {
			return sigNone, err
		}
		branch, label := in.Body, "if"
		if !cond.Truthy() {
			branch, label = in.Alt, "else"
		}
		sig, err := ip.block(label, branch)
		if err != nil {
			return sigNone, err
		}
		if sig == sigReturn && ip.blockLocalReturn {
			return sigNone, nil
		}
		return sig, nil

	case OpWhile:
		return ip.loop(in)

	case OpReturn:
		return sigReturn, nil
	case OpBreak:
		return sigBreak, nil
	case OpContinue:
		return sigContinue, nil

	case OpImport:
		return sigNone, ip.importModule(in.Name)

	default:
		return sigNone, rtErr(UnknownOperation, "unknown instruction %s", in.Op)
	}
	return sigNone, nil
}

// block runs code in a fresh scope. The scope is left in place on error so
// the diagnostic dump shows it.
func (ip *Interpreter) block(name string, code []Instruction) (signal, error) {
	if err := ip.enter(); err != nil {
		return sigNone, err
	}
	ip.scopes.push(name)
	sig, err := ip.exec(code)
	if err != nil {
		return sigNone, err
	}
	ip.scopes.pop()
	ip.leave()
	return sig, nil
}

func (ip *Interpreter) loop(in *Instruction) (signal, error) {
	for {
		if _, err := ip.exec(in.Body); err != nil {
			return sigNone, err
		}
		cond, err := ip.pop()
		if err != nil {
			return sigNone, err
		}
		if !cond.Truthy() {
			return sigNone, nil
		}
		sig, err := ip.block("while", in.Alt)
		if err != nil {
			return sigNone, err
		}
		switch sig {
		case sigBreak:
			return sigNone, nil
		case sigReturn:
			if !ip.blockLocalReturn {
				return sigReturn, nil
			}
		}
	}
}

// evalIndex runs index code and pops its value.
func (ip *Interpreter) evalIndex(code []Instruction) (Value, error) {
	if _, err := ip.exec(code); err != nil {
		return Null, err
	}
	return ip.pop()
}

func (ip *Interpreter) assignIndex(name string) error {
	v, err := ip.pop()
	if err != nil {
		return err
	}
	idx, err := ip.pop()
	if err != nil {
		return err
	}
	target, ok := ip.scopes.get(name)
	if !ok {
		return rtErr(UnboundVariable, "cannot assign to undefined variable '%s'", name)
	}
	i, err := checkIndex(target, idx)
	if err != nil {
		return err
	}
	xs := target.Clone().AsArray()
	xs[i] = v
	ip.scopes.set(name, Arr(xs))
	return nil
}

func (ip *Interpreter) defineFunction(in *Instruction) error {
	if ip.scopes.depth() != 1 {
		return rtErr(IllegalDeclaration, "function '%s' must be declared at top level", in.Name)
	}
	if _, ok := ip.functions[in.Name]; ok {
		return rtErr(DuplicateBinding, "function '%s' is already defined", in.Name)
	}
	ip.functions[in.Name] = &Function{Name: in.Name, Params: in.Params, Body: in.Body, Source: ip.srcName}
	log.Debugf("defined function %s(%d params)", in.Name, len(in.Params))
	return nil
}

func (ip *Interpreter) call(in *Instruction) error {
	base := len(ip.stack)
	if _, err := ip.exec(in.Body); err != nil {
		return err
	}

	if in.Name == "panic" {
		msg := "panic"
		if len(ip.stack) > base {
			v, _ := ip.pop()
			msg = v.String()
		}
		return rtErr(Panic, "%s", msg)
	}

	fn, ok := ip.functions[in.Name]
	if !ok {
		return rtErr(UnknownFunction, "function '%s' is not defined", in.Name)
	}
	log.Debugf("call %s with %d argument(s)", in.Name, len(ip.stack)-base)

	if err := ip.enter(); err != nil {
		return err
	}
	if fn.Source != "" && fn.Source != ip.srcName {
		prev := ip.srcName
		ip.srcName = fn.Source
		defer func() { ip.srcName = prev }()
	}
	ip.frames = append(ip.frames, base)
	ip.scopes.push(in.Name)
	if _, err := ip.exec(fn.Body); err != nil {
		return err
	}
	ip.scopes.pop()
	ip.frames = ip.frames[:len(ip.frames)-1]
	ip.leave()

	ip.push(ip.collect(base))
	return nil
}

func (ip *Interpreter) callNative(in *Instruction) (err error) {
	if in.Native == nil {
		return rtErr(UnknownFunction, "native function '%s' has no implementation", in.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = rtErr(NativeError, "native function '%s' panicked: %v", in.Name, r)
		}
	}()
	if err := in.Native(&machine{ip: ip}); err != nil {
		if _, ok := err.(*Error); ok {
			return err
		}
		return rtErr(NativeError, "%s: %v", in.Name, err)
	}
	return nil
}

func (ip *Interpreter) enter() error {
	ip.depth++
	if ip.maxDepth > 0 && ip.depth > ip.maxDepth {
		return rtErr(StackOverflow, "nesting deeper than %d", ip.maxDepth)
	}
	return nil
}

func (ip *Interpreter) leave() { ip.depth-- }

// ─────────────────────────────── value stack ────────────────────────────────

func (ip *Interpreter) push(v Value) { ip.stack = append(ip.stack, v) }

// floor is the lowest stack index the current call frame may pop.
func (ip *Interpreter) floor() int {
	if len(ip.frames) == 0 {
		return 0
	}
	return ip.frames[len(ip.frames)-1]
}

func (ip *Interpreter) pop() (Value, error) {
	if len(ip.stack) <= ip.floor() {
		if len(ip.frames) > 0 {
			return Null, rtErr(StackUnderflow, "missing argument: call frame is empty")
		}
		return Null, rtErr(StackUnderflow, "pop on empty stack")
	}
	v := ip.stack[len(ip.stack)-1]
	ip.stack = ip.stack[:len(ip.stack)-1]
	return v, nil
}

// ──────────────────────────────── machine ───────────────────────────────────

// machine is the Machine handed to native callbacks.
type machine struct{ ip *Interpreter }

func (m *machine) Push(v Value)        { m.ip.push(v.Clone()) }
func (m *machine) Pop() (Value, error) { return m.ip.pop() }
func (m *machine) Argc() int           { return len(m.ip.stack) - m.ip.floor() }
func (m *machine) Stdout() io.Writer   { return m.ip.stdout }

func (m *machine) popTagged(tag ValueTag) (Value, error) {
	v, err := m.ip.pop()
	if err != nil {
		return Null, err
	}
	if v.Tag != tag {
		return Null, rtErr(TypeMismatch, "expected %s, got %s", tag, v.Tag)
	}
	return v, nil
}

func (m *machine) PopInt() (int64, error) {
	v, err := m.popTagged(VTInt)
	if err != nil {
		return 0, err
	}
	return v.AsInt(), nil
}

func (m *machine) PopNumber() (Value, error) {
	v, err := m.ip.pop()
	if err != nil {
		return Null, err
	}
	if !v.IsNumber() {
		return Null, rtErr(TypeMismatch, "expected a number, got %s", v.Tag)
	}
	return v, nil
}

func (m *machine) PopText() (string, error) {
	v, err := m.popTagged(VTText)
	if err != nil {
		return "", err
	}
	return v.AsText(), nil
}

func (m *machine) PopArray() ([]Value, error) {
	v, err := m.popTagged(VTArray)
	if err != nil {
		return nil, err
	}
	return v.AsArray(), nil
}

func (m *machine) PopHandle(kind string) (*Handle, error) {
	v, err := m.popTagged(VTHandle)
	if err != nil {
		return nil, err
	}
	h := v.AsHandle()
	if h.Kind != kind {
		return nil, rtErr(TypeMismatch, "expected %s handle, got %s handle", kind, h.Kind)
	}
	return h, nil
}

func (m *machine) ReadLine() (string, bool, error) {
	line, err := m.ip.stdin.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read stdin: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), true, nil
}

func (m *machine) Errorf(format string, args ...any) error {
	return rtErr(NativeError, format, args...)
}
