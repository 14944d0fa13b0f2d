package giffiscript

import "sort"

// Scope is one frame of variable bindings. Names are unique within a frame.
type Scope struct {
	Name     string
	bindings map[string]Value
}

// NewScope creates an empty frame.
func NewScope(name string) *Scope {
	return &Scope{Name: name, bindings: make(map[string]Value)}
}

// Lookup returns the value bound to name in this frame only.
func (s *Scope) Lookup(name string) (Value, bool) {
	v, ok := s.bindings[name]
	return v, ok
}

// Names returns the frame's names in sorted order.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.bindings))
	for k := range s.bindings {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// scopeChain keeps frames outermost-first internally (frames[0] is the
// global frame) so pushes and pops touch the end of the slice. Every
// exported view is innermost-first.
//
// Lookups walk the whole active chain, including the frames of callers:
// scoping is dynamic, not lexical.
type scopeChain struct {
	frames []*Scope
}

func newScopeChain() *scopeChain {
	return &scopeChain{frames: []*Scope{NewScope("global")}}
}

func (c *scopeChain) push(name string) { c.frames = append(c.frames, NewScope(name)) }

// pop removes the innermost frame; the global frame is never removed.
func (c *scopeChain) pop() {
	if len(c.frames) > 1 {
		c.frames = c.frames[:len(c.frames)-1]
	}
}

func (c *scopeChain) depth() int { return len(c.frames) }

func (c *scopeChain) innermost() *Scope { return c.frames[len(c.frames)-1] }

// bind defines name in the innermost frame; false if it is already there.
func (c *scopeChain) bind(name string, v Value) bool {
	s := c.innermost()
	if _, ok := s.bindings[name]; ok {
		return false
	}
	s.bindings[name] = v
	return true
}

// get finds the first binding of name, innermost to outermost.
func (c *scopeChain) get(name string) (Value, bool) {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if v, ok := c.frames[i].bindings[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// set mutates the first binding of name, innermost to outermost.
func (c *scopeChain) set(name string, v Value) bool {
	for i := len(c.frames) - 1; i >= 0; i-- {
		if _, ok := c.frames[i].bindings[name]; ok {
			c.frames[i].bindings[name] = v
			return true
		}
	}
	return false
}

// innermostFirst returns the frames in lookup order.
func (c *scopeChain) innermostFirst() []*Scope {
	out := make([]*Scope, len(c.frames))
	for i, s := range c.frames {
		out[len(c.frames)-1-i] = s
	}
	return out
}
