// builtin_time.go
//
// Builtins surfaced by `import "time";`:
//  1. sleep(ms: Int)       -> Null
//  2. now_millis()         -> Int     wall clock, ms since the Unix epoch
//  3. timer()              -> Handle  a started stopwatch
//  4. elapsed(t: Handle)   -> Int     ms since timer() created t
package giffiscript

import (
	"time"
)

const timerHandle = "timer"

func registerTimeBuiltins(ip *Interpreter) error {
	return nativeTable{
		{"sleep", func(m Machine) error {
			ms, err := m.PopInt()
			if err != nil {
				return err
			}
			if ms < 0 {
				return m.Errorf("sleep: negative duration %d", ms)
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return nil
		}},
		{"now_millis", func(m Machine) error {
			m.Push(Int(time.Now().UnixMilli()))
			return nil
		}},
		{"timer", func(m Machine) error {
			m.Push(HandleVal(timerHandle, time.Now()))
			return nil
		}},
		{"elapsed", func(m Machine) error {
			h, err := m.PopHandle(timerHandle)
			if err != nil {
				return err
			}
			start := h.Data.(time.Time)
			m.Push(Int(time.Since(start).Milliseconds()))
			return nil
		}},
	}.define(ip)
}
