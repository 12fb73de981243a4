package seqz

import (
	"cmp"
	"slices"
)

// entry is one registered handler. Entries are never mutated after
// insertion; snapshots copy them by value.
type entry struct {
	id       string
	priority int
	seq      uint64
	handler  Handler
	onError  ErrorHandler
	async    bool // declared async-only; rejected by synchronous triggers
}

// hookSet holds the entries registered under one name.
type hookSet struct {
	entries []entry
	counter uint64
	sorted  bool
}

// add appends e with the next registration sequence.
func (s *hookSet) add(e entry) {
	e.seq = s.counter
	s.counter++
	s.entries = append(s.entries, e)
	if len(s.entries) > 1 {
		s.sorted = false
	}
}

// remove deletes the entry with the given id, preserving order.
func (s *hookSet) remove(id string) bool {
	for i := range s.entries {
		if s.entries[i].id == id {
			s.entries = slices.Delete(s.entries, i, i+1)
			return true
		}
	}
	return false
}

// ensureSorted orders entries by priority, then registration sequence.
// Sequences are unique within a set so the order is total.
func (s *hookSet) ensureSorted() {
	if s.sorted || len(s.entries) <= 1 {
		s.sorted = true
		return
	}
	slices.SortFunc(s.entries, func(a, b entry) int {
		if c := cmp.Compare(a.priority, b.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	s.sorted = true
}

// snapshot returns a sorted copy of the entries.
func (s *hookSet) snapshot() []entry {
	s.ensureSorted()
	out := make([]entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// HookOption configures a single registration.
type HookOption func(*entry)

// Priority sets the handler priority. Lower priorities run first; the
// default is 0.
func Priority(p int) HookOption {
	return func(e *entry) {
		e.priority = p
	}
}

// OnError pairs an error handler with the handler. It runs when a handler
// registered after it (in trigger order) fails, or on TriggerError.
func OnError(fn ErrorHandler) HookOption {
	return func(e *entry) {
		e.onError = fn
	}
}

// Async declares the handler async-only. Synchronous triggers on a name
// with an async-only handler fail with ErrAsyncHandler before running
// anything.
func Async() HookOption {
	return func(e *entry) {
		e.async = true
	}
}
