package view

import "sync"

// Deferred separates the filter inputs as typed (immediate) from the inputs
// the view is computed with (effective). Typing only touches the immediate
// value; a later Settle with the matching generation promotes it. The
// effective value always ends up equal to the last immediate one, so the
// delay changes when results appear, never what they are.
type Deferred struct {
	mu        sync.Mutex
	immediate FilterState
	effective FilterState
	gen       uint64
}

// NewDeferred starts settled at initial.
func NewDeferred(initial FilterState) *Deferred {
	return &Deferred{immediate: initial, effective: initial}
}

// Set records new immediate input and returns its generation.
func (d *Deferred) Set(st FilterState) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.immediate = st
	d.gen++
	return d.gen
}

// Settle promotes the immediate input when gen is still the latest. Older
// generations are ignored so only the final keystroke triggers recomputation.
func (d *Deferred) Settle(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return false
	}
	d.effective = d.immediate
	return true
}

// Flush promotes the immediate input regardless of generation.
func (d *Deferred) Flush() FilterState {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.effective = d.immediate
	return d.effective
}

// Immediate returns the input as typed.
func (d *Deferred) Immediate() FilterState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.immediate
}

// Effective returns the input the view should be computed with.
func (d *Deferred) Effective() FilterState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.effective
}

// Generation returns the latest generation handed out by Set.
func (d *Deferred) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// IsFiltering reports whether any field's effective value trails its input.
func (d *Deferred) IsFiltering() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.immediate.Equal(d.effective)
}
