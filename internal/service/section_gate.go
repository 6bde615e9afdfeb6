package service

import "sync"

// SectionGate serializes roster mutations per section. Two concurrent
// creates for the same section must not both observe capacity available and
// both commit; holding the section's gate across the check-then-act sequence
// closes that race. Capacity reductions take the same gate so a shrink
// cannot interleave with an admission. Gates are never removed; the map
// grows with the number of distinct sections mutated, which is bounded by
// the catalog size.
type SectionGate struct {
	mu    sync.Mutex
	gates map[string]*sync.Mutex
}

// NewSectionGate builds an empty gate set. One instance is shared by every
// service that mutates rosters or capacities.
func NewSectionGate() *SectionGate {
	return &SectionGate{gates: make(map[string]*sync.Mutex)}
}

// Lock acquires the gate for the given section, creating it on first use.
func (g *SectionGate) Lock(sectionID string) {
	g.mu.Lock()
	gate, ok := g.gates[sectionID]
	if !ok {
		gate = &sync.Mutex{}
		g.gates[sectionID] = gate
	}
	g.mu.Unlock()
	gate.Lock()
}

// Unlock releases the gate for the given section.
func (g *SectionGate) Unlock(sectionID string) {
	g.mu.Lock()
	gate := g.gates[sectionID]
	g.mu.Unlock()
	if gate != nil {
		gate.Unlock()
	}
}
