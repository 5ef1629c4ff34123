// Package fsm implements the interview phase state machine as a static
// transition-validity table. The table is the only authority on whether a
// transition is allowed; it never mutates anything.
package fsm

import (
	"interviewcoach/pkg/proto"
)

// TransitionTable maps each phase to the set of phases reachable from it.
type TransitionTable map[proto.Phase][]proto.Phase

// standardTable is the interview lifecycle adjacency. CHALLENGING is reachable
// from every content phase so the interviewer can push back at any point.
func standardTable() TransitionTable {
	return TransitionTable{
		proto.PhaseConfiguring:      {proto.PhaseScoping},
		proto.PhaseScoping:          {proto.PhaseAnalysis, proto.PhaseChallenging},
		proto.PhaseAnalysis:         {proto.PhaseSolutioning, proto.PhaseChallenging},
		proto.PhaseSolutioning:      {proto.PhaseMetrics, proto.PhaseChallenging},
		proto.PhaseMetrics:          {proto.PhaseChallenging},
		proto.PhaseChallenging:      {proto.PhaseReportGeneration},
		proto.PhaseReportGeneration: {proto.PhaseEnd},
		proto.PhaseEnd:              {},
	}
}

// Machine answers transition-validity queries over an immutable table.
type Machine struct {
	table TransitionTable
}

// New returns the standard interview state machine.
func New() *Machine {
	return NewWithTable(standardTable())
}

// NewWithTable returns a machine over the supplied table. The table is copied
// so callers cannot mutate the machine after construction.
func NewWithTable(table TransitionTable) *Machine {
	copied := make(TransitionTable, len(table))
	for from, tos := range table {
		copied[from] = append([]proto.Phase(nil), tos...)
	}
	return &Machine{table: copied}
}

// Initial returns the phase every session starts in.
func (m *Machine) Initial() proto.Phase {
	return proto.PhaseConfiguring
}

// Terminal reports whether the phase has no outgoing transitions.
func (m *Machine) Terminal(phase proto.Phase) bool {
	return len(m.table[phase]) == 0
}

// CanTransition reports whether from → to is in the adjacency table.
// Pure and side-effect-free.
func (m *Machine) CanTransition(from, to proto.Phase) bool {
	for _, next := range m.table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextPhases returns a copy of the phases reachable from the given phase.
func (m *Machine) NextPhases(from proto.Phase) []proto.Phase {
	return append([]proto.Phase(nil), m.table[from]...)
}

// Phases returns every phase that appears as a source in the table.
func (m *Machine) Phases() []proto.Phase {
	phases := make([]proto.Phase, 0, len(m.table))
	for phase := range m.table {
		phases = append(phases, phase)
	}
	return phases
}
