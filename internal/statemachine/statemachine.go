// Package statemachine holds the legal-transition tables for status fields.
//
// Enforcement is opt-in per call. In permissive mode any known status may be
// set, which matches how statuses were historically written; strict mode
// rejects anything not listed in the table, including self transitions.
package statemachine

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/agencyflow/internal/errs"
)

const (
	CodeUnknownStatus     = "unknown_status"
	CodeIllegalTransition = "illegal_transition"
)

type Machine[S ~string] struct {
	name        string
	states      []S
	transitions map[S]map[S]struct{}
}

// New builds a machine for the given states. Every state referenced in
// transitions must also be listed in states.
func New[S ~string](name string, states []S, transitions map[S][]S) *Machine[S] {
	table := make(map[S]map[S]struct{}, len(transitions))
	for from, targets := range transitions {
		set := make(map[S]struct{}, len(targets))
		for _, to := range targets {
			set[to] = struct{}{}
		}
		table[from] = set
	}
	return &Machine[S]{
		name:        name,
		states:      append([]S(nil), states...),
		transitions: table,
	}
}

// Parse normalizes raw and returns the matching state.
func (m *Machine[S]) Parse(raw string) (S, error) {
	candidate := S(strings.ToUpper(strings.TrimSpace(raw)))
	if m.Known(candidate) {
		return candidate, nil
	}
	var zero S
	return zero, errs.NewValidation("status", CodeUnknownStatus,
		fmt.Sprintf("unknown %s status %q", m.name, raw))
}

func (m *Machine[S]) Known(state S) bool {
	for _, s := range m.states {
		if s == state {
			return true
		}
	}
	return false
}

// Allowed reports whether the table lists from -> to.
func (m *Machine[S]) Allowed(from, to S) bool {
	_, ok := m.transitions[from][to]
	return ok
}

// Check validates a requested transition. Unknown targets are always
// rejected; table membership is only enforced when strict is set.
func (m *Machine[S]) Check(from, to S, strict bool) error {
	if !m.Known(to) {
		return errs.NewValidation("status", CodeUnknownStatus,
			fmt.Sprintf("unknown %s status %q", m.name, to))
	}
	if !strict {
		return nil
	}
	if !m.Allowed(from, to) {
		return errs.NewValidation("status", CodeIllegalTransition,
			fmt.Sprintf("%s cannot move from %s to %s", m.name, from, to))
	}
	return nil
}
