// Package guard implements the read-only policy gate. Mutating operations are
// blocked before any network call when the gate is engaged.
package guard

import "fmt"

// Gate is the process-wide read-only switch. It is constructed once from
// configuration and never mutated afterwards; every facade instance holds a
// reference instead of consulting ambient state.
type Gate struct {
	readOnly bool
}

// NewGate creates a gate. readOnly true blocks all mutating operations.
func NewGate(readOnly bool) *Gate {
	return &Gate{readOnly: readOnly}
}

// ReadOnly reports whether the gate is engaged.
func (g *Gate) ReadOnly() bool { return g.readOnly }

// Enforce returns a PolicyDenial when the gate is engaged, nil otherwise.
// It is called at the top of every mutating facade method, before any
// control-plane or data-plane traffic.
func (g *Gate) Enforce(operation string) error {
	if g.readOnly {
		return &PolicyDenial{Operation: operation}
	}
	return nil
}

// PolicyDenial represents a mutating operation blocked by the read-only gate.
// It is a distinct type so callers and tests can tell "denied by policy" from
// "denied by the remote service".
type PolicyDenial struct {
	Operation string
}

func (d *PolicyDenial) Error() string {
	return fmt.Sprintf("operation %q not allowed in read-only mode", d.Operation)
}

// IsPolicyDenial checks if an error is a read-only policy denial.
func IsPolicyDenial(err error) bool {
	_, ok := err.(*PolicyDenial)
	return ok
}
