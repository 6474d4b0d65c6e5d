package strategy

import (
	"fmt"
	"sort"

	"walkforward-validator/pkg/types"
)

// Direction of a signal or an open position. The numeric values are chosen
// so that pnl = (exit - entry) * volume * Direction works for both sides.
type Direction int

const (
	DirectionLong  Direction = 1
	DirectionShort Direction = -1
)

func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "LONG"
	case DirectionShort:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// PositionState is what the simulator exposes to a rule about its current
// position. Rules must not see entry prices or stops, only the state.
type PositionState int

const (
	PositionFlat PositionState = iota
	PositionLong
	PositionShort
)

func (p PositionState) String() string {
	switch p {
	case PositionFlat:
		return "FLAT"
	case PositionLong:
		return "LONG"
	case PositionShort:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// SignalIntent is a rule's request to open a position: a direction plus the
// protective stop and profit target it wants attached.
type SignalIntent struct {
	Direction   Direction
	StopPrice   float64
	TargetPrice float64
}

// Rule is the capability interface every trading rule implements.
//
// ProduceSignal is pure: it receives the bar history up to and including the
// decision bar and the current position state, and returns an intent or nil.
// It must never be handed bars beyond the decision bar; the simulator
// enforces that by slicing. Implementations must not keep mutable state
// between calls: the same history must always produce the same intent.
type Rule interface {
	ProduceSignal(history []types.Bar, state PositionState) *SignalIntent

	// Name identifies the rule in reports.
	Name() string

	// WarmupBars is the number of bars the rule needs before it can emit
	// its first signal. The simulator skips decision-making before that.
	WarmupBars() int

	// Complexity is the number of free parameters the rule carries. The
	// optimizer prefers lower complexity when scores tie.
	Complexity() int
}

// ParameterSet holds named numeric parameters for one rule instantiation.
type ParameterSet map[string]float64

// Get returns the named parameter or an error when it is missing.
func (p ParameterSet) Get(name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	return v, nil
}

// String renders the parameters in deterministic key order.
func (p ParameterSet) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%g", k, p[k])
	}
	return out
}

// Clone returns an independent copy of the parameter set.
func (p ParameterSet) Clone() ParameterSet {
	out := make(ParameterSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Factory builds a rule from a parameter set. The optimizer calls it once
// per grid point; construction errors surface as config errors.
type Factory func(params ParameterSet) (Rule, error)
