// Package confirm holds the single pending signal and decides, bar by bar,
// whether it confirms against its reference extreme or expires.
package confirm

import (
	"mech-trading-bot/internal/trerr"
	"mech-trading-bot/internal/types"
)

type State int

const (
	StateIdle State = iota
	StatePending
	// StateTriggered means a breakout confirmed the signal but the gateway
	// has not yet accepted the resulting open. The machine keeps reporting
	// the confirmation until settled or expired, so a rejected order is
	// re-attempted instead of silently dropped.
	StateTriggered
)

// Outcome is what one bar did to the pending signal.
type Outcome struct {
	Confirmed bool
	Expired   bool
	Direction types.Direction
	Rule      string
	Reference float64
}

// Machine is the singleton confirmation state machine for one
// instrument/strategy pair.
type Machine struct {
	confirmBars  int   // bars that may confirm (C)
	deadlineBars int   // bars until expiry (D)
	barSeconds   int64 // timeframe length, for the time deadline

	state      State
	dir        types.Direction
	ref        float64
	rule       string
	createdTs  int64
	deadlineTs int64
	barsSeen   int
}

func NewMachine(confirmBars, deadlineBars int, barSeconds int64) (*Machine, error) {
	const op = "confirm.NewMachine"
	if confirmBars < 1 || confirmBars > 20 {
		return nil, trerr.New(trerr.KindConfigurationInvalid, op,
			"confirmation bar count %d outside 1..20", confirmBars)
	}
	if deadlineBars < confirmBars {
		return nil, trerr.New(trerr.KindConfigurationInvalid, op,
			"deadline %d bars shorter than confirmation window %d", deadlineBars, confirmBars)
	}
	if barSeconds <= 0 {
		return nil, trerr.New(trerr.KindConfigurationInvalid, op,
			"bar length must be positive, got %ds", barSeconds)
	}
	return &Machine{confirmBars: confirmBars, deadlineBars: deadlineBars, barSeconds: barSeconds}, nil
}

func (m *Machine) State() State { return m.state }

// Arm stages a raw signal. The deadline is fixed here and never extended.
// Arming while a signal is pending is forbidden; the caller keeps the
// existing one.
func (m *Machine) Arm(sig types.RawSignal) bool {
	if m.state != StateIdle {
		return false
	}
	m.state = StatePending
	m.dir = sig.Direction
	m.ref = sig.RefExtreme
	m.rule = sig.Rule
	m.createdTs = sig.BarTs
	m.deadlineTs = sig.BarTs + int64(m.deadlineBars)*m.barSeconds
	m.barsSeen = 0
	return true
}

// Observe feeds one newly closed bar to the machine. Expiry is checked
// before confirmation, so a bar strictly past the deadline can never
// confirm. A breakout bar (high strictly above the reference for long, low
// strictly below for short) within the confirmation window triggers the
// signal; execution then uses the live quote, not the breakout bar's price.
func (m *Machine) Observe(bar types.Bar) *Outcome {
	if m.state == StateIdle {
		return nil
	}
	if bar.Ts > m.deadlineTs {
		out := &Outcome{Expired: true, Direction: m.dir, Rule: m.rule, Reference: m.ref}
		m.reset()
		return out
	}
	if m.state == StateTriggered {
		return m.confirmedOutcome()
	}

	m.barsSeen++
	if m.barsSeen > m.confirmBars {
		// Past the confirmation window; only expiry remains.
		return nil
	}
	breached := (m.dir == types.DirLong && bar.High > m.ref) ||
		(m.dir == types.DirShort && bar.Low < m.ref)
	if !breached {
		return nil
	}
	m.state = StateTriggered
	return m.confirmedOutcome()
}

// Settle clears a triggered signal after the gateway accepted the open.
func (m *Machine) Settle() { m.reset() }

// Cancel discards whatever is staged.
func (m *Machine) Cancel() { m.reset() }

func (m *Machine) confirmedOutcome() *Outcome {
	return &Outcome{Confirmed: true, Direction: m.dir, Rule: m.rule, Reference: m.ref}
}

func (m *Machine) reset() {
	m.state = StateIdle
	m.dir = types.DirNone
	m.ref = 0
	m.rule = ""
	m.createdTs = 0
	m.deadlineTs = 0
	m.barsSeen = 0
}
