// Package market holds the rolling window of completed bars the detectors
// read from.
package market

import (
	"mech-trading-bot/internal/trerr"
	"mech-trading-bot/internal/types"
)

// Window is a fixed-capacity ring buffer of completed bars ordered by
// strictly increasing open time. Appending past capacity overwrites the
// oldest bar.
type Window struct {
	bars []types.Bar
	head int // index of the oldest bar
	size int
}

func NewWindow(capacity int) (*Window, error) {
	if capacity <= 0 {
		return nil, trerr.New(trerr.KindConfigurationInvalid, "market.NewWindow",
			"window capacity must be positive, got %d", capacity)
	}
	return &Window{bars: make([]types.Bar, capacity)}, nil
}

// Append adds a completed bar. Bars whose open time is not strictly after
// the latest stored bar are ignored; the return value reports whether the
// bar was accepted. This is the idempotence guard for repeated delivery of
// the same bar.
func (w *Window) Append(b types.Bar) bool {
	if last, ok := w.Last(); ok && b.Ts <= last.Ts {
		return false
	}
	tail := (w.head + w.size) % len(w.bars)
	w.bars[tail] = b
	if w.size < len(w.bars) {
		w.size++
	} else {
		w.head = (w.head + 1) % len(w.bars)
	}
	return true
}

func (w *Window) Len() int { return w.size }

// Last returns the most recently appended bar.
func (w *Window) Last() (types.Bar, bool) {
	if w.size == 0 {
		return types.Bar{}, false
	}
	return w.at(w.size - 1), true
}

// Tail returns the n most recent bars ordered oldest first, or nil when
// fewer than n bars are stored.
func (w *Window) Tail(n int) []types.Bar {
	if n <= 0 || w.size < n {
		return nil
	}
	out := make([]types.Bar, n)
	for i := 0; i < n; i++ {
		out[i] = w.at(w.size - n + i)
	}
	return out
}

func (w *Window) at(i int) types.Bar {
	return w.bars[(w.head+i)%len(w.bars)]
}
