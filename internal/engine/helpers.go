package engine

import "mech-trading-bot/internal/types"

// entryPrice is the side of the book a market entry crosses.
func entryPrice(dir types.Direction, q types.Quote) float64 {
	if dir == types.DirLong {
		return q.Ask
	}
	return q.Bid
}

// exitPrice is the side of the book a close would cross.
func exitPrice(dir types.Direction, q types.Quote) float64 {
	if dir == types.DirLong {
		return q.Bid
	}
	return q.Ask
}

// tightens reports whether candidate moves the stop strictly closer to
// price. A zero current stop always tightens.
func tightens(dir types.Direction, current, candidate float64) bool {
	if current == 0 {
		return true
	}
	if dir == types.DirLong {
		return candidate > current
	}
	return candidate < current
}
