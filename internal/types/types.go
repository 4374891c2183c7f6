package types

import "time"

// Direction is the side of a signal or position.
type Direction int

const (
	DirNone Direction = iota
	DirLong
	DirShort
)

func (d Direction) String() string {
	switch d {
	case DirLong:
		return "LONG"
	case DirShort:
		return "SHORT"
	default:
		return "NONE"
	}
}

// Bar is one completed OHLCV record. Ts is the bar's open time (unix seconds).
// Immutable once appended to a window.
type Bar struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool { return b.Close > b.Open }

// Bearish reports whether the bar closed below its open.
func (b Bar) Bearish() bool { return b.Close < b.Open }

// Quote is a live bid/ask pair.
type Quote struct {
	Bid, Ask float64
	Ts       int64
}

// RawSignal is a transient directional signal produced by a pattern rule.
// RefExtreme is the signal bar's high for a long signal and its low for a
// short signal; a later bar breaching it confirms the signal.
type RawSignal struct {
	Direction  Direction
	BarTs      int64
	RefExtreme float64
	Strength   float64 // geometric magnitude, used for same-bar tie-breaks
	Rule       string
}

// Deal is one closed (position-reducing) fill reported by the trade history
// provider.
type Deal struct {
	Profit    float64
	Volume    float64
	CloseTime time.Time
}

// Position is the open position as held by the execution layer. The decision
// core reads it, never mutates it.
type Position struct {
	ID         string
	Direction  Direction
	Size       float64
	OpenPrice  float64
	StopPrice  float64
	TakeProfit float64
	OpenTime   time.Time
}

// OpenReq asks the execution gateway to open a directional position.
type OpenReq struct {
	Instrument string
	Direction  Direction
	Size       float64
	Price      float64
	StopPrice  float64
	TakeProfit float64
	Tag        string
}

// OpenResp is the gateway's answer to an OpenReq.
type OpenResp struct {
	TicketID string `json:"ticket_id"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

// CycleResult summarizes one decision cycle for the host and the trade log.
type CycleResult struct {
	Instrument string    `json:"instrument"`
	Action     string    `json:"action"`
	Direction  Direction `json:"direction,omitempty"`
	Price      float64   `json:"price"`
	Time       int64     `json:"time"`
	Ticket     string    `json:"ticket,omitempty"`
	Reason     string    `json:"reason"`
}

// Cycle actions reported in CycleResult.Action.
const (
	ActionNone       = "NONE"
	ActionOpen       = "OPEN"
	ActionClose      = "CLOSE"
	ActionAdjustStop = "ADJUST_STOP"
	ActionArm        = "ARM"
)
