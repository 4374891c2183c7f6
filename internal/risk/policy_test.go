package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"mech-trading-bot/internal/types"
)

type stubHistory struct {
	deals []types.Deal
	err   error
}

func (s *stubHistory) ClosedDeals(ctx context.Context, instrument, strategyID string, from, to time.Time) ([]types.Deal, error) {
	return s.deals, s.err
}

func day(d int, hour int) time.Time {
	return time.Date(2026, 3, d, hour, 0, 0, 0, time.UTC)
}

func TestPolicyValidation(t *testing.T) {
	if _, err := NewPolicy(0, 1, 0.01, nil); err == nil {
		t.Error("Expected error for zero base size")
	}
	if _, err := NewPolicy(0.02, 0.01, 0.01, nil); err == nil {
		t.Error("Expected error for max below base")
	}
	if _, err := NewPolicy(0.01, 1, 0, nil); err == nil {
		t.Error("Expected error for zero increment")
	}
}

func TestLossThenWinThenNewDay(t *testing.T) {
	p, err := NewPolicy(0.01, 1.0, 0.01, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	hist := &stubHistory{}
	ctx := context.Background()

	// Day 1: realized loss grows the size, no halt.
	hist.deals = []types.Deal{{Profit: -50, Volume: 0.01, CloseTime: day(2, 10)}}
	if err := p.Refresh(ctx, day(2, 11), hist, "EURUSD", "s1"); err != nil {
		t.Fatal(err)
	}
	if got := p.Size(); got < 0.0199 || got > 0.0201 {
		t.Errorf("Size after losing day = %v, want 0.02", got)
	}
	if p.HaltedForDay() {
		t.Error("Losing day must not halt trading")
	}

	// Day 2: profitable close resets size and halts for the day.
	hist.deals = []types.Deal{{Profit: 30, Volume: 0.02, CloseTime: day(3, 10)}}
	if err := p.Refresh(ctx, day(3, 11), hist, "EURUSD", "s1"); err != nil {
		t.Fatal(err)
	}
	if p.Size() != 0.01 {
		t.Errorf("Size after winning day = %v, want base 0.01", p.Size())
	}
	if !p.HaltedForDay() {
		t.Error("Winning day must halt new entries")
	}

	// Day 3: the day-key transition clears the halt automatically.
	hist.deals = nil
	if err := p.Refresh(ctx, day(4, 9), hist, "EURUSD", "s1"); err != nil {
		t.Fatal(err)
	}
	if p.HaltedForDay() {
		t.Error("Halt must reset on the first cycle of a new day")
	}
	if p.Size() != 0.01 {
		t.Errorf("Size on fresh day = %v, want 0.01", p.Size())
	}
}

func TestSizeStaysWithinBounds(t *testing.T) {
	p, _ := NewPolicy(0.01, 0.03, 0.01, time.UTC)
	hist := &stubHistory{deals: []types.Deal{{Profit: -10, Volume: 0.01}}}
	ctx := context.Background()

	// Many losing refreshes across days must cap at max.
	for d := 2; d < 12; d++ {
		if err := p.Refresh(ctx, day(d, 12), hist, "EURUSD", "s1"); err != nil {
			t.Fatal(err)
		}
		if p.Size() < 0.01 || p.Size() > 0.03 {
			t.Fatalf("Size %v escaped [base, max]", p.Size())
		}
	}
	if p.Size() != 0.03 {
		t.Errorf("Size = %v, want cap 0.03", p.Size())
	}
}

func TestLosingDayGrowsSizeOnce(t *testing.T) {
	p, _ := NewPolicy(0.01, 1.0, 0.01, time.UTC)
	hist := &stubHistory{deals: []types.Deal{{Profit: -50, Volume: 0.01, CloseTime: day(2, 9)}}}
	ctx := context.Background()

	// The engine refreshes every bar; repeated cycles over the same
	// losing day must not compound the increment.
	for h := 10; h < 20; h++ {
		if err := p.Refresh(ctx, day(2, h), hist, "EURUSD", "s1"); err != nil {
			t.Fatal(err)
		}
		if got := p.Size(); got < 0.0199 || got > 0.0201 {
			t.Fatalf("Size after cycle at %02d:00 = %v, want 0.02", h, got)
		}
	}

	// The next losing day applies exactly one more increment.
	hist.deals = append(hist.deals, types.Deal{Profit: -20, Volume: 0.02, CloseTime: day(3, 9)})
	if err := p.Refresh(ctx, day(3, 10), hist, "EURUSD", "s1"); err != nil {
		t.Fatal(err)
	}
	if got := p.Size(); got < 0.0299 || got > 0.0301 {
		t.Errorf("Size after second losing day = %v, want 0.03", got)
	}
}

func TestBreakevenLeavesSizeUnchanged(t *testing.T) {
	p, _ := NewPolicy(0.01, 1.0, 0.01, time.UTC)
	hist := &stubHistory{deals: []types.Deal{{Profit: -5, Volume: 0.01}}}
	ctx := context.Background()

	_ = p.Refresh(ctx, day(2, 10), hist, "EURUSD", "s1")
	grown := p.Size()

	hist.deals = nil // no closed deals: P&L == 0
	if err := p.Refresh(ctx, day(2, 12), hist, "EURUSD", "s1"); err != nil {
		t.Fatal(err)
	}
	if p.Size() != grown {
		t.Errorf("Size changed on breakeven: %v -> %v", grown, p.Size())
	}
}

func TestHistoryFailureHoldsState(t *testing.T) {
	p, _ := NewPolicy(0.01, 1.0, 0.01, time.UTC)
	hist := &stubHistory{deals: []types.Deal{{Profit: -5, Volume: 0.01}}}
	ctx := context.Background()

	_ = p.Refresh(ctx, day(2, 10), hist, "EURUSD", "s1")
	before := p.Size()

	hist.err = errors.New("terminal unreachable")
	if err := p.Refresh(ctx, day(2, 11), hist, "EURUSD", "s1"); err == nil {
		t.Fatal("Expected history query error")
	}
	if p.Size() != before {
		t.Errorf("Size changed on failed query: %v -> %v", before, p.Size())
	}
	if p.HaltedForDay() {
		t.Error("Halt flag changed on failed query")
	}
}
