package zerodha

import (
	"fmt"
	"sync"

	"mech-trading-bot/internal/types"
)

// barCache aggregates ticks into timeframe buckets per instrument.
type barCache struct {
	buffers   map[string]*barBuffer
	tfSeconds int64
	mu        sync.RWMutex
}

type barBuffer struct {
	bars    []types.Bar
	maxSize int
	lastCum float64 // cumulative session volume at the previous tick
}

func newBarCache(tfSeconds int64) *barCache {
	return &barCache{
		buffers:   make(map[string]*barBuffer),
		tfSeconds: tfSeconds,
	}
}

func (bc *barCache) initBuffer(instrument string, maxSize int) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	bc.buffers[instrument] = &barBuffer{
		bars:    make([]types.Bar, 0, maxSize),
		maxSize: maxSize,
	}
}

// applyTick folds one tick into the bucket it belongs to, opening a new
// bucket when the timestamp crosses a timeframe boundary.
func (bc *barCache) applyTick(instrument string, ts int64, price, cumVolume float64) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	buf, exists := bc.buffers[instrument]
	if !exists {
		return
	}

	volDelta := cumVolume - buf.lastCum
	if volDelta < 0 {
		volDelta = 0
	}
	buf.lastCum = cumVolume

	bucket := ts / bc.tfSeconds * bc.tfSeconds

	if n := len(buf.bars); n > 0 && buf.bars[n-1].Ts == bucket {
		bar := &buf.bars[n-1]
		if price > bar.High {
			bar.High = price
		}
		if price < bar.Low {
			bar.Low = price
		}
		bar.Close = price
		bar.Vol += volDelta
		return
	}

	buf.bars = append(buf.bars, types.Bar{
		Ts:    bucket,
		Open:  price,
		High:  price,
		Low:   price,
		Close: price,
		Vol:   volDelta,
	})
	if len(buf.bars) > buf.maxSize {
		buf.bars = buf.bars[1:]
	}
}

// recentCompleted returns up to n bars whose bucket has already closed,
// oldest first. The bucket containing nowTs is still forming and excluded.
func (bc *barCache) recentCompleted(instrument string, n int, nowTs int64) ([]types.Bar, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	buf, exists := bc.buffers[instrument]
	if !exists {
		return nil, fmt.Errorf("no bar data for instrument %s", instrument)
	}

	currentBucket := nowTs / bc.tfSeconds * bc.tfSeconds
	bars := buf.bars
	for len(bars) > 0 && bars[len(bars)-1].Ts >= currentBucket {
		bars = bars[:len(bars)-1]
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no completed bars for %s", instrument)
	}

	if len(bars) < n {
		out := make([]types.Bar, len(bars))
		copy(out, bars)
		return out, nil
	}
	out := make([]types.Bar, n)
	copy(out, bars[len(bars)-n:])
	return out, nil
}
