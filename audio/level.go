package audio

import (
	"math"
	"sync"
)

// LevelMeter derives a coarse energy histogram from outgoing frames for
// display. Purely observational; nothing reads it back into control logic.
type LevelMeter struct {
	mu   sync.Mutex
	bars []float64
}

// NewLevelMeter creates a meter with the given number of history buckets.
func NewLevelMeter(buckets int) *LevelMeter {
	if buckets <= 0 {
		buckets = 16
	}
	return &LevelMeter{bars: make([]float64, buckets)}
}

// Observe records one frame's energy, shifting older buckets left. The
// recorded value is the frame RMS on a 0..1 scale.
func (m *LevelMeter) Observe(frame []float32) {
	var sum float64
	for _, s := range frame {
		f := float64(s)
		sum += f * f
	}
	level := 0.0
	if len(frame) > 0 {
		level = math.Sqrt(sum / float64(len(frame)))
	}
	if level > 1 {
		level = 1
	}

	m.mu.Lock()
	copy(m.bars, m.bars[1:])
	m.bars[len(m.bars)-1] = level
	m.mu.Unlock()
}

// Bars returns a copy of the histogram, oldest bucket first.
func (m *LevelMeter) Bars() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.bars))
	copy(out, m.bars)
	return out
}
