package devices

import (
	"math/rand"
	"sync"
	"time"

	"voicebridge/core"
)

const mockAmplitude = 0.01

// MockSource is the fallback capture source used when no physical device
// is available. It emits low-amplitude noise frames on the exact frame
// cadence, timer-driven, so downstream framing and timing behave as they
// would with a real microphone.
type MockSource struct {
	interval  time.Duration
	frameSize int

	mu      sync.Mutex
	stop    chan struct{}
	started bool
}

func NewMockSource() *MockSource {
	return &MockSource{
		interval:  core.FrameDuration,
		frameSize: core.FrameSize,
	}
}

func (s *MockSource) Start(onChunk func(samples []float32)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.started = true
	s.stop = make(chan struct{})

	go s.run(s.stop, onChunk)
	return nil
}

func (s *MockSource) run(stop chan struct{}, onChunk func([]float32)) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			frame := make([]float32, s.frameSize)
			for i := range frame {
				frame[i] = (rng.Float32()*2 - 1) * mockAmplitude
			}
			onChunk(frame)
		case <-stop:
			return
		}
	}
}

// Stop cancels the frame timer. Safe to call more than once.
func (s *MockSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	close(s.stop)
	return nil
}
