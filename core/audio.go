package core

import "time"

// Wire audio format: 16 kHz, 16-bit signed little-endian, mono.
const (
	SampleRate    = 16000
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 320           // samples per frame (SampleRate * FrameDuration)
	FrameBytes    = FrameSize * 2 // 16-bit samples on the wire
)

// CaptureSource yields a continuous stream of normalized samples in the
// range [-1.0, 1.0], delivered in device-determined chunk sizes. Real
// microphones and the synthetic mock source implement it identically.
type CaptureSource interface {
	// Start begins delivery. onChunk is invoked from the source's own
	// goroutine, one chunk at a time, in capture order.
	Start(onChunk func(samples []float32)) error
	// Stop halts delivery and releases the device. Safe to call more
	// than once.
	Stop() error
}

// OutputDevice renders decoded 16-bit audio buffers starting immediately.
// Buffers handed to Play while another is still rendering are mixed, not
// queued; serialization is the caller's concern.
type OutputDevice interface {
	// Play schedules samples for immediate rendering. done, if non-nil,
	// is invoked once the buffer has been fully rendered (or dropped on
	// Close).
	Play(samples []int16, done func()) error
	// Close stops rendering and releases the device. Safe to call more
	// than once.
	Close() error
}
