package audio

// FrameAccumulator turns an unbounded stream of raw sample chunks into
// fixed-size frames. Chunks may be smaller or larger than the frame size;
// each emitted frame is a disjoint, contiguous window of the input with no
// overlap, no skipped samples and no duplication across chunk boundaries.
type FrameAccumulator struct {
	buf []float32
	n   int
}

func NewFrameAccumulator(frameSize int) *FrameAccumulator {
	return &FrameAccumulator{buf: make([]float32, frameSize)}
}

// Push appends chunk to the rolling buffer and returns every frame that
// completed during this delivery, in order. A single large chunk can
// complete several frames. Returned frames are fresh slices; the internal
// buffer is reused.
func (a *FrameAccumulator) Push(chunk []float32) [][]float32 {
	var frames [][]float32
	for len(chunk) > 0 {
		n := copy(a.buf[a.n:], chunk)
		a.n += n
		chunk = chunk[n:]
		if a.n == len(a.buf) {
			frame := make([]float32, len(a.buf))
			copy(frame, a.buf)
			frames = append(frames, frame)
			a.n = 0
		}
	}
	return frames
}

// Pending returns the number of buffered samples not yet part of a frame.
func (a *FrameAccumulator) Pending() int { return a.n }

// Reset discards any buffered partial frame.
func (a *FrameAccumulator) Reset() { a.n = 0 }
