package devices

import (
	"errors"
	"sync"

	"voicebridge/core"

	"github.com/gordonklaus/portaudio"
)

var errClosed = errors.New("output device closed")

const captureChunkSize = 256 // device pull size, deliberately not frame-aligned

// PortAudioSource captures mono normalized samples from the default input
// device.
type PortAudioSource struct {
	stream *portaudio.Stream
	buf    []float32

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

// NewPortAudioSource opens the default capture device at the wire sample
// rate. Returns a DeviceError when no device is available or access is
// denied; callers fall back to the mock source.
func NewPortAudioSource() (*PortAudioSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, &core.DeviceError{Op: "initialize", Err: err}
	}
	buf := make([]float32, captureChunkSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(core.SampleRate), len(buf), buf)
	if err != nil {
		portaudio.Terminate()
		return nil, &core.DeviceError{Op: "open capture stream", Err: err}
	}
	return &PortAudioSource{
		stream: stream,
		buf:    buf,
		stop:   make(chan struct{}),
	}, nil
}

func (s *PortAudioSource) Start(onChunk func(samples []float32)) error {
	if err := s.stream.Start(); err != nil {
		return &core.DeviceError{Op: "start capture stream", Err: err}
	}

	go func() {
		for {
			select {
			case <-s.stop:
				return
			default:
			}
			if err := s.stream.Read(); err != nil {
				// Overflow is recoverable; anything else ends capture.
				if err == portaudio.InputOverflowed {
					continue
				}
				core.GetLogger().With(map[string]interface{}{"error": err}).Warn("capture stream read failed")
				return
			}
			chunk := make([]float32, len(s.buf))
			copy(chunk, s.buf)
			onChunk(chunk)
		}
	}()
	return nil
}

func (s *PortAudioSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.stop)
	s.stream.Stop()
	s.stream.Close()
	portaudio.Terminate()
	return nil
}

type renderBuf struct {
	samples []int16
	pos     int
	done    func()
}

// PortAudioOutput renders decoded audio to the default output device.
// Concurrently active buffers are mixed sample-wise in the stream
// callback, which is what allows overlapping playback.
type PortAudioOutput struct {
	stream *portaudio.Stream

	mu     sync.Mutex
	active []*renderBuf
	closed bool
}

// NewPortAudioOutput opens the default output device at the wire sample
// rate.
func NewPortAudioOutput() (*PortAudioOutput, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, &core.DeviceError{Op: "initialize", Err: err}
	}
	out := &PortAudioOutput{}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(core.SampleRate), core.FrameSize, out.render)
	if err != nil {
		portaudio.Terminate()
		return nil, &core.DeviceError{Op: "open output stream", Err: err}
	}
	out.stream = stream
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, &core.DeviceError{Op: "start output stream", Err: err}
	}
	return out, nil
}

// render is the portaudio callback: sums every active buffer into the
// output, clamped to [-1, 1], and completes buffers as they drain.
func (o *PortAudioOutput) render(out []float32) {
	for i := range out {
		out[i] = 0
	}

	o.mu.Lock()
	remaining := o.active[:0]
	for _, buf := range o.active {
		for i := range out {
			if buf.pos >= len(buf.samples) {
				break
			}
			v := out[i] + float32(buf.samples[buf.pos])/32768
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			out[i] = v
			buf.pos++
		}
		if buf.pos >= len(buf.samples) {
			if buf.done != nil {
				go buf.done()
			}
		} else {
			remaining = append(remaining, buf)
		}
	}
	o.active = remaining
	o.mu.Unlock()
}

func (o *PortAudioOutput) Play(samples []int16, done func()) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		if done != nil {
			go done()
		}
		return &core.DeviceError{Op: "play", Err: errClosed}
	}
	o.active = append(o.active, &renderBuf{samples: samples, done: done})
	o.mu.Unlock()
	return nil
}

func (o *PortAudioOutput) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	dropped := o.active
	o.active = nil
	o.mu.Unlock()

	// Complete dropped buffers so callers waiting on done never hang.
	for _, buf := range dropped {
		if buf.done != nil {
			go buf.done()
		}
	}

	o.stream.Stop()
	o.stream.Close()
	portaudio.Terminate()
	return nil
}
