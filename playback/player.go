package playback

import (
	"sync"

	"voicebridge/audio"
	"voicebridge/core"
)

// Policy decides what happens when a payload arrives while another is
// still rendering.
type Policy string

const (
	// PolicyOverlap renders the new payload immediately, mixed with
	// whatever is already playing. Lowest latency; the original behavior.
	PolicyOverlap Policy = "overlap"
	// PolicyQueue serializes payloads in arrival order.
	PolicyQueue Policy = "queue"
)

// Player decodes inbound audio-response payloads and renders them to the
// output device. OnStart fires when a payload begins rendering, OnDone
// when it finishes; decode failures are logged and skipped without either
// callback.
type Player struct {
	dec    *audio.Decoder
	out    core.OutputDevice
	policy Policy
	logger *core.Logger

	OnStart func()
	OnDone  func()

	mu      sync.Mutex
	queue   chan []int16
	stop    chan struct{}
	stopped bool
}

func NewPlayer(dec *audio.Decoder, out core.OutputDevice, policy Policy, logger *core.Logger) *Player {
	if policy == "" {
		policy = PolicyOverlap
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	p := &Player{
		dec:    dec,
		out:    out,
		policy: policy,
		logger: logger.With(map[string]interface{}{"component": "playback"}),
		stop:   make(chan struct{}),
	}
	if policy == PolicyQueue {
		p.queue = make(chan []int16, 32)
		go p.drainQueue()
	}
	return p
}

// Play decodes and renders one payload. Fire-and-forget: decode failures
// are logged, the payload is skipped and never retried.
func (p *Player) Play(payload []byte) {
	samples, err := p.dec.Decode(payload)
	if err != nil {
		p.logger.With(map[string]interface{}{"error": err, "bytes": len(payload)}).Warn("failed to decode audio payload, skipping")
		return
	}

	switch p.policy {
	case PolicyQueue:
		select {
		case p.queue <- samples:
		case <-p.stop:
		}
	default:
		p.render(samples)
	}
}

func (p *Player) render(samples []int16) {
	if p.OnStart != nil {
		p.OnStart()
	}
	err := p.out.Play(samples, func() {
		if p.OnDone != nil {
			p.OnDone()
		}
	})
	if err != nil {
		// Playback failure leads back to connected, never to an error
		// state; the done callback already ran or will run.
		p.logger.With(map[string]interface{}{"error": err}).Warn("output device rejected payload")
	}
}

func (p *Player) drainQueue() {
	for {
		select {
		case samples := <-p.queue:
			finished := make(chan struct{})
			if p.OnStart != nil {
				p.OnStart()
			}
			err := p.out.Play(samples, func() { close(finished) })
			if err == nil {
				select {
				case <-finished:
				case <-p.stop:
					if p.OnDone != nil {
						p.OnDone()
					}
					return
				}
			} else {
				p.logger.With(map[string]interface{}{"error": err}).Warn("output device rejected payload")
			}
			if p.OnDone != nil {
				p.OnDone()
			}
		case <-p.stop:
			return
		}
	}
}

// Close stops the queue worker. Safe to call more than once. The output
// device is owned by the session and closed separately.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	p.stopped = true
	close(p.stop)
	return nil
}
