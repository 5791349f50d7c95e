package session

import (
	"context"
	"fmt"
	"sync"

	"voicebridge/audio"
	"voicebridge/core"
	"voicebridge/playback"
	"voicebridge/protocol"
)

const defaultSilenceThresholdDB = -40

// Transport is the duplex connection the session drives. Implemented by
// transport.Client; faked in tests.
type Transport interface {
	Open(ctx context.Context) error
	SendAudio(payload []byte)
	SendControl(msg protocol.Message)
	SetHandlers(onBinary func([]byte), onControl func(protocol.Message), onClose func(error))
	Close() error
}

// Config wires a session together. Devices are injected as factories so
// acquisition happens at connect time and the core runs headless under
// test.
type Config struct {
	// NewTransport builds the duplex connection for one connect attempt.
	// A fresh transport is created per attempt; closed transports are
	// never reused. Required.
	NewTransport func() Transport

	// NewSource acquires the physical capture device. Nil or failing
	// falls back to NewMockSource; a missing microphone is never fatal.
	NewSource func() (core.CaptureSource, error)
	// NewMockSource builds the synthetic fallback source. Required.
	NewMockSource func() core.CaptureSource
	// NewOutput acquires the output device. Required.
	NewOutput func() (core.OutputDevice, error)

	// PlaybackPolicy selects overlap (default) or queue behavior for
	// back-to-back inbound payloads.
	PlaybackPolicy playback.Policy
	// InboundFormat names the encoding of inbound payloads. Defaults to
	// pcm16.
	InboundFormat audio.PayloadFormat
	// InputGainDB is applied to outbound frames after quantization.
	InputGainDB float64
	// SilenceGate, when set, suppresses sending frames below
	// SilenceThresholdDB. Frames are still accumulated and metered.
	SilenceGate        bool
	SilenceThresholdDB float64
	// Metadata, when set, is sent as a meta control message once the
	// server acknowledges ready.
	Metadata map[string]interface{}
	// LevelBuckets sizes the energy histogram. Defaults to 16.
	LevelBuckets int

	Logger *core.Logger

	// OnState, OnStatus and OnLevels are invoked synchronously from
	// session goroutines; they must not call back into the Session.
	OnState  func(state core.ConnectionState)
	OnStatus func(status string)
	OnLevels func(bars []float64)
}

// Session owns the device handles, the transport and the connection state
// machine for one client instance. Exactly one transport connection exists
// per session; teardown is idempotent and releases everything regardless
// of which connect step failed.
type Session struct {
	cfg    Config
	logger *core.Logger
	dec    *audio.Decoder

	mu    sync.Mutex
	state core.ConnectionState
	muted bool
	// epoch is bumped on every teardown; async results carrying a stale
	// epoch are discarded instead of being applied to a torn-down session.
	epoch     int
	tr        Transport
	source    core.CaptureSource
	output    core.OutputDevice
	player    *playback.Player
	acc       *audio.FrameAccumulator
	meter     *audio.LevelMeter
	rendering int
}

func New(cfg Config) (*Session, error) {
	if cfg.NewTransport == nil {
		return nil, fmt.Errorf("session: transport factory is required")
	}
	if cfg.NewMockSource == nil {
		return nil, fmt.Errorf("session: mock source factory is required")
	}
	if cfg.NewOutput == nil {
		return nil, fmt.Errorf("session: output factory is required")
	}
	if cfg.InboundFormat == "" {
		cfg.InboundFormat = audio.FormatPCM16
	}
	if cfg.SilenceThresholdDB == 0 {
		cfg.SilenceThresholdDB = defaultSilenceThresholdDB
	}
	if cfg.Logger == nil {
		cfg.Logger = core.GetLogger()
	}
	dec, err := audio.NewDecoder(cfg.InboundFormat)
	if err != nil {
		return nil, err
	}
	return &Session{
		cfg:    cfg,
		logger: cfg.Logger.With(map[string]interface{}{"component": "session"}),
		dec:    dec,
		state:  core.StateDisconnected,
		acc:    audio.NewFrameAccumulator(core.FrameSize),
		meter:  audio.NewLevelMeter(cfg.LevelBuckets),
	}, nil
}

// State returns the current connection state.
func (s *Session) State() core.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Muted reports the mute flag.
func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// SetMuted toggles the orthogonal mute flag. While muted, captured frames
// are still accumulated and metered but never sent.
func (s *Session) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.mu.Unlock()
}

// Levels returns the current energy histogram.
func (s *Session) Levels() []float64 {
	return s.meter.Bars()
}

// Connect acquires the capture device, opens the transport and moves the
// session to connected. On any failure it runs full cleanup and returns to
// disconnected; there is no automatic retry.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != core.StateDisconnected {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session: connect requested while %s", state)
	}
	epoch := s.epoch
	s.setStateLocked(core.StateConnecting)
	s.acc.Reset()
	s.mu.Unlock()

	// Device acquisition first. A missing microphone falls back to the
	// mock source and is never fatal.
	var source core.CaptureSource
	if s.cfg.NewSource != nil {
		src, err := s.cfg.NewSource()
		if err != nil {
			s.logger.With(map[string]interface{}{"error": err}).Warn("capture device unavailable, falling back to mock source")
			s.status("microphone unavailable, streaming synthetic audio")
		} else {
			source = src
		}
	}
	if source == nil {
		source = s.cfg.NewMockSource()
	}

	output, err := s.cfg.NewOutput()
	if err != nil {
		source.Stop()
		s.abortConnect(epoch)
		return fmt.Errorf("session: acquire output device: %w", err)
	}

	tr := s.cfg.NewTransport()
	tr.SetHandlers(
		func(payload []byte) { s.handleBinary(epoch, payload) },
		func(msg protocol.Message) { s.handleControl(epoch, msg) },
		func(err error) { s.handleTransportClosed(epoch, err) },
	)

	if err := tr.Open(ctx); err != nil {
		// Full cleanup regardless of which step failed.
		source.Stop()
		output.Close()
		s.abortConnect(epoch)
		return err
	}

	player := playback.NewPlayer(s.dec, output, s.cfg.PlaybackPolicy, s.cfg.Logger)
	player.OnStart = func() { s.renderStarted(epoch) }
	player.OnDone = func() { s.renderFinished(epoch) }

	s.mu.Lock()
	if s.epoch != epoch || s.state != core.StateConnecting {
		// Disconnect raced the handshake; discard the result.
		s.mu.Unlock()
		source.Stop()
		player.Close()
		tr.Close()
		output.Close()
		return fmt.Errorf("session: connect cancelled")
	}
	s.tr = tr
	s.source = source
	s.output = output
	s.player = player
	s.rendering = 0
	s.setStateLocked(core.StateConnected)
	s.mu.Unlock()
	s.status("connected")

	if err := source.Start(func(chunk []float32) { s.handleChunk(epoch, chunk) }); err != nil {
		// The device opened but refuses to stream; swap in the mock
		// source rather than failing the session.
		s.logger.With(map[string]interface{}{"error": err}).Warn("capture start failed, falling back to mock source")
		source.Stop()
		mock := s.cfg.NewMockSource()
		s.mu.Lock()
		if s.epoch == epoch {
			s.source = mock
		}
		s.mu.Unlock()
		mock.Start(func(chunk []float32) { s.handleChunk(epoch, chunk) })
	}

	return nil
}

// Disconnect tears the session down. Safe to call from any state, any
// number of times.
func (s *Session) Disconnect() {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()
	s.teardown(epoch, nil)
}

// abortConnect returns to disconnected after a failed connect step.
func (s *Session) abortConnect(epoch int) {
	s.mu.Lock()
	if s.epoch != epoch || s.state == core.StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.epoch++
	s.setStateLocked(core.StateDisconnected)
	s.mu.Unlock()
	s.status("connection failed")
}

// teardown runs the idempotent cleanup path: release devices, close the
// transport, bump the epoch so in-flight results are discarded.
func (s *Session) teardown(epoch int, cause error) {
	s.mu.Lock()
	if s.epoch != epoch || s.state == core.StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.epoch++
	source, output, tr, player := s.source, s.output, s.tr, s.player
	s.source, s.output, s.tr, s.player = nil, nil, nil, nil
	s.rendering = 0
	s.setStateLocked(core.StateDisconnected)
	s.mu.Unlock()

	if source != nil {
		source.Stop()
	}
	if player != nil {
		player.Close()
	}
	if tr != nil {
		tr.Close()
	}
	if output != nil {
		output.Close()
	}

	if cause != nil {
		s.logger.With(map[string]interface{}{"error": cause}).Warn("connection lost")
		s.status("connection lost")
	} else {
		s.status("disconnected")
	}
}

// handleChunk feeds captured samples through the accumulator and sends
// completed frames. Runs on the capture source's goroutine.
func (s *Session) handleChunk(epoch int, chunk []float32) {
	s.mu.Lock()
	if s.epoch != epoch || s.tr == nil {
		s.mu.Unlock()
		return
	}
	frames := s.acc.Push(chunk)
	muted := s.muted
	tr := s.tr
	s.mu.Unlock()

	for _, frame := range frames {
		s.meter.Observe(frame)
		if s.cfg.OnLevels != nil {
			s.cfg.OnLevels(s.meter.Bars())
		}
		if muted {
			continue
		}
		samples := audio.EncodeFrame(frame)
		if s.cfg.InputGainDB != 0 {
			samples = audio.ApplyGain(samples, s.cfg.InputGainDB)
		}
		if s.cfg.SilenceGate && audio.IsSilent(samples, s.cfg.SilenceThresholdDB) {
			continue
		}
		s.markListening(epoch)
		tr.SendAudio(audio.MarshalPCM(samples))
	}
}

func (s *Session) markListening(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch && s.state == core.StateConnected {
		s.setStateLocked(core.StateListening)
	}
}

// handleBinary routes one inbound audio payload to the playback pipeline.
func (s *Session) handleBinary(epoch int, payload []byte) {
	s.mu.Lock()
	if s.epoch != epoch || s.player == nil {
		s.mu.Unlock()
		return
	}
	player := s.player
	s.mu.Unlock()
	player.Play(payload)
}

func (s *Session) renderStarted(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	s.rendering++
	if s.state == core.StateConnected || s.state == core.StateListening {
		s.setStateLocked(core.StateSpeaking)
	}
}

func (s *Session) renderFinished(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	if s.rendering > 0 {
		s.rendering--
	}
	if s.rendering == 0 && s.state == core.StateSpeaking {
		s.setStateLocked(core.StateConnected)
	}
}

// handleControl dispatches one inbound control message.
func (s *Session) handleControl(epoch int, msg protocol.Message) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	tr := s.tr
	s.mu.Unlock()

	switch msg.Type {
	case protocol.MsgReadyAck:
		s.logger.Info("server ready for audio")
		s.status("server ready")
		if s.cfg.Metadata != nil && tr != nil {
			tr.SendControl(protocol.Meta(s.cfg.Metadata))
		}

	case protocol.MsgPong:
		s.logger.Debug("pong received")

	case protocol.MsgConfigUpdated:
		status := msg.Message
		if status == "" {
			status = "configuration updated"
		}
		s.status(status)

	case protocol.MsgError:
		// Surfaced as a status message only; the connection stays open
		// unless the transport itself closes.
		s.logger.With(map[string]interface{}{"message": msg.Message}).Warn("server reported error")
		s.status("server error: " + msg.Message)

	default:
		s.logger.With(map[string]interface{}{"type": string(msg.Type)}).Warn("unknown control message type, ignoring")
	}
}

func (s *Session) handleTransportClosed(epoch int, err error) {
	s.teardown(epoch, err)
}

// Configure pushes pipeline settings to the server. The config_updated
// reply arrives asynchronously as a status update.
func (s *Session) Configure(config map[string]interface{}) {
	s.mu.Lock()
	tr := s.tr
	s.mu.Unlock()
	if tr != nil {
		tr.SendControl(protocol.Configure(config))
	}
}

// setStateLocked updates the state and fires OnState. Callers hold s.mu.
func (s *Session) setStateLocked(state core.ConnectionState) {
	if s.state == state {
		return
	}
	s.state = state
	if s.cfg.OnState != nil {
		s.cfg.OnState(state)
	}
}

func (s *Session) status(msg string) {
	if s.cfg.OnStatus != nil {
		s.cfg.OnStatus(msg)
	}
}
