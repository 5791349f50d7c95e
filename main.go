package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"voicebridge/core"
	"voicebridge/devices"
	"voicebridge/session"
	"voicebridge/transport"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	var host string
	var port int
	var secure, muted, mock bool
	flag.StringVar(&host, "host", "", "voice pipeline server host (overrides VOICEBRIDGE_HOST)")
	flag.IntVar(&port, "port", 0, "voice pipeline server port (overrides VOICEBRIDGE_PORT)")
	flag.BoolVar(&secure, "secure", false, "use wss:// instead of ws://")
	flag.BoolVar(&muted, "muted", false, "start with the microphone muted")
	flag.BoolVar(&mock, "mock", false, "use the synthetic mock source instead of the microphone")
	flag.Parse()

	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	cfg := loadSettingsFromEnv()
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if secure {
		cfg.Secure = true
	}
	if mock {
		cfg.ForceMock = true
	}

	logger := core.GetLogger()
	clientID := uuid.NewString()

	newTransport := func() session.Transport {
		return transport.NewClient(transport.Config{
			Host:              cfg.Host,
			Port:              cfg.Port,
			Secure:            cfg.Secure,
			ClientID:          clientID,
			HeartbeatInterval: cfg.HeartbeatInterval,
			LivenessTimeout:   cfg.LivenessTimeout,
			Logger:            logger,
		})
	}

	newSource := func() (core.CaptureSource, error) { return devices.NewPortAudioSource() }
	if cfg.ForceMock {
		newSource = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := session.New(session.Config{
		NewTransport:   newTransport,
		NewSource:      newSource,
		NewMockSource:  func() core.CaptureSource { return devices.NewMockSource() },
		NewOutput:      func() (core.OutputDevice, error) { return devices.NewPortAudioOutput() },
		PlaybackPolicy: cfg.PlaybackPolicy,
		InboundFormat:  cfg.InboundFormat,
		InputGainDB:    cfg.InputGainDB,
		SilenceGate:    cfg.SilenceGate,
		Metadata: map[string]any{
			"client":    "voicebridge",
			"client_id": clientID,
		},
		Logger: logger,
		OnState: func(state core.ConnectionState) {
			logger.With(map[string]any{"state": state.String()}).Info("state changed")
			if state == core.StateDisconnected {
				cancel()
			}
		},
		OnStatus: func(status string) {
			logger.With(map[string]any{"status": status}).Info("status")
		},
		OnLevels: renderLevels,
	})
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build session")
	}

	sess.SetMuted(muted)

	if err := sess.Connect(ctx); err != nil {
		logger.With(map[string]any{"error": err}).Fatal("connection failed")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("shutting down")
		sess.Disconnect()
	case <-ctx.Done():
	}
}

const levelGlyphs = " .:-=+*#%@"

// renderLevels draws the energy histogram as a single rewritten terminal
// line.
func renderLevels(bars []float64) {
	var b strings.Builder
	b.WriteString("\r[")
	for _, level := range bars {
		idx := int(level * float64(len(levelGlyphs)))
		if idx >= len(levelGlyphs) {
			idx = len(levelGlyphs) - 1
		}
		b.WriteByte(levelGlyphs[idx])
	}
	b.WriteString("]")
	fmt.Fprint(os.Stderr, b.String())
}
