package main

import (
	"os"
	"strconv"
	"time"

	"voicebridge/audio"
	"voicebridge/playback"
)

// settings holds the env-driven client configuration.
type settings struct {
	Host              string
	Port              int
	Secure            bool
	HeartbeatInterval time.Duration
	LivenessTimeout   time.Duration
	PlaybackPolicy    playback.Policy
	InboundFormat     audio.PayloadFormat
	InputGainDB       float64
	SilenceGate       bool
	ForceMock         bool
}

func loadSettingsFromEnv() settings {
	return settings{
		Host:              getEnv("VOICEBRIDGE_HOST", "localhost"),
		Port:              getEnvAsInt("VOICEBRIDGE_PORT", 8000),
		Secure:            getEnvAsBool("VOICEBRIDGE_SECURE", false),
		HeartbeatInterval: getEnvAsDuration("VOICEBRIDGE_HEARTBEAT_INTERVAL", 30*time.Second),
		LivenessTimeout:   getEnvAsDuration("VOICEBRIDGE_LIVENESS_TIMEOUT", 0),
		PlaybackPolicy:    playback.Policy(getEnv("VOICEBRIDGE_PLAYBACK_POLICY", string(playback.PolicyOverlap))),
		InboundFormat:     audio.PayloadFormat(getEnv("VOICEBRIDGE_INBOUND_FORMAT", string(audio.FormatPCM16))),
		InputGainDB:       getEnvAsFloat("VOICEBRIDGE_INPUT_GAIN_DB", 0),
		SilenceGate:       getEnvAsBool("VOICEBRIDGE_SILENCE_GATE", false),
		ForceMock:         getEnvAsBool("VOICEBRIDGE_MOCK_SOURCE", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
