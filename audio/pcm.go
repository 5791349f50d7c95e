package audio

import (
	"encoding/binary"
	"fmt"
	"math"

	"voicebridge/core"
)

// PCM constants
const (
	pcmMax = 32767  // Max 16-bit PCM value
	pcmMin = -32768 // Min 16-bit PCM value
)

// EncodeFrame quantizes normalized samples to 16-bit PCM:
// sample16 = clamp(round(sample * 32768), -32768, 32767). The transform is
// lossy and one-way.
func EncodeFrame(frame []float32) []int16 {
	out := make([]int16, len(frame))
	for i, s := range frame {
		v := math.Round(float64(s) * 32768)
		if v > pcmMax {
			v = pcmMax
		} else if v < pcmMin {
			v = pcmMin
		}
		out[i] = int16(v)
	}
	return out
}

// MarshalPCM serializes samples as little-endian bytes for the wire.
func MarshalPCM(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// UnmarshalPCM parses little-endian 16-bit PCM bytes into samples.
func UnmarshalPCM(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, &core.DecodeError{
			Format: "pcm16",
			Err:    fmt.Errorf("odd payload length %d", len(data)),
		}
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples, nil
}
