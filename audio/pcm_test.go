package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebridge/core"
)

func TestEncodeFrameClamps(t *testing.T) {
	out := EncodeFrame([]float32{1.5, -1.5, 0.0, 1.0, -1.0})
	assert.Equal(t, int16(32767), out[0])
	assert.Equal(t, int16(-32768), out[1])
	assert.Equal(t, int16(0), out[2])
	assert.Equal(t, int16(32767), out[3]) // 1.0*32768 clamps to max
	assert.Equal(t, int16(-32768), out[4])
}

func TestEncodeFrameRounds(t *testing.T) {
	out := EncodeFrame([]float32{0.5})
	assert.Equal(t, int16(16384), out[0])
}

func TestMarshalPCMLittleEndian(t *testing.T) {
	data := MarshalPCM([]int16{0x0102, -2})
	assert.Equal(t, []byte{0x02, 0x01, 0xfe, 0xff}, data)
}

func TestUnmarshalPCMOddLength(t *testing.T) {
	_, err := UnmarshalPCM([]byte{0x00, 0x01, 0x02})
	var decErr *core.DecodeError
	assert.ErrorAs(t, err, &decErr)
}

func TestDecoderPCM16(t *testing.T) {
	dec, err := NewDecoder(FormatPCM16)
	require.NoError(t, err)
	samples, err := dec.Decode([]byte{0x02, 0x01, 0xfe, 0xff})
	require.NoError(t, err)
	assert.Equal(t, []int16{0x0102, -2}, samples)
}

func TestDecoderEmptyPayload(t *testing.T) {
	dec, _ := NewDecoder(FormatPCM16)
	_, err := dec.Decode(nil)
	var decErr *core.DecodeError
	assert.ErrorAs(t, err, &decErr)
}

func TestDecoderULaw(t *testing.T) {
	dec, err := NewDecoder(FormatULaw)
	require.NoError(t, err)
	// 0xff is µ-law for (near) zero; one input byte yields one sample.
	samples, err := dec.Decode([]byte{0xff, 0xff, 0xff, 0xff})
	require.NoError(t, err)
	assert.Len(t, samples, 4)
}

func TestDecoderUnknownFormat(t *testing.T) {
	_, err := NewDecoder(PayloadFormat("opus"))
	assert.Error(t, err)
}
