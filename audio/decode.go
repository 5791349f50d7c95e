package audio

import (
	"fmt"

	"voicebridge/core"

	"github.com/zaf/g711"
)

// PayloadFormat names the encoding of inbound audio-response payloads.
type PayloadFormat string

const (
	FormatPCM16 PayloadFormat = "pcm16"
	FormatULaw  PayloadFormat = "ulaw"
	FormatALaw  PayloadFormat = "alaw"
)

// Decoder turns inbound wire payloads into 16-bit samples. The payload is
// opaque to the caller; the format is fixed per session.
type Decoder struct {
	format PayloadFormat
}

func NewDecoder(format PayloadFormat) (*Decoder, error) {
	switch format {
	case FormatPCM16, FormatULaw, FormatALaw:
		return &Decoder{format: format}, nil
	default:
		return nil, fmt.Errorf("audio: unsupported payload format %q", format)
	}
}

func (d *Decoder) Format() PayloadFormat { return d.format }

// Decode decodes one payload. Failures return a DecodeError; the payload
// is skipped, never retried.
func (d *Decoder) Decode(payload []byte) ([]int16, error) {
	if len(payload) == 0 {
		return nil, &core.DecodeError{
			Format: string(d.format),
			Err:    fmt.Errorf("empty payload"),
		}
	}
	switch d.format {
	case FormatPCM16:
		return UnmarshalPCM(payload)
	case FormatULaw:
		return UnmarshalPCM(g711.DecodeUlaw(payload))
	case FormatALaw:
		return UnmarshalPCM(g711.DecodeAlaw(payload))
	default:
		return nil, &core.DecodeError{
			Format: string(d.format),
			Err:    fmt.Errorf("unsupported format"),
		}
	}
}
