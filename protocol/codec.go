package protocol

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Marshal encodes a control message as a JSON text frame.
func Marshal(msg Message) ([]byte, error) {
	if msg.Type == "" {
		return nil, fmt.Errorf("protocol: marshal message missing type field")
	}
	data, err := sonic.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %q: %w", msg.Type, err)
	}
	return data, nil
}

// Unmarshal parses an inbound JSON text frame. Unknown type values parse
// successfully; deciding what to do with them is the caller's concern.
func Unmarshal(data []byte) (Message, error) {
	var msg Message
	if err := sonic.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("protocol: unmarshal message: %w", err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("protocol: message missing type field")
	}
	return msg, nil
}
