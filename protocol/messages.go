package protocol

// MessageType enumerates all control message types.
type MessageType string

const (
	// Client -> server
	MsgReady     MessageType = "ready"
	MsgPing      MessageType = "ping"
	MsgConfigure MessageType = "configure"
	MsgMeta      MessageType = "meta"

	// Server -> client
	MsgReadyAck      MessageType = "ready_ack"
	MsgPong          MessageType = "pong"
	MsgConfigUpdated MessageType = "config_updated"
	MsgError         MessageType = "error"
)

// Message is a control frame: a flat JSON object with a required `type`
// discriminator and type-specific fields. Binary audio never travels
// through Message; the wire distinguishes the two by frame type.
type Message struct {
	Type MessageType `json:"type"`
	// Message carries human-readable text for ready_ack, config_updated
	// and error.
	Message string `json:"message,omitempty"`
	// Timestamp accompanies ping and pong, seconds since the epoch.
	Timestamp float64 `json:"timestamp,omitempty"`
	// Config carries pipeline settings for configure.
	Config map[string]interface{} `json:"config,omitempty"`
	// Data carries session metadata for meta.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Ready builds the handshake message sent immediately after the transport
// opens.
func Ready() Message {
	return Message{Type: MsgReady}
}

// Ping builds a heartbeat message stamped with the given time in epoch
// seconds.
func Ping(epochSeconds float64) Message {
	return Message{Type: MsgPing, Timestamp: epochSeconds}
}

// Configure builds a configuration push for the remote pipeline.
func Configure(config map[string]interface{}) Message {
	return Message{Type: MsgConfigure, Config: config}
}

// Meta builds a session metadata message.
func Meta(data map[string]interface{}) Message {
	return Message{Type: MsgMeta, Data: data}
}
