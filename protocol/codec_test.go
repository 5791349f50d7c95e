package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalReady(t *testing.T) {
	data, err := Marshal(Ready())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ready"}`, string(data))
}

func TestMarshalPingCarriesTimestamp(t *testing.T) {
	data, err := Marshal(Ping(1234.5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ping","timestamp":1234.5}`, string(data))
}

func TestMarshalMissingType(t *testing.T) {
	_, err := Marshal(Message{Message: "no type"})
	assert.Error(t, err)
}

func TestUnmarshalError(t *testing.T) {
	msg, err := Unmarshal([]byte(`{"type":"error","message":"pipeline exploded"}`))
	require.NoError(t, err)
	assert.Equal(t, MsgError, msg.Type)
	assert.Equal(t, "pipeline exploded", msg.Message)
}

func TestUnmarshalUnknownTypePasses(t *testing.T) {
	// Unknown types must parse; the session logs and ignores them.
	msg, err := Unmarshal([]byte(`{"type":"foo"}`))
	require.NoError(t, err)
	assert.Equal(t, MessageType("foo"), msg.Type)
}

func TestUnmarshalMissingType(t *testing.T) {
	_, err := Unmarshal([]byte(`{"message":"untagged"}`))
	assert.Error(t, err)
}

func TestUnmarshalInvalidJSON(t *testing.T) {
	_, err := Unmarshal([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestConfigureRoundTrip(t *testing.T) {
	data, err := Marshal(Configure(map[string]interface{}{"voice": "alloy"}))
	require.NoError(t, err)
	msg, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, MsgConfigure, msg.Type)
	assert.Equal(t, "alloy", msg.Config["voice"])
}
