package core

import "fmt"

// DeviceError reports a capture or output device that is unavailable or
// denied. Capture-side DeviceErrors are recovered locally by falling back
// to the mock source and are never fatal.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// ConnectionError reports a failed transport handshake or a network error
// during open. The session runs full cleanup and does not retry.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("transport: connect %q: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DecodeError reports an inbound audio payload that could not be decoded.
// The payload is skipped, not retried.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("audio: decode %s payload: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
