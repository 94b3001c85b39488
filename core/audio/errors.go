package audio

import "fmt"

// DeviceError reports a microphone or speaker that could not be opened,
// started, or stopped. It carries a message suitable for showing to the
// user; callers should surface it rather than retry.
type DeviceError struct {
	Device string // "microphone" or "speaker"
	Op     string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s unavailable (failed to %s): %v", e.Device, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
