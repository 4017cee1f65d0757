//go:build headless

package synth

// NewDeviceOutput returns Discard; headless builds carry no audio backend.
func NewDeviceOutput(sampleRate int) (Output, error) {
	return Discard, nil
}
