package playback

import "fmt"

// PermissionState is the last known answer for the audio capture capability.
type PermissionState int32

const (
	PermissionUnknown PermissionState = iota
	PermissionGranted
	PermissionDenied
)

func (p PermissionState) String() string {
	switch p {
	case PermissionUnknown:
		return "unknown"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	}
	return fmt.Sprintf("permission(%d)", int32(p))
}

// ParsePermission is the inverse of PermissionState.String.
func ParsePermission(s string) (PermissionState, error) {
	switch s {
	case "", "unknown":
		return PermissionUnknown, nil
	case "granted":
		return PermissionGranted, nil
	case "denied":
		return PermissionDenied, nil
	}
	return PermissionUnknown, fmt.Errorf("unknown permission state %q", s)
}

// PermissionProvider asks the platform for the capability.
//
// RequestCapability must not block. The platform answers exactly once per
// request by calling Coordinator.PermissionResult.
type PermissionProvider interface {
	RequestCapability()
}

// ProviderFunc adapts a function to PermissionProvider.
type ProviderFunc func()

// RequestCapability calls f.
func (f ProviderFunc) RequestCapability() { f() }

// grant is a one-shot, single-consumer permission answer.
type grant chan bool

func newGrant() grant {
	return make(grant, 1)
}

// resolve delivers the answer. The buffer guarantees it never blocks.
func (g grant) resolve(granted bool) {
	g <- granted
}
