package synth

import "github.com/roach88/padsynth/internal/slots"

// Control input layout, as consumed by render code: the button channels,
// then the AnyTouch flag, then one block of slots.MaxSlots values per
// multi-touch channel.
const (
	ChannelPower = iota
	ChannelVolumeUp
	ChannelVolumeDown

	ButtonChannels
)

// Multi-touch channels, in layout order.
const (
	ChannelX = iota
	ChannelY
	ChannelMajorAxis
	ChannelMinorAxis
	ChannelOrientation
	ChannelHoverX
	ChannelHoverY
	ChannelMajorWidth
	ChannelMinorWidth
	ChannelPressure
	ChannelID

	TouchChannels
)

// PressureScale converts pressure in [0,1] to its integer channel value.
const PressureScale = 1000

// ControlInputsLen is the length of the slice returned by ControlInputs.
const ControlInputsLen = ButtonChannels + 1 + TouchChannels*slots.MaxSlots

// AnyTouchIndex is the position of the AnyTouch flag.
const AnyTouchIndex = ButtonChannels

// TouchIndex returns the position of channel ch for slot.
func TouchIndex(ch, slot int) int {
	return AnyTouchIndex + 1 + ch*slots.MaxSlots + slot
}

// ControlInputs returns the instance's control input frame. Values are
// truncated to integers; buttons always read 0.
func (in *Instance) ControlInputs() []int32 {
	st := in.Snapshot()

	out := make([]int32, ControlInputsLen)
	if st.AnyTouch {
		out[AnyTouchIndex] = 1
	}
	for slot, t := range st.Touches {
		out[TouchIndex(ChannelX, slot)] = int32(t.X)
		out[TouchIndex(ChannelY, slot)] = int32(t.Y)
		out[TouchIndex(ChannelMajorAxis, slot)] = int32(t.MajorAxis)
		out[TouchIndex(ChannelMinorAxis, slot)] = int32(t.MinorAxis)
		out[TouchIndex(ChannelOrientation, slot)] = int32(t.Orientation)
		out[TouchIndex(ChannelHoverX, slot)] = int32(st.Hover[slot][0])
		out[TouchIndex(ChannelHoverY, slot)] = int32(st.Hover[slot][1])
		out[TouchIndex(ChannelMajorWidth, slot)] = int32(t.MajorWidth)
		out[TouchIndex(ChannelMinorWidth, slot)] = int32(t.MinorWidth)
		out[TouchIndex(ChannelPressure, slot)] = int32(t.Pressure * PressureScale)
		out[TouchIndex(ChannelID, slot)] = int32(t.ID)
	}
	return out
}
