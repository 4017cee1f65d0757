package engine

// ID identifies one live native engine instance.
type ID uint64

// TouchData is the per-slot touch sample pushed to the engine.
// Shape axes the input device does not report are zero.
type TouchData struct {
	Slot        int     `json:"slot"`
	ID          int     `json:"id"`
	X           float32 `json:"x"`
	Y           float32 `json:"y"`
	Pressure    float32 `json:"pressure"`
	MajorAxis   float32 `json:"major_axis,omitempty"`
	MinorAxis   float32 `json:"minor_axis,omitempty"`
	Orientation float32 `json:"orientation,omitempty"`
	MajorWidth  float32 `json:"major_width,omitempty"`
	MinorWidth  float32 `json:"minor_width,omitempty"`
}

// Native is the capability exposed by the synthesis engine.
//
// Every method except Create requires a live ID. Handle guarantees that
// precondition; callers should never use a Native directly.
type Native interface {
	Create() (ID, error)
	Destroy(id ID) error

	Start(id ID) error
	Stop(id ID) error
	IsPlaying(id ID) (bool, error)

	SetParameter(id ID, index int, value float32) error

	TouchUpdate(id ID, t TouchData) error
	TouchClear(id ID, slot int) error
	Hover(id ID, slot int, x, y float32) error
	SetScreenSize(id ID, width, height float32) error
	SetAnyTouch(id ID, touching bool) error
}
