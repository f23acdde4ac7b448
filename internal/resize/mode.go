package resize

// Mode decides how a source aspect ratio is reconciled with the requested size
type Mode int

const (
	// Crop fills the requested size and trims the overflow around the anchor
	Crop Mode = iota
	// Pad fits the image inside the requested size and pads the remainder
	Pad
	// BoxPad pads without scaling when the image already fits, otherwise acts as Pad
	BoxPad
	// Max fits the image inside the requested size; the output may be smaller on one axis
	Max
	// Min scales until the shortest side reaches the requested size and never upscales
	Min
	// Stretch ignores the aspect ratio
	Stretch
)

// Modes returns every mode in declaration order
func Modes() []Mode {
	return []Mode{Crop, Pad, BoxPad, Max, Min, Stretch}
}

func (m Mode) String() string {
	switch m {
	case Crop:
		return "Crop"
	case Pad:
		return "Pad"
	case BoxPad:
		return "BoxPad"
	case Max:
		return "Max"
	case Min:
		return "Min"
	case Stretch:
		return "Stretch"
	default:
		return "Mode(?)"
	}
}

// Anchor positions the image on the canvas for Crop, Pad and BoxPad
type Anchor int

const (
	Center Anchor = iota
	Top
	Bottom
	Left
	Right
	TopLeft
	TopRight
	BottomLeft
	BottomRight
)

// Anchors returns every anchor position in declaration order
func Anchors() []Anchor {
	return []Anchor{Center, Top, Bottom, Left, Right, TopLeft, TopRight, BottomLeft, BottomRight}
}

func (a Anchor) String() string {
	switch a {
	case Center:
		return "Center"
	case Top:
		return "Top"
	case Bottom:
		return "Bottom"
	case Left:
		return "Left"
	case Right:
		return "Right"
	case TopLeft:
		return "TopLeft"
	case TopRight:
		return "TopRight"
	case BottomLeft:
		return "BottomLeft"
	case BottomRight:
		return "BottomRight"
	default:
		return "Anchor(?)"
	}
}

type align int

const (
	alignStart align = iota
	alignCenter
	alignEnd
)

// split returns the horizontal and vertical alignment of the anchor
func (a Anchor) split() (h, v align) {
	switch a {
	case Top:
		return alignCenter, alignStart
	case Bottom:
		return alignCenter, alignEnd
	case Left:
		return alignStart, alignCenter
	case Right:
		return alignEnd, alignCenter
	case TopLeft:
		return alignStart, alignStart
	case TopRight:
		return alignEnd, alignStart
	case BottomLeft:
		return alignStart, alignEnd
	case BottomRight:
		return alignEnd, alignEnd
	default:
		return alignCenter, alignCenter
	}
}
