// Package orientation resolves EXIF orientation codes into the rotation and
// flips that bring the stored pixels upright.
package orientation

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Code is the value of the EXIF Orientation tag. The name gives the
// position of the 0th row and 0th column of the stored image.
type Code uint16

const (
	Unknown     Code = 0
	TopLeft     Code = 1
	TopRight    Code = 2
	BottomRight Code = 3
	BottomLeft  Code = 4
	LeftTop     Code = 5
	RightTop    Code = 6
	RightBottom Code = 7
	LeftBottom  Code = 8
)

var codeNames = [...]string{
	"Unknown", "TopLeft", "TopRight", "BottomRight", "BottomLeft",
	"LeftTop", "RightTop", "RightBottom", "LeftBottom",
}

// Codes returns every defined code in ascending order
func Codes() []Code {
	return []Code{Unknown, TopLeft, TopRight, BottomRight, BottomLeft, LeftTop, RightTop, RightBottom, LeftBottom}
}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("Code(%d)", uint16(c))
}

// Valid reports whether c is one of the defined codes
func (c Code) Valid() bool {
	return c <= LeftBottom
}

// Transform describes an orientation correction: a clockwise rotation
// followed by optional flips.
type Transform struct {
	Rotation       int
	FlipHorizontal bool
	FlipVertical   bool
}

// IsIdentity reports whether the transform leaves the image unchanged
func (t Transform) IsIdentity() bool {
	return t.Rotation == 0 && !t.FlipHorizontal && !t.FlipVertical
}

// SwapsAxes reports whether applying t exchanges width and height
func (t Transform) SwapsAxes() bool {
	return t.Rotation == 90 || t.Rotation == 270
}

// Resolve returns the correction for an orientation code. Unknown and
// undefined codes need no correction.
func Resolve(c Code) Transform {
	switch c {
	case TopRight:
		return Transform{FlipHorizontal: true}
	case BottomRight:
		return Transform{Rotation: 180}
	case BottomLeft:
		return Transform{Rotation: 180, FlipHorizontal: true}
	case LeftTop:
		return Transform{Rotation: 90, FlipHorizontal: true}
	case RightTop:
		return Transform{Rotation: 90}
	case RightBottom:
		return Transform{Rotation: 270, FlipHorizontal: true}
	case LeftBottom:
		return Transform{Rotation: 270}
	default:
		return Transform{}
	}
}

// Apply performs the transform. imaging rotates counter-clockwise, so a
// clockwise quarter turn is imaging's 270.
func Apply(img *image.NRGBA, t Transform) *image.NRGBA {
	switch t.Rotation {
	case 90:
		img = imaging.Rotate270(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate90(img)
	}
	if t.FlipHorizontal {
		img = imaging.FlipH(img)
	}
	if t.FlipVertical {
		img = imaging.FlipV(img)
	}
	return img
}

// FromEXIF reads the orientation tag from an encoded image. Images without
// EXIF data, or with an unreadable or undefined tag, report Unknown.
func FromEXIF(r io.Reader) Code {
	x, err := exif.Decode(r)
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return Unknown
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil || tag == nil || tag.Count == 0 {
		return Unknown
	}
	v, err := tag.Int(0)
	if err != nil || v < 0 || v > int(LeftBottom) {
		return Unknown
	}
	return Code(v)
}

// EXIF returns an APP1 payload whose only IFD0 entry is the orientation tag
func EXIF(c Code) []byte {
	var b bytes.Buffer
	b.WriteString("Exif\x00\x00")
	b.WriteString("MM\x00*")
	binary.Write(&b, binary.BigEndian, uint32(8)) // IFD0 offset
	binary.Write(&b, binary.BigEndian, uint16(1)) // entry count
	binary.Write(&b, binary.BigEndian, uint16(exifOrientationTag))
	binary.Write(&b, binary.BigEndian, uint16(3)) // SHORT
	binary.Write(&b, binary.BigEndian, uint32(1))
	binary.Write(&b, binary.BigEndian, uint16(c))
	binary.Write(&b, binary.BigEndian, uint16(0))
	binary.Write(&b, binary.BigEndian, uint32(0)) // no IFD1
	return b.Bytes()
}

const exifOrientationTag = 0x0112

// EmbedJPEG inserts an APP1 segment carrying c right after the start of
// image marker. Data that is not a JPEG is returned unchanged.
func EmbedJPEG(data []byte, c Code) []byte {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return data
	}
	payload := EXIF(c)
	out := make([]byte, 0, len(data)+len(payload)+4)
	out = append(out, data[:2]...)
	out = append(out, 0xFF, 0xE1)
	out = binary.BigEndian.AppendUint16(out, uint16(len(payload)+2))
	out = append(out, payload...)
	return append(out, data[2:]...)
}
