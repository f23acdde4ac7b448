package commands

import "fmt"

// Kind identifies the semantic type a converter produces
type Kind int

const (
	KindUint Kind = iota + 1
	KindFloat
	KindBool
	KindFloatArray
	KindEnum
	KindColor
)

func (k Kind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindFloatArray:
		return "float[]"
	case KindEnum:
		return "enum"
	case KindColor:
		return "color"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Type is the conversion target requested from the parser. Enum types carry
// the member table used for name lookup.
type Type struct {
	Kind Kind
	Enum EnumType
}

// Converted values are uint, float64, bool, []float64, the enum's member type
// and color.NRGBA respectively.
var (
	TypeUint       = Type{Kind: KindUint}
	TypeFloat      = Type{Kind: KindFloat}
	TypeBool       = Type{Kind: KindBool}
	TypeFloatArray = Type{Kind: KindFloatArray}
	TypeColor      = Type{Kind: KindColor}
)

// EnumOf returns the conversion type for an enum table
func EnumOf(e EnumType) Type {
	return Type{Kind: KindEnum, Enum: e}
}

func (t Type) String() string {
	if t.Kind == KindEnum && t.Enum != nil {
		return "enum(" + t.Enum.TypeName() + ")"
	}
	return t.Kind.String()
}
