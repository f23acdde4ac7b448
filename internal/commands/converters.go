package commands

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Converter turns a raw command value into a value of one semantic kind
type Converter interface {
	Kind() Kind
	Convert(raw string, culture Culture, t Type) (any, error)
}

// ArraySeparator delimits the elements of array values
const ArraySeparator = ","

// UintConverter parses unsigned integral values. Fractions are rounded half
// away from zero; negative and out of range values are rejected.
type UintConverter struct{}

func (UintConverter) Kind() Kind { return KindUint }

func (UintConverter) Convert(raw string, culture Culture, t Type) (any, error) {
	v, err := culture.ParseFloat(raw)
	if err != nil {
		return nil, formatError(raw, t, err)
	}
	if v < 0 || math.Signbit(v) || math.IsNaN(v) {
		return nil, formatError(raw, t, errors.New("out of range"))
	}
	v = math.Round(v)
	if v > math.MaxUint32 {
		return nil, formatError(raw, t, errors.New("out of range"))
	}
	return uint(v), nil
}

// FloatConverter parses a single floating point value
type FloatConverter struct{}

func (FloatConverter) Kind() Kind { return KindFloat }

func (FloatConverter) Convert(raw string, culture Culture, t Type) (any, error) {
	v, err := culture.ParseFloat(raw)
	if err != nil {
		return nil, formatError(raw, t, err)
	}
	return v, nil
}

// BoolConverter parses true/false, ignoring case
type BoolConverter struct{}

func (BoolConverter) Kind() Kind { return KindBool }

func (BoolConverter) Convert(raw string, _ Culture, t Type) (any, error) {
	v, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return nil, formatError(raw, t, err)
	}
	return v, nil
}

// FloatArrayConverter parses a comma separated list of floats. Every element
// must parse; an empty value yields an empty slice. Elements are converted by
// the float converter of Elements, which Registry.Register binds to the
// registry the array converter is added to. A nil Elements falls back to
// DefaultRegistry.
type FloatArrayConverter struct {
	Elements *Registry
}

func (FloatArrayConverter) Kind() Kind { return KindFloatArray }

func (c FloatArrayConverter) Convert(raw string, culture Culture, t Type) (any, error) {
	if strings.TrimSpace(raw) == "" {
		return []float64{}, nil
	}
	elements := c.Elements
	if elements == nil {
		elements = DefaultRegistry()
	}
	element, err := elements.Resolve(TypeFloat)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(raw, ArraySeparator)
	out := make([]float64, 0, len(parts))
	for i, part := range parts {
		v, err := element.Convert(strings.TrimSpace(part), culture, TypeFloat)
		if err != nil {
			return nil, formatError(raw, t, fmt.Errorf("element %d: %w", i, err))
		}
		f, ok := v.(float64)
		if !ok {
			return nil, formatError(raw, t, fmt.Errorf("element %d: converter returned %T", i, v))
		}
		out = append(out, f)
	}
	return out, nil
}

// EnumConverter matches member names of the requested enum, ignoring case
type EnumConverter struct{}

func (EnumConverter) Kind() Kind { return KindEnum }

func (EnumConverter) Convert(raw string, _ Culture, t Type) (any, error) {
	if t.Enum == nil {
		return nil, formatError(raw, t, errors.New("enum table missing"))
	}
	v, ok := t.Enum.Lookup(raw)
	if !ok {
		return nil, formatError(raw, t, fmt.Errorf("expected one of %s", strings.Join(t.Enum.Names(), ", ")))
	}
	return v, nil
}

// ColorConverter parses hex ("#rgb", "rrggbb", "#rrggbbaa"), component lists
// ("r,g,b" or "r,g,b,a") and CSS color names.
type ColorConverter struct {
	component UintConverter
}

func (ColorConverter) Kind() Kind { return KindColor }

func (c ColorConverter) Convert(raw string, culture Culture, t Type) (any, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil, formatError(raw, t, errors.New("empty color"))
	}
	if s == "transparent" {
		return color.NRGBA{}, nil
	}
	if rgba, ok := colornames.Map[s]; ok {
		return color.NRGBAModel.Convert(rgba).(color.NRGBA), nil
	}
	if strings.Contains(s, ArraySeparator) {
		return c.components(s, culture, t)
	}
	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	case 8:
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return nil, formatError(raw, t, err)
		}
		col, err := fromHex(hex[:6])
		if err != nil {
			return nil, formatError(raw, t, err)
		}
		col.A = uint8(a)
		return col, nil
	default:
		return nil, formatError(raw, t, errors.New("unknown color format"))
	}
	col, err := fromHex(hex)
	if err != nil {
		return nil, formatError(raw, t, err)
	}
	return col, nil
}

func (c ColorConverter) components(s string, culture Culture, t Type) (any, error) {
	parts := strings.Split(s, ArraySeparator)
	if len(parts) != 3 && len(parts) != 4 {
		return nil, formatError(s, t, errors.New("expected r,g,b or r,g,b,a"))
	}
	rgba := [4]uint8{0, 0, 0, 0xFF}
	for i, part := range parts {
		v, err := c.component.Convert(part, culture, TypeUint)
		if err != nil {
			return nil, formatError(s, t, err)
		}
		if v.(uint) > 0xFF {
			return nil, formatError(s, t, fmt.Errorf("component %d out of range", i))
		}
		rgba[i] = uint8(v.(uint))
	}
	return color.NRGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}, nil
}

func fromHex(hex string) (color.NRGBA, error) {
	col, err := colorful.Hex("#" + hex)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := col.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xFF}, nil
}
