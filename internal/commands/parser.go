package commands

import (
	"image/color"
	"log/slog"
)

// Parser reads typed values out of a command collection. Absent commands and
// values that fail to convert both yield the caller's default: a malformed
// URL parameter degrades the request instead of rejecting it.
type Parser struct {
	registry *Registry
	logger   *slog.Logger
}

// NewParser creates a parser over the given registry. A nil logger discards output.
func NewParser(registry *Registry, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Parser{registry: registry, logger: logger}
}

// Registry returns the registry the parser resolves converters from
func (p *Parser) Registry() *Registry {
	return p.registry
}

// Convert resolves the converter for t and converts raw, surfacing errors
func (p *Parser) Convert(raw string, t Type, culture Culture) (any, error) {
	c, err := p.registry.Resolve(t)
	if err != nil {
		return nil, err
	}
	return c.Convert(raw, culture, t)
}

// Value returns the converted value of the named command, or def
func (p *Parser) Value(commands *Collection, name string, t Type, def any, culture Culture) any {
	cmd, ok := commands.Get(name)
	if !ok {
		return def
	}
	v, err := p.Convert(cmd.Value, t, culture)
	if err != nil {
		p.logger.Debug("command ignored", "command", name, "value", cmd.Value, "error", err)
		return def
	}
	return v
}

// GetValue is the typed form of Parser.Value. A converter producing a value
// of another type also yields def.
func GetValue[T any](p *Parser, commands *Collection, name string, t Type, def T, culture Culture) T {
	v, ok := p.Value(commands, name, t, def, culture).(T)
	if !ok {
		return def
	}
	return v
}

// EnumValue reads an enum member by name
func EnumValue[T comparable](p *Parser, commands *Collection, name string, e *Enum[T], def T, culture Culture) T {
	return GetValue(p, commands, name, EnumOf(e), def, culture)
}

func (p *Parser) Uint(commands *Collection, name string, def uint, culture Culture) uint {
	return GetValue(p, commands, name, TypeUint, def, culture)
}

func (p *Parser) Float(commands *Collection, name string, def float64, culture Culture) float64 {
	return GetValue(p, commands, name, TypeFloat, def, culture)
}

func (p *Parser) Bool(commands *Collection, name string, def bool, culture Culture) bool {
	return GetValue(p, commands, name, TypeBool, def, culture)
}

func (p *Parser) FloatArray(commands *Collection, name string, def []float64, culture Culture) []float64 {
	return GetValue(p, commands, name, TypeFloatArray, def, culture)
}

func (p *Parser) Color(commands *Collection, name string, def color.NRGBA, culture Culture) color.NRGBA {
	return GetValue(p, commands, name, TypeColor, def, culture)
}
