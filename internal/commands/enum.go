package commands

import "strings"

// EnumType is a closed set of named members that the enum converter can match
type EnumType interface {
	TypeName() string
	Names() []string
	Lookup(name string) (any, bool)
}

// Enum maps member names to values of T, ignoring case. Tables are built once
// at package initialization and are read-only afterwards.
type Enum[T comparable] struct {
	name   string
	names  []string
	byName map[string]T
}

// NewEnum builds an enum table from its members, naming each with nameOf
func NewEnum[T comparable](typeName string, members []T, nameOf func(T) string) *Enum[T] {
	e := &Enum[T]{
		name:   typeName,
		names:  make([]string, 0, len(members)),
		byName: make(map[string]T, len(members)),
	}
	for _, m := range members {
		name := nameOf(m)
		e.names = append(e.names, name)
		e.byName[strings.ToLower(name)] = m
	}
	return e
}

// Alias registers an additional accepted name for a member. It must only be
// called while building the table.
func (e *Enum[T]) Alias(alias string, value T) *Enum[T] {
	e.byName[strings.ToLower(alias)] = value
	return e
}

// TypeName returns the enum's display name
func (e *Enum[T]) TypeName() string {
	return e.name
}

// Names returns the canonical member names in declaration order
func (e *Enum[T]) Names() []string {
	return append([]string(nil), e.names...)
}

// Parse looks up a member by name, ignoring case and surrounding whitespace
func (e *Enum[T]) Parse(name string) (T, bool) {
	v, ok := e.byName[strings.ToLower(strings.TrimSpace(name))]
	return v, ok
}

// Lookup implements EnumType
func (e *Enum[T]) Lookup(name string) (any, bool) {
	v, ok := e.Parse(name)
	if !ok {
		return nil, false
	}
	return v, true
}
