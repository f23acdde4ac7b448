package commands

import (
	"net/url"
	"strings"
)

// Command is a single named, unconverted request parameter
type Command struct {
	Name  string
	Value string
}

// NewCommand creates a command from a raw name/value pair
func NewCommand(name, value string) Command {
	return Command{Name: name, Value: value}
}

// Is reports whether the command carries the given name, ignoring case
func (c Command) Is(name string) bool {
	return strings.EqualFold(c.Name, name)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Collection is an ordered set of commands keyed by case-insensitive name.
// Adding a name that is already present replaces its value but keeps its position.
type Collection struct {
	items map[string]Command
	order []string
}

// NewCollection creates a collection holding the given commands
func NewCollection(cmds ...Command) *Collection {
	c := &Collection{items: make(map[string]Command, len(cmds))}
	for _, cmd := range cmds {
		c.Add(cmd)
	}
	return c
}

// ParseQuery builds a collection from a raw URL query string, preserving the
// order parameters appear in. Keys are lower-cased. Pairs that fail to unescape
// are skipped.
func ParseQuery(rawQuery string) *Collection {
	c := NewCollection()
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(key)
		if err != nil || strings.TrimSpace(key) == "" {
			continue
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			continue
		}
		c.Add(NewCommand(normalize(key), value))
	}
	return c
}

// Add inserts the command, overwriting any command with the same normalized name
func (c *Collection) Add(cmd Command) {
	if c.items == nil {
		c.items = make(map[string]Command)
	}
	key := normalize(cmd.Name)
	if _, exists := c.items[key]; !exists {
		c.order = append(c.order, key)
	}
	c.items[key] = cmd
}

// Get looks up a command by name, ignoring case
func (c *Collection) Get(name string) (Command, bool) {
	if c == nil {
		return Command{}, false
	}
	cmd, ok := c.items[normalize(name)]
	return cmd, ok
}

// Contains reports whether a command with the given name is present
func (c *Collection) Contains(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// First returns the first of names present in the collection, or names[0]
// when none is present. It is used to resolve command aliases.
func (c *Collection) First(names ...string) string {
	for _, name := range names {
		if c.Contains(name) {
			return name
		}
	}
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// Remove deletes the named command and reports whether it was present
func (c *Collection) Remove(name string) bool {
	if c == nil {
		return false
	}
	key := normalize(name)
	if _, ok := c.items[key]; !ok {
		return false
	}
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of commands
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// All returns the commands in insertion order
func (c *Collection) All() []Command {
	if c == nil {
		return nil
	}
	out := make([]Command, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.items[key])
	}
	return out
}

// Names returns the normalized command names in insertion order
func (c *Collection) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

// Clone returns an independent copy of the collection
func (c *Collection) Clone() *Collection {
	return NewCollection(c.All()...)
}

// String renders the collection as a query string with sorted keys, so two
// collections with the same commands always render identically.
func (c *Collection) String() string {
	values := url.Values{}
	for _, key := range c.Names() {
		values.Set(key, c.items[key].Value)
	}
	return values.Encode()
}
