package models

import (
	"bytes"
	"fmt"
)

// Layer is one level of a decoded packet: either a *Decoded protocol layer
// or the Raw tail nothing could be made of.
type Layer interface {
	layer()
}

// Formatter converts a field value to its display text.
type Formatter interface {
	Format(v any) string
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(v any) string

func (f FormatterFunc) Format(v any) string { return f(v) }

// Plain formats values with their default %v form.
var Plain Formatter = FormatterFunc(func(v any) string { return fmt.Sprintf("%v", v) })

// Field declares one field of a layer type.
type Field struct {
	Name   string
	Format Formatter
}

// Decoded is a parsed protocol layer.
type Decoded struct {
	Name   string
	Fields []Field
	// Values holds the fields present in this instance.
	Values map[string]any
	// Overloaded holds values the payload layer implies for fields of this one.
	Overloaded map[string]any
	// Generic marks a layer converted from its structure without a field table.
	Generic bool
	Payload Layer
}

func (*Decoded) layer() {}

// Set stores a directly present field value.
func (d *Decoded) Set(name string, v any) {
	if d.Values == nil {
		d.Values = make(map[string]any)
	}
	d.Values[name] = v
}

// Overload stores a value supplied by the payload layer.
func (d *Decoded) Overload(name string, v any) {
	if d.Overloaded == nil {
		d.Overloaded = make(map[string]any)
	}
	d.Overloaded[name] = v
}

// Declares reports whether the layer type has a field called name.
func (d *Decoded) Declares(name string) bool {
	for _, f := range d.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Presence is the provenance of a field value.
type Presence int

const (
	Absent Presence = iota
	Direct
	Overlaid
)

func (p Presence) String() string {
	switch p {
	case Direct:
		return "direct"
	case Overlaid:
		return "overlaid"
	default:
		return "absent"
	}
}

// FieldPresence is the result of looking a field up in a layer.
type FieldPresence struct {
	Kind  Presence
	Value any
}

// Lookup resolves a field. Direct values win over overloaded ones.
func (d *Decoded) Lookup(name string) FieldPresence {
	if v, ok := d.Values[name]; ok {
		return FieldPresence{Kind: Direct, Value: v}
	}
	if v, ok := d.Overloaded[name]; ok {
		return FieldPresence{Kind: Overlaid, Value: v}
	}
	return FieldPresence{Kind: Absent}
}

// Raw is an undecoded byte tail.
type Raw []byte

func (Raw) layer() {}

// Lines splits the tail after every newline byte. Joining the lines gives
// back the tail.
func (r Raw) Lines() [][]byte {
	if len(r) == 0 {
		return nil
	}
	lines := bytes.SplitAfter(r, []byte{'\n'})
	if len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}
