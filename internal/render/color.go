// Package render turns blocks and decoded layers into colored text.
package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidColorSpec is returned for a color that is neither a palette
// index nor a compact base-6 code.
var ErrInvalidColorSpec = errors.New("invalid color spec")

const (
	escBold  = "\x1b[1m"
	escReset = "\x1b[0m"
)

// Color is an entry of the 256-color palette. The zero value means no color.
type Color struct {
	index int
	set   bool
}

// NoColor leaves the color unchanged.
var NoColor = Color{}

// Palette returns the palette entry n.
func Palette(n int) (Color, error) {
	if n < 0 {
		return NoColor, fmt.Errorf("%w: %d", ErrInvalidColorSpec, n)
	}
	return Color{index: n, set: true}, nil
}

// Code maps a compact code of up to three base-6 digits (red, green, blue,
// each 0-5) into the 6x6x6 cube of the palette.
func Code(s string) (Color, error) {
	if len(s) == 0 || len(s) > 3 {
		return NoColor, fmt.Errorf("%w: %q", ErrInvalidColorSpec, s)
	}
	v, err := strconv.ParseUint(s, 6, 16)
	if err != nil {
		return NoColor, fmt.Errorf("%w: %q", ErrInvalidColorSpec, s)
	}
	return Color{index: 16 + int(v), set: true}, nil
}

// MustCode is Code for static color tables.
func MustCode(s string) Color {
	c, err := Code(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Color) sgr(layer int) string {
	return fmt.Sprintf("\x1b[%d8;5;%dm", layer, c.index)
}

// Colorize wraps text in the escape sequences for the requested style.
func Colorize(text any, fg, bg Color, bold bool) string {
	var sb strings.Builder
	if bold {
		sb.WriteString(escBold)
	}
	if fg.set {
		sb.WriteString(fg.sgr(3))
	}
	if bg.set {
		sb.WriteString(bg.sgr(4))
	}
	sb.WriteString(display(text))
	sb.WriteString(escReset)
	return sb.String()
}

func display(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%#v", v)
	}
}

// Style is a reusable color combination.
type Style struct {
	FG   Color
	BG   Color
	Bold bool
}

// Painter applies styles, or returns text untouched when disabled.
type Painter struct {
	Enabled bool
}

// Paint renders text in style s.
func (p Painter) Paint(text any, s Style) string {
	if !p.Enabled {
		return display(text)
	}
	return Colorize(text, s.FG, s.BG, s.Bold)
}
