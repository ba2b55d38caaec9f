package render

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcaptree/internal/models"
)

func TestCodeMapsBase6IntoPalette(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"0", 16},
		{"001", 17},
		{"555", 231},
		{"501", 16 + 5*36 + 1},
		{"10", 22},
	}
	for _, tt := range tests {
		c, err := Code(tt.code)
		require.NoError(t, err, tt.code)
		assert.True(t, c.set)
		assert.Equal(t, tt.want, c.index, tt.code)
	}
}

func TestCodeRejectsInvalidSpecs(t *testing.T) {
	for _, code := range []string{"", "1234", "6", "ab", "-1"} {
		_, err := Code(code)
		assert.True(t, errors.Is(err, ErrInvalidColorSpec), "code %q", code)
	}
	_, err := Palette(-3)
	assert.ErrorIs(t, err, ErrInvalidColorSpec)
	assert.Panics(t, func() { MustCode("999") })
}

func TestColorize(t *testing.T) {
	fg, err := Palette(196)
	require.NoError(t, err)
	bg := MustCode("001")

	got := Colorize("hi", fg, bg, true)
	assert.Equal(t, "\x1b[1m\x1b[38;5;196m\x1b[48;5;17mhi\x1b[0m", got)

	assert.Equal(t, "plain\x1b[0m", Colorize("plain", NoColor, NoColor, false))
	assert.Equal(t, "42\x1b[0m", Colorize(42, NoColor, NoColor, false))
	assert.Equal(t, "\x1b[38;5;17m"+`"q"`+"\x1b[0m", Colorize(fmt.Sprintf("%q", "q"), bg, NoColor, false))
}

func TestPainterDisabled(t *testing.T) {
	p := Painter{}
	assert.Equal(t, "text", p.Paint("text", StyleBadge))
	assert.Equal(t, "7", p.Paint(7, StyleBadge))

	p.Enabled = true
	assert.Equal(t, Colorize("text", StyleBadge.FG, StyleBadge.BG, false), p.Paint("text", StyleBadge))
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", "hello world"},
		{`a\b`, `a\\b`},
		{"line\r\n", "line\r\n"},
		{"nul\x00", `nul\x00`},
		{"\x1b[0m", `\x1b[0m`},
		{"tab\t", `tab\x09`},
		{"\x7f", `\x7f`},
		{"é", `\xe9`},
		{"\xff", `\xff`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), "input %q", tt.in)
	}
}

func TestEscapeIsIdentityOnPrintableASCII(t *testing.T) {
	var sb strings.Builder
	for c := 32; c <= 126; c++ {
		if c != '\\' {
			sb.WriteByte(byte(c))
		}
	}
	assert.Equal(t, sb.String(), Escape(sb.String()))
}

func TestOptionsEmpty(t *testing.T) {
	r := NewRenderer(Painter{}, DefaultIndent)
	assert.Empty(t, r.Options(nil))
	assert.Empty(t, r.Options(models.NewOptions()))
}

func TestOptionsTokens(t *testing.T) {
	opts := models.NewOptions()
	opts.Add("opt_comment", "first")
	opts.Add("flags", "inbound")
	opts.Add("opt_comment", "second\x01")

	r := NewRenderer(Painter{}, DefaultIndent)
	tokens := r.Options(opts)
	assert.Equal(t, []string{
		"--",
		"opt_comment:", "first",
		"opt_comment:", `second\x01`,
		"flags:", "inbound",
	}, tokens)

	colored := NewRenderer(Painter{Enabled: true}, DefaultIndent).Options(opts)
	require.Len(t, colored, 7)
	assert.Equal(t, OptionSeparator, colored[0])
	assert.Equal(t, Colorize("flags:", StyleOptionKey.FG, NoColor, true), colored[5])
}

func ipv4Layer() *models.Decoded {
	return &models.Decoded{
		Name: "IPv4",
		Fields: []models.Field{
			{Name: "ttl", Format: models.Plain},
			{Name: "proto", Format: models.FormatterFunc(func(v any) string { return fmt.Sprintf("proto%v", v) })},
			{Name: "options", Format: models.Plain},
		},
		Values: map[string]any{"ttl": 64},
	}
}

func TestLayerSkipsAbsentFields(t *testing.T) {
	r := NewRenderer(Painter{}, DefaultIndent)
	lines := r.Lines(ipv4Layer())
	assert.Equal(t, []string{"IPv4 ttl=64"}, lines)
}

func TestLayerOverloadedAndPrecedence(t *testing.T) {
	r := NewRenderer(Painter{}, DefaultIndent)

	l := ipv4Layer()
	l.Overload("proto", 17)
	assert.Equal(t, []string{"IPv4 ttl=64 proto=proto17"}, r.Lines(l))

	l.Set("proto", 6)
	assert.Equal(t, []string{"IPv4 ttl=64 proto=proto6"}, r.Lines(l))
}

func TestLayerBytesBecomeHex(t *testing.T) {
	r := NewRenderer(Painter{}, DefaultIndent)
	l := ipv4Layer()
	l.Set("options", []byte{0x01, 0xab})
	assert.Equal(t, []string{"IPv4 ttl=64 options=01ab"}, r.Lines(l))

	// overlaid byte slices still go through the formatter
	l = ipv4Layer()
	l.Overload("options", []byte{0x01})
	assert.Equal(t, []string{"IPv4 ttl=64 options=[1]"}, r.Lines(l))
}

func TestLayerChainIndentation(t *testing.T) {
	chain := &models.Decoded{
		Name:   "Ethernet",
		Fields: []models.Field{{Name: "type", Format: models.Plain}},
		Values: map[string]any{"type": "IPv4"},
		Payload: &models.Decoded{
			Name:    "UDP",
			Payload: models.Raw("abc"),
		},
	}
	r := NewRenderer(Painter{}, DefaultIndent)
	lines := r.Lines(chain)
	require.Len(t, lines, 3)
	assert.Equal(t, "Ethernet type=IPv4", lines[0])
	assert.Equal(t, "    UDP", lines[1])
	assert.Equal(t, "        616263", lines[2])
}

func TestLayerRawSplitsOnNewlines(t *testing.T) {
	chain := &models.Decoded{Name: "TCP", Payload: models.Raw("GET /\r\nHost: x\r\n")}
	r := NewRenderer(Painter{}, 2)
	assert.Equal(t, []string{
		"TCP",
		"  474554202f0d0a",
		"  486f73743a20780d0a",
	}, r.Lines(chain))

	assert.Equal(t, []string{"TCP"}, r.Lines(&models.Decoded{Name: "TCP", Payload: models.Raw(nil)}))
}

func TestLayerSequenceIsRestartableAndStoppable(t *testing.T) {
	chain := &models.Decoded{Name: "A", Payload: &models.Decoded{Name: "B", Payload: models.Raw{0xff}}}
	r := NewRenderer(Painter{}, DefaultIndent)
	seq := r.Layer(chain)

	var first, second []string
	for line := range seq {
		first = append(first, line)
	}
	for line := range seq {
		second = append(second, line)
		break
	}
	assert.Equal(t, []string{"A", "    B", "        ff"}, first)
	assert.Equal(t, []string{"A"}, second)
}

func TestLayerColored(t *testing.T) {
	r := NewRenderer(Painter{Enabled: true}, DefaultIndent)
	lines := r.Lines(ipv4Layer())
	want := Colorize("IPv4", StyleLayerName.FG, NoColor, false) + " " +
		Colorize("ttl", StyleFieldName.FG, NoColor, false) + "=" +
		Colorize("64", StyleFieldValue.FG, NoColor, false)
	assert.Equal(t, []string{want}, lines)
}

func TestLayerNil(t *testing.T) {
	r := NewRenderer(Painter{}, DefaultIndent)
	assert.Empty(t, r.Lines(nil))
	var d *models.Decoded
	assert.Empty(t, r.Lines(d))
}
