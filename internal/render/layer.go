package render

import (
	"encoding/hex"
	"iter"
	"strings"

	"pcaptree/internal/models"
)

// DefaultIndent is the indent unit of one nesting level.
const DefaultIndent = 4

// Renderer renders option sets and layer chains.
type Renderer struct {
	painter Painter
	indent  string
}

// NewRenderer returns a renderer that nests layers by indent spaces.
func NewRenderer(p Painter, indent int) *Renderer {
	if indent < 0 {
		indent = DefaultIndent
	}
	return &Renderer{painter: p, indent: strings.Repeat(" ", indent)}
}

// Painter returns the painter used by the renderer.
func (r *Renderer) Painter() Painter { return r.painter }

// Indent returns one indent unit.
func (r *Renderer) Indent() string { return r.indent }

// Layer yields one line per layer of the chain starting at l. Every level
// of nesting adds one indent unit in front of the lines of the level below.
// The sequence can be ranged over any number of times.
func (r *Renderer) Layer(l models.Layer) iter.Seq[string] {
	return func(yield func(string) bool) {
		switch t := l.(type) {
		case *models.Decoded:
			if t == nil {
				return
			}
			if !yield(r.header(t)) {
				return
			}
			if t.Payload == nil {
				return
			}
			for line := range r.Layer(t.Payload) {
				if !yield(r.indent + line) {
					return
				}
			}
		case models.Raw:
			for _, line := range t.Lines() {
				if !yield(hex.EncodeToString(line)) {
					return
				}
			}
		}
	}
}

// Lines collects the lines of a chain.
func (r *Renderer) Lines(l models.Layer) []string {
	var lines []string
	for line := range r.Layer(l) {
		lines = append(lines, line)
	}
	return lines
}

func (r *Renderer) header(d *models.Decoded) string {
	tokens := []string{r.painter.Paint(d.Name, StyleLayerName)}
	for _, f := range d.Fields {
		p := d.Lookup(f.Name)
		if p.Kind == models.Absent {
			continue
		}
		tokens = append(tokens, r.painter.Paint(f.Name, StyleFieldName)+"="+
			r.painter.Paint(FieldValue(f, p), StyleFieldValue))
	}
	return strings.Join(tokens, " ")
}

// FieldValue returns the display text of a present field. Byte slices set
// directly on the layer are shown as hex, everything else goes through the
// field's formatter.
func FieldValue(f models.Field, p models.FieldPresence) string {
	if p.Kind == models.Direct {
		if b, ok := p.Value.([]byte); ok {
			return hex.EncodeToString(b)
		}
	}
	format := f.Format
	if format == nil {
		format = models.Plain
	}
	return format.Format(p.Value)
}
