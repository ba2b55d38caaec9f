package engine

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"pcaptree/internal/models"
	"pcaptree/internal/render"
)

const timestampLayout = "2006-01-02 15:04:05"

// unsupportedNotice is printed instead of the layer tree for framings the
// dissector is not asked to decode.
var unsupportedNotice = []string{
	"        Printing information for non-ethernet packets",
	"        is not supported yet.",
}

// Dissector decodes a captured frame into a layer chain.
type Dissector interface {
	Dissect(data []byte, link models.LinkType) models.Layer
}

// Presenter renders one packet block: a metadata line followed by the
// layer tree of the frame.
type Presenter struct {
	r  *render.Renderer
	ds Dissector
}

// NewPresenter creates a Presenter.
func NewPresenter(r *render.Renderer, ds Dissector) *Presenter {
	return &Presenter{r: r, ds: ds}
}

// Metadata builds the metadata line of b.
func (p *Presenter) Metadata(b *models.Block) string {
	paint := p.r.Painter().Paint
	tokens := []string{paint(" Packet+ ", render.StyleBadge)}

	name, nameErr := b.Interface.Name()
	if nameErr == nil {
		tokens = append(tokens, paint(render.Escape(name), render.StyleIfName))
	}
	tokens = append(tokens, paint(b.Timestamp.UTC().Format(timestampLayout), render.StyleTimestamp))

	// the interface id is always known, only its name can be missing
	if nameErr == nil {
		tokens = append(tokens,
			paint("NIC:", render.StyleLabel),
			paint(strconv.Itoa(b.InterfaceID), render.StyleIfID),
			paint(render.Escape(name), render.StyleIfName),
		)
	}

	tokens = append(tokens, paint(fmt.Sprintf("%d bytes", b.PacketLen), render.StyleSize))

	if b.Truncated() {
		tokens = append(tokens,
			paint("Truncated to:", render.StyleLabel),
			paint(fmt.Sprintf("%d bytes", b.CapturedLen), render.StyleCaptured),
		)
	}

	tokens = append(tokens, p.r.Options(b.Options)...)
	return strings.Join(tokens, " ")
}

// Render returns every output line of b. Only Ethernet frames are handed
// to the dissector.
func (p *Presenter) Render(b *models.Block) []string {
	lines := []string{p.Metadata(b)}
	if b.LinkType() != models.LinkTypeEthernet {
		return append(lines, unsupportedNotice...)
	}
	for line := range p.r.Layer(p.ds.Dissect(b.Data, models.LinkTypeEthernet)) {
		lines = append(lines, p.r.Indent()+line)
	}
	return lines
}

// Present writes the lines of b to w.
func (p *Presenter) Present(w io.Writer, b *models.Block) error {
	return writeLines(w, p.Render(b))
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}
