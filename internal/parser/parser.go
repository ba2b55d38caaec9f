// Package parser decodes captured frames into layer chains.
package parser

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"pcaptree/internal/log"
	"pcaptree/internal/models"
)

// Dissector decodes raw frames with gopacket.
type Dissector struct {
	opts gopacket.DecodeOptions
}

// NewDissector returns a dissector that decodes eagerly without copying
// the frame.
func NewDissector() *Dissector {
	return &Dissector{opts: gopacket.DecodeOptions{Lazy: false, NoCopy: true}}
}

// Dissect decodes data framed as link into a layer chain. Whatever cannot
// be decoded ends up in a Raw tail or a Padding trailer, so every captured
// byte shows up in the result.
func (ds *Dissector) Dissect(data []byte, link models.LinkType) models.Layer {
	if link < 0 || link > 0xff {
		return chain(nil, data)
	}
	pkt := gopacket.NewPacket(data, layers.LinkType(link), ds.opts)
	if fail := pkt.ErrorLayer(); fail != nil {
		log.GetLogger().WithError(fail.Error()).WithField("link_type", link).Debug("partial decode")
	}
	return chain(salvage(pkt.Layers(), data), data)
}

// salvage handles a decoder that added its layer and then failed. The
// DecodeFailure after such a layer is empty and the layer itself holds
// zero values, so both are replaced by the bytes the decoder was given.
func salvage(ls []gopacket.Layer, data []byte) []gopacket.Layer {
	n := len(ls)
	if n < 2 {
		return ls
	}
	fail, ok := ls[n-1].(*gopacket.DecodeFailure)
	if !ok || len(fail.LayerContents()) > 0 {
		return ls
	}
	given := data
	if n > 2 {
		given = ls[n-3].LayerPayload()
	}
	if len(given) == 0 {
		given = ls[n-2].LayerContents()
	}
	raw := gopacket.Payload(given)
	return append(ls[:n-2:n-2], &raw)
}

// chain links converted layers back to front. A Raw produced in the middle
// of the list swallows the rest, since Raw has no payload. Bytes past the
// end of the decoded layers, such as Ethernet padding, become a trailer.
func chain(ls []gopacket.Layer, data []byte) models.Layer {
	if len(ls) == 0 {
		if len(data) == 0 {
			return nil
		}
		return models.Raw(data)
	}

	var next models.Layer
	for i := len(ls) - 1; i >= 0; i-- {
		cur := convert(ls[i])
		d, ok := cur.(*models.Decoded)
		if !ok {
			next = cur
			continue
		}
		d.Payload = next
		if i+1 < len(ls) {
			bind(d, ls[i+1])
		}
		next = d
	}

	covered := 0
	for _, l := range ls {
		covered += len(l.LayerContents())
	}
	if covered < len(data) {
		next = withTrailer(next, data[covered:])
	}
	return next
}

var loadFields = fields("load", text)

func loadLayer(name string, b []byte) *models.Decoded {
	d := &models.Decoded{Name: name, Fields: loadFields}
	d.Set("load", b)
	return d
}

// withTrailer appends a Padding layer after the deepest layer of head. A
// Raw tail cannot carry a payload, so it turns into a Raw layer with a load
// field that the padding can follow.
func withTrailer(head models.Layer, trailer []byte) models.Layer {
	pad := loadLayer("Padding", trailer)
	attach := func(tail models.Layer) models.Layer {
		raw, ok := tail.(models.Raw)
		if !ok || len(raw) == 0 {
			return pad
		}
		d := loadLayer("Raw", []byte(raw))
		d.Payload = pad
		return d
	}

	d, ok := head.(*models.Decoded)
	if !ok {
		return attach(head)
	}
	for {
		next, ok := d.Payload.(*models.Decoded)
		if !ok {
			break
		}
		d = next
	}
	d.Payload = attach(d.Payload)
	return head
}

func convert(l gopacket.Layer) models.Layer {
	switch t := l.(type) {
	case *gopacket.Payload:
		return models.Raw(t.LayerContents())
	case *gopacket.DecodeFailure:
		return models.Raw(t.LayerContents())
	}
	if fn, ok := tables[l.LayerType()]; ok {
		return fn(l)
	}
	return generic(l)
}

var etherTypes = map[gopacket.LayerType]layers.EthernetType{
	layers.LayerTypeIPv4:  layers.EthernetTypeIPv4,
	layers.LayerTypeIPv6:  layers.EthernetTypeIPv6,
	layers.LayerTypeARP:   layers.EthernetTypeARP,
	layers.LayerTypeDot1Q: layers.EthernetTypeDot1Q,
}

var ipProtocols = map[gopacket.LayerType]layers.IPProtocol{
	layers.LayerTypeTCP:    layers.IPProtocolTCP,
	layers.LayerTypeUDP:    layers.IPProtocolUDP,
	layers.LayerTypeICMPv4: layers.IPProtocolICMPv4,
	layers.LayerTypeICMPv6: layers.IPProtocolICMPv6,
}

// bind records on d the discriminator value its payload layer implies.
func bind(d *models.Decoded, upper gopacket.Layer) {
	lt := upper.LayerType()
	if et, ok := etherTypes[lt]; ok && d.Declares("type") {
		d.Overload("type", et)
	}
	if proto, ok := ipProtocols[lt]; ok {
		switch {
		case d.Declares("proto"):
			d.Overload("proto", proto)
		case d.Declares("nh"):
			d.Overload("nh", proto)
		}
	}
}
