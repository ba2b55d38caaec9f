package models

import "time"

// LinkType identifies the framing of captured bytes.
type LinkType int

// LinkTypeEthernet is the only framing the layer renderer descends into.
const LinkTypeEthernet LinkType = 1

// BlockKind tells packet-bearing blocks apart from the other records of a capture.
type BlockKind int

const (
	BlockPacket BlockKind = iota
	BlockInterface
)

func (k BlockKind) String() string {
	switch k {
	case BlockPacket:
		return "packet"
	case BlockInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// Interface describes the capture source a packet block was recorded on.
type Interface struct {
	LinkType LinkType
	SnapLen  int
	Options  *Options
}

// Name returns the if_name option of the interface.
func (i *Interface) Name() (string, error) {
	if i == nil {
		return "", ErrMissingOptionKey
	}
	return i.Options.First(OptionIfName)
}

// Block is one record of a capture file.
type Block struct {
	Kind        BlockKind
	InterfaceID int
	Interface   *Interface
	Timestamp   time.Time
	PacketLen   int
	CapturedLen int
	Options     *Options
	Data        []byte
}

// Truncated reports whether the stored length differs from the length on
// the wire.
func (b *Block) Truncated() bool {
	return b.CapturedLen != b.PacketLen
}

// LinkType returns the link type of the originating interface, or -1 when
// the block carries no interface.
func (b *Block) LinkType() LinkType {
	if b.Interface == nil {
		return -1
	}
	return b.Interface.LinkType
}
