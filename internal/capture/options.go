package capture

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"

	"pcaptree/internal/models"
)

// pcapng block types and option codes read by the option walker.
const (
	blockSectionHeader   = 0x0a0d0d0a
	blockPacketObsolete  = 0x00000002
	blockSimplePacket    = 0x00000003
	blockEnhancedPacket  = 0x00000006
	byteOrderMagic       = 0x1a2b3c4d
	packetFixedLen       = 20
	optEndOfOpt          = 0
	optComment           = 1
	optEpbFlags          = 2
	optEpbHash           = 3
	optEpbDropCount      = 4
	optEpbPacketID       = 5
	optEpbQueue          = 6
	optEpbVerdict        = 7
	blockHeaderAndFooter = 12
)

// maxBlockLen bounds the blocks the walker copies. Longer ones are passed
// through and end option decoding.
const maxBlockLen = 64 << 20

// block is a copied pcapng block and the byte order of its section.
type block struct {
	data  []byte
	order binary.ByteOrder
}

// optionWalker sits between the stream and pcapgo.NgReader. It forwards the
// stream a whole block at a time and keeps a copy of each block, so that the
// per-packet options the reader does not expose can be read once the reader
// returns the packet.
type optionWalker struct {
	src     io.Reader
	order   binary.ByteOrder
	pending []byte
	blocks  []block
	// broken is set once block boundaries are lost
	broken error
}

func newOptionWalker(src io.Reader) *optionWalker {
	return &optionWalker{src: src}
}

func (w *optionWalker) Read(p []byte) (int, error) {
	if len(w.pending) == 0 {
		if w.broken != nil {
			return w.src.Read(p)
		}
		block, err := w.readBlock()
		if len(block) == 0 {
			return 0, err
		}
		w.pending = block
	}
	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

// readBlock reads one block from src. On a malformed header the bytes read
// so far are returned and the walker turns into a plain pass-through.
func (w *optionWalker) readBlock() ([]byte, error) {
	head := make([]byte, 12)
	n, err := io.ReadFull(w.src, head[:8])
	if err != nil {
		w.broken = fmt.Errorf("read block header: %w", err)
		return head[:n], err
	}
	if binary.LittleEndian.Uint32(head) == blockSectionHeader {
		if n, err := io.ReadFull(w.src, head[8:]); err != nil {
			w.broken = fmt.Errorf("read byte order magic: %w", err)
			return head[:8+n], err
		}
		switch magic := head[8:]; {
		case binary.LittleEndian.Uint32(magic) == byteOrderMagic:
			w.order = binary.LittleEndian
		case binary.BigEndian.Uint32(magic) == byteOrderMagic:
			w.order = binary.BigEndian
		default:
			w.broken = fmt.Errorf("bad byte order magic %x", magic)
			return head, nil
		}
	} else {
		head = head[:8]
	}
	if w.order == nil {
		w.broken = errors.New("block before section header")
		return head, nil
	}
	total := int(w.order.Uint32(head[4:]))
	if total < blockHeaderAndFooter || total%4 != 0 || total > maxBlockLen {
		w.broken = fmt.Errorf("bad block length %d", total)
		return head, nil
	}

	data := make([]byte, total)
	copy(data, head)
	n, err = io.ReadFull(w.src, data[len(head):])
	data = data[:len(head)+n]
	if err != nil {
		w.broken = fmt.Errorf("read block body: %w", err)
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = nil
		}
		return data, err
	}
	w.blocks = append(w.blocks, block{data: data, order: w.order})
	return data, nil
}

// next returns the options of the next packet block the reader consumed.
func (w *optionWalker) next() (*models.Options, error) {
	for len(w.blocks) > 0 {
		b := w.blocks[0]
		w.blocks[0] = block{}
		w.blocks = w.blocks[1:]

		body := b.data[8 : len(b.data)-4]
		switch b.order.Uint32(b.data) {
		case blockEnhancedPacket, blockPacketObsolete:
			return packetOptions(b.order, body)
		case blockSimplePacket:
			return models.NewOptions(), nil
		}
	}
	if w.broken != nil {
		return nil, w.broken
	}
	return nil, errors.New("packet block not seen")
}

func packetOptions(order binary.ByteOrder, body []byte) (*models.Options, error) {
	if len(body) < packetFixedLen {
		return nil, fmt.Errorf("packet block body of %d bytes", len(body))
	}
	caplen := int(order.Uint32(body[12:]))
	start := packetFixedLen + (caplen+3)&^3
	if start > len(body) {
		return nil, fmt.Errorf("captured length %d overruns block", caplen)
	}
	return decodeOptions(order, body[start:])
}

// decodeOptions decodes a TLV option list up to opt_endofopt or the end of raw.
func decodeOptions(order binary.ByteOrder, raw []byte) (*models.Options, error) {
	opts := models.NewOptions()
	for len(raw) >= 4 {
		code := order.Uint16(raw)
		n := int(order.Uint16(raw[2:]))
		if code == optEndOfOpt {
			break
		}
		if 4+n > len(raw) {
			return nil, fmt.Errorf("option %d of %d bytes overruns block", code, n)
		}
		value := raw[4 : 4+n]
		opts.Add(optionName(code), optionValue(order, code, value))
		raw = raw[min(len(raw), 4+(n+3)&^3):]
	}
	return opts, nil
}

func optionName(code uint16) string {
	switch code {
	case optComment:
		return models.OptionComment
	case optEpbFlags:
		return models.OptionEpbFlags
	case optEpbHash:
		return models.OptionEpbHash
	case optEpbDropCount:
		return models.OptionEpbDropCount
	case optEpbPacketID:
		return models.OptionEpbPacketID
	case optEpbQueue:
		return models.OptionEpbQueue
	case optEpbVerdict:
		return models.OptionEpbVerdict
	default:
		return "opt_" + strconv.Itoa(int(code))
	}
}

func optionValue(order binary.ByteOrder, code uint16, v []byte) string {
	switch {
	case code == optComment:
		return string(v)
	case code == optEpbFlags && len(v) == 4:
		return fmt.Sprintf("0x%08x", order.Uint32(v))
	case code == optEpbQueue && len(v) == 4:
		return strconv.FormatUint(uint64(order.Uint32(v)), 10)
	case (code == optEpbDropCount || code == optEpbPacketID) && len(v) == 8:
		return strconv.FormatUint(order.Uint64(v), 10)
	default:
		return hex.EncodeToString(v)
	}
}
