package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"

	"pcaptree/internal/log"
	"pcaptree/internal/models"
)

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// Scanner yields the blocks of a capture stream one at a time. The first
// packet seen on an interface is preceded by an interface block.
type Scanner struct {
	format  Format
	reader  packetReader
	iface   func(id int) (*models.Interface, error)
	seen    map[int]*models.Interface
	pending *models.Block
	closer  io.Closer
	// options is nil for classic pcap, and once packet options are lost
	options *optionWalker
}

func newNgScanner(r io.Reader) (*Scanner, error) {
	walker := newOptionWalker(r)
	ng, err := pcapgo.NewNgReader(walker, pcapgo.NgReaderOptions{WantMixedLinkType: true})
	if err != nil {
		return nil, fmt.Errorf("read pcapng section header: %w", err)
	}
	return &Scanner{
		format: FormatPcapNG,
		reader: ng,
		iface: func(id int) (*models.Interface, error) {
			ni, err := ng.Interface(id)
			if err != nil {
				return nil, err
			}
			return fromNgInterface(ni), nil
		},
		seen:    make(map[int]*models.Interface),
		options: walker,
	}, nil
}

func newPcapScanner(r io.Reader) (*Scanner, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read pcap file header: %w", err)
	}
	// classic pcap has a single implicit interface
	only := &models.Interface{
		LinkType: models.LinkType(pr.LinkType()),
		SnapLen:  int(pr.Snaplen()),
		Options:  models.NewOptions(),
	}
	return &Scanner{
		format: FormatPcap,
		reader: pr,
		iface: func(id int) (*models.Interface, error) {
			if id != 0 {
				return nil, fmt.Errorf("pcap has no interface %d", id)
			}
			return only, nil
		},
		seen: make(map[int]*models.Interface),
	}, nil
}

func fromNgInterface(ni pcapgo.NgInterface) *models.Interface {
	opts := models.NewOptions()
	opts.AddNonEmpty(models.OptionIfName, ni.Name)
	opts.AddNonEmpty(models.OptionIfDescription, ni.Description)
	opts.AddNonEmpty(models.OptionIfFilter, ni.Filter)
	opts.AddNonEmpty(models.OptionIfOS, ni.OS)
	opts.AddNonEmpty(models.OptionComment, ni.Comment)
	return &models.Interface{
		LinkType: models.LinkType(ni.LinkType),
		SnapLen:  int(ni.SnapLength),
		Options:  opts,
	}
}

// Format returns the container format being scanned.
func (s *Scanner) Format() Format { return s.format }

// Next returns the next block, or io.EOF once the stream is exhausted.
func (s *Scanner) Next() (*models.Block, error) {
	if b := s.pending; b != nil {
		s.pending = nil
		return b, nil
	}

	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read packet: %w", err)
	}

	iface, fresh, err := s.lookup(ci.InterfaceIndex)
	if err != nil {
		return nil, fmt.Errorf("packet on interface %d: %w", ci.InterfaceIndex, err)
	}

	b := &models.Block{
		Kind:        models.BlockPacket,
		InterfaceID: ci.InterfaceIndex,
		Interface:   iface,
		Timestamp:   ci.Timestamp.UTC(),
		PacketLen:   ci.Length,
		CapturedLen: ci.CaptureLength,
		Options:     s.packetOptions(),
		Data:        data,
	}
	if !fresh {
		return b, nil
	}
	s.pending = b
	return &models.Block{
		Kind:        models.BlockInterface,
		InterfaceID: ci.InterfaceIndex,
		Interface:   iface,
		Options:     iface.Options,
	}, nil
}

// packetOptions returns the options of the packet block just read. A stream
// the walker cannot follow keeps decoding with empty options.
func (s *Scanner) packetOptions() *models.Options {
	if s.options == nil {
		return models.NewOptions()
	}
	opts, err := s.options.next()
	if err != nil {
		log.GetLogger().WithError(err).Warn("packet options unavailable for the rest of the capture")
		s.options = nil
		return models.NewOptions()
	}
	return opts
}

func (s *Scanner) lookup(id int) (*models.Interface, bool, error) {
	if iface, ok := s.seen[id]; ok {
		return iface, false, nil
	}
	iface, err := s.iface(id)
	if err != nil {
		return nil, false, err
	}
	s.seen[id] = iface
	return iface, true, nil
}

// Close releases the underlying file, if the scanner opened one.
func (s *Scanner) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
