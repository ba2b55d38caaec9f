// Package capture scans pcap and pcapng files into blocks.
package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrFileOpen is matched by every *FileOpenError.
	ErrFileOpen = errors.New("cannot open capture file")
	// ErrUnknownFormat is returned when a stream is neither pcap nor pcapng.
	ErrUnknownFormat = errors.New("unknown capture format")
)

// FileOpenError reports a capture file that could not be opened.
type FileOpenError struct {
	Path string
	Err  error
}

func (e *FileOpenError) Error() string {
	return fmt.Sprintf("open capture file %q: %v", e.Path, e.Err)
}

func (e *FileOpenError) Unwrap() error { return e.Err }

func (e *FileOpenError) Is(target error) bool { return target == ErrFileOpen }

// Format is the container format of a capture stream.
type Format int

const (
	FormatPcap Format = iota + 1
	FormatPcapNG
)

func (f Format) String() string {
	switch f {
	case FormatPcap:
		return "pcap"
	case FormatPcapNG:
		return "pcapng"
	default:
		return "unknown"
	}
}

var (
	magicSectionHeader = []byte{0x0a, 0x0d, 0x0d, 0x0a}
	magicPcap          = [][]byte{
		{0xa1, 0xb2, 0xc3, 0xd4},
		{0xd4, 0xc3, 0xb2, 0xa1},
		{0xa1, 0xb2, 0x3c, 0x4d},
		{0x4d, 0x3c, 0xb2, 0xa1},
	}
)

// detect peeks at the magic number without consuming it.
func detect(br *bufio.Reader) (Format, error) {
	magic, err := br.Peek(4)
	if err != nil {
		return 0, fmt.Errorf("%w: read magic: %v", ErrUnknownFormat, err)
	}
	if bytes.Equal(magic, magicSectionHeader) {
		return FormatPcapNG, nil
	}
	for _, m := range magicPcap {
		if bytes.Equal(magic, m) {
			return FormatPcap, nil
		}
	}
	return 0, fmt.Errorf("%w: magic %x", ErrUnknownFormat, magic)
}

// Open opens a capture file for scanning. The caller must Close the scanner.
func Open(path string) (*Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileOpenError{Path: path, Err: err}
	}
	s, err := NewScanner(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("scan %q: %w", path, err)
	}
	s.closer = f
	return s, nil
}

// NewScanner returns a scanner over any pcap or pcapng stream.
func NewScanner(r io.Reader) (*Scanner, error) {
	br := bufio.NewReader(r)
	format, err := detect(br)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatPcapNG:
		return newNgScanner(br)
	default:
		return newPcapScanner(br)
	}
}
