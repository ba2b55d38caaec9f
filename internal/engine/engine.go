package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"pcaptree/internal/capture"
	"pcaptree/internal/log"
	"pcaptree/internal/models"
)

// ErrRender marks a block whose rendering failed. The failure is logged and
// the run moves on to the next block.
var ErrRender = errors.New("render block")

// BlockSource yields capture blocks in file order. Next returns io.EOF once
// the source is exhausted.
type BlockSource interface {
	Next() (*models.Block, error)
}

// Engine drives a Presenter over a BlockSource.
type Engine struct {
	presenter *Presenter
	limit     int
}

// New creates an Engine that prints at most limit packet blocks. A limit of
// 0 prints every packet block.
func New(p *Presenter, limit int) *Engine {
	if limit < 0 {
		limit = 0
	}
	return &Engine{presenter: p, limit: limit}
}

// Run renders packet blocks of src into w until the limit is reached, the
// source ends or ctx is done. Non-packet blocks are skipped and do not count.
// It returns the number of packet blocks printed. Read errors other than
// io.EOF end the run quietly; only write failures and context cancellation
// are returned.
func (e *Engine) Run(ctx context.Context, src BlockSource, w io.Writer) (int, error) {
	header := "print all packets"
	if e.limit > 0 {
		header = fmt.Sprintf("print first %d packets", e.limit)
	}
	if err := writeLines(w, []string{header}); err != nil {
		return 0, err
	}

	printed := 0
	for blockNum := 1; e.limit == 0 || printed < e.limit; blockNum++ {
		if err := ctx.Err(); err != nil {
			return printed, err
		}

		b, err := src.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.GetLogger().WithError(err).WithField("block", blockNum).Warn("stopped reading capture")
			}
			break
		}
		if b.Kind != models.BlockPacket {
			continue
		}

		lines, err := e.render(b)
		if err != nil {
			log.GetLogger().WithFields(logrus.Fields{
				"block":     blockNum,
				"interface": b.InterfaceID,
			}).WithError(err).Warn("skipping block")
			continue
		}
		if err := writeLines(w, lines); err != nil {
			return printed, err
		}
		printed++
	}

	if err := writeLines(w, []string{fmt.Sprintf("%d packets printed", printed)}); err != nil {
		return printed, err
	}
	return printed, nil
}

// DumpFile opens the capture at path and runs it into w. Open failures are
// returned before anything is written.
func (e *Engine) DumpFile(ctx context.Context, path string, w io.Writer) (int, error) {
	s, err := capture.Open(path)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	log.GetLogger().WithFields(logrus.Fields{
		"path":   path,
		"format": s.Format(),
	}).Debug("capture opened")
	return e.Run(ctx, s, w)
}

func (e *Engine) render(b *models.Block) (lines []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRender, r)
		}
	}()
	return e.presenter.Render(b), nil
}
