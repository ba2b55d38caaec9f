package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"pcaptree/internal/capture"
	"pcaptree/internal/log"
)

const maxUploadSize = 100 << 20 // 100 MB

// Dumper renders the capture file at path into w.
type Dumper interface {
	DumpFile(ctx context.Context, path string, w io.Writer) (int, error)
}

// RegisterRoutes sets up all HTTP routes on the given mux. path is the
// capture file served by /dump and /ws.
func RegisterRoutes(mux *http.ServeMux, d Dumper, path string) {
	mux.HandleFunc("/dump", handleDump(d, path))
	mux.HandleFunc("/ws", HandleWebSocket(d, path))
	mux.HandleFunc("/api/upload", handleUpload(d))
}

// flushWriter pushes every write to the client right away.
type flushWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newFlushWriter(w http.ResponseWriter) *flushWriter {
	fw := &flushWriter{w: w}
	fw.flusher, _ = w.(http.Flusher)
	return fw
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	if !fw.started {
		fw.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fw.started = true
	}
	n, err := fw.w.Write(p)
	if fw.flusher != nil {
		fw.flusher.Flush()
	}
	return n, err
}

func handleDump(d Dumper, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "GET only", http.StatusMethodNotAllowed)
			return
		}
		dump(w, r, d, path)
	}
}

func handleUpload(d Dumper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			http.Error(w, "File too large (max 100MB)", http.StatusBadRequest)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		tmpFile, err := os.CreateTemp("", "pcaptree-*.pcap")
		if err != nil {
			http.Error(w, "Failed to create temp file", http.StatusInternalServerError)
			return
		}
		tmpPath := tmpFile.Name()
		defer os.Remove(tmpPath)

		if _, err := io.Copy(tmpFile, file); err != nil {
			tmpFile.Close()
			http.Error(w, "Failed to save file", http.StatusInternalServerError)
			return
		}
		tmpFile.Close()

		dump(w, r, d, tmpPath)
	}
}

// dump streams the rendered capture as plain text. Errors raised before the
// first line is written become HTTP errors; later ones only end the stream.
func dump(w http.ResponseWriter, r *http.Request, d Dumper, path string) {
	fw := newFlushWriter(w)
	n, err := d.DumpFile(r.Context(), path, fw)
	if err == nil {
		return
	}

	logger := log.GetLogger().WithFields(logrus.Fields{
		"remote":  r.RemoteAddr,
		"printed": n,
	}).WithError(err)
	if fw.started {
		logger.Info("dump interrupted")
		return
	}
	logger.Warn("dump failed")
	switch {
	case errors.Is(err, capture.ErrUnknownFormat):
		http.Error(w, "Failed to read pcap: "+err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Failed to open capture", http.StatusInternalServerError)
	}
}
