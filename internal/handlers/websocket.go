package handlers

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pcaptree/internal/log"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSWriter sends every complete line written to it as one websocket text
// message, without the trailing newline. Only one goroutine may write.
type WSWriter struct {
	conn *websocket.Conn
	buf  []byte
}

// NewWSWriter wraps conn.
func NewWSWriter(conn *websocket.Conn) *WSWriter {
	return &WSWriter{conn: conn}
}

func (ww *WSWriter) Write(p []byte) (int, error) {
	ww.buf = append(ww.buf, p...)
	for {
		i := bytes.IndexByte(ww.buf, '\n')
		if i < 0 {
			return len(p), nil
		}
		if err := ww.send(ww.buf[:i]); err != nil {
			return 0, err
		}
		ww.buf = ww.buf[i+1:]
	}
}

// Close sends any unterminated tail and a normal closure frame.
func (ww *WSWriter) Close() error {
	if len(ww.buf) > 0 {
		if err := ww.send(ww.buf); err != nil {
			return err
		}
		ww.buf = nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return ww.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func (ww *WSWriter) send(line []byte) error {
	ww.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return ww.conn.WriteMessage(websocket.TextMessage, line)
}

// readLoop discards client frames and cancels once the peer goes away.
func readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// HandleWebSocket is the HTTP handler for WebSocket upgrades. Each
// connection gets its own run over the capture at path.
func HandleWebSocket(d Dumper, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.GetLogger().WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go readLoop(conn, cancel)

		ww := NewWSWriter(conn)
		if n, err := d.DumpFile(ctx, path, ww); err != nil {
			log.GetLogger().WithError(err).WithField("printed", n).Info("websocket dump ended early")
			ww.buf = append(ww.buf[:0], "error: "+err.Error()...)
		}
		if err := ww.Close(); err != nil {
			log.GetLogger().WithError(err).Debug("websocket close")
		}
	}
}
