package relay

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

type wsEnvelope struct {
	Feed string          `json:"feed"`
	Data json.RawMessage `json:"data"`
}

// WSHandler returns an http.HandlerFunc that upgrades to WebSocket and
// forwards events as {"feed": ..., "data": ...} text frames. Accepts the same
// ?feeds= filter as SSEHandler.
func WSHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		feedFilter := parseFeedFilter(r)

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("relay ws upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer func() {
			if err := conn.Close(); err != nil {
				slog.Debug("relay ws close failed", "error", err)
			}
		}()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		// writeMu guards whole frames: pong and close replies from the reader
		// must not land between a data frame's header and payload.
		var writeMu sync.Mutex
		control := wsutil.ControlFrameHandler(conn, ws.StateServerSide)
		rd := &wsutil.Reader{
			Source:    conn,
			State:     ws.StateServerSide,
			CheckUTF8: true,
			OnIntermediate: func(h ws.Header, r io.Reader) error {
				writeMu.Lock()
				defer writeMu.Unlock()
				return control(h, r)
			},
		}

		// Client data frames are discarded; reading only answers control
		// frames and notices the peer going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				h, err := rd.NextFrame()
				if err != nil {
					return
				}
				if h.OpCode.IsControl() {
					if err := rd.OnIntermediate(h, rd); err != nil {
						return
					}
					continue
				}
				if err := rd.Discard(); err != nil {
					return
				}
			}
		}()

		slog.Debug("relay ws client connected", "remote", r.RemoteAddr, "subscriber", id)
		for {
			select {
			case <-gone:
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if feedFilter != nil && !feedFilter[evt.Feed] {
					continue
				}
				data, err := json.Marshal(wsEnvelope{Feed: evt.Feed, Data: json.RawMessage(evt.Payload)})
				if err != nil {
					slog.Debug("relay ws marshal failed", "feed", evt.Feed, "error", err)
					continue
				}
				writeMu.Lock()
				err = wsutil.WriteServerText(conn, data)
				writeMu.Unlock()
				if err != nil {
					slog.Debug("relay ws write failed", "remote", r.RemoteAddr, "error", err)
					return
				}
			}
		}
	}
}
