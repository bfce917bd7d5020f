package pylon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pylon-dev/pylon/pages"
	"github.com/pylon-dev/pylon/wsproto"
)

// WebSocketUpgrader wraps gorilla/websocket's upgrader with pylon's page
// registry/sticky-routing wiring, mirroring air.WebSocket's callback-based
// wrapper around the same library (websocket.go/response.go's WebSocket()).
type WebSocketUpgrader struct {
	upgrader websocket.Upgrader
	sticky   *pages.StickyRouter
	registry *pages.Registry
	bus      pages.Bus
	worker   int
}

// NewWebSocketUpgrader returns a WebSocketUpgrader for the given worker
// index (this process's slot among PageWorkerCount), registry, sticky
// router, and bus.
func NewWebSocketUpgrader(worker int, sticky *pages.StickyRouter, registry *pages.Registry, bus pages.Bus) *WebSocketUpgrader {
	return &WebSocketUpgrader{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sticky:   sticky,
		registry: registry,
		bus:      bus,
		worker:   worker,
	}
}

// Serve upgrades hr to a WebSocket connection, registers a Page for it
// (stickily assigned to this worker), and pumps RPC frames to/from d until
// the connection closes, mirroring air.Air.ServeHTTP's WS branch and
// air.WebSocket's read/write pump pair.
func (u *WebSocketUpgrader) Serve(w http.ResponseWriter, hr *http.Request, userID string, d *Dispatcher) error {
	conn, err := u.upgrader.Upgrade(w, hr, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	identity := userID
	if identity == "" {
		identity = hr.RemoteAddr
	}
	bareID := newRequestID(hr.Header)
	pageID := pages.EncodePageID(bareID, u.worker)
	page := u.registry.Create(pageID, userID)
	defer u.registry.Remove(pageID)

	conn.SetPongHandler(func(string) error {
		page.Touch()
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	done := make(chan struct{})
	go u.writePump(conn, page, done)

	return u.readPump(conn, page, hr, d)
}

func (u *WebSocketUpgrader) writePump(conn *websocket.Conn, page *pages.Page, done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case frame, ok := <-page.Outbound():
			if !ok {
				return
			}
			data, err := wsproto.EncodeJSON(frame.Frame)
			if err != nil {
				continue
			}
			if conn.WriteMessage(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if conn.WriteMessage(websocket.PingMessage, nil) != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (u *WebSocketUpgrader) readPump(conn *websocket.Conn, page *pages.Page, hr *http.Request, d *Dispatcher) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		page.Touch()

		frame, err := wsproto.DecodeJSON(data)
		if err != nil {
			continue
		}

		switch frame.Type {
		case wsproto.TypeRequest:
			u.handleRequest(hr, d, page, frame)
		case wsproto.TypeSubscribe:
			u.handleSubscribe(page, frame)
		}
	}
}

func (u *WebSocketUpgrader) handleRequest(hr *http.Request, d *Dispatcher, page *pages.Page, frame wsproto.Frame) {
	req := &Request{
		ID:        frame.ID,
		Method:    "",
		Path:      frame.Method,
		Header:    hr.Header,
		Params:    make(map[string]string),
		Transport: TransportWebSocket,
	}
	if d.Registry != nil {
		d.Registry.Register(hr.Context(), req)
		defer d.Registry.Unregister(req)
	} else {
		req.ctx = hr.Context()
	}

	res := d.Dispatch(req.Context(), frame.Method, "", req)

	reply := wsproto.Frame{Type: wsproto.TypeResponse, ID: frame.ID}
	if res.Status >= 400 {
		reply.Type = wsproto.TypeError
		var body struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(res.Body, &body)
		reply.Error = &wsproto.FrameError{Kind: body.Error, Message: body.Message}
	} else {
		reply.Result = res.Body
	}
	_ = page.Send(pages.Frame{Frame: reply, Critical: true})
}

func (u *WebSocketUpgrader) handleSubscribe(page *pages.Page, frame wsproto.Frame) {
	ch, unsubscribe := u.bus.Subscribe(frame.Channel)
	go func() {
		defer unsubscribe()
		for f := range ch {
			if page.Send(pages.Frame{Frame: f}) == pages.ErrQueueClosed {
				return
			}
		}
	}()
}

// dispatchContext derives a request-scoped context from parent, with a
// deadline when timeout is positive. Neither Server nor WebSocketUpgrader
// calls it.
func dispatchContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
