// Package tablet implements C7, the Tablet Gateway: a single HTTP+
// WebSocket server with per-client registration, wire-protocol encode/
// decode, and broadcast/targeted-send primitives.
//
// Grounded on pkg/providers/tts/lokutor.go's use of
// github.com/coder/websocket + github.com/coder/websocket/wsjson,
// generalized from a single outbound client connection to a many-client
// server accepting inbound traffic too.
package tablet

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/motion"
	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// InputCallback is invoked for an inbound "input" frame.
type InputCallback func(clientID string, payload InputPayload)

// ConfigCallback is invoked for an inbound "config" frame.
type ConfigCallback func(clientID string, payload ConfigPayload)

// GamepadCallback is invoked for an inbound gamepad_state frame that was
// not an e-stop assertion.
type GamepadCallback func(payload motion.Payload)

// ClientEventCallback announces a client connecting or disconnecting.
type ClientEventCallback func(clientID string)

// Gateway is C7.
type Gateway struct {
	log umebot.Logger

	onClientConnected    ClientEventCallback
	onClientDisconnected ClientEventCallback
	onInput              InputCallback
	onConfig             ConfigCallback
	onGamepadPayload     GamepadCallback
	onGamepadEStop       func()

	mu      sync.RWMutex
	clients map[string]*client

	srv *http.Server
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// New constructs a Gateway. Install callbacks with the On* setters before
// calling Start.
func New(log umebot.Logger) *Gateway {
	if log == nil {
		log = umebot.NoOpLogger{}
	}
	return &Gateway{log: log, clients: make(map[string]*client)}
}

func (g *Gateway) OnClientConnected(f ClientEventCallback)    { g.onClientConnected = f }
func (g *Gateway) OnClientDisconnected(f ClientEventCallback) { g.onClientDisconnected = f }
func (g *Gateway) OnInput(f InputCallback)                    { g.onInput = f }
func (g *Gateway) OnConfig(f ConfigCallback)                  { g.onConfig = f }
func (g *Gateway) OnGamepadPayload(f GamepadCallback)         { g.onGamepadPayload = f }
func (g *Gateway) OnGamepadEStop(f func())                    { g.onGamepadEStop = f }

// Start binds listenAddr and begins serving /status and /ws_bidirectional.
// It returns once the listener is bound; serving continues in the
// background until Stop is called.
func (g *Gateway) Start(listenAddr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", g.handleStatus)
	mux.HandleFunc("/ws_bidirectional", g.handleWS)

	g.srv = &http.Server{Addr: listenAddr, Handler: mux}
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("tablet: listen %s: %w", listenAddr, err)
	}
	go func() {
		if err := g.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			g.log.Error("tablet: server exited", "err", err)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down, with a bounded wait per spec.md
// §5's 2-3s shutdown budget for workers.
func (g *Gateway) Stop() {
	if g.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = g.srv.Shutdown(ctx)

	g.mu.Lock()
	clients := make([]*client, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.clients = make(map[string]*client)
	g.mu.Unlock()
	for _, c := range clients {
		close(c.done)
		c.conn.Close(websocket.StatusNormalClosure, "server shutting down")
	}
}

func (g *Gateway) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.log.Warn("tablet: websocket accept failed", "err", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 32), done: make(chan struct{})}
	g.mu.Lock()
	g.clients[c.id] = c
	g.mu.Unlock()

	if g.onClientConnected != nil {
		g.onClientConnected(c.id)
	}

	go g.writeLoop(c)
	g.readLoop(c)

	g.mu.Lock()
	delete(g.clients, c.id)
	g.mu.Unlock()
	close(c.done)
	if g.onClientDisconnected != nil {
		g.onClientDisconnected(c.id)
	}
}

// writeLoop preserves per-client outbound frame order: every Send call
// enqueues onto this client's own channel, drained by exactly one
// goroutine.
func (g *Gateway) writeLoop(c *client) {
	ctx := context.Background()
	for {
		select {
		case <-c.done:
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) readLoop(c *client) {
	ctx := context.Background()
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		g.dispatch(c, data)
	}
}

func (g *Gateway) dispatch(c *client, data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		g.sendError(c.id, "malformed frame: not valid JSON", "")
		return
	}

	switch f.Type {
	case "input":
		var p InputPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			g.sendError(c.id, "malformed input payload", err.Error())
			return
		}
		if p.Source == "" {
			p.Source = string(umebot.SourceUnknown)
		}
		if g.onInput != nil {
			g.onInput(c.id, p)
		}
	case "config":
		var p ConfigPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			g.sendError(c.id, "malformed config payload", err.Error())
			return
		}
		if g.onConfig != nil {
			g.onConfig(c.id, p)
		}
	case "gamepad_state":
		payload, err := parseGamepadPayload(f.Payload)
		if err != nil {
			g.sendError(c.id, "malformed gamepad_state", err.Error())
			return
		}
		if payload.StickButtonStates.L3Pressed || payload.StickButtonStates.R3Pressed {
			if g.onGamepadEStop != nil {
				g.onGamepadEStop()
			}
			return
		}
		if g.onGamepadPayload != nil {
			g.onGamepadPayload(payload)
		}
	default:
		g.sendError(c.id, fmt.Sprintf("unknown frame type %q", f.Type), "")
	}
}

func (g *Gateway) sendError(clientID, text, detail string) {
	g.log.Warn("tablet: protocol error", "client", clientID, "text", text)
	data, err := encodeFrame("system", SystemPayload{Sender: "gateway", Level: SystemError, Text: text, Detail: detail})
	if err != nil {
		return
	}
	g.SendTo(clientID, data)
}

// SendTo enqueues pre-encoded frame bytes to one client, preserving
// per-client ordering. Dropped silently if the client is gone.
func (g *Gateway) SendTo(clientID string, data []byte) {
	g.mu.RLock()
	c, ok := g.clients[clientID]
	g.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		g.log.Warn("tablet: client send queue full, dropping frame", "client", clientID)
	}
}

// Broadcast enqueues pre-encoded frame bytes to every connected client.
// Each client's own queue isolates it from a slow or dead peer (a full
// queue just drops that one frame for that one client).
func (g *Gateway) Broadcast(data []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for id, c := range g.clients {
		select {
		case c.send <- data:
		default:
			g.log.Warn("tablet: client send queue full, dropping broadcast frame", "client", id)
		}
	}
}

// BroadcastFrame encodes and broadcasts a typed frame in one call.
func (g *Gateway) BroadcastFrame(frameType string, payload interface{}) error {
	data, err := encodeFrame(frameType, payload)
	if err != nil {
		return err
	}
	g.Broadcast(data)
	return nil
}

// SendFrameTo encodes and sends a typed frame to one client in one call.
func (g *Gateway) SendFrameTo(clientID, frameType string, payload interface{}) error {
	data, err := encodeFrame(frameType, payload)
	if err != nil {
		return err
	}
	g.SendTo(clientID, data)
	return nil
}

// ClientCount reports the number of currently connected clients.
func (g *Gateway) ClientCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}
