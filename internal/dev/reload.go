package dev

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	pferrors "github.com/vango-dev/pagefiles/internal/errors"
	"github.com/vango-dev/pagefiles/internal/metrics"
)

// ReloadMessageType represents the type of reload message.
type ReloadMessageType string

const (
	ReloadTypeRoutes ReloadMessageType = "routes"
	ReloadTypeError  ReloadMessageType = "error"
	ReloadTypeClear  ReloadMessageType = "clear"
)

// ReloadMessage is sent to browsers via WebSocket.
type ReloadMessage struct {
	Type   ReloadMessageType  `json:"type"`
	Seq    int                `json:"seq,omitempty"`
	Hash   string             `json:"hash,omitempty"`
	Errors []pferrors.Payload `json:"errors,omitempty"`
}

// ReloadServer manages WebSocket connections for route reloads.
type ReloadServer struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics

	// routes and status are replayed to clients that connect later.
	routes []byte
	status []byte
}

// NewReloadServer creates a new reload server. m may be nil.
func NewReloadServer(m *metrics.Metrics) *ReloadServer {
	return &ReloadServer{
		clients: make(map[*websocket.Conn]bool),
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (r *ReloadServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	r.mu.Lock()
	r.clients[conn] = true
	replay := [][]byte{r.routes, r.status}
	r.mu.Unlock()
	r.metrics.ReloadClientConnected()

	r.writeMu.Lock()
	for _, data := range replay {
		if data == nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			r.writeMu.Unlock()
			r.drop(conn)
			return
		}
	}
	r.writeMu.Unlock()

	// Keep connection alive until client disconnects
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}

	r.drop(conn)
}

// NotifyRoutes tells clients that generation gen replaced the routes.
func (r *ReloadServer) NotifyRoutes(gen Generation) {
	r.broadcast(ReloadMessage{
		Type: ReloadTypeRoutes,
		Seq:  gen.Seq,
		Hash: strconv.FormatUint(gen.Sum, 16),
	})
}

// NotifyErrors sends the current diagnostics to all clients. An empty list
// clears the error overlay.
func (r *ReloadServer) NotifyErrors(errs []*pferrors.Error) {
	if len(errs) == 0 {
		r.broadcast(ReloadMessage{Type: ReloadTypeClear})
		return
	}
	payloads := make([]pferrors.Payload, 0, len(errs))
	for _, e := range errs {
		payloads = append(payloads, e.Payload())
	}
	r.broadcast(ReloadMessage{Type: ReloadTypeError, Errors: payloads})
}

// broadcast sends a message to all connected clients and keeps it for
// clients that connect later.
func (r *ReloadServer) broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	r.mu.Lock()
	if msg.Type == ReloadTypeRoutes {
		r.routes = data
	} else {
		r.status = data
	}
	clients := make([]*websocket.Conn, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	r.mu.Unlock()

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			go r.drop(client)
		}
	}
}

func (r *ReloadServer) drop(conn *websocket.Conn) {
	r.mu.Lock()
	_, ok := r.clients[conn]
	delete(r.clients, conn)
	r.mu.Unlock()

	if ok {
		r.metrics.ReloadClientDisconnected()
	}
	conn.Close()
}

// ClientCount returns the number of connected clients.
func (r *ReloadServer) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close closes all client connections.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
		delete(r.clients, client)
	}
	r.mu.Unlock()

	for _, client := range clients {
		r.metrics.ReloadClientDisconnected()
		client.Close()
	}
}

// DevClientScript is served at /client.js. It reloads the page when the
// routes change and shows an overlay while pagefiles have errors.
const DevClientScript = `(function() {
    'use strict';

    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;
    var script = document.currentScript;
    var origin = script ? new URL(script.src).host : location.host;

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(protocol + '//' + origin + '/ws');
        var seq = null;

        ws.onopen = function() {
            console.log('[pagefiles] connected');
            reconnectDelay = 1000;
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }

            switch (msg.type) {
                case 'routes':
                    if (seq !== null && msg.seq !== seq) {
                        console.log('[pagefiles] routes changed, reloading...');
                        location.reload();
                    }
                    seq = msg.seq;
                    break;

                case 'error':
                    showErrorOverlay(msg.errors || []);
                    break;

                case 'clear':
                    clearErrorOverlay();
                    break;
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    function showErrorOverlay(errors) {
        clearErrorOverlay();

        var overlay = document.createElement('div');
        overlay.id = 'pagefiles-error-overlay';
        overlay.style.cssText = 'position:fixed;top:0;left:0;right:0;bottom:0;background:rgba(0,0,0,0.9);color:#fff;font-family:monospace;font-size:14px;padding:20px;overflow:auto;z-index:999999;';

        var content = document.createElement('div');
        content.style.cssText = 'max-width:800px;margin:0 auto;';

        errors.forEach(function(err) {
            var title = document.createElement('h2');
            title.style.cssText = 'color:#ff5555;margin:20px 0 10px;';
            title.textContent = err.errorCode;

            var pre = document.createElement('pre');
            pre.style.cssText = 'white-space:pre-wrap;word-wrap:break-word;background:#1a1a1a;padding:20px;border-radius:8px;border:1px solid #333;';
            pre.textContent = err.message + (err.sourceFile ? '\n\n' + err.sourceFile : '') +
                (err.suggestion ? '\n\n' + err.suggestion : '');

            content.appendChild(title);
            content.appendChild(pre);
        });

        overlay.appendChild(content);
        document.body.appendChild(overlay);
    }

    function clearErrorOverlay() {
        var overlay = document.getElementById('pagefiles-error-overlay');
        if (overlay) {
            overlay.remove();
        }
    }

    connect();
})();
`
