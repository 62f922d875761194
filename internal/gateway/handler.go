package gateway

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pequito193/PCD-Projeto/internal/session"
)

// Handler upgrades player HTTP requests to websocket connections. The base
// context it carries outlives any single request: it bounds the round
// loops of the sessions admitted through it.
type Handler struct {
	registry *session.Registry
	upgrader websocket.Upgrader
	cfg      Config
	baseCtx  context.Context
}

// NewHandler creates a websocket handler backed by the registry.
func NewHandler(baseCtx context.Context, registry *session.Registry, cfg Config) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		cfg:     cfg,
		baseCtx: baseCtx,
	}
}

// HandlePlayerConnection upgrades the request and starts the connection's
// pumps. The login handshake happens on the read pump.
func (h *Handler) HandlePlayerConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	c := newConnection(conn, h.cfg, h.registry, h.baseCtx)
	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.id).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket connection established")
}

// RegisterRoutes registers the player endpoint on the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.HandlePlayerConnection)
}
