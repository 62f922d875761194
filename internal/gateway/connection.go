package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pequito193/PCD-Projeto/internal/protocol"
	"github.com/pequito193/PCD-Projeto/internal/session"
)

// errMalformedFrame marks a frame that could not be decoded as an
// envelope, a protocol violation before authentication.
var errMalformedFrame = errors.New("malformed frame")

// Connection is one player's websocket connection. It runs the login
// handshake, then forwards protocol messages to its session. Outbound
// delivery goes through the buffered send channel so nothing in the
// session's round loop ever blocks on a slow client.
type Connection struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	cfg  Config

	registry *session.Registry
	baseCtx  context.Context

	closeOnce sync.Once
	closed    chan struct{}

	mu     sync.Mutex
	sess   *session.Session
	player *session.Player
}

func newConnection(conn *websocket.Conn, cfg Config, registry *session.Registry, baseCtx context.Context) *Connection {
	return &Connection{
		id:       uuid.New().String(),
		conn:     conn,
		send:     make(chan []byte, 256),
		cfg:      cfg,
		registry: registry,
		baseCtx:  baseCtx,
		closed:   make(chan struct{}),
	}
}

// Send implements session.Sender. A client that cannot drain its buffer is
// closed rather than allowed to stall the sender.
func (c *Connection) Send(env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.id).Msg("failed to marshal outbound envelope")
		return
	}

	select {
	case c.send <- data:
	case <-c.closed:
	default:
		log.Warn().
			Str("connection_id", c.id).
			Msg("send buffer full, closing connection")
		c.Close()
	}
}

// Close implements session.Sender. Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// writePump delivers queued frames and keepalive pings. On shutdown it
// drains the send buffer first so a LOGIN_ERROR queued just before Close
// still reaches the peer.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			for {
				select {
				case message := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
					if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
			}
		}
	}
}

// readPump runs the connection's inbound side: the login handshake first,
// then the steady-state dispatch loop. When it returns the player is
// removed from its session (idempotent) and the socket is released.
func (c *Connection) readPump() {
	defer func() {
		c.teardown()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return nil
	})

	if !c.login() {
		return
	}

	for {
		env, err := c.readEnvelope()
		if err != nil {
			return
		}
		c.dispatch(env)
	}
}

// login enforces the first-message protocol: exactly one well-formed LOGIN
// frame, validated and admitted through the registry in one step. Any
// violation is answered with LOGIN_ERROR and the connection closes.
func (c *Connection) login() bool {
	env, err := c.readEnvelope()
	if err != nil {
		if errors.Is(err, errMalformedFrame) {
			c.reject("malformed message")
		}
		return false
	}

	if env.Type != protocol.MsgTypeLogin {
		c.reject("first message must be LOGIN")
		return false
	}

	var payload protocol.LoginPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		c.reject("malformed login payload")
		return false
	}
	if payload.SessionCode == "" || payload.DisplayName == "" {
		c.reject("login requires a session code and a display name")
		return false
	}

	sess, player, err := c.registry.Login(c.baseCtx, payload.SessionCode, payload.DisplayName, c)
	if err != nil {
		c.reject(err.Error())
		return false
	}

	c.mu.Lock()
	c.sess = sess
	c.player = player
	c.mu.Unlock()

	c.Send(protocol.MustEnvelope(protocol.MsgTypeLoginOK, protocol.LoginOKPayload{
		Welcome: sess.Config().Welcome,
		Team:    player.Team(),
	}))

	log.Info().
		Str("connection_id", c.id).
		Str("session_code", sess.Code()).
		Str("player", player.Name()).
		Msg("login accepted")
	return true
}

// dispatch routes one post-login frame to the owning session. Unknown
// kinds are ignored.
func (c *Connection) dispatch(env protocol.Envelope) {
	switch env.Type {
	case protocol.MsgTypeSendAnswer:
		var payload protocol.SendAnswerPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			log.Debug().
				Str("connection_id", c.id).
				Msg("malformed answer payload, dropping")
			return
		}
		c.mu.Lock()
		sess, player := c.sess, c.player
		c.mu.Unlock()
		sess.HandleAnswer(player, payload.Option)

	default:
		log.Debug().
			Str("connection_id", c.id).
			Str("type", string(env.Type)).
			Msg("unexpected message kind, dropping")
	}
}

func (c *Connection) readEnvelope() (protocol.Envelope, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
			log.Error().
				Err(err).
				Str("connection_id", c.id).
				Msg("unexpected websocket close error")
		}
		return protocol.Envelope{}, err
	}
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))

	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return protocol.Envelope{}, fmt.Errorf("%w: %v", errMalformedFrame, err)
	}
	return env, nil
}

func (c *Connection) reject(reason string) {
	log.Info().
		Str("connection_id", c.id).
		Str("reason", reason).
		Msg("login rejected")
	c.Send(protocol.MustEnvelope(protocol.MsgTypeLoginError, protocol.LoginErrorPayload{Reason: reason}))
	c.Close()
}

func (c *Connection) teardown() {
	c.mu.Lock()
	sess, player := c.sess, c.player
	c.mu.Unlock()

	if sess != nil && player != nil {
		sess.Leave(player)
	}
	// The write pump owns the socket: it drains queued frames after Close
	// and only then releases c.conn, so a rejection queued just before
	// Close still reaches the peer.
	c.Close()

	log.Debug().Str("connection_id", c.id).Msg("connection torn down")
}
