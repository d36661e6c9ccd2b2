// Package ws expone el canal de notificaciones en vivo sobre WebSocket.
//
// Protocolo:
//
//	cliente → {"event":"join"}                               registra la conexión para el usuario del token
//	servidor → {"event":"joined","data":{"user_id":7}}
//	servidor → {"event":"newNotification","data":{"message":"...","type":"DEAL_CREATED"}}
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/crm-api/internal/application/notification"
	apphttp "github.com/jhoicas/crm-api/internal/interfaces/http"
	"github.com/jhoicas/crm-api/pkg/logger"
)

const (
	EventJoin            = "join"
	EventJoined          = "joined"
	EventNewNotification = "newNotification"

	writeWait = 10 * time.Second
	// defaultPongWait sin pong (ni mensaje) en este plazo la conexión se da por muerta.
	defaultPongWait = 60 * time.Second
)

type inboundMessage struct {
	Event string `json:"event"`
}

type outboundMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Gateway conecta las conexiones WebSocket con el registro de notificaciones.
type Gateway struct {
	registry *notification.Registry
	log      *logger.Logger
	pongWait time.Duration
}

// NewGateway construye el gateway. log puede ser nil.
func NewGateway(registry *notification.Registry, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{registry: registry, log: log.Component("ws"), pongWait: defaultPongWait}
}

// Register monta GET {path} con auth (header Bearer o ?token=) y upgrade obligatorio.
func (g *Gateway) Register(r fiber.Router, path string, auth fiber.Handler) {
	r.Get(path, auth, requireUpgrade, websocket.New(g.serve))
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// conn adapta *websocket.Conn a notification.Handle. Las escrituras se serializan:
// el dispatcher y el propio loop pueden escribir a la vez.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) Send(n notification.Notification) error {
	return c.write(outboundMessage{Event: EventNewNotification, Data: n})
}

func (c *conn) write(msg outboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(msg)
}

// keepAlive envía pings periódicos hasta que done se cierre. WriteControl admite escritura concurrente.
func keepAlive(ws *websocket.Conn, every time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) serve(ws *websocket.Conn) {
	userID, _ := ws.Locals(apphttp.LocalUserID).(int64)
	h := &conn{ws: ws}
	zl := g.log.Zerolog()
	log := zl.With().Int64("user_id", userID).Logger()

	done := make(chan struct{})
	defer func() {
		close(done)
		if removed := g.registry.Disconnect(h); removed > 0 {
			log.Debug().Msg("conexión de notificaciones cerrada")
		}
		_ = ws.Close()
	}()

	_ = ws.SetReadDeadline(time.Now().Add(g.pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(g.pongWait))
	})
	go keepAlive(ws, g.pongWait*9/10, done)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("lectura websocket")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(g.pongWait))
		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug().Err(err).Msg("mensaje websocket ignorado")
			continue
		}
		switch msg.Event {
		case EventJoin:
			g.registry.Join(userID, h)
			log.Debug().Msg("usuario unido a notificaciones")
			if err := h.write(outboundMessage{Event: EventJoined, Data: map[string]int64{"user_id": userID}}); err != nil {
				return
			}
		default:
			log.Debug().Str("event", msg.Event).Msg("evento websocket desconocido")
		}
	}
}
