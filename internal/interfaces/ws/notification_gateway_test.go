package ws

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/crm-api/internal/application/notification"
	apphttp "github.com/jhoicas/crm-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/crm-api/pkg/jwt"
)

const (
	testSecret = "ws-test-secret"
	testUser   = int64(7)
	notifyPath = "/ws/notifications"
)

type testServer struct {
	addr       string
	registry   *notification.Registry
	dispatcher *notification.Dispatcher
}

// startServer levanta la app en un puerto libre con el gateway montado.
func startServer(t *testing.T, pongWait time.Duration) *testServer {
	t.Helper()
	registry := notification.NewRegistry(nil)
	g := NewGateway(registry, nil)
	if pongWait > 0 {
		g.pongWait = pongWait
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	g.Register(app, notifyPath, apphttp.AuthMiddleware(testSecret))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return &testServer{
		addr:       ln.Addr().String(),
		registry:   registry,
		dispatcher: notification.NewDispatcher(registry, nil, nil),
	}
}

func token(t *testing.T) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testSecret, testUser, "rep@crm.test", "SALES_REP", "crm-test", 5)
	require.NoError(t, err)
	return tok
}

func (s *testServer) dial(t *testing.T) *fws.Conn {
	t.Helper()
	c, resp, err := fws.DefaultDialer.Dial("ws://"+s.addr+notifyPath+"?token="+token(t), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, c *fws.Conn) event {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev event
	require.NoError(t, c.ReadJSON(&ev))
	return ev
}

func join(t *testing.T, s *testServer, c *fws.Conn) {
	t.Helper()
	require.NoError(t, c.WriteJSON(map[string]string{"event": EventJoin}))
	ev := readEvent(t, c)
	require.Equal(t, EventJoined, ev.Event)
	assert.JSONEq(t, `{"user_id":7}`, string(ev.Data))
	require.Eventually(t, func() bool { return s.registry.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestGateway_JoinEntregaYDesconexion(t *testing.T) {
	s := startServer(t, 0)
	c := s.dial(t)

	assert.False(t, s.dispatcher.Dispatch(context.Background(), testUser, "antes de join", notification.TypeDealCreated),
		"sin join la conexión no está registrada")

	join(t, s, c)

	require.True(t, s.dispatcher.Dispatch(context.Background(), testUser, "Deal ganado: Acme", notification.TypeDealWon))
	ev := readEvent(t, c)
	assert.Equal(t, EventNewNotification, ev.Event)
	assert.JSONEq(t, `{"message":"Deal ganado: Acme","type":"DEAL_WON"}`, string(ev.Data))

	require.NoError(t, c.Close())
	assert.Eventually(t, func() bool { return s.registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, s.dispatcher.Dispatch(context.Background(), testUser, "tarde", notification.TypeDealWon))
}

func TestGateway_EventoDesconocidoNoCierraLaConexion(t *testing.T) {
	s := startServer(t, 0)
	c := s.dial(t)

	require.NoError(t, c.WriteMessage(fws.TextMessage, []byte("no es json")))
	require.NoError(t, c.WriteJSON(map[string]string{"event": "otro"}))
	join(t, s, c)
}

func TestGateway_SinUpgradeOSinToken(t *testing.T) {
	s := startServer(t, 0)

	req, err := http.NewRequest(http.MethodGet, "http://"+s.addr+notifyPath+"?token="+token(t), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	_, resp, err = fws.DefaultDialer.Dial("ws://"+s.addr+notifyPath, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGateway_ClienteSinPongSeDesregistra(t *testing.T) {
	s := startServer(t, time.Second)
	c := s.dial(t)
	join(t, s, c)

	// el cliente no vuelve a leer: los pings quedan sin respuesta y vence el plazo de lectura
	assert.Eventually(t, func() bool { return s.registry.Len() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestGateway_ClienteQueRespondePingsSigueRegistrado(t *testing.T) {
	s := startServer(t, time.Second)
	c := s.dial(t)
	join(t, s, c)

	require.NoError(t, c.SetReadDeadline(time.Time{}))
	go func() {
		// leer procesa los pings y responde pong
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	time.Sleep(2500 * time.Millisecond)
	assert.Equal(t, 1, s.registry.Len())
}
