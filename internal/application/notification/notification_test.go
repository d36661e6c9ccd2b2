package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/crm-api/internal/application/notification"
)

type fakeHandle struct {
	mu   sync.Mutex
	got  []notification.Notification
	fail bool
}

func (h *fakeHandle) Send(n notification.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return errors.New("conexión cerrada")
	}
	h.got = append(h.got, n)
	return nil
}

func (h *fakeHandle) received() []notification.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]notification.Notification(nil), h.got...)
}

type fakeMetrics struct {
	mu         sync.Mutex
	delivered  map[bool]int
	connection int
}

func (m *fakeMetrics) ObserveDispatch(_ string, delivered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delivered == nil {
		m.delivered = map[bool]int{}
	}
	m.delivered[delivered]++
}

func (m *fakeMetrics) SetActiveConnections(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connection = n
}

func TestRegistry_JoinReemplazaConexionAnterior(t *testing.T) {
	r := notification.NewRegistry(nil)
	first, second := &fakeHandle{}, &fakeHandle{}

	r.Join(7, first)
	r.Join(7, second)

	h, ok := r.Lookup(7)
	require.True(t, ok)
	assert.Same(t, second, h)
	assert.Equal(t, 1, r.Len())

	assert.Equal(t, 0, r.Disconnect(first), "la conexión desplazada ya no está registrada")
	_, ok = r.Lookup(7)
	assert.True(t, ok)

	assert.Equal(t, 1, r.Disconnect(second))
	_, ok = r.Lookup(7)
	assert.False(t, ok)
}

func TestRegistry_DisconnectQuitaTodasLasEntradasDeLaConexion(t *testing.T) {
	m := &fakeMetrics{}
	r := notification.NewRegistry(m)
	shared, other := &fakeHandle{}, &fakeHandle{}

	r.Join(1, shared)
	r.Join(2, shared)
	r.Join(3, other)
	assert.Equal(t, 3, m.connection)

	assert.Equal(t, 2, r.Disconnect(shared))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, m.connection)
}

func TestRegistry_Concurrente(t *testing.T) {
	r := notification.NewRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			h := &fakeHandle{}
			r.Join(id, h)
			_, _ = r.Lookup(id)
			if id%2 == 0 {
				r.Disconnect(h)
			}
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 25, r.Len())
}

func TestDispatcher_EntregaAlUsuarioConectado(t *testing.T) {
	m := &fakeMetrics{}
	r := notification.NewRegistry(m)
	h := &fakeHandle{}
	r.Join(7, h)
	d := notification.NewDispatcher(r, m, nil)

	ok := d.Dispatch(context.Background(), 7, "Nuevo deal creado: Acme", notification.TypeDealCreated)

	assert.True(t, ok)
	assert.Equal(t, []notification.Notification{{Message: "Nuevo deal creado: Acme", Type: notification.TypeDealCreated}}, h.received())
	assert.Equal(t, 1, m.delivered[true])
}

func TestDispatcher_UsuarioSinConexion(t *testing.T) {
	m := &fakeMetrics{}
	d := notification.NewDispatcher(notification.NewRegistry(m), m, nil)

	assert.False(t, d.Dispatch(context.Background(), 7, "Deal ganado: Acme", notification.TypeDealWon))
	assert.Equal(t, 1, m.delivered[false])
}

func TestDispatcher_FalloDeEscrituraNoEsError(t *testing.T) {
	r := notification.NewRegistry(nil)
	r.Join(7, &fakeHandle{fail: true})
	d := notification.NewDispatcher(r, nil, nil)

	assert.False(t, d.Dispatch(context.Background(), 7, "x", notification.TypeDealNegotiation))
}

func TestType_Valid(t *testing.T) {
	assert.True(t, notification.TypeDealCreated.Valid())
	assert.True(t, notification.TypeDealWon.Valid())
	assert.True(t, notification.TypeDealNegotiation.Valid())
	assert.False(t, notification.Type("DEAL_LOST").Valid())
}

func TestRegistry_GaugeCoincideConElRegistroTrasCarrera(t *testing.T) {
	m := &fakeMetrics{}
	r := notification.NewRegistry(m)

	var wg sync.WaitGroup
	for i := int64(1); i <= 200; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			h := &fakeHandle{}
			r.Join(id, h)
			if id%2 == 0 {
				r.Disconnect(h)
			}
		}(i)
	}
	wg.Wait()

	n := r.Len()
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 100, n)
	assert.Equal(t, n, m.connection, "el último valor publicado es el conteo vigente")
}
