// Package notification contiene el registro de conexiones vivas y el dispatcher de notificaciones.
// Las entregas son best-effort: sin cola, sin reintentos.
package notification

import (
	"sync"

	"github.com/jhoicas/crm-api/internal/application/ports"
)

// Type tipo de notificación.
type Type string

const (
	TypeDealCreated     Type = "DEAL_CREATED"
	TypeDealWon         Type = "DEAL_WON"
	TypeDealNegotiation Type = "DEAL_NEGOTIATION"
)

// Valid indica si el tipo es conocido.
func (t Type) Valid() bool {
	switch t {
	case TypeDealCreated, TypeDealWon, TypeDealNegotiation:
		return true
	}
	return false
}

// Notification payload entregado al cliente.
type Notification struct {
	Message string `json:"message"`
	Type    Type   `json:"type"`
}

// Handle conexión viva de un usuario. Debe ser comparable (normalmente un puntero):
// Disconnect la localiza por igualdad.
type Handle interface {
	Send(n Notification) error
}

// Registry mapea userID → conexión. Una conexión por usuario; un nuevo join reemplaza la anterior
// sin avisar a la desplazada. Seguro para uso concurrente.
type Registry struct {
	mu      sync.RWMutex
	users   map[int64]Handle
	metrics ports.NotificationMetrics
}

// NewRegistry crea un registro vacío. metrics puede ser nil.
func NewRegistry(metrics ports.NotificationMetrics) *Registry {
	if metrics == nil {
		metrics = ports.NopNotificationMetrics{}
	}
	return &Registry{
		users:   make(map[int64]Handle),
		metrics: metrics,
	}
}

// Join registra (o reemplaza) la conexión del usuario.
// El gauge se actualiza bajo el lock para que nunca quede con un conteo anterior.
func (r *Registry) Join(userID int64, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = h
	r.metrics.SetActiveConnections(len(r.users))
}

// Disconnect elimina las entradas cuya conexión es h (recorrido lineal). Devuelve cuántas eliminó.
// Si el usuario ya se había reconectado con otra conexión, esa entrada se conserva.
func (r *Registry) Disconnect(h Handle) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for userID, stored := range r.users {
		if stored == h {
			delete(r.users, userID)
			removed++
		}
	}
	if removed > 0 {
		r.metrics.SetActiveConnections(len(r.users))
	}
	return removed
}

// Lookup devuelve la conexión registrada del usuario.
func (r *Registry) Lookup(userID int64) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.users[userID]
	return h, ok
}

// Len número de usuarios conectados.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
