package notification

import (
	"context"

	"github.com/jhoicas/crm-api/internal/application/ports"
	"github.com/jhoicas/crm-api/pkg/logger"
)

// Dispatcher busca la conexión del usuario y le entrega la notificación.
type Dispatcher struct {
	registry *Registry
	metrics  ports.NotificationMetrics
	log      *logger.Logger
}

// NewDispatcher construye el dispatcher sobre un registro. metrics y log pueden ser nil.
func NewDispatcher(registry *Registry, metrics ports.NotificationMetrics, log *logger.Logger) *Dispatcher {
	if metrics == nil {
		metrics = ports.NopNotificationMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{registry: registry, metrics: metrics, log: log.Component("notifications")}
}

// Dispatch entrega {message, type} a la conexión del usuario. Devuelve true si se entregó.
// Usuario sin conexión o fallo de escritura → false; nunca es un error para el llamador.
func (d *Dispatcher) Dispatch(_ context.Context, userID int64, message string, t Type) bool {
	h, ok := d.registry.Lookup(userID)
	if !ok {
		d.log.Debug().Int64("user_id", userID).Str("type", string(t)).Msg("usuario no conectado, notificación no enviada")
		d.metrics.ObserveDispatch(string(t), false)
		return false
	}
	if err := h.Send(Notification{Message: message, Type: t}); err != nil {
		d.log.Warn().Err(err).Int64("user_id", userID).Str("type", string(t)).Msg("fallo al enviar notificación")
		d.metrics.ObserveDispatch(string(t), false)
		return false
	}
	d.log.Debug().Int64("user_id", userID).Str("type", string(t)).Msg("notificación enviada")
	d.metrics.ObserveDispatch(string(t), true)
	return true
}
