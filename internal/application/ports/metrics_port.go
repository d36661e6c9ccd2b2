package ports

// NotificationMetrics puerto de salida para instrumentar el registro de conexiones y el dispatcher.
// La implementación real vive en infrastructure/metrics (Prometheus).
type NotificationMetrics interface {
	// ObserveDispatch registra un intento de entrega y si llegó a una conexión viva.
	ObserveDispatch(notificationType string, delivered bool)
	// SetActiveConnections publica el número de usuarios con conexión registrada.
	SetActiveConnections(n int)
}

// NopNotificationMetrics implementación vacía para tests y herramientas CLI.
type NopNotificationMetrics struct{}

func (NopNotificationMetrics) ObserveDispatch(string, bool) {}
func (NopNotificationMetrics) SetActiveConnections(int)     {}
