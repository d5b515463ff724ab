package worker

import (
	"github.com/spec-kit/employee-service/internal/events"
	"github.com/spec-kit/employee-service/internal/service"
)

// StartNotificationWorker registers notification handlers and, when given,
// the realtime relay.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, relay *service.RealtimeRelay) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if relay != nil {
		relay.Register(dispatcher)
	}
}
