package webhook

import (
	"go.uber.org/fx"

	notificationlog "github.com/taskbench/backend/internal/app/service/notification_log"
)

var Module = fx.Options(
	fx.Provide(func(s *notificationlog.Service) AuditLog { return s }),
	fx.Provide(NewReconciler),
)
