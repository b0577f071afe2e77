package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/taskbench/backend/internal/app/api/server"
	notificationlog "github.com/taskbench/backend/internal/app/service/notification_log"
	"github.com/taskbench/backend/internal/app/service/renewal"
	"github.com/taskbench/backend/internal/app/service/subscription"
	"github.com/taskbench/backend/internal/app/service/webhook"
	"github.com/taskbench/backend/internal/platform/db"
	"github.com/taskbench/backend/internal/platform/payment"
	"github.com/taskbench/backend/internal/platform/redis"
	"github.com/taskbench/backend/internal/repository"
	"github.com/taskbench/backend/pkg/config"
	"github.com/taskbench/backend/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// Module wires the API process: HTTP surface, subscription lifecycle and
// webhook reconciliation.
var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	repository.Module,
	payment.Module,
	subscription.Module,
	notificationlog.Module,
	webhook.Module,
	server.Module,
)

// WorkerModule wires the renewal worker process. It runs the cron-driven
// scan as a cluster singleton and exposes no HTTP surface.
var WorkerModule = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	redis.Module,
	repository.Module,
	payment.Module,
	renewal.Module,
)
