// Package submission provides the lead submission bounded context module.
// It owns durable lead persistence and best-effort fan-out to the CRM and
// tracking collectors.
package submission

import (
	"funnel_backend/internal/alert"
	"funnel_backend/internal/events"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/submission/crm"
	"funnel_backend/internal/submission/handler"
	"funnel_backend/internal/submission/repository"
	"funnel_backend/internal/submission/service"
	"funnel_backend/internal/submission/tracking"
	"funnel_backend/platform/config"
	"funnel_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the submission bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Orchestrator
	repo    repository.Repository
	log     *logger.Logger
}

// NewModule creates and initializes the submission module.
func NewModule(
	pool *pgxpool.Pool,
	queue service.Queue,
	cfg *config.Config,
	alerts alert.Sender,
	bus events.Bus,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	notifier := crm.New(cfg.GetCRMWebhookURL(), cfg.GetDeliveryTimeout())
	tracker := tracking.New(cfg.GetTrackingCollectorURLs(), cfg.GetDeliveryTimeout())
	svc := service.New(repo, queue, notifier, tracker, alerts, cfg, cfg.GetDeliveryTimeout(), bus, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "submission"
}

// Service returns the orchestrator for external use. The funnel module
// consumes it as its lead submitter.
func (m *Module) Service() *service.Orchestrator {
	return m.service
}

// Repository returns the lead store. The delivery worker loads leads from it.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts the submission observability routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/leads/:submissionID/deliveries", m.handler.Deliveries)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
