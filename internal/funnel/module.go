// Package funnel provides the question-flow bounded context module.
// It owns the track definitions, the active-sequence engine, and the
// per-session step state machine.
package funnel

import (
	"context"

	"funnel_backend/internal/events"
	"funnel_backend/internal/funnel/definition"
	"funnel_backend/internal/funnel/handler"
	"funnel_backend/internal/funnel/ports"
	"funnel_backend/internal/funnel/repository"
	"funnel_backend/internal/funnel/service"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the funnel bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
	log     *logger.Logger
}

// NewModule creates and initializes the funnel module with all its dependencies.
func NewModule(
	pool *pgxpool.Pool,
	defs *definition.Registry,
	sessions ports.SessionReader,
	gate ports.VerificationGate,
	submitter ports.LeadSubmitter,
	policy service.VerificationPolicy,
	val *validator.Validator,
	bus events.Bus,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(defs, repo, sessions, gate, submitter, policy, val, bus, log)
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
	return "funnel"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the funnel routes on the session-scoped group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Funnel.GET("/state", m.handler.State)
	ctx.Funnel.POST("/answers", m.handler.Answer)
	ctx.Funnel.POST("/back", m.handler.Back)
	ctx.Funnel.POST("/submit", m.handler.Submit)
}

// RegisterHandlers subscribes to verification events so the state machine can
// leave the verification gate as soon as the phone is confirmed.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.PhoneVerified{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.PhoneVerified:
		return m.service.ConfirmVerified(ctx, e.SessionID)
	default:
		return nil
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
