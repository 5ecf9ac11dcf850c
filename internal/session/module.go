// Package session provides the session and variant bounded context module.
// It owns durable session identity, experiment bucket assignment, and the
// one-shot UTM attribution snapshot.
package session

import (
	"funnel_backend/internal/events"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/session/handler"
	"funnel_backend/internal/session/repository"
	"funnel_backend/internal/session/service"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the session bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	store   repository.Store
}

// NewModule creates and initializes the session module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, bus events.Bus, log *logger.Logger) *Module {
	store := repository.New(pool)
	fallback := repository.NewMemory()
	svc := service.New(store, fallback, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		store:   store,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "session"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the session routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/sessions", m.handler.GetOrCreate)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
