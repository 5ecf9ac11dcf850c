// Package verification provides the phone verification bounded context module.
// Code generation and delivery are delegated to the SMS provider; this module
// owns attempt bookkeeping, cooldowns, and the verified gate.
package verification

import (
	"funnel_backend/internal/events"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/verification/handler"
	"funnel_backend/internal/verification/provider"
	"funnel_backend/internal/verification/repository"
	"funnel_backend/internal/verification/service"
	"funnel_backend/platform/config"
	"funnel_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the verification bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

// NewModule creates and initializes the verification module. When SMS is
// disabled or verification is skipped, the no-op provider accepts every code
// so local development never needs Twilio credentials.
func NewModule(pool *pgxpool.Pool, cfg config.VerificationConfig, bus events.Bus, log *logger.Logger) *Module {
	var prov provider.Provider
	if cfg.IsSMSEnabled() && !cfg.GetSkipPhoneVerification() {
		prov = provider.NewTwilio(cfg)
	} else {
		prov = provider.Noop{}
	}

	repo := repository.New(pool)
	svc := service.New(repo, prov, cfg, bus, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "verification"
}

// Service returns the service layer for external use. The funnel module
// consumes it as its verification gate.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the verification routes on the session-scoped group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Funnel.POST("/verification/request", m.handler.RequestCode)
	ctx.Funnel.POST("/verification/resend", m.handler.Resend)
	ctx.Funnel.POST("/verification/verify", m.handler.VerifyCode)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
