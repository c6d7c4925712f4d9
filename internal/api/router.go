package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erazemk/ossms/internal/command"
	"github.com/erazemk/ossms/internal/model"
)

// Options configures the router.
type Options struct {
	LoginRate  float64
	LoginBurst int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(svc *command.Service, opts Options) http.Handler {
	mux := http.NewServeMux()

	if opts.LoginRate <= 0 {
		opts.LoginRate = 1
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 5
	}

	authHandler := &AuthHandler{Commands: svc}
	usersHandler := &UsersHandler{Commands: svc}
	suppliesHandler := &SuppliesHandler{Commands: svc}
	historyHandler := &HistoryHandler{Commands: svc}
	reportsHandler := &ReportsHandler{Commands: svc}

	authMW := AuthMiddleware(svc)
	throttle := NewRateLimiter(opts.LoginRate, opts.LoginBurst).Middleware
	can := func(resource, action string, h http.HandlerFunc) http.Handler {
		return authMW(RequirePermission(resource, action)(h))
	}

	// Public.
	mux.Handle("POST /api/auth/login", throttle(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/auth/forgot-password", throttle(http.HandlerFunc(authHandler.ForgotPassword)))
	mux.Handle("POST /api/auth/reset-password", throttle(http.HandlerFunc(authHandler.ResetPassword)))
	mux.HandleFunc("GET /api/version", authHandler.Version)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Own session.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))

	// Users.
	mux.Handle("GET /api/users", can(model.ResourceUsers, model.ActionView, usersHandler.List))
	mux.Handle("POST /api/users", can(model.ResourceUsers, model.ActionCreate, usersHandler.Create))
	mux.Handle("GET /api/users/{id}", can(model.ResourceUsers, model.ActionView, usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", can(model.ResourceUsers, model.ActionEdit, usersHandler.Update))
	mux.Handle("DELETE /api/users/{id}", can(model.ResourceUsers, model.ActionDelete, usersHandler.Delete))

	// Supplies.
	mux.Handle("GET /api/supplies", can(model.ResourceSupplies, model.ActionView, suppliesHandler.List))
	mux.Handle("POST /api/supplies", can(model.ResourceSupplies, model.ActionCreate, suppliesHandler.Create))
	mux.Handle("GET /api/supplies/{id}", can(model.ResourceSupplies, model.ActionView, suppliesHandler.Get))
	mux.Handle("PUT /api/supplies/{id}", can(model.ResourceSupplies, model.ActionEdit, suppliesHandler.Update))
	mux.Handle("DELETE /api/supplies/{id}", can(model.ResourceSupplies, model.ActionDelete, suppliesHandler.Delete))
	mux.Handle("POST /api/supplies/{id}/stock-in", can(model.ResourceSupplies, model.ActionEdit, suppliesHandler.StockIn))
	mux.Handle("POST /api/supplies/{id}/stock-out", can(model.ResourceSupplies, model.ActionEdit, suppliesHandler.StockOut))
	mux.Handle("POST /api/supplies/recalculate-status", can(model.ResourceSupplies, model.ActionEdit, suppliesHandler.Recalculate))

	// Supply history.
	mux.Handle("GET /api/history", can(model.ResourceHistories, model.ActionView, historyHandler.List))
	mux.Handle("GET /api/supplies/{id}/history", can(model.ResourceHistories, model.ActionView, historyHandler.ForSupply))
	mux.Handle("DELETE /api/history/{id}", can(model.ResourceHistories, model.ActionDelete, historyHandler.Delete))

	// Reports.
	mux.Handle("GET /api/reports/low-stock", can(model.ResourceReports, model.ActionView, reportsHandler.LowStock))
	mux.Handle("GET /api/reports/valuation", can(model.ResourceReports, model.ActionView, reportsHandler.Valuation))

	return LoggingMiddleware(mux)
}
