package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripledger/tripledger/internal/auth"
	"github.com/tripledger/tripledger/internal/middleware"
)

// Services bundles the handler groups the router mounts.
type Services struct {
	Auth       *AuthService
	Trip       *TripService
	Expense    *ExpenseService
	Settlement *SettlementService
	Balance    *BalanceService
}

// NewRouter builds the API mux. Metrics are attached per route so the
// route pattern label is populated; auth is enforced on everything except
// registration, login and the health and metrics endpoints.
func NewRouter(svc Services, jwtManager *auth.JWTManager) *http.ServeMux {
	mux := http.NewServeMux()

	open := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Metrics(h))
	}
	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Metrics(middleware.RequireAuth(jwtManager, h)))
	}

	open("POST /api/auth/register", svc.Auth.Register)
	open("POST /api/auth/login", svc.Auth.Login)

	protected("POST /api/trips", svc.Trip.Create)
	protected("GET /api/trips", svc.Trip.List)
	protected("GET /api/trips/{tripID}", svc.Trip.Get)
	protected("GET /api/trips/{tripID}/members", svc.Trip.Members)
	protected("POST /api/trips/{tripID}/invites", svc.Trip.CreateInvite)
	protected("POST /api/invites/{token}/join", svc.Trip.Join)

	protected("POST /api/trips/{tripID}/expenses", svc.Expense.Create)
	protected("GET /api/trips/{tripID}/expenses", svc.Expense.List)
	protected("PUT /api/trips/{tripID}/expenses/{expenseID}", svc.Expense.Update)
	protected("DELETE /api/trips/{tripID}/expenses/{expenseID}", svc.Expense.Delete)

	protected("GET /api/categories", svc.Expense.ListCategories)
	protected("POST /api/categories", svc.Expense.CreateCategory)

	protected("POST /api/trips/{tripID}/settlements", svc.Settlement.Create)
	protected("GET /api/trips/{tripID}/settlements", svc.Settlement.List)
	protected("POST /api/trips/{tripID}/settlements/{settlementID}/confirm", svc.Settlement.Confirm)

	protected("GET /api/trips/{tripID}/balance", svc.Balance.Balance)
	protected("GET /api/trips/{tripID}/stats", svc.Balance.Stats)
	protected("GET /api/currencies", svc.Balance.Currencies)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}
