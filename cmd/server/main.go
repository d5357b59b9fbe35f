package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tripledger/tripledger/internal/auth"
	"github.com/tripledger/tripledger/internal/config"
	"github.com/tripledger/tripledger/internal/fx"
	"github.com/tripledger/tripledger/internal/ledger"
	"github.com/tripledger/tripledger/internal/middleware"
	"github.com/tripledger/tripledger/internal/service"
	"github.com/tripledger/tripledger/internal/storage/sqlite"
	"github.com/tripledger/tripledger/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpireHours)*time.Hour)
	authenticator := auth.NewAuthenticator(store, cfg.Security.BcryptCost)

	provider := fx.NewClient(cfg.Fx.AppID, time.Duration(cfg.Fx.TimeoutSeconds)*time.Second)
	normalizer := fx.NewNormalizer(cfg.Fx.HomeCurrency, store, provider)
	engine := ledger.NewEngine(store)
	slog.Info("Currency normalization configured", "home_currency", normalizer.Home())

	mux := service.NewRouter(service.Services{
		Auth:       service.NewAuthService(authenticator, jwtManager),
		Trip:       service.NewTripService(store),
		Expense:    service.NewExpenseService(store, normalizer),
		Settlement: service.NewSettlementService(store),
		Balance:    service.NewBalanceService(store, engine, normalizer),
	}, jwtManager)

	handler := middleware.Logging(middleware.CORS(mux))

	// h2c lets HTTP/2 clients connect without TLS, which stays behind a
	// terminating proxy in production.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
