package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"walletbridge/agent/database"
	"walletbridge/agent/internal/bot"
	"walletbridge/agent/internal/handlers"
	"walletbridge/agent/internal/services"
	"walletbridge/shared/config"
	"walletbridge/shared/logger"
	"walletbridge/shared/notifications"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		log.Fatalf("FATAL: failed to initialize logger: %v", err)
	}
	appLogger.Info("configuration loaded", "environment", cfg.App.Environment, "asset", cfg.Asset.ID)

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		appLogger.Fatal("database connection failed", "err", err)
	}
	if err := database.Migrate(db, cfg.Database.URL); err != nil {
		appLogger.Fatal("database migration failed", "err", err)
	}
	appLogger.Info("database ready")

	sender, err := notifications.New(cfg.Telegram.BotToken)
	if err != nil {
		appLogger.Fatal("telegram initialization failed", "err", err)
	}
	appLogger.Info("telegram sender initialized")

	identities := database.NewIdentityStore(db)
	alerts := database.NewAlertStore(db)
	watchlist := database.NewWatchlistStore(db)
	referrals := database.NewReferralStore(db)
	tickets := database.NewTicketStore(db)

	links := services.NewLinkTokenManager(identities, cfg.Link.BaseURL, cfg.Link.TokenTTL, appLogger)
	quota := services.NewQuotaEnforcer(alerts, watchlist, cfg.Alerts.MaxActive, cfg.Alerts.MaxWatchlist)
	priceFeed := services.NewPriceFeed(cfg.Asset.ID, appLogger)
	engine := services.NewAlertEngine(alerts, identities, priceFeed, sender, cfg.Asset.Symbol, appLogger)

	var chain bot.BalanceReader
	if cfg.Chain.RPCURL != "" {
		reader, err := services.NewChainReader(cfg.Chain.RPCURL)
		if err != nil {
			appLogger.Fatal("chain rpc initialization failed", "err", err)
		}
		defer reader.Close()
		chain = reader
	} else {
		appLogger.Warn("CHAIN_RPC_URL not set, /balance will be unavailable")
		chain = unavailableChain{}
	}

	router := bot.NewRouter(identities, appLogger)
	commands := bot.NewCommands(bot.CommandsDeps{
		Identities: identities,
		Alerts:     alerts,
		Watchlist:  watchlist,
		Referrals:  referrals,
		Tickets:    tickets,
		Links:      links,
		Quota:      quota,
		Price:      priceFeed,
		Chain:      chain,
		Symbol:     cfg.Asset.Symbol,
		Log:        appLogger,
	})
	commands.Register(router)

	gin.SetMode(gin.ReleaseMode)
	web := gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	web.Use(cors.New(corsConfig))
	handlers.RegisterRoutes(web, appLogger)
	handlers.RegisterAPIRoutes(web, appLogger, links)

	ctx := context.Background()

	go runSweepScheduler(ctx, engine, cfg.Alerts.SweepInterval, appLogger)

	go func() {
		addr := ":" + cfg.App.Port
		appLogger.Info("starting web server", "address", addr)
		if err := web.Run(addr); err != nil {
			appLogger.Fatal("web server stopped", "err", err)
		}
	}()

	listener := bot.NewListener(sender, router, appLogger)
	appLogger.Info("startup complete")
	listener.Run(ctx)
}

// runSweepScheduler invokes the alert engine on a fixed interval. The
// engine holds no timer of its own; overlapping sweeps are safe.
func runSweepScheduler(ctx context.Context, engine *services.AlertEngine, interval time.Duration, appLogger *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := engine.Sweep(ctx); err != nil {
				appLogger.Warn("alert sweep degraded", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// unavailableChain stands in when no chain RPC endpoint is configured.
type unavailableChain struct{}

func (unavailableChain) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	return decimal.Zero, services.ErrUnavailable
}
