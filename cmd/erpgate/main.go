package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erpgate/erpgate/internal/app"
	"github.com/erpgate/erpgate/internal/auth"
	"github.com/erpgate/erpgate/internal/customers"
	"github.com/erpgate/erpgate/internal/docstore"
	"github.com/erpgate/erpgate/internal/invoices"
	"github.com/erpgate/erpgate/internal/items"
	"github.com/erpgate/erpgate/internal/masterdata"
	"github.com/erpgate/erpgate/internal/observability"
	"github.com/erpgate/erpgate/internal/platform/cache"
	"github.com/erpgate/erpgate/internal/platform/db"
	"github.com/erpgate/erpgate/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caches disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	errlog := shared.NewErrorLog(pool, logger)
	fields := docstore.NewFieldRegistry(cfg.DocFields)

	authService := auth.NewService(auth.NewRepository(pool))

	mdService := masterdata.NewService(logger, masterdata.NewRepository(pool), redisClient, cfg.CacheTTL)
	mdHandler := masterdata.NewHandler(logger, mdService)

	itemStore := items.NewStore(pool)
	itemCache := items.NewSummaryCache(logger, redisClient, itemStore, cfg.CacheTTL)
	itemService := items.NewService(logger, itemStore, mdService, itemCache, items.Options{
		DefaultStockUOM: cfg.DefaultStockUOM,
	})
	itemHandler := items.NewHandler(logger, itemService, errlog, cfg.ERPBaseURL)

	customerResolver := customers.NewResolver(logger, fields, customers.Defaults{
		CustomerType:  cfg.DefaultCustomerType,
		CustomerGroup: cfg.DefaultCustomerGroup,
		Territory:     cfg.DefaultTerritory,
		Country:       cfg.DefaultCountry,
	})
	taxcodeResolver := invoices.NewTaxCodeResolver(logger, mdService)
	invoiceService := invoices.NewService(
		logger,
		invoices.NewStore(pool),
		mdService,
		customerResolver,
		taxcodeResolver,
		itemCache,
		fields,
		invoices.Options{
			DefaultItemGroup:  cfg.DefaultItemGroup,
			FallbackItemGroup: cfg.FallbackItemGroup,
			DefaultStockUOM:   cfg.DefaultStockUOM,
		},
	)
	invoiceHandler := invoices.NewHandler(logger, invoiceService, errlog, cfg.ERPBaseURL)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthService:       authService,
		ItemHandler:       itemHandler,
		InvoiceHandler:    invoiceHandler,
		MasterDataHandler: mdHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
