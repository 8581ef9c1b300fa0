// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"course-marketplace-checkout/internal/config"
	"course-marketplace-checkout/internal/domain/model"
	gw "course-marketplace-checkout/internal/infra/adapters/gateway"
	"course-marketplace-checkout/internal/infra/api"
	pg "course-marketplace-checkout/internal/infra/db/postgres"
	"course-marketplace-checkout/internal/infra/logging"
	"course-marketplace-checkout/internal/infra/metrics"
	red "course-marketplace-checkout/internal/infra/redis"
	"course-marketplace-checkout/internal/infra/sched"
	"course-marketplace-checkout/internal/infra/security"
	"course-marketplace-checkout/internal/infra/worker"
	"course-marketplace-checkout/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateways allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	sessionStore := red.NewSessionStore(redisClient, cfg.API.SessionTTL)
	locker := red.NewLocker(redisClient)

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		log.Printf("WARNING: security.encryption_key not set or not 32 bytes; falling back to dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		log.Fatalf("encryption: %v", err)
	}

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	orderRepo := pg.NewOrderRepo(pool)
	couponRepo := pg.NewCouponRepo(pool)
	walletRepo := pg.NewWalletRepo(pool, txManager)
	attemptRepo := pg.NewSessionRepo(pool)
	methodRepo := pg.NewSavedMethodRepo(pool, encSvc)

	// ---- Exchange rates ----
	rates, err := parseRates(cfg.Currency.Rates)
	if err != nil {
		log.Fatalf("currency rates: %v", err)
	}

	// ---- Gateway registry ----
	registry := usecase.NewGatewayRegistry(methodRepo)
	for _, gcfg := range cfg.Gateways {
		desc, set, err := buildGateway(gcfg, walletRepo, methodRepo, cfg.Runtime.Dev)
		if err != nil {
			log.Fatalf("gateway %s: %v", gcfg.ID, err)
		}
		if err := registry.Register(desc, set); err != nil {
			log.Fatalf("gateway %s: %v", gcfg.ID, err)
		}
		logger.Info().Str("gateway", desc.ID).Bool("primary", desc.Primary).Msg("gateway registered")
	}

	// ---- Use cases ----
	checkoutUC := usecase.NewCheckoutUseCase(orderRepo, couponRepo, walletRepo, registry, sessionStore, attemptRepo, txManager, locker, rates, logger)
	statsUC := usecase.NewStatsUseCase(attemptRepo)

	// ---- Redirect reconciler ----
	wpool := worker.NewPool(cfg.Reconciler.Workers, logger)
	wpool.Start(ctx)
	defer wpool.Stop()
	reconciler := sched.NewRedirectReconciler(checkoutUC, attemptRepo, wpool, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go reconciler.Start(ctx)

	// ---- HTTP API ----
	auth := api.NewAuthManager(cfg.API.JWTSecret, cfg.API.SessionTTL)
	srv := api.NewServer(checkoutUC, statsUC, auth, cfg.API.Port, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}

func parseRates(raw map[string]string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal, len(raw))
	for code, v := range raw {
		d, err := decimal.NewFromString(v)
		if err != nil || !d.IsPositive() {
			return nil, fmt.Errorf("rate %s=%q must be a positive decimal", code, v)
		}
		rates[code] = d
	}
	return rates, nil
}

// buildGateway turns one config entry into a descriptor plus its adapter set.
// In dev mode a gateway with no base_url runs on the in-memory noop adapter.
func buildGateway(gcfg config.GatewayConfig, wallet *pg.WalletRepo, methods *pg.SavedMethodRepo, dev bool) (model.GatewayDescriptor, usecase.AdapterSet, error) {
	desc := model.GatewayDescriptor{
		ID:          gcfg.ID,
		DisplayName: gcfg.DisplayName,
		Primary:     gcfg.Primary,
		Capabilities: model.GatewayCapabilities{
			DirectCharge:    gcfg.DirectCharge,
			Redirect:        gcfg.Redirect,
			Wallet:          gcfg.Wallet,
			SavedInstrument: gcfg.SavedInstrument,
		},
	}
	var set usecase.AdapterSet

	if gcfg.DirectCharge || gcfg.SavedInstrument {
		if gcfg.BaseURL == "" && dev {
			noop := gw.NewNoopGateway(gcfg.ID, false)
			set.Direct = noop
			if gcfg.SavedInstrument {
				return desc, set, fmt.Errorf("saved_instrument requires a real provider (base_url)")
			}
		} else {
			card, err := gw.NewCardLinkGateway(gcfg.ID, gcfg.DisplayName, gcfg.BaseURL, gcfg.APIKey)
			if err != nil {
				return desc, set, err
			}
			if gcfg.DirectCharge {
				set.Direct = card
			}
			if gcfg.SavedInstrument {
				set.Saved = gw.NewSavedInstrumentAdapter(gcfg.ID, "Saved card", card, methods)
			}
		}
	}
	if gcfg.Redirect {
		if gcfg.BaseURL == "" && dev {
			set.Redirect = gw.NewNoopGateway(gcfg.ID, true)
		} else {
			rp, err := gw.NewRedirectPayGateway(gcfg.ID, gcfg.DisplayName, gcfg.BaseURL, gcfg.APIKey, gcfg.CallbackURL, gcfg.CancelURL)
			if err != nil {
				return desc, set, err
			}
			set.Redirect = rp
		}
	}
	if gcfg.Wallet {
		set.Wallet = gw.NewWalletAdapter(gcfg.ID, gcfg.DisplayName, wallet)
	}
	return desc, set, nil
}
