package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/tiffindesk/api/internal/bill"
	"github.com/tiffindesk/api/internal/catalog"
	"github.com/tiffindesk/api/internal/config"
	"github.com/tiffindesk/api/internal/customer"
	"github.com/tiffindesk/api/internal/logger"
	"github.com/tiffindesk/api/internal/orders"
	"github.com/tiffindesk/api/internal/queue"
	"github.com/tiffindesk/api/internal/reconcile"
	"github.com/tiffindesk/api/internal/router"
	"github.com/tiffindesk/api/internal/service"
	"github.com/tiffindesk/api/internal/session"
	"github.com/tiffindesk/api/internal/store"
	"github.com/tiffindesk/api/internal/ws"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Document store
	db, closeDB, err := store.Open(ctx, store.Options{
		Backend:      cfg.StoreBackend,
		SnapshotPath: cfg.StoreSnapshotPath,
		DatabaseURL:  cfg.DatabaseURL,
	}, log)
	if err != nil {
		log.Fatal("open store failed", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeDB()

	cat := catalog.New(db)
	customers := customer.New(db)
	orderStore := orders.New(db)

	// Session dashboards
	var kv session.KV = session.NewMemoryKV()
	if cfg.SessionStatePath != "" {
		kv = session.NewFileKV(cfg.SessionStatePath)
	}
	dashboards, err := session.New(kv, log)
	if err != nil {
		log.Fatal("load session dashboards failed", zap.Error(err))
	}

	// Events
	var events queue.Publisher = queue.Noop{}
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL, cfg.RabbitMQExchange, log)
		if err != nil {
			log.Warn("rabbitmq unavailable, events disabled", zap.Error(err))
		} else {
			defer qc.Close()
			events = qc
			log.Info("order events enabled", zap.String("exchange", cfg.RabbitMQExchange))
		}
	} else {
		log.Info("order events disabled (RABBITMQ_URL is empty)")
	}

	// Billing
	charge, err := decimal.NewFromString(cfg.DefaultDeliveryCharge)
	if err != nil {
		log.Fatal("invalid DEFAULT_DELIVERY_CHARGE", zap.String("value", cfg.DefaultDeliveryCharge), zap.Error(err))
	}
	billing := service.NewBillingService(service.BillingDeps{
		Menus:     cat,
		Customers: customers,
		Orders:    orderStore,
		Session:   dashboards,
		Bills:     newBillExporter(ctx, cfg, log),
		Events:    events,
		Logger:    log,
	}, service.BuilderOptions{
		AllowCustomItems:      cfg.CustomItemsAllowed,
		IncrementOnReselect:   cfg.IncrementOnReselect,
		DefaultDeliveryCharge: &charge,
	})
	payments := reconcile.NewService(orderStore, events, log)

	// Live order feed
	hub := ws.NewHub(log, ws.WithAllowedOrigins(cfg.CORSAllowedOrigins))
	go hub.Run(ctx)
	stopWatch, err := hub.Watch(ctx, orderStore)
	if err != nil {
		log.Fatal("watch orders failed", zap.Error(err))
	}
	defer stopWatch()

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(cfg, router.Deps{
			Catalog:    cat,
			Customers:  customers,
			Orders:     orderStore,
			Billing:    billing,
			Payments:   payments,
			Dashboards: dashboards,
			Hub:        hub,
		}, log),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
	cancel()
	log.Info("server stopped")
}

// newBillExporter writes bills as PNG and PDF to the local bill directory and,
// when configured, the object store.
func newBillExporter(ctx context.Context, cfg *config.Config, log *zap.Logger) *bill.Exporter {
	renderers := []bill.Renderer{
		bill.PNGRenderer{Title: cfg.BillTitle, Scale: 2},
		bill.PDFRenderer{Title: cfg.BillTitle},
	}
	var sinks []bill.Sink
	if cfg.BillDir != "" {
		sinks = append(sinks, bill.DirSink{Dir: cfg.BillDir})
	}
	if cfg.ObjectStore.Enabled() {
		s3Sink, err := bill.NewS3Sink(ctx, bill.S3Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			Bucket:          cfg.ObjectStore.Bucket,
			Prefix:          cfg.ObjectStore.Prefix,
			PublicBaseURL:   cfg.ObjectStore.PublicBaseURL,
		})
		if err != nil {
			log.Warn("object store unavailable, bills kept locally", zap.Error(err))
		} else {
			sinks = append(sinks, s3Sink)
		}
	}
	return bill.NewExporter(renderers, sinks, log)
}
