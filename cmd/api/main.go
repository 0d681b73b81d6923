package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentalcore/internal/httpapi"
	"rentalcore/internal/notify"
	"rentalcore/internal/sweep"
	"rentalcore/pkg/config"
	"rentalcore/pkg/db"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer conn.Close()

	if cfg.MigrationsPath != "" {
		if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	var notifier notify.Notifier
	if cfg.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(ctx, cfg.AMQPURL)
		if err != nil {
			log.Fatalf("amqp connect: %v", err)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	}
	dispatcher := notify.NewDispatcher(notifier)

	if cfg.SweepInterval > 0 {
		s := &sweep.Sweeper{DB: conn, Notify: dispatcher}
		go s.Run(ctx, cfg.SweepInterval)
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:    cfg,
		DB:     conn,
		Notify: dispatcher,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("http listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
}
