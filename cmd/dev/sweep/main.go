// One-shot deadline sweep for local dev and cron-style deployments.
package main

import (
	"context"
	"log"
	"time"

	"rentalcore/internal/notify"
	"rentalcore/internal/sweep"
	"rentalcore/pkg/config"
	"rentalcore/pkg/db"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer conn.Close()

	var notifier notify.Notifier
	if cfg.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(ctx, cfg.AMQPURL)
		if err != nil {
			log.Fatalf("amqp connect: %v", err)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	}

	s := &sweep.Sweeper{DB: conn, Notify: notify.NewDispatcher(notifier)}
	if err := s.RunOnce(ctx, time.Now()); err != nil {
		log.Fatalf("sweep: %v", err)
	}
	log.Print("sweep pass complete")
}
