package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/canteen-pickup/api/internal/broker"
	"github.com/canteen-pickup/api/internal/config"
	"github.com/canteen-pickup/api/internal/database"
	"github.com/canteen-pickup/api/internal/events"
	"github.com/canteen-pickup/api/internal/router"
	"github.com/canteen-pickup/api/internal/service"
	"github.com/canteen-pickup/api/internal/slotload"
	"github.com/canteen-pickup/api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	queries := database.New(pool)

	var loads service.SlotLoads
	if cfg.RedisURL != "" {
		rdb, err := connectRedis(ctx, cfg.RedisURL)
		switch {
		case err == nil:
			defer rdb.Close()
			loads = slotload.NewTracker(rdb)
			log.Printf("Slot loads recorded in Redis (policy: %s)", cfg.SlotLoadPolicy)
		case cfg.SlotLoadPolicy == config.SlotLoadTracked:
			log.Fatalf("Unable to connect to Redis: %v", err)
		default:
			log.Printf("WARNING: Redis unavailable, slot loads not recorded: %v", err)
		}
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	notifiers := events.Fanout{hub}
	if cfg.AMQPURL != "" {
		pub, err := broker.Dial(cfg.AMQPURL)
		if err != nil {
			log.Printf("WARNING: broker unavailable, order events stay in-process: %v", err)
		} else {
			defer pub.Close()
			notifiers = append(notifiers, pub)
			log.Printf("Publishing order events to exchange %s", broker.Exchange)
		}
	}

	orders := service.NewOrderService(queries, loads, notifiers, service.Options{
		IOTimeout:  cfg.IOTimeout,
		Location:   cfg.Location(),
		TrackLoads: cfg.SlotLoadPolicy == config.SlotLoadTracked,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router.New(cfg, queries, orders, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
