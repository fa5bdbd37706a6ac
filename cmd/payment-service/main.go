package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/application"
	"github.com/seatlock/ticketing-go/internal/config"
	"github.com/seatlock/ticketing-go/internal/infrastructure/db"
	"github.com/seatlock/ticketing-go/internal/infrastructure/messaging"
	outboxinfra "github.com/seatlock/ticketing-go/internal/infrastructure/outbox"
	"github.com/seatlock/ticketing-go/internal/infrastructure/registry"
	"github.com/seatlock/ticketing-go/internal/infrastructure/schedule"
	"github.com/seatlock/ticketing-go/internal/logging"
	"github.com/seatlock/ticketing-go/internal/rpc"
)

func main() {
	cfg := config.Load("8083")
	log := logging.MustNew("payment-service")
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConn, err := sql.Open("pgx", cfg.PgDSN)
	if err != nil {
		log.Fatal("open postgres", zap.Error(err))
	}
	defer dbConn.Close()
	if err := dbConn.PingContext(ctx); err != nil {
		log.Fatal("ping postgres", zap.Error(err))
	}

	paymentStore := db.NewPgPaymentStore(dbConn)
	outboxRepo := db.NewPgOutboxRepository(dbConn)
	paymentSvc := application.NewPaymentService(paymentStore, cfg.CheckoutBaseURL, cfg.OutboxMaxRetry, log)

	publisher := messaging.NewRabbitPublisher(cfg.RabbitURI, cfg.PaymentExchange, log)
	defer publisher.Close()
	dispatcher := outboxinfra.NewDispatcher(outboxRepo, publisher, cfg.OutboxBatchSize, log)
	schedule.New("outbox-relay", time.Duration(cfg.OutboxIntervalSec)*time.Second, dispatcher.DispatchOnce, log).Start(ctx)

	server := rpc.NewServer(log)
	rpc.RegisterPaymentHandlers(server, paymentSvc)

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	reg := registry.NewRedisRegistry(redisClient, time.Duration(cfg.RegistryTTLSec)*time.Second, log)
	if err := reg.Register(ctx, rpc.ServicePayment, "localhost:"+cfg.HTTPPort); err != nil {
		log.Fatal("register service", zap.Error(err))
	}

	go func() {
		if err := server.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			log.Fatal("rpc server", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("rpc server shutdown", zap.Error(err))
	}
}
