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
	"github.com/seatlock/ticketing-go/internal/infrastructure/registry"
	"github.com/seatlock/ticketing-go/internal/logging"
	"github.com/seatlock/ticketing-go/internal/rpc"
)

func main() {
	cfg := config.Load("8081")
	log := logging.MustNew("inventory-service")
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

	seatRepo := db.NewPgSeatRepository(dbConn)
	inventorySvc := application.NewInventoryService(seatRepo, log)

	server := rpc.NewServer(log)
	rpc.RegisterInventoryHandlers(server, inventorySvc)

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	reg := registry.NewRedisRegistry(redisClient, time.Duration(cfg.RegistryTTLSec)*time.Second, log)
	if err := reg.Register(ctx, rpc.ServiceInventory, "localhost:"+cfg.HTTPPort); err != nil {
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
